package resilience

import (
	"errors"
	"sync"
)

// ErrBulkheadFull is returned when a key has no free slot.
var ErrBulkheadFull = errors.New("bulkhead is full")

// DefaultMaxPerKey is used when MaxPerKey is not set.
const DefaultMaxPerKey = 4

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for logging.
	Name string `mapstructure:"name"`
	// MaxPerKey is the maximum number of slots one key may hold at once.
	MaxPerKey int `mapstructure:"max_per_key"`
	// OnReject is called when a key is refused a slot.
	OnReject func(name, key string) `mapstructure:"-"`
}

// ApplyDefaults fills zero fields.
func (c *BulkheadConfig) ApplyDefaults() {
	if c.MaxPerKey <= 0 {
		c.MaxPerKey = DefaultMaxPerKey
	}
}

// Bulkhead hands out a bounded number of slots per key. Keys are independent:
// a full key never blocks another one.
type Bulkhead struct {
	config BulkheadConfig

	mu    sync.Mutex
	inUse map[string]int
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	config.ApplyDefaults()
	return &Bulkhead{
		config: config,
		inUse:  make(map[string]int),
	}
}

// Acquire takes a slot for key without waiting. The returned release is safe
// to call more than once.
func (b *Bulkhead) Acquire(key string) (release func(), err error) {
	b.mu.Lock()
	if b.inUse[key] >= b.config.MaxPerKey {
		b.mu.Unlock()
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name, key)
		}
		return nil, ErrBulkheadFull
	}
	b.inUse[key]++
	b.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { b.release(key) }) }, nil
}

func (b *Bulkhead) release(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inUse[key] <= 1 {
		delete(b.inUse, key)
		return
	}
	b.inUse[key]--
}

// InUse returns the number of slots key currently holds.
func (b *Bulkhead) InUse(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inUse[key]
}

// MaxPerKey returns the per-key limit.
func (b *Bulkhead) MaxPerKey() int {
	return b.config.MaxPerKey
}
