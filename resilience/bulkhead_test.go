package resilience

import (
	"errors"
	"sync"
	"testing"
)

func TestBulkhead_AllowsRequestsWithinLimit(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxPerKey: 3})

	var releases []func()
	for i := 0; i < 3; i++ {
		release, err := b.Acquire("alice")
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		releases = append(releases, release)
	}
	if got := b.InUse("alice"); got != 3 {
		t.Errorf("expected 3 in use, got %d", got)
	}
	for _, r := range releases {
		r()
	}
	if got := b.InUse("alice"); got != 0 {
		t.Errorf("expected 0 in use, got %d", got)
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	var rejected []string
	b := NewBulkhead(BulkheadConfig{
		Name:      "test",
		MaxPerKey: 1,
		OnReject:  func(_, key string) { rejected = append(rejected, key) },
	})

	release, err := b.Acquire("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Acquire("alice"); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if len(rejected) != 1 || rejected[0] != "alice" {
		t.Errorf("OnReject calls = %v", rejected)
	}

	release()
	if _, err := b.Acquire("alice"); err != nil {
		t.Errorf("slot not freed: %v", err)
	}
}

func TestBulkhead_KeysAreIndependent(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxPerKey: 1})
	if _, err := b.Acquire("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Acquire("bob"); err != nil {
		t.Errorf("bob blocked by alice: %v", err)
	}
}

func TestBulkhead_ReleaseTwice(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxPerKey: 2})
	first, _ := b.Acquire("alice")
	_, _ = b.Acquire("alice")

	first()
	first()
	if got := b.InUse("alice"); got != 1 {
		t.Errorf("double release freed two slots: in use %d", got)
	}
}

func TestBulkhead_Defaults(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	if b.MaxPerKey() != DefaultMaxPerKey {
		t.Errorf("expected %d, got %d", DefaultMaxPerKey, b.MaxPerKey())
	}
}

func TestBulkhead_Concurrent(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxPerKey: 5})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Acquire("alice"); err == nil {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 5 {
		t.Errorf("expected 5 acquisitions, got %d", acquired)
	}
}
