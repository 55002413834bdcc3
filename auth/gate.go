package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BearerPrefix is the only accepted Authorization scheme, case-sensitive with
// a single space.
const BearerPrefix = "Bearer "

// Rejection reasons. Callers outside the server never see which one applied.
var (
	ErrMissingOrMalformedCredential = errors.New("auth: missing or malformed credential")
	ErrInvalidCredential            = errors.New("auth: invalid credential")
)

// Stage is a step of the gate's state machine.
type Stage string

const (
	StagePending    Stage = "pending"
	StageExtracted  Stage = "extracted"
	StageVerified   Stage = "verified"
	StageAuthorized Stage = "authorized"
	StageRejected   Stage = "rejected"
)

// Decision is reported once per Authenticate call.
type Decision struct {
	// Stage is StageAuthorized or StageRejected.
	Stage Stage
	// Reached is the last stage passed before the decision.
	Reached  Stage
	Identity Identity
	// Err is nil when authorized; it wraps one of the rejection reasons.
	Err      error
	Duration time.Duration
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithVerifyTimeout bounds token verification.
func WithVerifyTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithDecisionObserver registers fn to receive every decision.
func WithDecisionObserver(fn func(context.Context, Decision)) GateOption {
	return func(g *Gate) {
		g.observers = append(g.observers, fn)
	}
}

// Gate converts an Authorization header into a verified Identity. It holds
// no mutable state and is safe for concurrent use.
type Gate struct {
	validator TokenValidator
	timeout   time.Duration
	observers []func(context.Context, Decision)
}

// NewGate creates a gate backed by validator.
func NewGate(validator TokenValidator, opts ...GateOption) *Gate {
	g := &Gate{validator: validator, timeout: DefaultVerifyTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate runs the gate for one request. The returned error wraps
// ErrMissingOrMalformedCredential or ErrInvalidCredential.
func (g *Gate) Authenticate(ctx context.Context, header string) (Identity, error) {
	start := time.Now()
	id, reached, err := g.run(ctx, header)
	d := Decision{Stage: StageAuthorized, Reached: reached, Identity: id, Err: err, Duration: time.Since(start)}
	if err != nil {
		d.Stage = StageRejected
		d.Identity = Identity{}
	}
	for _, fn := range g.observers {
		fn(ctx, d)
	}
	if err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (g *Gate) run(ctx context.Context, header string) (Identity, Stage, error) {
	token, ok := ExtractBearer(header)
	if !ok {
		return Identity{}, StagePending, ErrMissingOrMalformedCredential
	}

	id, err := g.verify(ctx, token)
	if err != nil {
		return Identity{}, StageExtracted, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if id.Username == "" || id.UserID == "" {
		return Identity{}, StageVerified, fmt.Errorf("%w: identity incomplete", ErrInvalidCredential)
	}
	return id, StageVerified, nil
}

// verify runs the validator under the gate's deadline. The request does not
// proceed until the validator returns or the deadline passes.
func (g *Gate) verify(ctx context.Context, token string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		id  Identity
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := g.validator.ValidateToken(ctx, token)
		done <- result{id, err}
	}()

	select {
	case r := <-done:
		return r.id, r.err
	case <-ctx.Done():
		return Identity{}, ctx.Err()
	}
}

// ExtractBearer returns the token following BearerPrefix. It reports false
// for any other scheme, a different case or spacing, or an empty token.
func ExtractBearer(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}
