package capability

import (
	"context"

	apperrors "github.com/AmareGatie/phase4/errors"
	"github.com/AmareGatie/phase4/state"
)

// OpDispatch is the counter's only operation; its argument is an Action.
const OpDispatch = "dispatch"

// CounterState is the counter value.
type CounterState struct {
	Count int `json:"count"`
}

// Action is a counter transition. The set is closed: only Increment and
// Decrement implement it.
type Action interface {
	Type() string
	apply(CounterState) CounterState
}

// Increment adds one.
type Increment struct{}

// Decrement subtracts one.
type Decrement struct{}

func (Increment) Type() string { return "increment" }
func (Decrement) Type() string { return "decrement" }

func (Increment) apply(s CounterState) CounterState { return CounterState{Count: s.Count + 1} }
func (Decrement) apply(s CounterState) CounterState { return CounterState{Count: s.Count - 1} }

// ParseAction maps a wire tag to its Action. Unknown tags fail with
// ErrUnknownOperation rather than being ignored.
func ParseAction(tag string) (Action, error) {
	switch tag {
	case Increment{}.Type():
		return Increment{}, nil
	case Decrement{}.Type():
		return Decrement{}, nil
	default:
		return nil, apperrors.UnknownOperation(string(Counter), tag)
	}
}

// CounterProvider declares the counter container starting at zero.
func CounterProvider() state.Provider {
	return state.Provide(Counter, CounterState{}, map[string]state.Reducer[CounterState]{
		OpDispatch: func(s CounterState, args any) (CounterState, error) {
			action, err := argAs[Action](Counter, "action", args)
			if err != nil {
				return s, err
			}
			return action.apply(s), nil
		},
	})
}

// CounterHandle is the typed view of the counter capability.
type CounterHandle struct {
	*state.Handle[CounterState]
}

// UseCounter returns the counter handle of scope.
func UseCounter(scope *state.Scope) (CounterHandle, error) {
	h, err := state.Use[CounterState](scope, Counter)
	return CounterHandle{h}, err
}

// Dispatch applies action.
func (c CounterHandle) Dispatch(ctx context.Context, action Action) (CounterState, error) {
	return c.Apply(ctx, OpDispatch, action)
}
