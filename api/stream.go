package api

import (
	"encoding/json"
	"fmt"

	"github.com/AmareGatie/phase4/auth"
	"github.com/AmareGatie/phase4/logger"
	"github.com/AmareGatie/phase4/session"
	"github.com/AmareGatie/phase4/sse"
	"github.com/AmareGatie/phase4/state"
)

// versionedValue is one capability in a snapshot frame.
type versionedValue struct {
	Version uint64 `json:"version"`
	Value   any    `json:"value"`
}

// StreamChanges returns a session hook that forwards every commit in a new
// scope to the owner's open streams, and tells them when the scope goes away.
func StreamChanges(b sse.Broadcaster) session.ComposeHook {
	base := logger.Get("api")
	return func(id auth.Identity, scope *state.Scope) func() {
		log := base.WithUser(id.UserID, id.Username)
		pattern := sse.UserPattern(id.UserID)
		cancel, err := scope.Watch(func(ev state.Event) {
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error("Encode change event", logger.MergeWithError(logger.Fields(logger.FieldCapability, ev.Capability), err))
				return
			}
			b.Broadcast(pattern, sse.Frame{
				ID:    fmt.Sprintf("%s:%d", ev.Capability, ev.Version),
				Event: sse.EventChange,
				Data:  data,
			})
		})
		if err != nil {
			log.Error("Watch new scope", logger.ErrorFields("watch", err))
			return nil
		}
		return func() {
			cancel()
			b.Broadcast(pattern, sse.Frame{Event: sse.EventReset, Data: []byte(`{}`)})
		}
	}
}

// snapshotFrame encodes every capability of scope with its version.
func snapshotFrame(scope *state.Scope) (sse.Frame, error) {
	snap := make(map[state.Capability]versionedValue)
	for _, name := range scope.Capabilities() {
		v, version, err := scope.Value(name)
		if err != nil {
			return sse.Frame{}, err
		}
		snap[name] = versionedValue{Version: version, Value: v}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return sse.Frame{}, err
	}
	return sse.Frame{Event: sse.EventSnapshot, Data: data}, nil
}
