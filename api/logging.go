package api

import (
	"github.com/AmareGatie/phase4/logger"
	"github.com/AmareGatie/phase4/observability"
	"github.com/AmareGatie/phase4/state"
)

// LogApplies returns a scope hook that logs every Apply: failures at warn,
// commits at debug.
func LogApplies(log *logger.Logger) func(state.ApplyResult) {
	return func(r state.ApplyResult) {
		fields := logger.Fields(
			logger.FieldCapability, r.Capability,
			logger.FieldOperation, r.Operation,
			logger.FieldStatus, observability.ApplyStatus(r.Err),
			logger.FieldDuration, r.Duration.Milliseconds(),
		)
		if r.Err != nil {
			log.Warn("State operation rejected", logger.MergeWithError(fields, r.Err))
			return
		}
		fields[logger.FieldVersion] = r.Version
		log.Debug("State committed", fields)
	}
}
