package state

import (
	"errors"
	"net/http"

	apperrors "github.com/AmareGatie/phase4/errors"
)

// Sentinels for errors.Is. Errors returned by this package carry details and
// match these by code.
var (
	ErrUnknownOperation   = apperrors.New(apperrors.ErrCodeUnknownOperation, "unknown operation", http.StatusBadRequest)
	ErrScopeNotComposed   = apperrors.New(apperrors.ErrCodeScopeNotComposed, "scope not composed", http.StatusInternalServerError)
	ErrCapabilityMismatch = apperrors.New(apperrors.ErrCodeCapabilityMismatch, "capability type mismatch", http.StatusInternalServerError)

	// ErrDuplicateCapability is returned by Compose when two providers share a name.
	ErrDuplicateCapability = errors.New("state: duplicate capability")
)
