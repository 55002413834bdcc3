package capability

import (
	"fmt"

	apperrors "github.com/AmareGatie/phase4/errors"
	"github.com/AmareGatie/phase4/state"
)

func invalidArg(capability state.Capability, field string, want, got any) error {
	return apperrors.InvalidInput(field, fmt.Sprintf("%s expects %T, got %T", capability, want, got))
}
