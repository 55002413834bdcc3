package capability

import (
	"context"

	"github.com/AmareGatie/phase4/state"
)

// DefaultLanguage is the initial language code.
const DefaultLanguage = "en"

// OpChangeLanguage replaces the language code.
const OpChangeLanguage = "changeLanguage"

// LanguageProvider declares the language container.
func LanguageProvider() state.Provider {
	return state.Provide(Language, DefaultLanguage, map[string]state.Reducer[string]{
		OpChangeLanguage: func(current string, args any) (string, error) {
			code, err := argAs[string](Language, "language", args)
			if err != nil {
				return current, err
			}
			return code, nil
		},
	})
}

// LanguageHandle is the typed view of the language capability.
type LanguageHandle struct {
	*state.Handle[string]
}

// UseLanguage returns the language handle of scope.
func UseLanguage(scope *state.Scope) (LanguageHandle, error) {
	h, err := state.Use[string](scope, Language)
	return LanguageHandle{h}, err
}

// Change sets the language code.
func (l LanguageHandle) Change(ctx context.Context, code string) (string, error) {
	return l.Apply(ctx, OpChangeLanguage, code)
}
