package capability

import (
	"context"
	"fmt"

	apperrors "github.com/AmareGatie/phase4/errors"
	"github.com/AmareGatie/phase4/state"
)

// Theme names.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Theme operations.
const (
	OpToggleTheme = "toggleTheme"
	OpSetTheme    = "setTheme"
)

// ThemeProvider declares the theme container starting at ThemeLight.
func ThemeProvider() state.Provider {
	return state.Provide(Theme, ThemeLight, map[string]state.Reducer[string]{
		OpToggleTheme: func(current string, _ any) (string, error) {
			if current == ThemeLight {
				return ThemeDark, nil
			}
			return ThemeLight, nil
		},
		OpSetTheme: func(current string, args any) (string, error) {
			name, err := argAs[string](Theme, "theme", args)
			if err != nil {
				return current, err
			}
			if name != ThemeLight && name != ThemeDark {
				return current, apperrors.InvalidInput("theme", fmt.Sprintf("unsupported theme %q", name))
			}
			return name, nil
		},
	})
}

// ThemeHandle is the typed view of the theme capability.
type ThemeHandle struct {
	*state.Handle[string]
}

// UseTheme returns the theme handle of scope.
func UseTheme(scope *state.Scope) (ThemeHandle, error) {
	h, err := state.Use[string](scope, Theme)
	return ThemeHandle{h}, err
}

// Toggle switches between light and dark.
func (t ThemeHandle) Toggle(ctx context.Context) (string, error) {
	return t.Apply(ctx, OpToggleTheme, nil)
}

// Set selects name, which must be ThemeLight or ThemeDark.
func (t ThemeHandle) Set(ctx context.Context, name string) (string, error) {
	return t.Apply(ctx, OpSetTheme, name)
}
