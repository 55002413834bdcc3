package capability

import "github.com/AmareGatie/phase4/state"

// Capability names, in the order the storefront composes them.
const (
	Theme    state.Capability = "theme"
	Auth     state.Capability = "auth"
	Language state.Capability = "language"
	Counter  state.Capability = "counter"
	Cart     state.Capability = "cart"
)

// Names lists every capability in composition order.
func Names() []state.Capability {
	return []state.Capability{Theme, Auth, Language, Counter, Cart}
}

// Providers returns the default providers in composition order. The order
// carries no meaning; no container reads another's value.
func Providers() []state.Provider {
	return []state.Provider{
		ThemeProvider(),
		AuthProvider(),
		LanguageProvider(),
		CounterProvider(),
		CartProvider(),
	}
}

// Known reports whether name is one of the storefront capabilities.
func Known(name string) bool {
	for _, n := range Names() {
		if string(n) == name {
			return true
		}
	}
	return false
}

func argAs[T any](capability state.Capability, field string, args any) (T, error) {
	v, ok := args.(T)
	if !ok {
		var want T
		return want, invalidArg(capability, field, want, args)
	}
	return v, nil
}
