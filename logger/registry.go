package logger

// Get returns the global logger tagged with a component name. Packages call
// it when they are constructed, so construct them after Init.
func Get(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}
