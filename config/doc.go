// Package config loads service configuration.
//
// LoadConfig reads a YAML file, overlays environment variables (optionally
// sourced from a .env file) and unmarshals the result with viper into a
// struct tagged with mapstructure. Nested keys map to upper-case,
// underscore-joined variables: auth.jwt.secret is AUTH_JWT_SECRET.
//
//	var cfg Config
//	err := config.LoadConfig("storefront", &cfg,
//		config.WithEnvAlias("JWT_SECRET", "auth.jwt.secret"))
package config
