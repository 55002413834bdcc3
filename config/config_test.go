package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Auth          struct {
		VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
		JWT           struct {
			Secret string `mapstructure:"secret"`
			Issuer string `mapstructure:"issuer"`
		} `mapstructure:"jwt"`
	} `mapstructure:"auth"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const yamlConfig = `
name: storefront
environment: staging
auth:
  verify_timeout: 3s
  jwt:
    issuer: storefront
    secret: from-file-secret
`

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{Name: "svc"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Logging.ServiceName != "svc" {
		t.Errorf("logging service name = %q", cfg.Logging.ServiceName)
	}

	prod := ServiceConfig{Name: "svc", Environment: "production"}
	prod.ApplyDefaults()
	if prod.Debug {
		t.Error("production enabled debug")
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "production"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"bad environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("error = %v, want %q", err, tc.errMsg)
			}
		})
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", yamlConfig)

	var cfg testConfig
	if err := LoadConfig("storefront", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "storefront" || cfg.Environment != "staging" {
		t.Errorf("service = %+v", cfg.ServiceConfig)
	}
	if cfg.Auth.VerifyTimeout != 3*time.Second {
		t.Errorf("verify_timeout = %s", cfg.Auth.VerifyTimeout)
	}
	if cfg.Auth.JWT.Issuer != "storefront" {
		t.Errorf("issuer = %q", cfg.Auth.JWT.Issuer)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", yamlConfig)
	t.Setenv("AUTH_JWT_SECRET", "from-env-secret")
	t.Setenv("AUTH_VERIFY_TIMEOUT", "500ms")

	var cfg testConfig
	if err := LoadConfig("storefront", &cfg, WithConfigFile(path)); err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.JWT.Secret != "from-env-secret" {
		t.Errorf("secret = %q", cfg.Auth.JWT.Secret)
	}
	if cfg.Auth.VerifyTimeout != 500*time.Millisecond {
		t.Errorf("verify_timeout = %s", cfg.Auth.VerifyTimeout)
	}
}

func TestEnvAlias(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", yamlConfig)
	alias := WithEnvAlias("JWT_SECRET", "auth.jwt.secret")

	t.Run("alias used when canonical unset", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "legacy-secret")
		var cfg testConfig
		if err := LoadConfig("storefront", &cfg, WithConfigFile(path), alias); err != nil {
			t.Fatal(err)
		}
		if cfg.Auth.JWT.Secret != "legacy-secret" {
			t.Errorf("secret = %q", cfg.Auth.JWT.Secret)
		}
	})

	t.Run("canonical wins", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "legacy-secret")
		t.Setenv("AUTH_JWT_SECRET", "canonical-secret")
		var cfg testConfig
		if err := LoadConfig("storefront", &cfg, WithConfigFile(path), alias); err != nil {
			t.Fatal(err)
		}
		if cfg.Auth.JWT.Secret != "canonical-secret" {
			t.Errorf("secret = %q", cfg.Auth.JWT.Secret)
		}
	})
}

func TestEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", yamlConfig)
	envPath := writeFile(t, dir, ".env", "AUTH_JWT_ISSUER=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("AUTH_JWT_ISSUER") })

	var cfg testConfig
	if err := LoadConfig("storefront", &cfg, WithConfigFile(path), WithEnvFile(envPath)); err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.JWT.Issuer != "from-dotenv" {
		t.Errorf("issuer = %q", cfg.Auth.JWT.Issuer)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	var cfg testConfig
	if err := LoadConfig("storefront", &cfg, WithConfigFile("/nonexistent/config.yml")); err == nil {
		t.Error("missing explicit file accepted")
	}

	bad := writeFile(t, t.TempDir(), "config.yml", "auth: [unterminated")
	if err := LoadConfig("storefront", &cfg, WithConfigFile(bad)); err == nil {
		t.Error("malformed file accepted")
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool {
	return m.files[path]
}

func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestResolveFiles(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/storefront/config.yml": true,
		"./cmd/storefront/.env":       true,
		"./.env":                      true,
	}}
	r := &Resolver{FileSystem: fs}

	files := r.ResolveFiles("storefront", LoaderConfig{})
	if files.ConfigFile != "./cmd/storefront/config.yml" {
		t.Errorf("config file = %q", files.ConfigFile)
	}
	if files.EnvFile != "./cmd/storefront/.env" {
		t.Errorf("env file = %q", files.EnvFile)
	}

	explicit := r.ResolveFiles("storefront", LoaderConfig{ConfigFile: "/etc/storefront.yml"})
	if explicit.ConfigFile != "/etc/storefront.yml" {
		t.Errorf("explicit config file = %q", explicit.ConfigFile)
	}
}

func TestLoadConfigUsesFileSystem(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", yamlConfig)

	t.Run("resolved through the filesystem", func(t *testing.T) {
		fs := &mockFS{files: map[string]bool{
			path:                    true,
			"./cmd/storefront/.env": true,
		}}
		var cfg testConfig
		if err := LoadConfig("storefront", &cfg, WithFileSystem(fs), WithConfigFile(path)); err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Auth.JWT.Issuer != "storefront" {
			t.Errorf("issuer = %q", cfg.Auth.JWT.Issuer)
		}
		if !slices.Equal(fs.loaded, []string{"./cmd/storefront/.env"}) {
			t.Errorf("env files loaded = %v", fs.loaded)
		}
	})

	t.Run("explicit file unknown to the filesystem", func(t *testing.T) {
		fs := &mockFS{files: map[string]bool{}}
		var cfg testConfig
		if err := LoadConfig("storefront", &cfg, WithFileSystem(fs), WithConfigFile(path)); err == nil {
			t.Error("file the filesystem does not report was accepted")
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		fs := &mockFS{files: map[string]bool{}}
		var cfg testConfig
		if err := LoadConfig("storefront", &cfg, WithFileSystem(fs)); err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if len(fs.loaded) != 0 {
			t.Errorf("env files loaded = %v", fs.loaded)
		}
	})
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	tests := []struct {
		env  string
		want []string
	}{
		{"PORT", []string{"port"}},
		{"AUTH_JWT_SECRET", []string{"auth.jwt.secret", "auth_jwt_secret"}},
		{"AUTH_VERIFY_TIMEOUT", []string{"auth.verify_timeout"}},
		{"SERVER_RATE_LIMIT_REQUESTS_PER_MINUTE", []string{"server.rate_limit.requests_per_minute"}},
	}
	for _, tt := range tests {
		got := generateEnvKeyVariants(tt.env)
		for _, w := range tt.want {
			if !slices.Contains(got, w) {
				t.Errorf("%s: variants %v missing %q", tt.env, got, w)
			}
		}
	}
}
