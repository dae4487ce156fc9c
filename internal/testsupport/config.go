package testsupport

import (
	"path/filepath"
	"testing"

	"oasis/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Server.Bind = "127.0.0.1:0"
	cfg.Auth.Tokens = map[string]string{
		"token-alice": "alice:user",
		"token-bob":   "bob:user",
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithEndmembers replaces the end-member reference table on the test config.
func WithEndmembers(pairs map[string]config.Endmember) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Model.Endmembers = pairs
	}
}

// WithWorkers overrides the pipeline worker count.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.Workers = n
	}
}
