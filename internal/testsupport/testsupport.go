// Package testsupport provides builders shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"bdresolve/internal/config"
	"bdresolve/internal/store"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatabasePath = filepath.Join(base, "bdresolve.db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SummaryDir = filepath.Join(base, "summaries")
	cfg.Paths.CoverCacheDir = filepath.Join(base, "covers")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers overrides the batch worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Batch.Workers = n
	}
}

// WithStrictMode enables strict mode on the test config.
func WithStrictMode() ConfigOption {
	return func(c *config.Config) {
		c.Batch.StrictMode = true
	}
}

// MustOpenStore opens a store against the test config's database and
// closes it when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}
