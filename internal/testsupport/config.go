package testsupport

import (
	"path/filepath"
	"testing"

	"filevault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Root = base
	cfgVal.Database.DSN = filepath.Join(base, "storage", "filevault.db")
	cfgVal.Database.LockWaitSeconds = 2
	cfgVal.Ingest.InboxDir = filepath.Join(base, "inbox")
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMaxUploadBytes caps the ingest admission limit on the test config.
func WithMaxUploadBytes(limit int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.MaxUploadBytes = limit
	}
}

// WithTempTTLSeconds overrides the reaper temp file TTL on the test config.
func WithTempTTLSeconds(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reaper.TempTTLSeconds = seconds
	}
}

// WithExposeDeleted makes registry lookups return soft-deleted audit rows.
func WithExposeDeleted() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Registry.ExposeDeleted = true
	}
}
