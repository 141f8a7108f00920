package testsupport

import (
	"context"
	"testing"
	"time"

	"filevault/internal/config"
	"filevault/internal/logging"
	"filevault/internal/migrate"
	"filevault/internal/registry"
)

// MustOpenStore opens a registry store for the supplied config, applies the
// embedded migrations, and registers cleanup with the test lifecycle.
func MustOpenStore(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	opts := []registry.Option{}
	if cfg.Registry.ExposeDeleted {
		opts = append(opts, registry.WithExposeDeleted(true))
	}
	store, err := registry.Open(cfg.Database.DSN, opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	migrations, err := migrate.EmbeddedSource()
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	runner := migrate.NewRunner(store.DB(), migrations,
		time.Duration(cfg.Database.LockWaitSeconds)*time.Second, logging.NewNop())
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return store
}
