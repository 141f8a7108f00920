package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filevault/internal/config"
	"filevault/internal/daemon"
	"filevault/internal/faults"
	"filevault/internal/logging"
	"filevault/internal/migrate"
	"filevault/internal/registry"
	"filevault/internal/storagearea"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	layout, err := storagearea.New(cfg.Paths.Root)
	if err != nil {
		log.Fatalf("storage layout: %v", err)
	}
	if err := layout.EnsureLayout(); err != nil {
		log.Fatalf("ensure storage layout: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		LogFile: layout.LogFile(),
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := registry.Open(cfg.Database.DSN,
		registry.WithExposeDeleted(cfg.Registry.ExposeDeleted))
	if err != nil {
		logger.Error("open registry", logging.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	// The schema must be current before anything else touches the registry.
	migrations, err := migrate.DirSource(cfg.Database.MigrationsDir)
	if err != nil {
		logger.Error("load migrations", logging.Error(err))
		os.Exit(1)
	}
	runner := migrate.NewRunner(store.DB(), migrations,
		time.Duration(cfg.Database.LockWaitSeconds)*time.Second, logger)
	if err := runner.Run(ctx); err != nil {
		logger.Error("apply migrations",
			logging.Error(err),
			logging.Bool("fatal", faults.IsFatal(err)),
		)
		os.Exit(1)
	}

	d, err := daemon.New(cfg, layout, store, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("filevaultd shutting down")
}
