package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chronicles/internal/app/server/api"
	"chronicles/internal/app/server/config"
	"chronicles/internal/infrastructure/storage"
	"chronicles/internal/infrastructure/storage/file"
	"chronicles/internal/infrastructure/storage/memory"
	"chronicles/internal/infrastructure/storage/postgres"
	"chronicles/internal/infrastructure/storage/sqlite"

	"golang.org/x/exp/slog"
)

const shutdownTimeout = 10 * time.Second

// OpenStorage открывает хранилище снимков, выбранное STORAGE_DRIVER.
func OpenStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.KV, error) {
	switch cfg.Storage.Driver {
	case storage.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DB.DatabaseURI, cfg.DB.Migrations, nil)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return postgres.NewKVRepository(db, log), nil
	case storage.DriverSQLite:
		return sqlite.New(cfg.Storage.SQLitePath)
	case storage.DriverFile:
		return file.New(cfg.Storage.DataDir, log)
	case storage.DriverMemory:
		log.Warn("memory storage: snapshots are lost on restart")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// Run поднимает HTTP-сервер и блокируется до отмены ctx, после чего корректно его останавливает.
func Run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	kv, err := OpenStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Error("close storage", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           api.New(kv, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server running",
			"addr", cfg.Server.RunAddress,
			"driver", cfg.Storage.Driver,
			"max_payload_mb", cfg.Server.MaxPayloadBytes>>20)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
