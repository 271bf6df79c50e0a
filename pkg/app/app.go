package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/pflag"

	"stall/pkg/autosave"
	"stall/pkg/httpapi"
	"stall/pkg/stand"
	"stall/pkg/storage"
	"stall/pkg/storage/filestore"
	"stall/pkg/storage/memstore"
	"stall/pkg/storage/sqlstore"
	"stall/pkg/version"
)

// Run composes persistence, the stand service, autosave and the HTTP server, and blocks until ctx ends.
// The stand is saved one last time on the way out.
func Run(ctx context.Context, args []string, logger *slog.Logger) error {
	cfg, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			// Help output is already printed by pflag.
			return nil
		}
		return err
	}
	if logger == nil {
		logger = cfg.newLogger()
	}

	if cfg.showVersion {
		logger.Info("stall version", "version", version.Version())
		return nil
	}

	codec, err := storage.CodecByName(cfg.Codec)
	if err != nil {
		return err
	}
	backend, closeBackend, err := openBackend(ctx, cfg, codec)
	if err != nil {
		return fmt.Errorf("unable to open %s store: %w", cfg.Store, err)
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn("closing store failed", "err", err)
		}
	}()

	svc, err := stand.Open(ctx, storage.NewGateway(backend, codec), stand.Options{
		Logger:    logger.With("component", "stand"),
		MaxTicket: cfg.MaxTicket,
	})
	if err != nil {
		return fmt.Errorf("unable to load stand data: %w", err)
	}
	defer svc.Close()

	api := httpapi.New(svc, logger.With("component", "http"), httpapi.Options{
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
	server := &http.Server{
		Addr:         cfg.address(),
		Handler:      api.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		autosave.Task{
			Interval: cfg.Autosave,
			Save:     svc.Save,
			Logger:   logger.With("component", "autosave"),
		}.Run(runCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("stall is running", "addr", server.Addr, "store", cfg.Store, "codec", codec.Name(), "autosave", cfg.Autosave)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("server stopped unexpectedly: %w", err)
			return
		}
		serveErr <- nil
	}()

	select {
	case <-runCtx.Done():
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown failed", "err", serr)
	}
	stop()
	wg.Wait()

	if serr := finalSave(shutdownCtx, svc, logger); serr != nil && err == nil {
		err = serr
	}
	return err
}

// finalSave persists the stand on the way out, even when ctx has already expired.
func finalSave(ctx context.Context, svc *stand.Service, logger *slog.Logger) error {
	if err := svc.Save(context.WithoutCancel(ctx)); err != nil {
		logger.Error("final save failed", "err", err)
		return err
	}
	logger.Info("stand saved, shutting down")
	return nil
}

// openBackend selects the record store named by cfg.Store.
func openBackend(ctx context.Context, cfg Config, codec storage.Codec) (storage.Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store {
	case "memory":
		return memstore.New(), noop, nil
	case "file":
		store, err := filestore.New(cfg.DataDir, codec.Name())
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case "sqlite", "postgres":
		dialect, err := sqlstore.DialectByName(cfg.Store)
		if err != nil {
			return nil, nil, err
		}
		dsn := cfg.DSN
		if dsn == "" {
			if dsn, err = defaultSQLitePath(cfg.DataDir); err != nil {
				return nil, nil, err
			}
		}
		store, err := sqlstore.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// defaultSQLitePath keeps the database next to the file store's records.
func defaultSQLitePath(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cwd, "data")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return filepath.Join(dir, "stall.db"), nil
}
