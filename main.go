package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/icco/catalog/handlers"
	"github.com/icco/catalog/lib/catalog"
	"github.com/icco/catalog/lib/config"
	"github.com/icco/catalog/lib/db"
	"github.com/icco/catalog/lib/describe"
	"github.com/icco/catalog/lib/lock"
	"github.com/icco/catalog/lib/logging"
	"github.com/icco/catalog/lib/plex"
	"github.com/icco/catalog/lib/remote"
	"github.com/icco/catalog/lib/syncer"
	"github.com/icco/catalog/lib/tmdb"
)

type App struct {
	logger *slog.Logger
	db     *gorm.DB
	server *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	gdb, err := db.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	settings := db.NewSettings(gdb, logger)
	if err := settings.Seed(ctx, map[string]string{
		db.KeyServiceAvailable: cfg.ServiceAvailable,
		db.KeySessionToken:     cfg.SessionToken,
	}); err != nil {
		return nil, err
	}
	history := db.NewHistory(gdb)

	opts := catalog.Options{Availability: settings, Logger: logger}
	if cfg.RemoteEnabled() {
		opts.Remote = remote.NewClient(cfg.CatalogAPIURL, cfg.CatalogAPIPageSize, cfg.CatalogAPITimeout, settings, logger)
	}
	if cfg.TMDBAPIKey != "" {
		opts.TMDB = tmdb.NewClient(cfg.TMDBAPIKey, logger)
	}

	cat, err := catalog.New(opts)
	if err != nil {
		return nil, err
	}
	for _, st := range cat.Initialize(ctx) {
		logger.InfoContext(ctx, "Loaded collection",
			slog.String("entity", st.Entity),
			slog.String("origin", st.Origin),
			slog.Int("count", st.Count))
	}

	orch := syncer.New(lock.NewBusy(logger), logger)
	for _, target := range cat.Targets() {
		orch.Register(target)
	}
	orch.SetRecorder(history)

	deps := handlers.Deps{
		DB:       gdb,
		Catalog:  cat,
		Syncer:   orch,
		Settings: settings,
		History:  history,
	}
	if cfg.PlexURL != "" && cfg.PlexToken != "" {
		deps.Plex = plex.NewClient(cfg.PlexURL, cfg.PlexToken, opts.TMDB, logger)
	}
	if cfg.OpenAIAPIKey != "" {
		d, err := describe.New(cfg.OpenAIAPIKey, "", logger)
		if err != nil {
			return nil, err
		}
		deps.Describer = d
	}

	return &App{
		logger: logger,
		db:     gdb,
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handlers.NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Error("Failed to close database", slog.Any("error", err))
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger, closer := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create app", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Catalog ready",
		slog.String("remote", cfg.CatalogAPIURL),
		slog.Int("page_size", cfg.CatalogAPIPageSize))

	if err := app.Run(ctx); err != nil {
		logger.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}
}
