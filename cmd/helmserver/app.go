package main

import (
	"context"
	"net"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/bootstrap"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/database/redis"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/helmkit/internal/interfaces/http"
	"github.com/turtacn/helmkit/internal/interfaces/http/handlers"
)

// app holds the wired helmserver components.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	metrics  *prometheus.AppMetrics
	backends *bootstrap.Backends
	store    *monomer.MemoryStore
	service  notation.Service
	cache    redis.CanonicalCache
	server   *httpserver.Server
}

// newApp connects the configured backends, loads the monomer store and
// builds the HTTP server.
func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*app, error) {
	metrics, collector, err := bootstrap.NewMetrics(cfg.Metrics, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, metrics: metrics}

	a.backends, err = bootstrap.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.cache = a.backends.Cache

	store, err := a.backends.NewStore(ctx, cfg.Monomers.LibraryPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.metrics.MonomerLibrarySize.WithLabelValues("store").Set(float64(store.Len()))
	a.service = a.backends.NewService(cfg, store, a.metrics)

	if cfg.Monomers.Watch {
		if err := monomer.WatchLibrary(ctx, cfg.Monomers.LibraryPath, store, logger.Named("library"), a.onLibraryReload(ctx)); err != nil {
			a.Close()
			return nil, err
		}
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Service:          a.service,
		Store:            store,
		Version:          version,
		HealthCheckers:   a.healthCheckers(),
		Server:           cfg.Server,
		Logger:           logger,
		Metrics:          a.metrics,
		MetricsCollector: collector,
		MetricsPath:      cfg.Metrics.Path,
	})
	a.server = httpserver.NewServer(cfg.Server, router, logger.Named("http"))
	return a, nil
}

func (a *app) healthCheckers() []handlers.HealthChecker {
	return append([]handlers.HealthChecker{handlers.NewStoreChecker(a.store)}, a.backends.HealthCheckers()...)
}

// onLibraryReload records the reload and drops cached canonical forms, which
// may depend on the replaced monomer definitions.
func (a *app) onLibraryReload(ctx context.Context) monomer.ReloadFunc {
	return func(n int, err error) {
		prometheus.RecordLibraryReload(a.metrics, n, err)
		if err != nil {
			return
		}
		a.metrics.MonomerLibrarySize.WithLabelValues("store").Set(float64(a.store.Len()))
		if a.cache == nil {
			return
		}
		purged, perr := a.cache.Purge(ctx)
		if perr != nil {
			prometheus.RecordCacheError(a.metrics, "canonical", "purge")
			a.logger.Warn("Canonical cache purge failed", logging.Err(perr))
			return
		}
		a.logger.Info("Canonical cache purged", logging.Int64("entries", purged))
	}
}

// watchConfig applies the runtime-safe settings of a changed config file.
func (a *app) watchConfig(path string) {
	err := config.Watch(path, func(cfg *config.Config) {
		logging.SetLevel(a.logger, cfg.Log.Level)
		a.service.SetMaxCandidates(cfg.Canonical.MaxCandidates)
		a.logger.Info("Configuration reloaded",
			logging.String("log_level", cfg.Log.Level),
			logging.Int("max_candidates", cfg.Canonical.MaxCandidates))
	}, func(err error) {
		a.logger.Warn("Configuration reload rejected", logging.Err(err))
	})
	if err != nil {
		a.logger.Warn("Configuration watch disabled", logging.Err(err))
	}
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (a *app) Run(ctx context.Context) error {
	return a.run(ctx, nil)
}

// run serves on ln, or on the configured address when ln is nil.
func (a *app) run(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if ln != nil {
			errCh <- a.server.Serve(ln)
		} else {
			errCh <- a.server.Start()
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("Shutdown signal received")
	if err := a.server.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
}

// Close releases the backend connections.
func (a *app) Close() {
	if a.backends != nil {
		a.backends.Close()
	}
}
