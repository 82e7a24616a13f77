// Package bootstrap connects the optional helmkit backends shared by
// helmserver and helmworker and builds the monomer store and notation
// service over them.
package bootstrap

import (
	"context"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/chemistry"
	"github.com/turtacn/helmkit/internal/infrastructure/database/postgres"
	"github.com/turtacn/helmkit/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/helmkit/internal/infrastructure/database/redis"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/internal/infrastructure/storage/minio"
	"github.com/turtacn/helmkit/internal/interfaces/http/handlers"
)

// Backends holds the connected backends.  Any field is nil when its
// section is disabled.
type Backends struct {
	Postgres    *postgres.Connection
	ObjectStore *minio.Client
	Redis       *redis.Client
	Cache       redis.CanonicalCache

	logger logging.Logger
}

// Connect opens every enabled backend.  Postgres and the object store are
// required once enabled; a Redis that is down only disables the cache.
func Connect(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Backends, error) {
	b := &Backends{logger: logger}

	if cfg.Postgres.Enabled {
		if cfg.Postgres.AutoMigrate {
			if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Postgres)); err != nil {
				return nil, err
			}
		}
		conn, err := postgres.NewConnection(ctx, cfg.Postgres, logger.Named("postgres"))
		if err != nil {
			return nil, err
		}
		b.Postgres = conn
	}

	if cfg.ObjectStore.Enabled {
		client, err := minio.NewClient(ctx, cfg.ObjectStore, logger.Named("objectstore"))
		if err != nil {
			b.Close()
			return nil, err
		}
		b.ObjectStore = client
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, logger.Named("redis"))
		if err != nil {
			logger.Warn("Redis unavailable, canonical cache disabled", logging.Err(err))
		} else {
			b.Redis = client
			b.Cache = redis.NewCanonicalCache(client, logger.Named("cache"),
				redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithTTL(cfg.Redis.TTL))
		}
	}
	return b, nil
}

// Sources lists the monomer sources merged over the standard library, in
// merge order: the database first, then the object store.
func (b *Backends) Sources() []notation.MonomerSource {
	var sources []notation.MonomerSource
	if b.Postgres != nil {
		sources = append(sources, repositories.NewMonomerRepository(b.Postgres.Pool(), b.logger.Named("monomers")))
	}
	if b.ObjectStore != nil {
		sources = append(sources, b.ObjectStore)
	}
	return sources
}

// NewStore loads the shared monomer store from the standard library,
// libraryPath and then the backend sources.
func (b *Backends) NewStore(ctx context.Context, libraryPath string) (*monomer.MemoryStore, error) {
	return notation.NewStore(ctx, libraryPath, b.logger, b.Sources()...)
}

// NewService builds the notation service over store, caching through Redis
// when it is connected.
func (b *Backends) NewService(cfg *config.Config, store *monomer.MemoryStore, metrics *prometheus.AppMetrics) notation.Service {
	opts := []notation.Option{
		notation.WithMaxCandidates(cfg.Canonical.MaxCandidates),
		notation.WithParseLimits(cfg.Parser.MaxRepeat, cfg.Parser.MaxUnits),
		notation.WithMetrics(metrics),
	}
	if b.Cache != nil {
		opts = append(opts, notation.WithCache(b.Cache))
	}
	return notation.NewService(store, chemistry.NewEngine(), b.logger.Named("notation"), opts...)
}

// HealthCheckers returns a readiness check per connected backend.
func (b *Backends) HealthCheckers() []handlers.HealthChecker {
	var checkers []handlers.HealthChecker
	if b.Redis != nil {
		checkers = append(checkers, handlers.NewChecker("redis", b.Redis.Ping))
	}
	if b.Postgres != nil {
		checkers = append(checkers, handlers.NewChecker("postgres", b.Postgres.HealthCheck))
	}
	if b.ObjectStore != nil {
		checkers = append(checkers, handlers.NewChecker("object_store", b.ObjectStore.HealthCheck))
	}
	return checkers
}

// Close releases every connection.
func (b *Backends) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.Postgres != nil {
		b.Postgres.Close()
	}
}

// NewMetrics builds the metric set.  Disabled metrics yield nop metrics and
// a nil collector.
func NewMetrics(cfg config.MetricsConfig, logger logging.Logger) (*prometheus.AppMetrics, prometheus.MetricsCollector, error) {
	if !cfg.Enabled {
		return prometheus.NewNopAppMetrics(), nil, nil
	}
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger.Named("metrics"))
	if err != nil {
		return nil, nil, err
	}
	return prometheus.NewAppMetrics(c), c, nil
}
