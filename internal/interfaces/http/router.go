package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/internal/interfaces/http/handlers"
	"github.com/turtacn/helmkit/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the dependencies of the route tree.
type RouterConfig struct {
	Service notation.Service
	Store   *monomer.MemoryStore
	Version string

	// HealthCheckers gate /readyz.
	HealthCheckers []handlers.HealthChecker

	// Server supplies body limits, CORS origins and the rate limit.
	Server config.ServerConfig

	Logger logging.Logger
	// Metrics records HTTP metrics; MetricsCollector, when set, is served at
	// MetricsPath.
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter builds the helmserver route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogging(logger.Named("http"), cfg.Metrics, middleware.DefaultLoggingConfig()))

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSAllowedOrigins
		r.Use(middleware.CORS(cors))
	}
	if cfg.Server.RateLimitRPS > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.Server.RateLimitRPS
		rl.BurstSize = cfg.Server.RateLimitBurst
		if cfg.MetricsPath != "" {
			rl.SkipPaths = append(rl.SkipPaths, cfg.MetricsPath)
		}
		r.Use(middleware.RateLimit(rl))
	}

	// --- Probes and metrics ---
	health := handlers.NewHealthHandler(cfg.Version, cfg.HealthCheckers...)
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)

	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		registerNotationRoutes(api, cfg, logger)
		registerMonomerRoutes(api, cfg.Store)
	})

	return r
}

// registerNotationRoutes mounts the notation operations under /notations.
func registerNotationRoutes(r chi.Router, cfg RouterConfig, logger logging.Logger) {
	if cfg.Service == nil {
		return
	}
	h := handlers.NewNotationHandler(cfg.Service, logger.Named("notation"), cfg.Server.MaxBodySize)
	r.Route("/notations", func(nr chi.Router) {
		nr.Post("/validate", h.Validate)
		nr.Post("/canonicalize", h.Canonicalize)
		nr.Post("/legacy", h.Legacy)
		nr.Post("/format", h.Format)
		nr.Post("/compare", h.Compare)
	})
}

// registerMonomerRoutes mounts read-only monomer library access under
// /monomers.
func registerMonomerRoutes(r chi.Router, store *monomer.MemoryStore) {
	if store == nil {
		return
	}
	h := handlers.NewMonomerHandler(store)
	r.Route("/monomers", func(mr chi.Router) {
		mr.Get("/", h.List)
		mr.Get("/{type}/{id}", h.Get)
	})
}
