// Package config defines the configuration structures for helmkit and their
// validation.  Loading lives in loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`

	// CORSAllowedOrigins enables CORS for the listed origins; "*" allows all.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	// RateLimitRPS is the sustained per-client request rate; 0 disables
	// rate limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CanonicalConfig bounds the canonicalizer's renaming search.
type CanonicalConfig struct {
	MaxCandidates int `mapstructure:"max_candidates"`
}

// ParserConfig bounds how far one notation may expand once repeat counts
// are flattened.
type ParserConfig struct {
	MaxRepeat int `mapstructure:"max_repeat"`
	MaxUnits  int `mapstructure:"max_units"`
}

// MonomersConfig selects extra monomer sources merged over the standard
// library.
type MonomersConfig struct {
	// LibraryPath is an optional YAML monomer library.
	LibraryPath string `mapstructure:"library_path"`
	// Watch reloads LibraryPath on change (server only).
	Watch bool `mapstructure:"watch"`
}

// RedisConfig holds canonical-form cache parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TTL          time.Duration `mapstructure:"ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// PostgresConfig holds monomer store connection parameters.
type PostgresConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ObjectStoreConfig locates a monomer library published to S3-compatible
// object storage.
type ObjectStoreConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	// LibraryObject is the object key of the YAML library.
	LibraryObject string `mapstructure:"library_object"`
}

// KafkaConfig configures the batch notation worker.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	// RequestTopic carries notation jobs; results go to ResultTopic.
	RequestTopic string `mapstructure:"request_topic"`
	ResultTopic  string `mapstructure:"result_topic"`
	// DeadLetterTopic receives jobs whose result could not be published.
	// Empty drops them.
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration for helmctl and helmserver.
type Config struct {
	Log         logging.LogConfig `mapstructure:"log"`
	Server      ServerConfig      `mapstructure:"server"`
	Canonical   CanonicalConfig   `mapstructure:"canonical"`
	Parser      ParserConfig      `mapstructure:"parser"`
	Monomers    MonomersConfig    `mapstructure:"monomers"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks a defaulted Config and returns the first problem found.
// Disabled Redis and Postgres sections are not checked.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.MaxBodySize < 1 {
		return fmt.Errorf("config: server.max_body_size must be ≥ 1, got %d", c.Server.MaxBodySize)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("config: server.rate_limit_rps must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("config: server.rate_limit_burst must be ≥ 1 when rate limiting is enabled, got %d", c.Server.RateLimitBurst)
	}

	if c.Canonical.MaxCandidates < 1 {
		return fmt.Errorf("config: canonical.max_candidates must be ≥ 1, got %d", c.Canonical.MaxCandidates)
	}
	if c.Parser.MaxRepeat < 1 {
		return fmt.Errorf("config: parser.max_repeat must be ≥ 1, got %d", c.Parser.MaxRepeat)
	}
	if c.Parser.MaxUnits < c.Parser.MaxRepeat {
		return fmt.Errorf("config: parser.max_units must be ≥ parser.max_repeat, got %d", c.Parser.MaxUnits)
	}

	if c.Monomers.Watch && c.Monomers.LibraryPath == "" {
		return fmt.Errorf("config: monomers.watch requires monomers.library_path")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
		if c.Redis.TTL < 0 {
			return fmt.Errorf("config: redis.ttl must not be negative")
		}
	}

	if c.Postgres.Enabled {
		if c.Postgres.Host == "" {
			return fmt.Errorf("config: postgres.host is required")
		}
		if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
			return fmt.Errorf("config: postgres.port %d is out of range [1, 65535]", c.Postgres.Port)
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("config: postgres.user is required")
		}
		if c.Postgres.DBName == "" {
			return fmt.Errorf("config: postgres.db_name is required")
		}
		if c.Postgres.MaxConns < 1 {
			return fmt.Errorf("config: postgres.max_conns must be ≥ 1, got %d", c.Postgres.MaxConns)
		}
	}

	if c.ObjectStore.Enabled {
		if c.ObjectStore.Endpoint == "" {
			return fmt.Errorf("config: object_store.endpoint is required")
		}
		if c.ObjectStore.Bucket == "" || c.ObjectStore.LibraryObject == "" {
			return fmt.Errorf("config: object_store.bucket and object_store.library_object are required")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers is required")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		if c.Kafka.RequestTopic == "" || c.Kafka.ResultTopic == "" {
			return fmt.Errorf("config: kafka.request_topic and kafka.result_topic are required")
		}
		if c.Kafka.RequestTopic == c.Kafka.ResultTopic {
			return fmt.Errorf("config: kafka.result_topic must differ from kafka.request_topic")
		}
		if c.Kafka.MaxRetries < 0 {
			return fmt.Errorf("config: kafka.max_retries must be ≥ 0, got %d", c.Kafka.MaxRetries)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("config: metrics.path is required when metrics are enabled")
	}
	return nil
}
