package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "HELMKIT"

// newViper returns a Viper reading YAML with HELMKIT_ env overrides, where
// nested keys map "." to "_" (canonical.max_candidates →
// HELMKIT_CANONICAL_MAX_CANDIDATES).
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeys(v)
	return v
}

// bindKeys registers every key so AutomaticEnv also applies to keys absent
// from the file; viper only consults the environment for known keys.
func bindKeys(v *viper.Viper) {
	for _, k := range []string{
		"log.level", "log.format", "log.output_paths",
		"server.host", "server.port", "server.read_timeout", "server.write_timeout",
		"server.shutdown_timeout", "server.max_body_size",
		"server.cors_allowed_origins", "server.rate_limit_rps", "server.rate_limit_burst",
		"canonical.max_candidates", "parser.max_repeat", "parser.max_units",
		"monomers.library_path", "monomers.watch",
		"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.pool_size",
		"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout", "redis.ttl", "redis.key_prefix",
		"postgres.enabled", "postgres.host", "postgres.port", "postgres.user", "postgres.password",
		"postgres.db_name", "postgres.ssl_mode", "postgres.max_conns", "postgres.min_conns",
		"postgres.conn_max_lifetime", "postgres.conn_max_idle_time", "postgres.auto_migrate",
		"object_store.enabled", "object_store.endpoint", "object_store.access_key_id",
		"object_store.secret_access_key", "object_store.use_ssl", "object_store.region",
		"object_store.bucket", "object_store.library_object",
		"kafka.enabled", "kafka.brokers", "kafka.group_id", "kafka.request_topic", "kafka.result_topic",
		"kafka.dead_letter_topic", "kafka.max_retries", "kafka.retry_backoff", "kafka.batch_timeout",
		"metrics.enabled", "metrics.namespace", "metrics.path",
	} {
		_ = v.BindEnv(k)
	}
}

// Load reads the YAML file at path, applies HELMKIT_* overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", path, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from HELMKIT_* variables and defaults only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrDefault loads path when it is non-empty and falls back to
// LoadFromEnv otherwise.  The CLI uses it so a config file stays optional.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return LoadFromEnv()
	}
	return Load(path)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch re-reads path on every change and calls onChange with the new
// Config.  Changes that fail to parse or validate go to onError instead, so
// the running configuration is never replaced by a broken one.  onError may
// be nil.  Only safe settings (log level, candidate bound) should be applied
// at runtime.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("config: reload after %s: %w", e.Op, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics.  For main() only.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
