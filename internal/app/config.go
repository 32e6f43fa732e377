package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the platform backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Registries RegistryConfig   `mapstructure:"registries"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles clients per IP. A max of zero disables limiting.
type RateLimitConfig struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes the volatile cache tier.
type CacheConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Redis   RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options. When Redis is disabled
// the cache tier falls back to the database-backed store.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RegistryConfig groups the upstream registry endpoints.
type RegistryConfig struct {
	FSA UpstreamConfig `mapstructure:"fsa"`
	OFF UpstreamConfig `mapstructure:"off"`
}

// UpstreamConfig describes one upstream registry connection.
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// ResolverConfig tunes the tiered resolution chain. The top-level values
// are shared defaults; the per-registry sections override them where the
// registries refresh at different cadences.
type ResolverConfig struct {
	CacheTTL           time.Duration  `mapstructure:"cache_ttl"`
	SearchCacheTTL     time.Duration  `mapstructure:"search_cache_ttl"`
	StalenessThreshold time.Duration  `mapstructure:"staleness_threshold"`
	SweepSchedule      string         `mapstructure:"sweep_schedule"`
	FSA                ResolverTuning `mapstructure:"fsa"`
	OFF                ResolverTuning `mapstructure:"off"`
}

// ResolverTuning overrides the shared resolver tuning for one registry.
// Zero values inherit the shared setting.
type ResolverTuning struct {
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	SearchCacheTTL     time.Duration `mapstructure:"search_cache_ttl"`
	StalenessThreshold time.Duration `mapstructure:"staleness_threshold"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("UKFOOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit.max", 0)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/ukfood.sqlite")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("registries.fsa.base_url", "https://api.ratings.food.gov.uk")
	v.SetDefault("registries.fsa.timeout", "15s")
	v.SetDefault("registries.fsa.max_attempts", 3)
	v.SetDefault("registries.fsa.initial_backoff", "2s")
	v.SetDefault("registries.fsa.max_backoff", "30s")

	v.SetDefault("registries.off.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("registries.off.timeout", "15s")
	v.SetDefault("registries.off.max_attempts", 3)
	v.SetDefault("registries.off.initial_backoff", "2s")
	v.SetDefault("registries.off.max_backoff", "30s")

	v.SetDefault("resolver.cache_ttl", "24h")
	v.SetDefault("resolver.search_cache_ttl", "1h")
	v.SetDefault("resolver.staleness_threshold", "24h")
	v.SetDefault("resolver.sweep_schedule", "@hourly")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
