// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Suggest   SuggestConfig   `mapstructure:"suggest"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SuggestConfig governs the metadata suggestion endpoint.
type SuggestConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	MaxBodyBytes    int64   `mapstructure:"max_body_bytes"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
	CacheMaxEntries int     `mapstructure:"cache_max_entries"`
	PerHostRPS      float64 `mapstructure:"per_host_rps"`
	PerHostBurst    int     `mapstructure:"per_host_burst"`
}

// RateLimitConfig controls the per-client fixed-window limiter.
type RateLimitConfig struct {
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	TrustProxy        bool `mapstructure:"trust_proxy"`
}

// RelayConfig controls websocket signaling behavior.
type RelayConfig struct {
	PingIntervalSeconds int `mapstructure:"ping_interval_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BEACON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("suggest.enabled", true)
	v.SetDefault("suggest.timeout_seconds", 10)
	v.SetDefault("suggest.max_body_bytes", 2*1024*1024)
	v.SetDefault("suggest.cache_ttl_seconds", 3600)
	v.SetDefault("suggest.cache_max_entries", 500)
	v.SetDefault("suggest.per_host_rps", 2)
	v.SetDefault("suggest.per_host_burst", 4)
	v.SetDefault("ratelimit.requests_per_minute", 30)
	v.SetDefault("ratelimit.trust_proxy", false)
	v.SetDefault("relay.ping_interval_seconds", 30)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Suggest.TimeoutSeconds <= 0 {
		return fmt.Errorf("suggest.timeout_seconds must be > 0")
	}
	if c.Suggest.MaxBodyBytes <= 0 {
		return fmt.Errorf("suggest.max_body_bytes must be > 0")
	}
	if c.Suggest.CacheMaxEntries <= 0 {
		return fmt.Errorf("suggest.cache_max_entries must be > 0")
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("ratelimit.requests_per_minute must be > 0")
	}
	if c.Relay.PingIntervalSeconds <= 0 {
		return fmt.Errorf("relay.ping_interval_seconds must be > 0")
	}
	return nil
}

// FetchTimeout converts the suggest timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Suggest.TimeoutSeconds) * time.Second
}

// CacheTTL converts the cache TTL into a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Suggest.CacheTTLSeconds) * time.Second
}

// PingInterval converts the relay ping interval into a duration.
func (c Config) PingInterval() time.Duration {
	return time.Duration(c.Relay.PingIntervalSeconds) * time.Second
}
