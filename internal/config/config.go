package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ad server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Geo        GeoConfig
	Views      ViewsConfig
	Rollup     RollupConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the optional raw view sink.
type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	Database string
	User     string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled   bool
	RPS       float64
	Burst     int
	MgmtRPS   float64
	MgmtBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// GeoConfig configures GeoIP country enrichment of recorded views.
type GeoConfig struct {
	Enabled      bool
	DatabasePath string
}

// ViewsConfig configures the view recorder.
type ViewsConfig struct {
	// IPHashSalt is mixed into the hash of the connecting address. The raw
	// address is never persisted, so the salt must stay stable or historical
	// unique-visitor analysis breaks.
	IPHashSalt string
	// DedupEnabled turns on the server-side idempotency guard. Off by
	// default: the client widget already records at most one impression
	// per mount.
	DedupEnabled bool
	DedupWindow  time.Duration
}

// RollupConfig configures background aggregation.
type RollupConfig struct {
	AutoEnabled bool
	Interval    time.Duration
	// LockTTL bounds how long a bucket stays locked if a run dies mid-way.
	LockTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("ADSERVER_HTTP_ADDR", ":8080"),
			Env:             getEnv("ADSERVER_ENV", "development"),
			ShutdownTimeout: getDurationEnv("ADSERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("ADSERVER_DB_ENABLED", true),
			Host:     getEnv("ADSERVER_DB_HOST", "localhost"),
			Port:     getIntEnv("ADSERVER_DB_PORT", 5432),
			User:     getEnv("ADSERVER_DB_USER", "adserver"),
			Password: getEnv("ADSERVER_DB_PASSWORD", "adserver_secret"),
			DBName:   getEnv("ADSERVER_DB_NAME", "adserver"),
			SSLMode:  getEnv("ADSERVER_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("ADSERVER_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("ADSERVER_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("ADSERVER_REDIS_ENABLED", true),
			Addr:     getEnv("ADSERVER_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("ADSERVER_REDIS_PASSWORD", ""),
			DB:       getIntEnv("ADSERVER_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getBoolEnv("ADSERVER_CLICKHOUSE_ENABLED", false),
			Addr:     getEnv("ADSERVER_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("ADSERVER_CLICKHOUSE_DB", "adserver"),
			User:     getEnv("ADSERVER_CLICKHOUSE_USER", "default"),
			Password: getEnv("ADSERVER_CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("ADSERVER_AUTH_ENABLED", true),
			MasterKey: getEnv("ADSERVER_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("ADSERVER_AUTH_SKIP_PATHS", []string{"/health", "/metrics", "/serve/ad", "/serve/view"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:   getBoolEnv("ADSERVER_RATE_LIMIT_ENABLED", true),
			RPS:       getFloatEnv("ADSERVER_RATE_LIMIT_RPS", 1000),
			Burst:     getIntEnv("ADSERVER_RATE_LIMIT_BURST", 100),
			MgmtRPS:   getFloatEnv("ADSERVER_RATE_LIMIT_MGMT_RPS", 100),
			MgmtBurst: getIntEnv("ADSERVER_RATE_LIMIT_MGMT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("ADSERVER_LOG_LEVEL", "info"),
			Format: getEnv("ADSERVER_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("ADSERVER_METRICS_ENABLED", true),
			Path:    getEnv("ADSERVER_METRICS_PATH", "/metrics"),
		},
		Geo: GeoConfig{
			Enabled:      getBoolEnv("ADSERVER_GEO_ENABLED", false),
			DatabasePath: getEnv("ADSERVER_GEO_DB_PATH", "/app/data/GeoLite2-Country.mmdb"),
		},
		Views: ViewsConfig{
			IPHashSalt:   getEnv("ADSERVER_VIEW_IPHASH_SALT", ""),
			DedupEnabled: getBoolEnv("ADSERVER_VIEW_DEDUP_ENABLED", false),
			DedupWindow:  getDurationEnv("ADSERVER_VIEW_DEDUP_WINDOW", time.Hour),
		},
		Rollup: RollupConfig{
			AutoEnabled: getBoolEnv("ADSERVER_ROLLUP_AUTO_ENABLED", true),
			Interval:    getDurationEnv("ADSERVER_ROLLUP_INTERVAL", 1*time.Hour),
			LockTTL:     getDurationEnv("ADSERVER_ROLLUP_LOCK_TTL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("ADSERVER_API_KEY_MASTER is required when auth is enabled")
	}
	if c.Views.IPHashSalt == "" {
		return fmt.Errorf("ADSERVER_VIEW_IPHASH_SALT is required")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
