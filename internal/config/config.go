package config

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	defaultServiceName  = "link-resolver"
	defaultServicePort  = 8094
	defaultVersion      = "0.1.0"
	defaultLoggingLevel = "info"
	defaultLoggingFmt   = "json"

	defaultDBHost    = "localhost"
	defaultDBPort    = 5432
	defaultDBName    = "link_resolver"
	defaultDBUser    = "postgres"
	defaultDBSSLMode = "disable"

	defaultRedisAddress = "localhost:6379"

	defaultLinkCacheTTLHours = 23
	defaultHostCacheTTLSecs  = 60

	defaultEphemeralWindowMin = 15
	defaultEphemeralMaxPerIP  = 5

	defaultAnalyticsBufferSize = 1000
	defaultAnalyticsRetentionH = 24
	defaultIngestTimeoutS      = 5

	defaultMaxCreatesPerMinute = 10
	defaultRateLimitWindowSecs = 60

	// Redirect-path dependency timeouts. An unbounded hang here stalls
	// every visitor of a short link, so both stay in the low hundreds
	// of milliseconds.
	defaultRedisOpTimeoutMS = 300
	defaultDBQueryTimeoutMS = 500
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	Ephemeral EphemeralConfig `yaml:"ephemeral"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"LINK_RESOLVER_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"          yaml:"debug"`
	// DefaultHostnames are the hostnames served by the product itself.
	// Requests on any other hostname go through custom domain resolution.
	DefaultHostnames []string `env:"LINK_RESOLVER_DEFAULT_HOSTNAMES" yaml:"default_hostnames"`
}

// DatabaseConfig holds PostgreSQL configuration for the system of record.
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_LINK_RESOLVER_HOST"     yaml:"host"`
	Port         int           `env:"POSTGRES_LINK_RESOLVER_PORT"     yaml:"port"`
	User         string        `env:"POSTGRES_LINK_RESOLVER_USER"     yaml:"user"`
	Password     string        `env:"POSTGRES_LINK_RESOLVER_PASSWORD" yaml:"password"`
	Database     string        `env:"POSTGRES_LINK_RESOLVER_DB"       yaml:"database"`
	SSLMode      string        `env:"POSTGRES_LINK_RESOLVER_SSLMODE"  yaml:"sslmode"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address   string        `env:"REDIS_ADDRESS"  yaml:"address"`
	Password  string        `env:"REDIS_PASSWORD" yaml:"password"`
	DB        int           `env:"REDIS_DB"       yaml:"db"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// CacheConfig holds TTLs for the two read caches.
type CacheConfig struct {
	// LinkTTL bounds the redis link-by-slug entries.
	LinkTTL time.Duration `yaml:"link_ttl"`
	// HostTTL bounds the process-local custom domain entries.
	HostTTL time.Duration `yaml:"host_ttl"`
}

// EphemeralConfig holds settings for the cache-only ephemeral links.
type EphemeralConfig struct {
	// Window is the fixed lifetime; every read renews it from now.
	Window time.Duration `yaml:"window"`
	// MaxPerIP caps concurrent live codes created by one IP.
	MaxPerIP int `yaml:"max_per_ip"`
}

// AnalyticsConfig holds the dual-sink recorder configuration.
type AnalyticsConfig struct {
	BufferSize    int           `yaml:"buffer_size"`
	IngestURL     string        `env:"ANALYTICS_INGEST_URL"   yaml:"ingest_url"`
	IngestToken   string        `env:"ANALYTICS_INGEST_TOKEN" yaml:"ingest_token"`
	IngestTimeout time.Duration `yaml:"ingest_timeout"`
	// Retention is the rolling window kept in the sorted-set index.
	Retention time.Duration `yaml:"retention"`
}

// RateLimitConfig limits ephemeral link creation per IP.
type RateLimitConfig struct {
	MaxCreatesPerMinute int `yaml:"max_creates_per_minute"`
	WindowSeconds       int `yaml:"window_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from the specified path, applies defaults, then
// re-applies environment overrides so env always wins.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setRedisDefaults(&cfg.Redis)
	setCacheDefaults(&cfg.Cache)
	setEphemeralDefaults(&cfg.Ephemeral)
	setAnalyticsDefaults(&cfg.Analytics)
	setRateLimitDefaults(&cfg.RateLimit)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
	if db.QueryTimeout == 0 {
		db.QueryTimeout = defaultDBQueryTimeoutMS * time.Millisecond
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.OpTimeout == 0 {
		r.OpTimeout = defaultRedisOpTimeoutMS * time.Millisecond
	}
}

func setCacheDefaults(c *CacheConfig) {
	if c.LinkTTL == 0 {
		c.LinkTTL = defaultLinkCacheTTLHours * time.Hour
	}
	if c.HostTTL == 0 {
		c.HostTTL = defaultHostCacheTTLSecs * time.Second
	}
}

func setEphemeralDefaults(e *EphemeralConfig) {
	if e.Window == 0 {
		e.Window = defaultEphemeralWindowMin * time.Minute
	}
	if e.MaxPerIP == 0 {
		e.MaxPerIP = defaultEphemeralMaxPerIP
	}
}

func setAnalyticsDefaults(a *AnalyticsConfig) {
	if a.BufferSize == 0 {
		a.BufferSize = defaultAnalyticsBufferSize
	}
	if a.IngestTimeout == 0 {
		a.IngestTimeout = defaultIngestTimeoutS * time.Second
	}
	if a.Retention == 0 {
		a.Retention = defaultAnalyticsRetentionH * time.Hour
	}
}

func setRateLimitDefaults(rl *RateLimitConfig) {
	if rl.MaxCreatesPerMinute == 0 {
		rl.MaxCreatesPerMinute = defaultMaxCreatesPerMinute
	}
	if rl.WindowSeconds == 0 {
		rl.WindowSeconds = defaultRateLimitWindowSecs
	}
}

func setLoggingDefaults(log *LoggingConfig) {
	if log.Level == "" {
		log.Level = defaultLoggingLevel
	}
	if log.Format == "" {
		log.Format = defaultLoggingFmt
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if len(c.Service.DefaultHostnames) == 0 {
		return &ValidationError{
			Field:   "service.default_hostnames",
			Message: "is required",
		}
	}
	if err := ValidateRequired("analytics.ingest_url", c.Analytics.IngestURL); err != nil {
		return err
	}
	return nil
}
