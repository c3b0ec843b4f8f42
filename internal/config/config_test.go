package config

import (
	"testing"
	"time"
)

func assertStringEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}

func assertIntEqual(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %d, want %d", field, got, want)
	}
}

func assertDurationEqual(t *testing.T, field string, want, got time.Duration) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", field, got, want)
	}
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	assertStringEqual(t, "service.name", defaultServiceName, cfg.Service.Name)
	assertStringEqual(t, "service.version", defaultVersion, cfg.Service.Version)
	assertIntEqual(t, "service.port", defaultServicePort, cfg.Service.Port)

	assertStringEqual(t, "database.host", defaultDBHost, cfg.Database.Host)
	assertIntEqual(t, "database.port", defaultDBPort, cfg.Database.Port)
	assertStringEqual(t, "database.user", defaultDBUser, cfg.Database.User)
	assertStringEqual(t, "database.database", defaultDBName, cfg.Database.Database)
	assertStringEqual(t, "database.sslmode", defaultDBSSLMode, cfg.Database.SSLMode)
	assertDurationEqual(t, "database.query_timeout",
		defaultDBQueryTimeoutMS*time.Millisecond, cfg.Database.QueryTimeout)

	assertStringEqual(t, "redis.address", defaultRedisAddress, cfg.Redis.Address)
	assertDurationEqual(t, "redis.op_timeout",
		defaultRedisOpTimeoutMS*time.Millisecond, cfg.Redis.OpTimeout)

	assertDurationEqual(t, "cache.link_ttl",
		defaultLinkCacheTTLHours*time.Hour, cfg.Cache.LinkTTL)
	assertDurationEqual(t, "cache.host_ttl",
		defaultHostCacheTTLSecs*time.Second, cfg.Cache.HostTTL)

	assertDurationEqual(t, "ephemeral.window",
		defaultEphemeralWindowMin*time.Minute, cfg.Ephemeral.Window)
	assertIntEqual(t, "ephemeral.max_per_ip", defaultEphemeralMaxPerIP, cfg.Ephemeral.MaxPerIP)

	assertIntEqual(t, "analytics.buffer_size", defaultAnalyticsBufferSize, cfg.Analytics.BufferSize)
	assertDurationEqual(t, "analytics.retention",
		defaultAnalyticsRetentionH*time.Hour, cfg.Analytics.Retention)

	assertIntEqual(t, "rate_limit.max_creates_per_minute",
		defaultMaxCreatesPerMinute, cfg.RateLimit.MaxCreatesPerMinute)
	assertIntEqual(t, "rate_limit.window_seconds",
		defaultRateLimitWindowSecs, cfg.RateLimit.WindowSeconds)

	assertStringEqual(t, "logging.level", defaultLoggingLevel, cfg.Logging.Level)
	assertStringEqual(t, "logging.format", defaultLoggingFmt, cfg.Logging.Format)
}

func TestValidate_MissingDefaultHostnames(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Analytics.IngestURL = "https://ingest.example.com/v0/events"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing default hostnames, got nil")
	}

	expected := "service.default_hostnames: is required"
	if err.Error() != expected {
		t.Errorf("error message: got %q, want %q", err.Error(), expected)
	}
}

func TestValidate_MissingIngestURL(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Service.DefaultHostnames = []string{"sho.rt"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing ingest URL, got nil")
	}

	expected := "analytics.ingest_url: is required"
	if err.Error() != expected {
		t.Errorf("error message: got %q, want %q", err.Error(), expected)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Service.DefaultHostnames = []string{"sho.rt"}
	cfg.Analytics.IngestURL = "https://ingest.example.com/v0/events"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no validation error, got: %v", err)
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Database.Password = "secret"

	want := "host=localhost port=5432 user=postgres password=secret" +
		" dbname=link_resolver sslmode=disable"
	if got := cfg.Database.DSN(); got != want {
		t.Errorf("DSN: got %q, want %q", got, want)
	}
}
