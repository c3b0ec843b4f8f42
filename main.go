package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/shortloop/link-resolver/internal/analytics"
	"github.com/shortloop/link-resolver/internal/api"
	"github.com/shortloop/link-resolver/internal/cache"
	"github.com/shortloop/link-resolver/internal/config"
	"github.com/shortloop/link-resolver/internal/ephemeral"
	"github.com/shortloop/link-resolver/internal/handler"
	"github.com/shortloop/link-resolver/internal/httpserver"
	"github.com/shortloop/link-resolver/internal/logger"
	"github.com/shortloop/link-resolver/internal/redisclient"
	"github.com/shortloop/link-resolver/internal/resolver"
	"github.com/shortloop/link-resolver/internal/storage"

	_ "github.com/lib/pq"
)

// Database connection timeout.
const dbPingTimeout = 5 * time.Second

// recorderDrainTimeout bounds how long shutdown waits for queued analytics
// events to reach the sinks.
const recorderDrainTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	db, err := connectDatabase(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		return 1
	}
	defer func() { _ = db.Close() }()

	redisClient, err := redisclient.New(cfg.Redis)
	if err != nil {
		log.Error("Failed to connect to redis", logger.Error(err))
		return 1
	}
	defer func() { _ = redisClient.Close() }()

	log.Info("Redis connected", logger.String("address", cfg.Redis.Address))

	return runServer(cfg, log, db, redisClient)
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	configPath := config.GetConfigPath("config.yml")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// createLogger creates a logger instance from configuration.
func createLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}

// connectDatabase opens and verifies the system-of-record connection.
func connectDatabase(cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("database", cfg.Database.Database),
	)
	return db, nil
}

// runServer builds the resolution pipeline and runs the HTTP server until
// shutdown.
func runServer(cfg *config.Config, log logger.Logger, db *sqlx.DB, redisClient *redis.Client) int {
	store := storage.New(db, cfg.Database.QueryTimeout)

	linkCache := cache.NewLinkCache(redisClient, cfg.Cache.LinkTTL, cfg.Redis.OpTimeout)
	hostCache := cache.NewHostCache(cfg.Cache.HostTTL)

	slugResolver := resolver.NewSlugResolver(store, linkCache, log)
	domainResolver := resolver.NewDomainResolver(store, hostCache, cfg.Service.DefaultHostnames, log)

	ephemeralStore := ephemeral.New(
		redisClient, cfg.Ephemeral.Window, cfg.Ephemeral.MaxPerIP, cfg.Redis.OpTimeout, log,
	)

	rollingIndex := analytics.NewRollingIndex(redisClient, cfg.Analytics.Retention)
	recorder := analytics.NewRecorder(cfg.Analytics.BufferSize, []analytics.Sink{
		analytics.NewIngestClient(cfg.Analytics.IngestURL, cfg.Analytics.IngestToken, cfg.Analytics.IngestTimeout),
		rollingIndex,
	}, log)
	recorder.Start()
	defer drainRecorder(recorder, log)

	handlers := api.Handlers{
		Redirect:  handler.NewRedirectHandler(domainResolver, slugResolver, ephemeralStore, recorder, log),
		Ephemeral: handler.NewEphemeralHandler(ephemeralStore, log),
		Analytics: handler.NewAnalyticsHandler(rollingIndex, log),
		Domains:   handler.NewDomainsHandler(domainResolver),
		Health:    handler.NewHealthHandler(cfg.Service.Version),
	}

	// done stops background goroutines (rate limiter cleanup) on shutdown.
	done := make(chan struct{})
	defer close(done)

	server := api.NewServer(cfg, handlers, log, done)

	log.Info("Link resolver starting",
		logger.Int("port", cfg.Service.Port),
		logger.Strings("default_hostnames", cfg.Service.DefaultHostnames),
	)

	if err := runWithShutdown(server); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	log.Info("Link resolver exited cleanly")
	return 0
}

func runWithShutdown(server *httpserver.Server) error {
	return server.RunWithGracefulShutdown(context.Background())
}

func drainRecorder(recorder *analytics.Recorder, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), recorderDrainTimeout)
	defer cancel()
	if err := recorder.Stop(ctx); err != nil {
		log.Warn("Analytics recorder drain timed out", logger.Error(err))
	}
}
