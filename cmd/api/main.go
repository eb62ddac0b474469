// Package main is the entrypoint for the PhishDrill API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/cache"
	"github.com/phishdrill/phishdrill/internal/config"
	"github.com/phishdrill/phishdrill/internal/handler"
	"github.com/phishdrill/phishdrill/internal/metrics"
	"github.com/phishdrill/phishdrill/internal/middleware"
	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/repository"
	"github.com/phishdrill/phishdrill/internal/server"
	"github.com/phishdrill/phishdrill/internal/service"
	"github.com/phishdrill/phishdrill/internal/tracking"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	if cfg.MigrateOnStart {
		if err := repo.Migrate(ctx); err != nil {
			logger.Error("failed to apply migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
			os.Exit(1)
		}
	}
	if cfg.SeedRolesOnStart {
		if err := service.SeedRoles(ctx, repo, model.SeedRoles, logger); err != nil {
			logger.Error("failed to seed roles", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	redisOpts := cache.DefaultOptions(cfg.RedisURL)
	redisOpts.PoolSize = cfg.RedisPoolSize
	cacheClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus(registry)

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		SecretKey: cfg.JWTSecretKey,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		TTL:       cfg.TokenTTL(),
	})
	if err != nil {
		if errors.Is(err, auth.ErrMissingSigningKey) {
			logger.Error("JWT_SECRET_KEY must be set")
		} else {
			logger.Error("failed to create token issuer", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}

	publisher := tracking.NewPublisher(cacheClient.Client(), logger, recorder)
	accounts := service.NewAccountService(repo, auth.NewArgon2Hasher(auth.DefaultArgon2Params), issuer, logger, recorder)
	campaigns := service.NewCampaignService(repo, cfg.TrackingBaseURL, logger, recorder)
	library := service.NewLibraryService(repo, logger)
	tracker := service.NewTrackingService(repo, cacheClient, publisher, cfg.DefaultLandingURL, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:    logger,
		Recorder:  recorder,
		Accounts:  accounts,
		Campaigns: campaigns,
		Library:   library,
		Tracker:   tracker,
		Health:    handler.NewHealthHandler(repo, cacheClient),
		Verifier:  issuer,
		Limiter:   cacheClient,
		AuthRateLimit: handler.RateLimit{
			Enabled: cfg.AuthRateLimitEnabled,
			RPS:     cfg.AuthRateLimitRPS,
			Burst:   cfg.AuthRateLimitBurst,
		},
		TrackingRateLimit: handler.RateLimit{
			Enabled: cfg.TrackingRateLimitEnabled,
			RPS:     cfg.TrackingRateLimitRPS,
			Burst:   cfg.TrackingRateLimitBurst,
		},
		Security: middleware.SecurityConfig{
			IsDevelopment:  cfg.IsDevelopment(),
			PublicPrefixes: middleware.DefaultSecurityConfig().PublicPrefixes,
		},
		CORS:        corsConfig(cfg),
		MaxBodySize: cfg.MaxRequestBodySize,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})

	srv := server.New(
		router,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	if cfg.TrackingWorkerEnabled {
		worker := tracking.NewWorker(cacheClient.Client(), repo, logger, tracking.NewConsumerID(), recorder)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("tracking worker exited", slog.String("error", err.Error()))
			}
		}()
		srv.OnShutdown("tracking-worker", worker.Shutdown)
	}

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("tracking_base_url", cfg.TrackingBaseURL),
		slog.String("env", cfg.AppEnv),
		slog.Bool("tracking_worker", cfg.TrackingWorkerEnabled),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	c.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	return c
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With(slog.String("service", "phishdrill"))
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
