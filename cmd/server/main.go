package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/gradereports/internal/application"
	"github.com/JonMunkholm/gradereports/internal/config"
	"github.com/JonMunkholm/gradereports/internal/core"
	"github.com/JonMunkholm/gradereports/internal/database"
	"github.com/JonMunkholm/gradereports/internal/logging"
	"github.com/JonMunkholm/gradereports/internal/web"
	"github.com/JonMunkholm/gradereports/internal/web/middleware"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"render_max_engines", cfg.Render.MaxEngines,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"auth_required", cfg.Security.AuthRequired,
	)

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if err := database.EnsureSchema(ctx, pool); err != nil {
		slog.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	grades, closeGrades, err := application.OpenGrades(ctx, cfg, pool)
	if err != nil {
		slog.Error("failed to open grade database", "error", err)
		os.Exit(1)
	}
	defer closeGrades()

	pipeline, err := application.NewPipeline(cfg, grades, nil)
	if err != nil {
		slog.Error("failed to create report service", "error", err)
		os.Exit(1)
	}

	store := database.NewStore(pool)
	checks := map[string]web.HealthCheck{
		"database": func(ctx context.Context) error { return pool.Ping(ctx) },
	}

	// Rate limiting is shared through Redis when configured so every replica
	// counts against the same window.
	var apiLimiter, generateLimiter middleware.Limiter
	if cfg.Rate.Enabled {
		if cfg.Redis.URL != "" {
			opts, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				slog.Error("failed to parse redis url", "error", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opts)
			defer rdb.Close()

			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("redis unreachable at startup, rate limiting fails open", "error", err)
			}
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

			apiLimiter = middleware.NewRedisLimiter(rdb, cfg.Rate.RequestsPerMinute, time.Minute)
			generateLimiter = middleware.NewRedisLimiter(rdb, cfg.Rate.GenerateLimit, time.Minute)
			slog.Info("rate limiting via redis")
		} else {
			apiMem := middleware.NewMemoryLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
			defer apiMem.Close()
			genMem := middleware.NewMemoryLimiter(cfg.Rate.GenerateLimit, time.Minute)
			defer genMem.Close()
			apiLimiter, generateLimiter = apiMem, genMem
		}
	}

	server := web.NewServer(web.Dependencies{
		Reports:         pipeline.Service,
		Authorizer:      grades,
		History:         store,
		Schedules:       store,
		Render:          pipeline.Launcher,
		Checks:          checks,
		APILimiter:      apiLimiter,
		GenerateLimiter: generateLimiter,
	}, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go core.NewRetentionJob(store, core.RetentionConfig{
		ReportDays:    cfg.Retention.ReportDays,
		CheckInterval: cfg.Retention.CheckInterval,
	}).Start(jobCtx)

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Browsers outlive their request only on a cancelled stream; give
		// them the rest of the shutdown window to close.
		if active := pipeline.Limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for renders to finish", "active", active)
			if err := pipeline.Limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("renders did not finish in time", "error", err)
			} else {
				slog.Info("all renders finished")
			}
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		cancelJobs()
		return
	}
	<-shutdownDone
	slog.Info("server stopped")
}
