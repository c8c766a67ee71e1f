package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/hopebridge/donor-portal/internal/app"
	"github.com/hopebridge/donor-portal/internal/observability"
	"github.com/hopebridge/donor-portal/internal/platform/cache"
	"github.com/hopebridge/donor-portal/internal/platform/db"
	"github.com/hopebridge/donor-portal/internal/ratelimit"
	"github.com/hopebridge/donor-portal/internal/shared"
	"github.com/hopebridge/donor-portal/internal/store/memory"
	"github.com/hopebridge/donor-portal/internal/store/postgres"
	"github.com/hopebridge/donor-portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("portal stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// run owns every connection it opens; returning lets the deferred closers run
// before main exits.
func run(cfg *app.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	deps := app.Dependencies{
		Metrics: metrics,
		Limiter: ratelimit.New(ratelimit.WithMaxKeys(cfg.RateLimitMaxKeys)),
		Queue: jobs.LogEnqueuer{
			Notifier: jobs.LogNotifier{Logger: logger},
			Logger:   logger,
			Metrics:  metrics,
		},
	}

	if cfg.UseParityStore() {
		parity, err := memory.New(memory.DefaultSeed())
		if err != nil {
			return fmt.Errorf("seed parity store: %w", err)
		}
		if cfg.DevActiveUser != "" {
			if err := parity.SetActiveIdentity(cfg.DevActiveUser); err != nil {
				return fmt.Errorf("select dev identity %q: %w", cfg.DevActiveUser, err)
			}
		}
		logger.Warn("dev bypass enabled, serving seeded in-memory data", slog.String("active_user", parity.ActiveIdentity()))
		deps.Backend = parity
		deps.Switcher = parity
	} else {
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()

		deps.Backend = postgres.New(pool)
		deps.Sessions = shared.NewSessionManager(redisClient, shared.DefaultSessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	}

	if cfg.JobsEnabled {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		jobClient := jobs.NewClient(redisOpts, metrics)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		deps.Queue = jobClient
		deps.Inspector = inspector
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      app.NewHandler(cfg, logger, deps),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("dev_bypass", cfg.UseParityStore()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
