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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/smartdash-be/internal/config"
	"github.com/hongminglow/smartdash-be/internal/metrics"
	"github.com/hongminglow/smartdash-be/internal/predict"
	"github.com/hongminglow/smartdash-be/internal/server"
	"github.com/hongminglow/smartdash-be/internal/session"
	"github.com/hongminglow/smartdash-be/internal/storage/postgres"
)

const (
	shutdownTimeout      = 15 * time.Second
	sessionPurgeInterval = time.Hour
)

var (
	rootCmd = &cobra.Command{
		Use:           "smartdash",
		Short:         "Smart dashboard API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and serve the HTTP API",
		RunE:  runServe,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE:  runMigrate,
	}
)

func main() {
	loadLocalEnv()
	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("smartdash exited", "error", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer store.Close()

	m := metrics.New()
	sessions, purger, closeSessions, err := openSessions(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer closeSessions()

	engine, err := predict.New(cfg.AIEngine.URL, predict.Options{
		Retries:    cfg.AIEngine.Retries,
		RetryDelay: cfg.AIEngine.RetryDelay,
		Timeout:    cfg.AIEngine.Timeout,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		return err
	}

	srv := server.New(cfg, server.Deps{
		Store:     store,
		Sessions:  sessions,
		Predictor: engine,
		Metrics:   m,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("smartdash backend listening", "addr", cfg.HTTPAddress(), "env", cfg.Env)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown error", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		return predict.NewKeepAlive(engine, cfg.AIEngine.PingInterval, logger, m).Run(gctx)
	})
	if purger != nil {
		g.Go(func() error {
			purgeSessions(gctx, purger, logger)
			return nil
		})
	}
	return g.Wait()
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	// NewStore applies pending migrations before returning.
	store, err := postgres.NewStore(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store.Close()
	logger.Info("migrations applied")
	return nil
}

func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openSessions picks Redis when configured and falls back to Postgres. The
// Postgres store is returned as purger so expired rows can be cleaned up.
func openSessions(ctx context.Context, cfg config.Config, store *postgres.Store) (session.Store, *postgres.SessionStore, func(), error) {
	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init redis sessions: %w", err)
		}
		return rs, nil, func() { _ = rs.Close() }, nil
	}
	ps := postgres.NewSessionStore(store.Pool())
	return ps, ps, func() {}, nil
}

func purgeSessions(ctx context.Context, sessions *postgres.SessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired sessions", "error", err)
				continue
			}
			logger.Debug("purged expired sessions", "count", n)
		}
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; relying on existing environment")
	}
}
