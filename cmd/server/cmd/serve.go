package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tuplan/server/internal/api"
	"github.com/tuplan/server/internal/config"
	"github.com/tuplan/server/internal/metrics"
	"github.com/tuplan/server/internal/storage/postgres"
	"github.com/tuplan/server/internal/telemetry"
)

const (
	connectTimeout    = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	dbCollectInterval = 15 * time.Second
)

// serveOptions override the loaded config when set.
type serveOptions struct {
	host string
	port int
}

func (o serveOptions) apply(cfg *config.Config) {
	if o.host != "" {
		cfg.Server.Host = o.host
	}
	if o.port != 0 {
		cfg.Server.Port = o.port
	}
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the TuPlan HTTP server",
		Long: `Start the TuPlan HTTP server and begin accepting requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Apply pending database migrations when DATABASE_AUTO_MIGRATE is true
- Serve the events API, the entry panel and operational endpoints
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with a config file and debug logging
  server serve --config /etc/tuplan/config.yaml --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), root, *opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(ctx context.Context, root *rootOptions, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	opts.apply(&cfg)

	logger := config.NewLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("environment", cfg.Environment).
		Msg("starting TuPlan server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := api.NewRouter(ctx, cfg, logger, api.Dependencies{
		Events: repo.Events(),
		DB:     repo,
		Build:  api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
	})
	server := newHTTPServer(cfg.Server, handler)
	collector := metrics.NewDBCollector(pool)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		collector.Start(gctx, dbCollectInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		collector.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openPool connects to PostgreSQL with the configured pool size and fails if
// the database does not answer within connectTimeout.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

func newHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
