package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/playgate/gatekeeper"
	"github.com/playgate/gatekeeper/httpapi"
	promexport "github.com/playgate/gatekeeper/metrics/export/prometheus"
	"github.com/playgate/gatekeeper/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the login API",
		Long: `Serve POST /login, GET /healthz and GET /metrics. Configuration is read
from GATEKEEPER_* environment variables.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadServeConfig(envFile)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "parse redis url").Wrap(err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	builder := gatekeeper.New().
		WithConfig(cfg.engineConfig()).
		WithRedis(rdb).
		WithAccountProvider(store.NewAccountRepository(pool)).
		WithIdentityLinks(store.NewIdentityLinkRepository(pool)).
		WithLogger(logger)
	if cfg.AuditLog {
		builder.WithAuditSink(gatekeeper.NewLogSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		return oops.Code("ENGINE_INIT_FAILED").Wrap(err)
	}
	defer engine.Close()

	router, err := httpapi.NewRouter(engine, httpapi.Options{
		Compat:         cfg.Compat,
		Logger:         logger,
		Metrics:        promexport.NewExporter(engine).Handler(),
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "trusted proxies").Wrap(err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
