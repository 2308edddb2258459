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

	"github.com/spf13/cobra"

	"follow-exchange/internal/adapter/events"
	"follow-exchange/internal/adapter/gate"
	httpadapter "follow-exchange/internal/adapter/http"
	"follow-exchange/internal/adapter/projection"
	"follow-exchange/internal/adapter/usecase"
	"follow-exchange/internal/config/configs"
	"follow-exchange/internal/db"
	"follow-exchange/internal/metrics"
	"follow-exchange/internal/tracing"
)

// runServe loads configuration, optionally runs database migrations, wires
// the store, cache, gate and engine, then starts the HTTP server. On a
// termination signal it shuts the server down gracefully.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cfg.Log.New(os.Stdout)

	rules, err := cfg.Ledger.Rules()
	if err != nil {
		return err
	}

	shutdownTracing, err := tracing.Init(cfg.Tracing, cfg.Env, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracer shutdown error", slog.Any("error", err))
		}
	}()

	if cfg.Store.Driver == configs.StoreDriverPostgres && cfg.Psql.RunMigrations {
		if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
			logger.Error("migration error", slog.Any("error", err))
		} else {
			logger.Info("migrations applied successfully")
		}
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	kv, err := openCache(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer kv.close()

	m := metrics.New()
	bus := events.NewManager(logger)
	defer bus.Shutdown()

	accounts := projection.NewAccounts(st.store, kv.cache, cfg.Redis.ProjectionTTL, bus, logger)
	defer accounts.Close()

	g := gate.New(kv.cache,
		gate.WithDelay(cfg.Gate.Delay),
		gate.WithTTL(cfg.Gate.TTL),
		gate.WithLogger(logger),
		gate.WithMetrics(m))

	svc := usecase.NewExchangeUseCase(st.store, g,
		usecase.WithRules(rules),
		usecase.WithRetry(usecase.RetryPolicy{Attempts: cfg.Ledger.RetryAttempts, Delay: cfg.Ledger.RetryDelay}),
		usecase.WithListLimits(cfg.Ledger.ListLimit, cfg.Ledger.ListMaxLimit),
		usecase.WithLogger(logger),
		usecase.WithMetrics(m),
		usecase.WithEvents(bus),
		usecase.WithAccountReader(accounts))

	handler := httpadapter.NewHandler(svc, g, logger,
		httpadapter.WithAdNetwork(gate.ClientResolvedAds{}),
		httpadapter.WithChecklist(svc.Checklist()),
		httpadapter.WithDailyAdCap(rules.DailyAdCap),
		httpadapter.WithMetrics(m),
		httpadapter.WithHealthCheck(healthCheck(st, kv)),
		httpadapter.WithAllowedOrigins(cfg.HTTP.AllowedOrigins))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.Int("port", int(cfg.HTTP.Port)),
			slog.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		if err != nil {
			logger.Error("server error", slog.Any("error", err))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return err
	}
	logger.Info("server gracefully stopped")
	return nil
}
