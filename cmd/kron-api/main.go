// @title                      kron API
// @version                    1.0
// @description                Private goals with an optional public feed mirror, plus live deadline countdowns.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/pbnkron/kron/docs"
	"github.com/pbnkron/kron/internal/api"
	"github.com/pbnkron/kron/internal/api/middleware"
	"github.com/pbnkron/kron/internal/bootstrap"
	"github.com/pbnkron/kron/internal/core/service"
	"github.com/pbnkron/kron/internal/infrastructure/config"
	"github.com/pbnkron/kron/internal/infrastructure/queue"
	"github.com/pbnkron/kron/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("kron-api exited")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "kron-api",
	})

	backends, err := bootstrap.Open(ctx, cfg, logger.Component("bootstrap"))
	if err != nil {
		return err
	}
	defer backends.Close(context.Background(), log)

	store := backends.Store
	goals := service.NewGoalSyncService(store.Goals, store.Mirrors, store.Profiles, backends.Guard, nil, logger.Component("goals"))
	profiles := service.NewProfileService(store.Profiles, store.Mirrors, logger.Component("profiles"))
	reconcile := service.NewReconcileService(store.Goals, store.Mirrors, store.Profiles, logger.Component("reconcile"))
	feed := service.NewFeedService(store.Mirrors, store.Feed)

	dispatcher := queue.NewDispatcher(cfg.Reconcile.Workers, reconcile, logger.Component("dispatcher"))
	dispatcher.Start(ctx)
	if cfg.Reconcile.Interval > 0 {
		go dispatcher.RunPeriodic(ctx, cfg.Reconcile.Interval, store.Profiles.ListUIDs)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.RunCleanup(ctx)

	e := api.NewRouter(api.Deps{
		Log:       log,
		Identity:  backends.Identity,
		Auth:      backends.Auth,
		Goals:     goals,
		Feed:      feed,
		Profiles:  profiles,
		Reconcile: reconcile,
		Checks:    backends.Checks(),
		Limiter:   limiter,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreBackend).
			Str("identity", cfg.IdentityProvider).
			Msg("kron-api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	stop()
	waitOrTimeout(shutdownCtx, dispatcher.Wait, log)
	return nil
}

// waitOrTimeout blocks on wait until ctx expires.
func waitOrTimeout(ctx context.Context, wait func(), log zerolog.Logger) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("reconcile workers did not drain before the shutdown deadline")
	}
}
