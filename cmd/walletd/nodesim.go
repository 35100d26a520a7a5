package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpHandler "ledger-wallet/internal/adapter/http/handler"
	"ledger-wallet/internal/adapter/nodesim"
	redisStorage "ledger-wallet/internal/adapter/storage/redis"
	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/internal/service"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/urfave/cli/v3"
)

func (a *app) nodesim(ctx context.Context, cmd *cli.Command) error {
	cfg := a.cfg.NodeSim

	var tokenSvc ports.TokenService
	if cfg.JWTSecret != "" {
		tokenSvc = service.NewJWTTokenService(cfg.JWTSecret, cfg.JWTExpiry, cfg.JWTIssuer)
	}
	if client := cmd.String("print-token"); client != "" {
		if tokenSvc == nil {
			return errors.New("nodesim.jwt_secret is not configured")
		}
		token, expiresAt, err := tokenSvc.Generate(client)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n(expires %s)\n", token, expiresAt.Format(time.RFC3339))
		return nil
	}

	deps := httpHandler.RouterDeps{
		Ledger:    nodesim.NewLedger(a.cfg.Address.HRP, clock.NewDefaultClock()),
		TokenSvc:  tokenSvc,
		DevRoutes: cfg.DevRoutes,
		Logger:    a.log,
	}
	if cfg.Username != "" {
		deps.BasicAuth = &domain.NodeAuth{Username: cfg.Username, Password: cfg.Password}
	}
	if a.cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, a.cfg.Redis, a.log)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.RateLimiter = redisStorage.NewRateLimitStore(rdb)
		deps.HealthCheckers = append(deps.HealthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpHandler.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Bool("dev_routes", cfg.DevRoutes).Msg("node simulator listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("node simulator failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down node simulator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("node simulator forced to shutdown")
	}
	return nil
}
