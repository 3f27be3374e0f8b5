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

	"github.com/baharkarakas/market-backend/internal/api"
	"github.com/baharkarakas/market-backend/internal/auth"
	"github.com/baharkarakas/market-backend/internal/config"
	"github.com/baharkarakas/market-backend/internal/db"
	"github.com/baharkarakas/market-backend/internal/logger"
	"github.com/baharkarakas/market-backend/internal/metrics"
	"github.com/baharkarakas/market-backend/internal/repository/postgres"
	"github.com/baharkarakas/market-backend/internal/services"
	"github.com/baharkarakas/market-backend/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.Workers)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTIssuer, cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	audit := services.NewAuditor(repos.AuditLogs, wp)
	roleSvc := services.NewRoleService(repos.Roles, audit)

	metrics.Init()
	r := api.NewRouter(cfg, api.Services{
		Auth:        services.NewAuthService(repos.Users, repos.Sessions, tm, cfg.JWTIssuer),
		Profile:     services.NewProfileService(repos.Users, repos.Balances),
		Roles:       roleSvc,
		Bots:        services.NewBotService(repos.Bots),
		Blocks:      services.NewBlockService(repos.Blocks),
		Marketplace: services.NewMarketplaceService(repos.Marketplace, audit),
		Exchange:    services.NewExchangeService(repos.Exchange, wp, audit),
		Support:     services.NewSupportService(repos.Support, roleSvc, audit),
		Files:       services.NewFileService(repos.Files, cfg.UploadMaxBytes),
		Newsletter:  services.NewNewsletterService(repos.Newsletter, wp),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "workers", cfg.Workers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
