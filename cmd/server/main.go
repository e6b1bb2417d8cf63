package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"agriconnect/internal/bootstrap"
	"agriconnect/internal/config"
	applog "agriconnect/internal/log"
	"agriconnect/internal/metrics"
	"agriconnect/internal/server"
	"agriconnect/internal/service"
	"agriconnect/internal/utils"

	"github.com/rs/zerolog"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		// No environment yet, so log with the defaults.
		l := applog.New("development")
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := applog.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("server exiting")
}

func run(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) error {
	// --- Initialize Utilities ---
	jwtUtil, err := utils.NewJWTUtil(cfg.JWT.SecretKey, cfg.JWT.ExpirationHours)
	if err != nil {
		return err
	}

	// --- Storage ---
	users, closeStore, err := openUserRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Bootstrap ---
	authService := service.NewAuthService(users, jwtUtil, cfg.Password.BcryptCost, log)
	if err := bootstrap.EnsureAdmin(ctx, cfg.Admin, users, authService, log); err != nil {
		return err
	}

	// --- HTTP ---
	router := server.NewRouter(server.Deps{
		Config:  cfg,
		Log:     log,
		Users:   users,
		JWT:     jwtUtil,
		Metrics: metrics.New("agriconnect"),
	})
	srv := server.NewHTTPServer(cfg.Server, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// --- Graceful Shutdown ---
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
