package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-assistant/handler"
	"rental-assistant/internal/bootstrap"
	"rental-assistant/internal/config"
	"rental-assistant/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build services")
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}()

	srv, err := handler.NewApp(app.Services, app.HandlerOptions(log)...)
	if err != nil {
		log.Error().Err(err).Msg("failed to create server")
		return
	}

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Info().Str("event", "server_start").Str("addr", addr).Msg("listening")
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Str("event", "server_shutdown").Msg("shutting down")
		if err := srv.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warn().Err(err).Msg("shutdown failed")
		}
	}
}
