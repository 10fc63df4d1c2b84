package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"rental-assistant/handler"
	"rental-assistant/internal/bootstrap"
	"rental-assistant/internal/config"
	"rental-assistant/internal/logger"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	// ---- Services ----
	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build services")
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(app.Services, app.HandlerOptions(log)...)
	if err != nil {
		log.Error().Err(err).Msg("failed to create handler")
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
