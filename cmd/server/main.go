package main

import (
	"context"
	"log"
	"os"

	"github.com/rosedal2/condoauth/internal/logging"
	"github.com/rosedal2/condoauth/internal/server"
	"github.com/rosedal2/condoauth/internal/server/config"
)

func main() {

	ctx := context.Background()

	provider, err := config.NewProvider(config.LoadConfig)
	if err != nil {
		log.Printf("config error: %v", err)
		os.Exit(1)
	}

	cfg := provider.Current()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	app, err := server.NewApp(ctx, provider, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	app.Run(ctx)

}
