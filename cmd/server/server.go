package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jan-server/services/conversation-api/internal/config"
	"jan-server/services/conversation-api/internal/infrastructure/observability"
	"jan-server/services/conversation-api/internal/interfaces/httpserver"
)

type Application struct {
	httpServer    *httpserver.HTTPServer
	metricsServer *httpserver.MetricsServer
	config        *config.Config
	logger        zerolog.Logger
}

// @title Jan Server Conversation API
// @version 1.0
// @description Conversation and thread management with OpenAI-compatible chat completions that capture every turn into the caller's active conversation.
// @contact.name Jan Server Team
// @contact.url https://github.com/janhq/jan-server
// @BasePath /
func (application *Application) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return application.metricsServer.Run(ctx)
	})
	eg.Go(func() error {
		return application.httpServer.Run(ctx)
	})
	return eg.Wait()
}

func main() {
	loadEnvFiles()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, cleanup, err := CreateApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	log := application.logger
	cfg := application.config

	otelShutdown, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	log.Info().
		Str("version", config.Version).
		Str("environment", cfg.Environment).
		Bool("redis", cfg.UsesRedis()).
		Msg("starting conversation-api")

	if err := application.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}
	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
