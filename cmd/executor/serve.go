package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"executor/internal/api"
	"executor/internal/config"
)

func newServeCmd() *cobra.Command {
	var symbols []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP order execution service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, cfg.LogLevel(), cfg.Logging.Format == "console")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := buildPipeline(ctx, cfg, logger, symbols)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to build execution client")
				return err
			}

			server, err := api.NewServer(api.ServerConfig{
				Host:           cfg.Server.Host,
				Port:           cfg.Server.Port,
				ReadTimeout:    cfg.Server.ReadTimeout,
				WriteTimeout:   cfg.Server.WriteTimeout,
				IdleTimeout:    cfg.Server.IdleTimeout,
				MaxRequestSize: cfg.Security.MaxRequestSize,
				APIKeyHeader:   cfg.Security.APIKeyHeader,
				APIKey:         cfg.Security.RequiredAPIKey,
				Version:        version,
				RateLimit:      cfg.Security.RateLimit,
				RateBurst:      cfg.Security.RateBurst,
			}, p.client, p.collector, logger)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to create server")
				return err
			}

			serverErrors := make(chan error, 1)
			go func() {
				serverErrors <- server.Start()
			}()

			select {
			case err := <-serverErrors:
				if err != nil {
					logger.Error().Err(err).Msg("Server error")
				}
				return err
			case <-ctx.Done():
				logger.Info().Msg("Shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown server gracefully")
				return err
			}

			logger.Info().Msg("Shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to preload exchange filters for")
	return cmd
}
