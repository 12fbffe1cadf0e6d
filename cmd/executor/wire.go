package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"executor/internal/auth"
	"executor/internal/config"
	"executor/internal/execution"
	"executor/internal/filters"
	"executor/internal/market"
	"executor/internal/metrics"
	"executor/internal/orders"
	"executor/internal/rest"
)

// newLogger builds the process logger. console selects human-readable output.
func newLogger(w io.Writer, level zerolog.Level, console bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "executor").Logger()
}

type pipeline struct {
	client    *execution.Client
	collector *metrics.Collector
}

// buildPipeline wires the execution client from configuration.
// symbols are preloaded when exchange rounding is selected.
func buildPipeline(ctx context.Context, cfg *config.Config, logger zerolog.Logger, symbols []string) (*pipeline, error) {
	restClient := rest.NewClient(cfg.Binance.BaseURL,
		rest.WithTimeout(transportTimeout(cfg.Binance)),
		rest.WithRateLimit(cfg.Binance.RateLimit, cfg.Binance.RateBurst),
		rest.WithLogger(logger.With().Str("component", "rest").Logger()),
	)

	var oracle market.PriceOracle
	switch cfg.Executor.PriceSource {
	case config.PriceSourceStream:
		oracle = market.NewStreamOracle(cfg.Binance.WSBaseURL,
			market.WithReadTimeout(cfg.Binance.PriceTimeout),
			market.WithStreamLogger(logger.With().Str("component", "stream").Logger()),
		)
	default:
		oracle = market.NewRESTOracle(restClient, logger.With().Str("component", "oracle").Logger())
	}

	builderOpts := []orders.BuilderOption{orders.WithRecvWindow(cfg.Binance.RecvWindow)}
	switch cfg.Executor.Rounding {
	case config.RoundingStep:
		builderOpts = append(builderOpts, orders.WithRounding(orders.StepRounding{
			StepSize: cfg.Executor.StepSize,
			MinQty:   cfg.Executor.MinQty,
		}))
	case config.RoundingExchange:
		if len(symbols) == 0 {
			return nil, fmt.Errorf("exchange rounding needs at least one symbol")
		}
		validator, err := filters.Load(ctx, restClient, logger.With().Str("component", "filters").Logger(), symbols...)
		if err != nil {
			return nil, err
		}
		builderOpts = append(builderOpts,
			orders.WithRounding(orders.FilterRounding{Validator: validator}),
			orders.WithValidator(validator),
		)
	}

	collector := metrics.NewCollector()
	emitter := orders.MultiEmitter{orders.NewLogEventEmitter(logger)}
	if cfg.Executor.OrderUpdateURL != "" {
		emitter = append(emitter, orders.NewHTTPEventEmitter(cfg.Executor.OrderUpdateURL))
	}

	client, err := execution.New(
		oracle,
		orders.NewBuilder(builderOpts...),
		auth.NewHMACSigner(),
		restClient,
		cfg.Credentials(),
		execution.WithPriceTimeout(cfg.Binance.PriceTimeout),
		execution.WithSubmitTimeout(cfg.Binance.SubmitTimeout),
		execution.WithRecorder(collector),
		execution.WithEmitter(emitter),
		execution.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &pipeline{client: client, collector: collector}, nil
}

// transportTimeout bounds a single HTTP request. It is never tighter than
// either stage deadline; zero stage timeouts leave the transport unbounded.
func transportTimeout(b config.BinanceConfig) time.Duration {
	if b.PriceTimeout <= 0 || b.SubmitTimeout <= 0 {
		return 0
	}
	if b.PriceTimeout > b.SubmitTimeout {
		return b.PriceTimeout
	}
	return b.SubmitTimeout
}
