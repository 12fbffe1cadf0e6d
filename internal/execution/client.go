package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"executor/internal/auth"
	"executor/internal/market"
	"executor/internal/models"
	"executor/internal/orders"
)

// OutcomePlaced is the metrics outcome of an acknowledged order
const OutcomePlaced = "placed"

// OrderSubmitter sends a signed order query. *rest.Client satisfies it.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, signedQuery, apiKey string) (*models.OrderAck, error)
}

// Recorder receives execution metrics. *metrics.Collector satisfies it.
type Recorder interface {
	RecordExecution(symbol, outcome string, latency time.Duration)
	RecordStageLatency(stage string, latency time.Duration)
	RecordOrderStatus(symbol, status string)
	RecordEmitterFailure()
}

// Client runs the price, build, sign, submit pipeline for one order at a time.
// It keeps no state between calls and is safe for concurrent use.
type Client struct {
	oracle    market.PriceOracle
	builder   *orders.Builder
	signer    auth.Signer
	submitter OrderSubmitter
	creds     models.Credentials

	priceTimeout  time.Duration
	submitTimeout time.Duration
	emitTimeout   time.Duration

	recorder Recorder
	emitter  orders.EventEmitter
	logger   zerolog.Logger
}

// Option configures the client
type Option func(*Client)

// WithPriceTimeout bounds the price fetch. Zero means no bound.
func WithPriceTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.priceTimeout = timeout
	}
}

// WithSubmitTimeout bounds the order submission. Zero means no bound.
func WithSubmitTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.submitTimeout = timeout
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(recorder Recorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// WithEmitter sets the receiver of execution events
func WithEmitter(emitter orders.EventEmitter) Option {
	return func(c *Client) {
		c.emitter = emitter
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates an execution client. The credentials are checked here so a
// missing key fails before any request is made.
func New(oracle market.PriceOracle, builder *orders.Builder, signer auth.Signer, submitter OrderSubmitter, creds models.Credentials, opts ...Option) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if oracle == nil || builder == nil || signer == nil || submitter == nil {
		return nil, errors.New("execution client requires an oracle, builder, signer and submitter")
	}

	c := &Client{
		oracle:        oracle,
		builder:       builder,
		signer:        signer,
		submitter:     submitter,
		creds:         creds,
		priceTimeout:  10 * time.Second,
		submitTimeout: 10 * time.Second,
		emitTimeout:   5 * time.Second,
		logger:        zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Execute fetches a price, builds and signs a LIMIT order and submits it once.
//
// Every error is a *models.StageError. Cancelling ctx before the submit stage
// guarantees no order is sent. Once the request is on the wire, cancellation
// only stops the wait for the response; the exchange may still accept the order.
func (c *Client) Execute(ctx context.Context, intent models.OrderIntent) (*models.ExecutionResult, error) {
	start := time.Now()
	logger := c.logger.With().
		Str("symbol", intent.Symbol).
		Str("side", string(intent.Side)).
		Logger()

	result, err := c.run(ctx, intent, logger)
	latency := time.Since(start)

	if err != nil {
		c.fail(ctx, intent, err, latency, logger)
		return nil, err
	}

	result.Latency = latency
	c.succeed(ctx, intent, result, logger)
	return result, nil
}

func (c *Client) run(ctx context.Context, intent models.OrderIntent, logger zerolog.Logger) (*models.ExecutionResult, error) {
	if err := intent.Validate(); err != nil {
		return nil, models.NewStageError(models.StageBuild, intent.Symbol, err)
	}

	price, err := c.fetchPrice(ctx, intent.Symbol)
	if err != nil {
		return nil, models.NewStageError(models.StagePrice, intent.Symbol, err)
	}

	order, err := c.builder.Build(intent, price)
	if err != nil {
		return nil, models.NewStageError(models.StageBuild, intent.Symbol, err)
	}
	params := order.Params

	signature, err := c.signer.Sign(params, c.creds.APISecret)
	if err != nil {
		return nil, models.NewStageError(models.StageSign, intent.Symbol, err)
	}
	params.Freeze()

	if err := ctx.Err(); err != nil {
		return nil, models.NewStageError(models.StageSubmit, intent.Symbol,
			fmt.Errorf("order not sent: %w", err))
	}

	logger.Debug().
		Str("price", params.Value("price")).
		Str("quantity", params.Value("quantity")).
		Str("time_in_force", params.Value("timeInForce")).
		Msg("Submitting order")

	submittedAt := time.Now()
	ack, err := c.submit(ctx, params.EncodeWithSignature(signature))
	if err != nil {
		return nil, models.NewStageError(models.StageSubmit, intent.Symbol, err)
	}

	return &models.ExecutionResult{
		Ack:         ack,
		Params:      params,
		Price:       order.Price,
		Quantity:    order.Quantity,
		SubmittedAt: submittedAt,
	}, nil
}

func (c *Client) fetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, cancel := withTimeout(ctx, c.priceTimeout)
	defer cancel()

	start := time.Now()
	price, err := c.oracle.FetchPrice(ctx, symbol)
	c.recordStage(models.StagePrice, time.Since(start))
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: price must be positive, got %s", models.ErrMalformedResponse, price.String())
	}
	return price, nil
}

func (c *Client) submit(ctx context.Context, signedQuery string) (*models.OrderAck, error) {
	ctx, cancel := withTimeout(ctx, c.submitTimeout)
	defer cancel()

	start := time.Now()
	ack, err := c.submitter.SubmitOrder(ctx, signedQuery, c.creds.APIKey)
	c.recordStage(models.StageSubmit, time.Since(start))
	return ack, err
}

func (c *Client) succeed(ctx context.Context, intent models.OrderIntent, result *models.ExecutionResult, logger zerolog.Logger) {
	logger.Info().
		Int64("order_id", result.Ack.OrderID).
		Str("status", result.Ack.Status).
		Str("price", result.Price.String()).
		Str("quantity", result.Quantity.String()).
		Dur("latency", result.Latency).
		Msg("Order placed")

	if c.recorder != nil {
		c.recorder.RecordExecution(intent.Symbol, OutcomePlaced, result.Latency)
		c.recorder.RecordOrderStatus(intent.Symbol, result.Ack.Status)
	}
	c.emit(ctx, orders.NewPlacedEvent(intent, result), logger)
}

func (c *Client) fail(ctx context.Context, intent models.OrderIntent, err error, latency time.Duration, logger zerolog.Logger) {
	stage := "unknown"
	reached := false
	var stageErr *models.StageError
	if errors.As(err, &stageErr) {
		stage = string(stageErr.Stage)
		reached = stageErr.ReachedExchange()
	}

	event := logger.Error()
	if errors.Is(err, models.ErrInvalidOrderIntent) {
		event = logger.Warn()
	}
	event.Err(err).
		Str("stage", stage).
		Bool("reached_exchange", reached).
		Dur("latency", latency).
		Msg("Order execution failed")

	if c.recorder != nil {
		c.recorder.RecordExecution(intent.Symbol, stage, latency)
	}
	c.emit(ctx, orders.NewFailedEvent(intent, err, latency), logger)
}

// emit delivers the event outside the caller's cancellation. Failures are logged only.
func (c *Client) emit(ctx context.Context, event *orders.ExecutionEvent, logger zerolog.Logger) {
	if c.emitter == nil {
		return
	}

	ctx, cancel := withTimeout(context.WithoutCancel(ctx), c.emitTimeout)
	defer cancel()

	if err := c.emitter.EmitExecution(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event_type", event.EventType).Msg("Failed to emit execution event")
		if c.recorder != nil {
			c.recorder.RecordEmitterFailure()
		}
	}
}

func (c *Client) recordStage(stage models.Stage, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordStageLatency(string(stage), d)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
