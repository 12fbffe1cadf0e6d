package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"executor/internal/models"
)

// TradeEvent is one message of the <symbol>@trade stream
type TradeEvent struct {
	EventType string          `json:"e"`
	EventTime int64           `json:"E"`
	Symbol    string          `json:"s"`
	TradeID   int64           `json:"t"`
	Price     decimal.Decimal `json:"p"`
	Quantity  decimal.Decimal `json:"q"`
	TradeTime int64           `json:"T"`
	IsMaker   bool            `json:"m"`
}

// StreamOracle reads the price of the next public trade.
// Every fetch opens and closes its own connection.
type StreamOracle struct {
	baseURL     string
	dialer      *websocket.Dialer
	readTimeout time.Duration
	logger      zerolog.Logger
}

// StreamOption configures the stream oracle
type StreamOption func(*StreamOracle)

// WithReadTimeout bounds the wait for the first trade
func WithReadTimeout(timeout time.Duration) StreamOption {
	return func(o *StreamOracle) {
		o.readTimeout = timeout
	}
}

// WithStreamLogger sets the logger
func WithStreamLogger(logger zerolog.Logger) StreamOption {
	return func(o *StreamOracle) {
		o.logger = logger
	}
}

// NewStreamOracle creates an oracle for a stream base URL such as
// wss://stream.binance.com:9443
func NewStreamOracle(baseURL string, opts ...StreamOption) *StreamOracle {
	o := &StreamOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		readTimeout: 30 * time.Second,
		logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// StreamURL returns the trade stream URL of a symbol
func (o *StreamOracle) StreamURL(symbol string) string {
	return fmt.Sprintf("%s/ws/%s@trade", o.baseURL, strings.ToLower(symbol))
}

// FetchPrice waits for one trade event and returns its price
func (o *StreamOracle) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("%w: symbol is required", models.ErrInvalidOrderIntent)
	}

	conn, _, err := o.dialer.DialContext(ctx, o.StreamURL(symbol), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: dial trade stream: %w", models.ErrUpstreamUnavailable, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(o.readTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
	}

	// Unblock the read on cancellation
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	_, message, err := conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return decimal.Zero, fmt.Errorf("%w: read trade stream: %w", models.ErrUpstreamUnavailable, err)
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	var event TradeEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode trade event: %v", models.ErrMalformedResponse, err)
	}
	if err := checkPrice(symbol, event.Symbol, event.Price); err != nil {
		return decimal.Zero, err
	}

	o.logger.Debug().
		Str("symbol", symbol).
		Str("price", event.Price.String()).
		Int64("trade_id", event.TradeID).
		Msg("Received trade price")

	return event.Price, nil
}
