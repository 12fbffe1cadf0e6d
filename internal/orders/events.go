package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// EventEmitter receives execution outcomes
type EventEmitter interface {
	EmitExecution(ctx context.Context, event *ExecutionEvent) error
}

// HTTPEventEmitter emits events via HTTP POST
type HTTPEventEmitter struct {
	url    string
	client *http.Client
}

// NewHTTPEventEmitter creates a new HTTP event emitter
func NewHTTPEventEmitter(url string) *HTTPEventEmitter {
	return &HTTPEventEmitter{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// EmitExecution posts the event as JSON
func (e *HTTPEventEmitter) EmitExecution(ctx context.Context, event *ExecutionEvent) error {
	if e.url == "" {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal execution event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send execution event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// LogEventEmitter writes events to the log at debug level. Outcomes are
// already logged by the execution client; this is the event trail.
type LogEventEmitter struct {
	logger zerolog.Logger
}

// NewLogEventEmitter creates a new log event emitter
func NewLogEventEmitter(logger zerolog.Logger) *LogEventEmitter {
	return &LogEventEmitter{logger: logger}
}

// EmitExecution logs the event
func (e *LogEventEmitter) EmitExecution(ctx context.Context, event *ExecutionEvent) error {
	e.logger.Debug().
		Str("event_type", event.EventType).
		Str("symbol", event.Symbol).
		Str("side", event.Side).
		Int64("order_id", event.OrderID).
		Str("status", event.Status).
		Str("price", event.Price.String()).
		Str("quantity", event.Quantity.String()).
		Str("stage", event.Stage).
		Int("code", event.Code).
		Str("reason", event.Reason).
		Dur("latency", event.Latency).
		Msg("Execution event")
	return nil
}

// MultiEmitter fans an event out to several emitters and returns the first error
type MultiEmitter []EventEmitter

func (m MultiEmitter) EmitExecution(ctx context.Context, event *ExecutionEvent) error {
	var firstErr error
	for _, emitter := range m {
		if err := emitter.EmitExecution(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
