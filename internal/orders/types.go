package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"executor/internal/models"
)

// Event types
const (
	EventOrderPlaced = "ORDER_PLACED"
	EventOrderFailed = "ORDER_FAILED"
)

// ExecutionEvent describes the outcome of one execution
type ExecutionEvent struct {
	EventType     string          `json:"event_type"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	OrderID       int64           `json:"order_id,omitempty"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
	Status        string          `json:"status,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Stage         string          `json:"stage,omitempty"`
	Code          int             `json:"code,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Latency       time.Duration   `json:"latency"`
	Time          time.Time       `json:"time"`
}

// NewPlacedEvent builds the event of an acknowledged order
func NewPlacedEvent(intent models.OrderIntent, result *models.ExecutionResult) *ExecutionEvent {
	event := &ExecutionEvent{
		EventType: EventOrderPlaced,
		Symbol:    intent.Symbol,
		Side:      string(intent.Side),
		Price:     result.Price,
		Quantity:  result.Quantity,
		Latency:   result.Latency,
		Time:      result.SubmittedAt,
	}
	if result.Ack != nil {
		event.OrderID = result.Ack.OrderID
		event.ClientOrderID = result.Ack.ClientOrderID
		event.Status = result.Ack.Status
	}
	return event
}

// NewFailedEvent builds the event of a failed execution
func NewFailedEvent(intent models.OrderIntent, err error, latency time.Duration) *ExecutionEvent {
	event := &ExecutionEvent{
		EventType: EventOrderFailed,
		Symbol:    intent.Symbol,
		Side:      string(intent.Side),
		Quantity:  intent.Quantity,
		Reason:    err.Error(),
		Latency:   latency,
		Time:      time.Now(),
	}

	var stageErr *models.StageError
	if errors.As(err, &stageErr) {
		event.Stage = string(stageErr.Stage)
	}
	var rejected *models.ExchangeRejectedError
	if errors.As(err, &rejected) {
		event.Code = rejected.Code
	}
	return event
}
