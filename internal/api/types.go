package api

import (
	"time"

	"executor/internal/models"
)

// ExecuteOrderResponse is returned for an acknowledged order
type ExecuteOrderResponse struct {
	OrderID       int64     `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Status        string    `json:"status"`
	Price         string    `json:"price"`
	Quantity      string    `json:"quantity"`
	ExecutedQty   string    `json:"executed_qty"`
	TransactTime  time.Time `json:"transact_time"`
	LatencyMs     int64     `json:"latency_ms"`
	RequestID     string    `json:"request_id,omitempty"`
}

func newExecuteOrderResponse(result *models.ExecutionResult, requestID string) ExecuteOrderResponse {
	resp := ExecuteOrderResponse{
		Price:     result.Price.String(),
		Quantity:  result.Quantity.String(),
		LatencyMs: result.Latency.Milliseconds(),
		RequestID: requestID,
	}
	if ack := result.Ack; ack != nil {
		resp.OrderID = ack.OrderID
		resp.ClientOrderID = ack.ClientOrderID
		resp.Symbol = ack.Symbol
		resp.Side = ack.Side
		resp.Status = ack.Status
		resp.ExecutedQty = ack.ExecutedQty.String()
		if ack.TransactTime > 0 {
			resp.TransactTime = time.UnixMilli(ack.TransactTime).UTC()
		}
	}
	return resp
}
