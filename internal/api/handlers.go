package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"executor/internal/metrics"
	"executor/internal/models"
)

// Executor places one order per call. *execution.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, intent models.OrderIntent) (*models.ExecutionResult, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	executor  Executor
	collector *metrics.Collector
	version   string
	startTime time.Time
	logger    zerolog.Logger
}

// NewHandlers creates new handlers instance
func NewHandlers(executor Executor, collector *metrics.Collector, version string, logger zerolog.Logger) *Handlers {
	return &Handlers{
		executor:  executor,
		collector: collector,
		version:   version,
		startTime: time.Now(),
		logger:    logger,
	}
}

// ExecuteOrder handles POST /api/orders
func (h *Handlers) ExecuteOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString(requestIDKey)

		var req models.ExecuteOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse("INVALID_REQUEST", err.Error(), requestID))
			return
		}

		intent, err := req.ToIntent()
		if err != nil {
			h.writeError(c, err)
			return
		}

		h.logger.Info().
			Str("request_id", requestID).
			Str("symbol", intent.Symbol).
			Str("side", string(intent.Side)).
			Str("notional", intent.TargetNotional.String()).
			Str("quantity", intent.Quantity.String()).
			Msg("Executing order")

		result, err := h.executor.Execute(c.Request.Context(), intent)
		if err != nil {
			h.writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, newExecuteOrderResponse(result, requestID))
	}
}

// Healthz handles GET /healthz
func (h *Handlers) Healthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "healthy",
			Version: h.version,
			Uptime:  int64(time.Since(h.startTime).Seconds()),
		})
	}
}

// Metrics handles GET /metrics. ?format=prometheus returns the text format.
func (h *Handlers) Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.collector == nil {
			c.JSON(http.StatusServiceUnavailable, models.NewErrorResponse(
				"METRICS_DISABLED", "Metrics are not enabled", c.GetString(requestIDKey)))
			return
		}

		if c.Query("format") == "prometheus" {
			text, err := h.collector.Collect()
			if err != nil {
				h.writeError(c, err)
				return
			}
			c.Data(http.StatusOK, "text/plain; version=0.0.4", []byte(text))
			return
		}

		c.JSON(http.StatusOK, h.collector.GetSnapshot())
	}
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)

	resp := models.NewErrorResponse(code, err.Error(), c.GetString(requestIDKey))
	var stageErr *models.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = string(stageErr.Stage)
	}
	var rejected *models.ExchangeRejectedError
	if errors.As(err, &rejected) {
		resp.Code = rejected.Code
	}

	c.JSON(status, resp)
}

// errorStatus maps the error taxonomy onto HTTP statuses
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidOrderIntent):
		return http.StatusBadRequest, "INVALID_ORDER"
	case errors.Is(err, models.ErrExchangeRejected):
		return http.StatusUnprocessableEntity, "EXCHANGE_REJECTED"
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	case errors.Is(err, models.ErrMalformedResponse):
		return http.StatusBadGateway, "MALFORMED_RESPONSE"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusInternalServerError, "INVALID_CREDENTIALS"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
