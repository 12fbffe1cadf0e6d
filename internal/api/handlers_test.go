package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"executor/internal/metrics"
	"executor/internal/models"
)

// MockExecutor is a mock implementation of the Executor interface
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, intent models.OrderIntent) (*models.ExecutionResult, error) {
	args := m.Called(ctx, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExecutionResult), args.Error(1)
}

func setupHandlersRouter(executor Executor, collector *metrics.Collector) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(executor, collector, "1.0.0", zerolog.Nop())

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.POST("/api/orders", h.ExecuteOrder())
	router.GET("/healthz", h.Healthz())
	router.GET("/metrics", h.Metrics())
	return router
}

func postOrder(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExecuteOrderHandler_Success(t *testing.T) {
	executor := new(MockExecutor)
	expected := models.OrderIntent{
		Symbol:         "SHIBUSDT",
		Side:           models.SideSell,
		TargetNotional: decimal.NewFromInt(5),
	}
	executor.On("Execute", mock.Anything, mock.MatchedBy(func(intent models.OrderIntent) bool {
		return intent.Symbol == expected.Symbol &&
			intent.Side == expected.Side &&
			intent.TargetNotional.Equal(expected.TargetNotional)
	})).Return(&models.ExecutionResult{
		Ack: &models.OrderAck{
			Symbol:       "SHIBUSDT",
			OrderID:      28,
			Side:         "SELL",
			Status:       "NEW",
			TransactTime: 1700000000000,
		},
		Price:    decimal.RequireFromString("0.00002"),
		Quantity: decimal.NewFromInt(250000),
		Latency:  150 * time.Millisecond,
	}, nil)

	router := setupHandlersRouter(executor, nil)
	w := postOrder(router, `{"symbol":" shibusdt ","side":"sell","notional":"5"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp ExecuteOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(28), resp.OrderID)
	assert.Equal(t, "NEW", resp.Status)
	assert.Equal(t, "250000", resp.Quantity)
	assert.Equal(t, "0.00002", resp.Price)
	assert.Equal(t, int64(150), resp.LatencyMs)
	assert.NotEmpty(t, resp.RequestID)
	executor.AssertExpectations(t)
}

func TestExecuteOrderHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "invalid json", body: `{`, wantCode: "INVALID_REQUEST"},
		{name: "missing side", body: `{"symbol":"SHIBUSDT","notional":"5"}`, wantCode: "INVALID_REQUEST"},
		{name: "invalid side", body: `{"symbol":"SHIBUSDT","side":"HOLD","notional":"5"}`, wantCode: "INVALID_ORDER"},
		{name: "no size", body: `{"symbol":"SHIBUSDT","side":"BUY"}`, wantCode: "INVALID_ORDER"},
		{name: "bad notional", body: `{"symbol":"SHIBUSDT","side":"BUY","notional":"five"}`, wantCode: "INVALID_ORDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := new(MockExecutor)
			router := setupHandlersRouter(executor, nil)

			w := postOrder(router, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		})
	}
}

func TestExecuteOrderHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantStage  string
		wantExCode int
	}{
		{
			name:       "exchange rejected",
			err:        models.NewStageError(models.StageSubmit, "SHIBUSDT", &models.ExchangeRejectedError{Code: -1021, Message: "Timestamp outside recvWindow", HTTPStatus: 400}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "EXCHANGE_REJECTED",
			wantStage:  "submit",
			wantExCode: -1021,
		},
		{
			name:       "upstream unavailable",
			err:        models.NewStageError(models.StagePrice, "SHIBUSDT", fmt.Errorf("%w: connection refused", models.ErrUpstreamUnavailable)),
			wantStatus: http.StatusBadGateway,
			wantCode:   "UPSTREAM_UNAVAILABLE",
			wantStage:  "price",
		},
		{
			name:       "malformed response",
			err:        models.NewStageError(models.StagePrice, "SHIBUSDT", models.ErrMalformedResponse),
			wantStatus: http.StatusBadGateway,
			wantCode:   "MALFORMED_RESPONSE",
			wantStage:  "price",
		},
		{
			name:       "invalid intent after pricing",
			err:        models.NewStageError(models.StageBuild, "SHIBUSDT", models.ErrInvalidOrderIntent),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ORDER",
			wantStage:  "build",
		},
		{
			name:       "invalid credentials",
			err:        models.NewStageError(models.StageSign, "SHIBUSDT", models.ErrInvalidCredentials),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INVALID_CREDENTIALS",
			wantStage:  "sign",
		},
		{
			name:       "cancelled",
			err:        models.NewStageError(models.StageSubmit, "SHIBUSDT", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "TIMEOUT",
			wantStage:  "submit",
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := new(MockExecutor)
			executor.On("Execute", mock.Anything, mock.Anything).Return(nil, tt.err)
			router := setupHandlersRouter(executor, nil)

			w := postOrder(router, `{"symbol":"SHIBUSDT","side":"SELL","notional":"5"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.Equal(t, tt.wantStage, resp.Stage)
			assert.Equal(t, tt.wantExCode, resp.Code)
		})
	}
}

func TestHealthzHandler(t *testing.T) {
	router := setupHandlersRouter(new(MockExecutor), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
}

func TestMetricsHandler(t *testing.T) {
	t.Run("json snapshot", func(t *testing.T) {
		collector := metrics.NewCollector()
		collector.RecordExecution("SHIBUSDT", "placed", time.Millisecond)
		router := setupHandlersRouter(new(MockExecutor), collector)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var snapshot metrics.MetricSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
		require.Len(t, snapshot.Counters, 1)
		assert.Equal(t, metrics.MetricExecutions, snapshot.Counters[0].Name)
	})

	t.Run("prometheus text", func(t *testing.T) {
		collector := metrics.NewCollector()
		collector.RecordExecution("SHIBUSDT", "placed", time.Millisecond)
		router := setupHandlersRouter(new(MockExecutor), collector)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics?format=prometheus", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
		assert.Contains(t, w.Body.String(), "executions_total")
	})

	t.Run("disabled", func(t *testing.T) {
		router := setupHandlersRouter(new(MockExecutor), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
