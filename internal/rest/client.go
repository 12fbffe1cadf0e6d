package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"executor/internal/models"
)

const (
	tickerPricePath  = "/api/v3/ticker/price"
	exchangeInfoPath = "/api/v3/exchangeInfo"
	orderPath        = "/api/v3/order"

	apiKeyHeader = "X-MBX-APIKEY"
	maxBodyBytes = 1 << 20
)

// HTTPDoer sends HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a single-attempt REST client for the Binance spot API
type Client struct {
	baseURL     string
	httpClient  HTTPDoer
	timeout     time.Duration
	rateLimiter *RateLimiter
	logger      zerolog.Logger
}

// Option configures the client
type Option func(*Client)

// WithTimeout sets the HTTP timeout of the default transport
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
		if hc, ok := c.httpClient.(*http.Client); ok {
			hc.Timeout = timeout
		}
	}
}

// WithRateLimit sets rate limiting; a zero rate disables it
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.rateLimiter = nil
			return
		}
		c.rateLimiter = NewRateLimiter(requestsPerSecond, burst)
	}
}

// WithHTTPClient replaces the transport
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new REST client
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		timeout:     10 * time.Second,
		rateLimiter: NewRateLimiter(10, 5), // Default: 10 req/sec, burst 5
		logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the HTTP timeout
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// GetTickerPrice fetches the latest price for a symbol
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (*TickerPrice, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", models.ErrInvalidOrderIntent)
	}

	query := url.Values{}
	query.Set("symbol", symbol)

	body, err := c.doRequest(ctx, http.MethodGet, tickerPricePath, query.Encode(), "")
	if err != nil {
		return nil, ErrorWithContext(err, "GetTickerPrice")
	}

	var ticker TickerPrice
	if err := json.Unmarshal(body, &ticker); err != nil {
		return nil, ErrorWithContext(malformedError("decode ticker price: %v", err), "GetTickerPrice")
	}

	return &ticker, nil
}

// GetExchangeInfo fetches trading rules for a symbol
func (c *Client) GetExchangeInfo(ctx context.Context, symbol string) (*ExchangeInfo, error) {
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}

	body, err := c.doRequest(ctx, http.MethodGet, exchangeInfoPath, query.Encode(), "")
	if err != nil {
		return nil, ErrorWithContext(err, "GetExchangeInfo")
	}

	var exchangeInfo ExchangeInfo
	if err := json.Unmarshal(body, &exchangeInfo); err != nil {
		return nil, ErrorWithContext(malformedError("decode exchange info: %v", err), "GetExchangeInfo")
	}

	return &exchangeInfo, nil
}

// SubmitOrder sends a signed order. signedQuery must already contain the
// signature field and is sent byte for byte in the query string.
func (c *Client) SubmitOrder(ctx context.Context, signedQuery, apiKey string) (*models.OrderAck, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api key is empty", models.ErrInvalidCredentials)
	}

	body, err := c.doRequest(ctx, http.MethodPost, orderPath, signedQuery, apiKey)
	if err != nil {
		return nil, ErrorWithContext(err, "SubmitOrder")
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, ErrorWithContext(malformedError("decode order response: %v", err), "SubmitOrder")
	}
	if resp.Code != nil && *resp.Code != 0 {
		return nil, ErrorWithContext(&models.ExchangeRejectedError{
			Code:       *resp.Code,
			Message:    resp.Msg,
			HTTPStatus: http.StatusOK,
		}, "SubmitOrder")
	}
	if resp.OrderID == 0 {
		return nil, ErrorWithContext(malformedError("order response has no orderId"), "SubmitOrder")
	}

	ack := resp.OrderAck
	return &ack, nil
}

// doRequest executes exactly one request. rawQuery is used verbatim.
func (c *Client) doRequest(ctx context.Context, method, path, rawQuery, apiKey string) ([]byte, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, upstreamError(fmt.Errorf("rate limiter: %w", err))
		}
	}

	requestURL := c.baseURL + path
	if rawQuery != "" {
		requestURL += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("method", method).
			Str("path", path).
			Dur("duration", time.Since(start)).
			Msg("Request failed")
		return nil, upstreamError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, upstreamError(fmt.Errorf("read response body: %w", err))
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request completed")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	return nil, ParseAPIError(resp.StatusCode, body)
}
