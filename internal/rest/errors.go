package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"executor/internal/models"
)

const maxErrorBodyLen = 256

// ParseAPIError builds an exchange rejection from a non-2xx response body.
// Binance error bodies look like {"code":-1021,"msg":"..."}; anything else
// is kept as the message with code 0.
func ParseAPIError(statusCode int, body []byte) *models.ExchangeRejectedError {
	var apiErr models.ExchangeRejectedError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		apiErr.HTTPStatus = statusCode
		return &apiErr
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if message == "" {
		message = "empty response"
	}
	if len(message) > maxErrorBodyLen {
		message = message[:maxErrorBodyLen] + "..."
	}

	return &models.ExchangeRejectedError{
		HTTPStatus: statusCode,
		Message:    message,
	}
}

// ErrorWithContext wraps errors with operation context for better debugging
func ErrorWithContext(err error, operation string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", operation, err)
}

func upstreamError(err error) error {
	return fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
}

func malformedError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", models.ErrMalformedResponse, fmt.Sprintf(format, args...))
}
