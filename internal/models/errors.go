package models

import (
	"errors"
	"fmt"
)

// Error kinds returned by the execution pipeline. Match with errors.Is.
var (
	// ErrUpstreamUnavailable means the price or order endpoint could not be reached
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse means a response did not have the expected shape
	ErrMalformedResponse = errors.New("malformed response")
	// ErrInvalidCredentials means the signing key or API key is missing
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrderIntent means the requested or derived order violates constraints
	ErrInvalidOrderIntent = errors.New("invalid order intent")
	// ErrExchangeRejected means the exchange refused a signed request
	ErrExchangeRejected = errors.New("exchange rejected request")
)

// Stage identifies the pipeline step that produced an error
type Stage string

const (
	StagePrice  Stage = "price"
	StageBuild  Stage = "build"
	StageSign   Stage = "sign"
	StageSubmit Stage = "submit"
)

// StageError wraps a pipeline failure with the stage it happened in
type StageError struct {
	Stage  Stage
	Symbol string
	Err    error
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s stage failed for %s: %v", e.Stage, e.Symbol, e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}

// ReachedExchange reports whether the order endpoint answered the request.
// A transport failure during submission is ambiguous and reports false.
func (e *StageError) ReachedExchange() bool {
	if e.Stage != StageSubmit {
		return false
	}
	return errors.Is(e.Err, ErrExchangeRejected) || errors.Is(e.Err, ErrMalformedResponse)
}

// NewStageError wraps err with its stage
func NewStageError(stage Stage, symbol string, err error) *StageError {
	return &StageError{Stage: stage, Symbol: symbol, Err: err}
}

// ExchangeRejectedError is an error response returned by the exchange.
// Code and Message are kept verbatim.
type ExchangeRejectedError struct {
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	HTTPStatus int    `json:"-"`
}

// Error implements the error interface
func (e *ExchangeRejectedError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("exchange rejected request: HTTP %d: %s", e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("exchange rejected request: code %d: %s", e.Code, e.Message)
}

// Is matches ErrExchangeRejected
func (e *ExchangeRejectedError) Is(target error) bool {
	return target == ErrExchangeRejected
}

// IsTimestampError checks if the request fell outside the recv window
func (e *ExchangeRejectedError) IsTimestampError() bool {
	return e.Code == -1021
}

// IsAuthError checks if this is an authentication error
func (e *ExchangeRejectedError) IsAuthError() bool {
	authCodes := map[int]bool{
		-1022: true, // Invalid signature
		-2014: true, // API key format invalid
		-2015: true, // Invalid API key, IP, or permissions
	}
	return authCodes[e.Code]
}

// IsRateLimitError checks if this is a rate limiting error
func (e *ExchangeRejectedError) IsRateLimitError() bool {
	return e.Code == -1003 || e.HTTPStatus == 429 || e.HTTPStatus == 418
}

// IsOrderError checks if this is an order-related error
func (e *ExchangeRejectedError) IsOrderError() bool {
	orderCodes := map[int]bool{
		-1013: true, // Filter failure
		-1111: true, // Precision over maximum
		-1121: true, // Invalid symbol
		-2010: true, // New order rejected
	}
	return orderCodes[e.Code]
}
