package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the order direction
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is BUY or SELL
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TimeInForce is the order validity policy
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// Valid reports whether the policy is supported
func (t TimeInForce) Valid() bool {
	switch t {
	case TimeInForceGTC, TimeInForceIOC, TimeInForceFOK:
		return true
	}
	return false
}

// OrderIntent describes what the caller wants to trade.
// Exactly one of TargetNotional and Quantity must be set.
type OrderIntent struct {
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"side"`
	TargetNotional decimal.Decimal `json:"target_notional"`
	Quantity       decimal.Decimal `json:"quantity"`
	TimeInForce    TimeInForce     `json:"time_in_force,omitempty"` // defaults to GTC
}

// HasQuantity reports whether the intent carries an explicit quantity
func (i OrderIntent) HasQuantity() bool {
	return !i.Quantity.IsZero()
}

// Validate checks the intent before any network call is made
func (i OrderIntent) Validate() error {
	if i.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrderIntent)
	}
	if !i.Side.Valid() {
		return fmt.Errorf("%w: side must be BUY or SELL, got %q", ErrInvalidOrderIntent, i.Side)
	}
	if i.TargetNotional.IsNegative() || i.Quantity.IsNegative() {
		return fmt.Errorf("%w: notional and quantity must not be negative", ErrInvalidOrderIntent)
	}
	if i.TargetNotional.IsZero() == i.Quantity.IsZero() {
		return fmt.Errorf("%w: exactly one of target notional or quantity is required", ErrInvalidOrderIntent)
	}
	if i.TimeInForce != "" && !i.TimeInForce.Valid() {
		return fmt.Errorf("%w: unsupported time in force %q", ErrInvalidOrderIntent, i.TimeInForce)
	}
	return nil
}

// ExecuteOrderRequest is the HTTP body for order execution
type ExecuteOrderRequest struct {
	Symbol      string `json:"symbol" binding:"required"`
	Side        string `json:"side" binding:"required"`
	Notional    string `json:"notional,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
	TimeInForce string `json:"time_in_force,omitempty"`
}

// Normalize normalizes the request data
func (r *ExecuteOrderRequest) Normalize() {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Side = strings.ToUpper(strings.TrimSpace(r.Side))
	r.TimeInForce = strings.ToUpper(strings.TrimSpace(r.TimeInForce))
}

// ToIntent converts the request into a validated OrderIntent
func (r *ExecuteOrderRequest) ToIntent() (OrderIntent, error) {
	r.Normalize()

	intent := OrderIntent{
		Symbol:      r.Symbol,
		Side:        Side(r.Side),
		TimeInForce: TimeInForce(r.TimeInForce),
	}

	if r.Notional != "" {
		notional, err := decimal.NewFromString(r.Notional)
		if err != nil {
			return OrderIntent{}, fmt.Errorf("%w: invalid notional %q", ErrInvalidOrderIntent, r.Notional)
		}
		intent.TargetNotional = notional
	}
	if r.Quantity != "" {
		quantity, err := decimal.NewFromString(r.Quantity)
		if err != nil {
			return OrderIntent{}, fmt.Errorf("%w: invalid quantity %q", ErrInvalidOrderIntent, r.Quantity)
		}
		intent.Quantity = quantity
	}

	if err := intent.Validate(); err != nil {
		return OrderIntent{}, err
	}
	return intent, nil
}
