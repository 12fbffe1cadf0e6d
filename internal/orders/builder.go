package orders

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"executor/internal/filters"
	"executor/internal/models"
)

const orderTypeLimit = "LIMIT"

// Builder turns an intent and a price into the parameters of a LIMIT order
type Builder struct {
	rounding   RoundingPolicy
	validator  *filters.SymbolValidator
	clock      func() time.Time
	recvWindow int64
}

// BuilderOption configures the builder
type BuilderOption func(*Builder)

// WithRounding sets the quantity rounding policy
func WithRounding(policy RoundingPolicy) BuilderOption {
	return func(b *Builder) {
		b.rounding = policy
	}
}

// WithValidator checks built orders against exchange filters.
// Symbols the validator does not know are not checked.
func WithValidator(validator *filters.SymbolValidator) BuilderOption {
	return func(b *Builder) {
		b.validator = validator
	}
}

// WithClock sets the source of the request timestamp
func WithClock(clock func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.clock = clock
	}
}

// WithRecvWindow adds recvWindow (milliseconds) to every order when positive
func WithRecvWindow(ms int64) BuilderOption {
	return func(b *Builder) {
		b.recvWindow = ms
	}
}

// NewBuilder creates a builder with integer rounding and the wall clock
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		rounding: IntegerRounding{},
		clock:    time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Order is a built LIMIT order. Price and Quantity are the values encoded
// in Params.
type Order struct {
	Params   *models.OrderParams
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Build produces the ordered order parameters:
// symbol, side, type, quantity, price, timestamp, timeInForce[, recvWindow].
func (b *Builder) Build(intent models.OrderIntent, price decimal.Decimal) (*Order, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive, got %s", models.ErrInvalidOrderIntent, price.String())
	}

	checked := b.validator != nil && b.validator.Has(intent.Symbol)
	if checked {
		rounded, err := b.validator.RoundPrice(intent.Symbol, price)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidOrderIntent, err)
		}
		price = rounded
		if !price.IsPositive() {
			return nil, fmt.Errorf("%w: price rounds to zero", models.ErrInvalidOrderIntent)
		}
	}

	quantity, err := b.quantity(intent, price)
	if err != nil {
		return nil, err
	}

	if checked {
		order := filters.Order{
			Symbol:   intent.Symbol,
			Side:     string(intent.Side),
			Type:     orderTypeLimit,
			Price:    price,
			Quantity: quantity,
		}
		if err := b.validator.ValidateOrder(order); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidOrderIntent, err)
		}
	}

	tif := intent.TimeInForce
	if tif == "" {
		tif = models.TimeInForceGTC
	}

	params := models.NewOrderParams()
	fields := [][2]string{
		{"symbol", intent.Symbol},
		{"side", string(intent.Side)},
		{"type", orderTypeLimit},
		{"quantity", quantity.String()},
		{"price", price.String()},
		{"timestamp", strconv.FormatInt(b.clock().UnixMilli(), 10)},
		{"timeInForce", string(tif)},
	}
	if b.recvWindow > 0 {
		fields = append(fields, [2]string{"recvWindow", strconv.FormatInt(b.recvWindow, 10)})
	}
	for _, f := range fields {
		if err := params.Set(f[0], f[1]); err != nil {
			return nil, err
		}
	}

	return &Order{Params: params, Price: price, Quantity: quantity}, nil
}

func (b *Builder) quantity(intent models.OrderIntent, price decimal.Decimal) (decimal.Decimal, error) {
	if intent.HasQuantity() {
		return intent.Quantity, nil
	}

	raw := intent.TargetNotional.Div(price)
	quantity, err := b.rounding.RoundQuantity(intent.Symbol, raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", models.ErrInvalidOrderIntent, err)
	}
	if !quantity.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: quantity for notional %s at price %s rounds to zero",
			models.ErrInvalidOrderIntent, intent.TargetNotional.String(), price.String())
	}

	return quantity, nil
}
