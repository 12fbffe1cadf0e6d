package orders

import (
	"github.com/shopspring/decimal"

	"executor/internal/filters"
)

// RoundingPolicy turns a raw quantity into one the exchange accepts
type RoundingPolicy interface {
	RoundQuantity(symbol string, quantity decimal.Decimal) (decimal.Decimal, error)
}

// IntegerRounding rounds half away from zero to whole units
type IntegerRounding struct{}

func (IntegerRounding) RoundQuantity(_ string, quantity decimal.Decimal) (decimal.Decimal, error) {
	return quantity.Round(0), nil
}

// StepRounding floors to a fixed lot step. Quantities below MinQty become zero.
type StepRounding struct {
	StepSize decimal.Decimal
	MinQty   decimal.Decimal
}

func (r StepRounding) RoundQuantity(_ string, quantity decimal.Decimal) (decimal.Decimal, error) {
	rounded := quantity
	if r.StepSize.IsPositive() {
		rounded = quantity.Div(r.StepSize).Floor().Mul(r.StepSize)
	}
	if rounded.LessThan(r.MinQty) {
		return decimal.Zero, nil
	}
	return rounded, nil
}

// FilterRounding floors to the LOT_SIZE step the exchange publishes for each symbol
type FilterRounding struct {
	Validator *filters.SymbolValidator
}

func (r FilterRounding) RoundQuantity(symbol string, quantity decimal.Decimal) (decimal.Decimal, error) {
	return r.Validator.RoundQuantity(symbol, quantity)
}
