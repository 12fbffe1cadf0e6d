package filters

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SymbolValidator validates orders against symbol filters
type SymbolValidator struct {
	filters map[string]*SymbolFilter
	mu      sync.RWMutex
	logger  zerolog.Logger
}

// NewSymbolValidator creates a new symbol validator
func NewSymbolValidator(filters []SymbolFilter, logger zerolog.Logger) *SymbolValidator {
	sv := &SymbolValidator{
		filters: make(map[string]*SymbolFilter),
		logger:  logger,
	}

	for i := range filters {
		sv.Set(filters[i])
	}

	return sv
}

// Set stores or replaces the filters of one symbol
func (sv *SymbolValidator) Set(filter SymbolFilter) {
	if err := validateFilterConsistency(&filter); err != nil {
		sv.logger.Warn().Str("symbol", filter.Symbol).Err(err).Msg("Filter validation warning")
	}

	sv.mu.Lock()
	sv.filters[filter.Symbol] = &filter
	sv.mu.Unlock()
}

// Has reports whether filters are known for symbol
func (sv *SymbolValidator) Has(symbol string) bool {
	sv.mu.RLock()
	defer sv.mu.RUnlock()

	_, ok := sv.filters[symbol]
	return ok
}

// validateFilterConsistency checks if filter values are valid
func validateFilterConsistency(filter *SymbolFilter) error {
	for _, f := range filter.Filters {
		switch pf := f.(type) {
		case *PriceFilter:
			if pf.MaxPrice.IsPositive() && pf.MinPrice.GreaterThan(pf.MaxPrice) {
				return fmt.Errorf("min price %s greater than max price %s",
					pf.MinPrice.String(), pf.MaxPrice.String())
			}
		case *LotSizeFilter:
			if pf.MaxQty.IsPositive() && pf.MinQty.GreaterThan(pf.MaxQty) {
				return fmt.Errorf("min qty %s greater than max qty %s",
					pf.MinQty.String(), pf.MaxQty.String())
			}
		}
	}
	return nil
}

// ValidateOrder validates an order against symbol filters
func (sv *SymbolValidator) ValidateOrder(order Order) error {
	symbolFilter, err := sv.lookup(order.Symbol)
	if err != nil {
		return err
	}

	for _, filter := range symbolFilter.Filters {
		if err := filter.Validate(order); err != nil {
			return fmt.Errorf("validation failed for %s: %w", filter.Type(), err)
		}
	}

	return nil
}

// RoundPrice rounds a price down to the symbol's tick size
func (sv *SymbolValidator) RoundPrice(symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	symbolFilter, err := sv.lookup(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	for _, filter := range symbolFilter.Filters {
		if pf, ok := filter.(*PriceFilter); ok {
			return floorToStep(price, pf.TickSize), nil
		}
	}

	return price, nil
}

// RoundQuantity rounds a quantity down to the symbol's step size
func (sv *SymbolValidator) RoundQuantity(symbol string, quantity decimal.Decimal) (decimal.Decimal, error) {
	symbolFilter, err := sv.lookup(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	for _, filter := range symbolFilter.Filters {
		if lf, ok := filter.(*LotSizeFilter); ok {
			return floorToStep(quantity, lf.StepSize), nil
		}
	}

	return quantity, nil
}

// GetSymbolFilters returns all filters for a symbol
func (sv *SymbolValidator) GetSymbolFilters(symbol string) ([]Filter, error) {
	symbolFilter, err := sv.lookup(symbol)
	if err != nil {
		return nil, err
	}

	return symbolFilter.Filters, nil
}

func (sv *SymbolValidator) lookup(symbol string) (*SymbolFilter, error) {
	sv.mu.RLock()
	symbolFilter, exists := sv.filters[symbol]
	sv.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown symbol: %s", symbol)
	}
	return symbolFilter, nil
}

// floorToStep rounds value down to a multiple of step. A zero step leaves value unchanged.
func floorToStep(value, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return value
	}
	return value.Div(step).Floor().Mul(step)
}

// Validate checks price bounds and tick size
func (f *PriceFilter) Validate(order Order) error {
	if order.Type == "MARKET" {
		return nil
	}

	if f.MinPrice.IsPositive() && order.Price.LessThan(f.MinPrice) {
		return fmt.Errorf("price below minimum: %s < %s", order.Price.String(), f.MinPrice.String())
	}
	if f.MaxPrice.IsPositive() && order.Price.GreaterThan(f.MaxPrice) {
		return fmt.Errorf("price above maximum: %s > %s", order.Price.String(), f.MaxPrice.String())
	}

	if f.TickSize.IsPositive() {
		remainder := order.Price.Sub(f.MinPrice).Mod(f.TickSize)
		if !remainder.IsZero() {
			return fmt.Errorf("price precision does not match tick size: %s mod %s = %s",
				order.Price.String(), f.TickSize.String(), remainder.String())
		}
	}

	return nil
}

func (f *PriceFilter) Type() string {
	return "PRICE_FILTER"
}

// Validate checks quantity bounds and step size
func (f *LotSizeFilter) Validate(order Order) error {
	if order.Quantity.LessThan(f.MinQty) {
		return fmt.Errorf("quantity below minimum: %s < %s", order.Quantity.String(), f.MinQty.String())
	}
	if f.MaxQty.IsPositive() && order.Quantity.GreaterThan(f.MaxQty) {
		return fmt.Errorf("quantity above maximum: %s > %s", order.Quantity.String(), f.MaxQty.String())
	}

	if f.StepSize.IsPositive() {
		remainder := order.Quantity.Sub(f.MinQty).Mod(f.StepSize)
		if !remainder.IsZero() {
			return fmt.Errorf("quantity precision does not match step size: %s mod %s = %s",
				order.Quantity.String(), f.StepSize.String(), remainder.String())
		}
	}

	return nil
}

func (f *LotSizeFilter) Type() string {
	return "LOT_SIZE"
}

// Validate checks the order value of LIMIT orders
func (f *MinNotionalFilter) Validate(order Order) error {
	if order.Type != "LIMIT" {
		return nil
	}

	notional := order.Price.Mul(order.Quantity)
	if notional.LessThan(f.MinNotional) {
		return fmt.Errorf("order value below minimum notional: %s < %s",
			notional.String(), f.MinNotional.String())
	}

	return nil
}

func (f *MinNotionalFilter) Type() string {
	return "MIN_NOTIONAL"
}
