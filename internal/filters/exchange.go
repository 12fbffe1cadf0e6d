package filters

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"executor/internal/rest"
)

// ExchangeInfoFetcher fetches trading rules. *rest.Client satisfies it.
type ExchangeInfoFetcher interface {
	GetExchangeInfo(ctx context.Context, symbol string) (*rest.ExchangeInfo, error)
}

// FromSymbolInfo converts exchange filters into validator filters.
// Filter types the validator does not check are skipped.
func FromSymbolInfo(info rest.SymbolInfo) SymbolFilter {
	sf := SymbolFilter{
		Symbol:     info.Symbol,
		BaseAsset:  info.BaseAsset,
		QuoteAsset: info.QuoteAsset,
	}

	for _, f := range info.Filters {
		switch f.FilterType {
		case "PRICE_FILTER":
			sf.Filters = append(sf.Filters, &PriceFilter{
				MinPrice: f.MinPrice,
				MaxPrice: f.MaxPrice,
				TickSize: f.TickSize,
			})
		case "LOT_SIZE":
			sf.Filters = append(sf.Filters, &LotSizeFilter{
				MinQty:   f.MinQty,
				MaxQty:   f.MaxQty,
				StepSize: f.StepSize,
			})
		case "MIN_NOTIONAL", "NOTIONAL":
			sf.Filters = append(sf.Filters, &MinNotionalFilter{
				MinNotional: f.MinNotional,
			})
		}
	}

	return sf
}

// Load fetches the rules of the given symbols and builds a validator.
// Symbols that are not TRADING are rejected.
func Load(ctx context.Context, fetcher ExchangeInfoFetcher, logger zerolog.Logger, symbols ...string) (*SymbolValidator, error) {
	validator := NewSymbolValidator(nil, logger)

	for _, symbol := range symbols {
		info, err := fetcher.GetExchangeInfo(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to load exchange info for %s: %w", symbol, err)
		}

		found := false
		for _, s := range info.Symbols {
			if s.Symbol != symbol {
				continue
			}
			if s.Status != "TRADING" {
				return nil, fmt.Errorf("symbol %s is not trading (status %s)", symbol, s.Status)
			}
			validator.Set(FromSymbolInfo(s))
			found = true
		}
		if !found {
			return nil, fmt.Errorf("symbol %s not found in exchange info", symbol)
		}

		logger.Debug().Str("symbol", symbol).Msg("Loaded symbol filters")
	}

	return validator, nil
}
