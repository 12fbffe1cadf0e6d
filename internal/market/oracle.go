package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"executor/internal/models"
	"executor/internal/rest"
)

// PriceOracle returns the latest traded price of a symbol.
// A returned price is always strictly positive.
type PriceOracle interface {
	FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// TickerFetcher fetches the ticker price. *rest.Client satisfies it.
type TickerFetcher interface {
	GetTickerPrice(ctx context.Context, symbol string) (*rest.TickerPrice, error)
}

// RESTOracle reads prices from the ticker price endpoint
type RESTOracle struct {
	fetcher TickerFetcher
	logger  zerolog.Logger
}

// NewRESTOracle creates a new REST price oracle
func NewRESTOracle(fetcher TickerFetcher, logger zerolog.Logger) *RESTOracle {
	return &RESTOracle{
		fetcher: fetcher,
		logger:  logger,
	}
}

// FetchPrice performs a single ticker request
func (o *RESTOracle) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("%w: symbol is required", models.ErrInvalidOrderIntent)
	}

	ticker, err := o.fetcher.GetTickerPrice(ctx, symbol)
	if err != nil {
		// non-2xx from the price endpoint
		if errors.Is(err, models.ErrExchangeRejected) {
			return decimal.Zero, &priceEndpointError{cause: err}
		}
		return decimal.Zero, err
	}

	if err := checkPrice(symbol, ticker.Symbol, ticker.Price); err != nil {
		return decimal.Zero, err
	}

	o.logger.Debug().
		Str("symbol", symbol).
		Str("price", ticker.Price.String()).
		Msg("Fetched ticker price")

	return ticker.Price, nil
}

// priceEndpointError reports a non-2xx answer from the price endpoint as
// upstream unavailable. The exchange rejection stays reachable with
// errors.As but does not match ErrExchangeRejected.
type priceEndpointError struct {
	cause error
}

func (e *priceEndpointError) Error() string {
	return fmt.Sprintf("%v: %v", models.ErrUpstreamUnavailable, e.cause)
}

func (e *priceEndpointError) Unwrap() error {
	return models.ErrUpstreamUnavailable
}

func (e *priceEndpointError) As(target any) bool {
	return errors.As(e.cause, target)
}

func checkPrice(want, got string, price decimal.Decimal) error {
	if got != "" && got != want {
		return fmt.Errorf("%w: price for %s returned for %s", models.ErrMalformedResponse, got, want)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", models.ErrMalformedResponse, price.String())
	}
	return nil
}
