package rest

import (
	"github.com/shopspring/decimal"

	"executor/internal/models"
)

// TickerPrice is the latest price for a symbol.
// Price accepts both quoted and bare JSON numbers.
type TickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// ExchangeInfo represents exchange trading rules
type ExchangeInfo struct {
	Timezone   string       `json:"timezone"`
	ServerTime int64        `json:"serverTime"`
	Symbols    []SymbolInfo `json:"symbols"`
}

// SymbolInfo represents trading rules for one symbol
type SymbolInfo struct {
	Symbol              string         `json:"symbol"`
	Status              string         `json:"status"`
	BaseAsset           string         `json:"baseAsset"`
	BaseAssetPrecision  int            `json:"baseAssetPrecision"`
	QuoteAsset          string         `json:"quoteAsset"`
	QuoteAssetPrecision int            `json:"quoteAssetPrecision"`
	OrderTypes          []string       `json:"orderTypes"`
	Filters             []SymbolFilter `json:"filters"`
}

// SymbolFilter is one entry of a symbol's filters list.
// Only the fields of the filter's type are populated.
type SymbolFilter struct {
	FilterType    string          `json:"filterType"`
	MinPrice      decimal.Decimal `json:"minPrice"`
	MaxPrice      decimal.Decimal `json:"maxPrice"`
	TickSize      decimal.Decimal `json:"tickSize"`
	MinQty        decimal.Decimal `json:"minQty"`
	MaxQty        decimal.Decimal `json:"maxQty"`
	StepSize      decimal.Decimal `json:"stepSize"`
	MinNotional   decimal.Decimal `json:"minNotional"`
	ApplyToMarket bool            `json:"applyToMarket"`
}

// orderResponse is the raw order endpoint body. Binance reports some
// failures with a 2xx status and a code field.
type orderResponse struct {
	Code *int   `json:"code"`
	Msg  string `json:"msg"`
	models.OrderAck
}
