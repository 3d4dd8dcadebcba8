package models

import "github.com/shopspring/decimal"

// EquityQuote is the latest traded price for one symbol, in the currency
// reported by the quote provider.
type EquityQuote struct {
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// PriceSnapshot is an ephemeral bundle of market inputs built per valuation
// request and discarded afterwards. It has no persistent identity. Symbols
// may be missing from EquityQuotes; the aggregator copes by falling back to
// cost basis.
type PriceSnapshot struct {
	// FxRate is KRW per one USD.
	FxRate decimal.Decimal `json:"fx_rate"`
	// GoldSpotPrice is USD per troy ounce.
	GoldSpotPrice decimal.Decimal        `json:"gold_spot_price"`
	EquityQuotes  map[string]EquityQuote `json:"equity_quotes"`
}

// Valuation item statuses. ESTIMATED means the value rests on cost basis
// because no live quote was available; UNAVAILABLE means the stored balance
// could not be decrypted and the item is excluded from the total.
const (
	ValuationStatusOK          = "OK"
	ValuationStatusEstimated   = "ESTIMATED"
	ValuationStatusUnavailable = "UNAVAILABLE"
)

// HoldingValuation is one holding normalized into the reporting currency.
type HoldingValuation struct {
	HoldingID       int64           `json:"holding_id"`
	AssetClass      string          `json:"asset_class"`
	Symbol          string          `json:"symbol,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	ValueKRW        decimal.Decimal `json:"value_krw"`
	Status          string          `json:"status"`
	CurrencyAssumed bool            `json:"currency_assumed,omitempty"`
	AccountID       *int64          `json:"account_id,omitempty"`
}

// NetWorthReport is the aggregator's output: a single KRW total plus the
// per-holding breakdown the dashboard renders.
type NetWorthReport struct {
	TotalKRW      decimal.Decimal    `json:"total_krw"`
	Items         []HoldingValuation `json:"items"`
	MissingQuotes int                `json:"missing_quotes"`
	Unreadable    int                `json:"unreadable"`
}
