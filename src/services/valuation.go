package services

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/models"
)

// ReportingCurrency is the single currency aggregated net worth is
// expressed in.
const ReportingCurrency = "KRW"

// SecondaryCurrency denominates USD cash, gold spot and most equity quotes.
const SecondaryCurrency = "USD"

// gramsPerTroyOunce converts stored gold grams to the troy ounces the spot
// price is quoted in.
var gramsPerTroyOunce = decimal.RequireFromString("31.1034768")

// DecryptedHolding is a holding after its encrypted fields have been opened.
// Unreadable marks a row whose envelope failed to decrypt; it is carried
// through valuation so the dashboard can flag it, but never contributes to
// the total and is never rendered as zero.
type DecryptedHolding struct {
	ID         int64
	AssetClass string
	Symbol     string
	Currency   string
	Quantity   decimal.Decimal
	AvgPrice   decimal.Decimal
	AccountID  *int64
	Unreadable bool
}

// ComputeNetWorth normalizes every holding into the reporting currency and
// sums the readable ones. It is a pure function: no I/O, no shared state,
// identical inputs give identical output, and holdings are valued in slice
// order so results are reproducible.
//
// It never fails. A missing equity quote degrades to cost basis (status
// ESTIMATED) instead of dropping the position, because silently hiding a
// position from net worth is worse than understating it. Callers that need
// to know whether every quote was live must inspect MissingQuotes.
func ComputeNetWorth(holdings []DecryptedHolding, snap models.PriceSnapshot) models.NetWorthReport {
	report := models.NetWorthReport{
		TotalKRW: decimal.Zero,
		Items:    make([]models.HoldingValuation, 0, len(holdings)),
	}

	for _, h := range holdings {
		item := models.HoldingValuation{
			HoldingID:  h.ID,
			AssetClass: h.AssetClass,
			Symbol:     h.Symbol,
			Quantity:   h.Quantity,
			AccountID:  h.AccountID,
		}

		if h.Unreadable {
			item.Status = models.ValuationStatusUnavailable
			item.ValueKRW = decimal.Zero
			report.Unreadable++
			report.Items = append(report.Items, item)
			continue
		}

		value, status, assumed := valueHolding(h, snap)
		item.ValueKRW = value
		item.Status = status
		item.CurrencyAssumed = assumed
		if status == models.ValuationStatusEstimated {
			report.MissingQuotes++
		}

		report.TotalKRW = report.TotalKRW.Add(value)
		report.Items = append(report.Items, item)
	}

	return report
}

func valueHolding(h DecryptedHolding, snap models.PriceSnapshot) (value decimal.Decimal, status string, currencyAssumed bool) {
	switch h.AssetClass {
	case models.AssetClassCashKRW:
		return h.Quantity, models.ValuationStatusOK, false

	case models.AssetClassCashUSD:
		return h.Quantity.Mul(snap.FxRate), models.ValuationStatusOK, false

	case models.AssetClassGold:
		// Grams to troy ounces, priced in USD, converted to KRW.
		ounces := h.Quantity.Div(gramsPerTroyOunce)
		return ounces.Mul(snap.GoldSpotPrice).Mul(snap.FxRate), models.ValuationStatusOK, false

	case models.AssetClassEquity:
		return valueEquity(h, snap)
	}

	// Unknown asset class rows contribute nothing. The write path rejects
	// them, so this only happens for rows written by a newer schema.
	return decimal.Zero, models.ValuationStatusUnavailable, false
}

func valueEquity(h DecryptedHolding, snap models.PriceSnapshot) (decimal.Decimal, string, bool) {
	quote, hasQuote := snap.EquityQuotes[h.Symbol]

	price := h.AvgPrice
	status := models.ValuationStatusEstimated
	if hasQuote {
		price = quote.Price
		status = models.ValuationStatusOK
	}

	// Currency precedence: the holding's own tag wins, then the provider's
	// report, then USD as a last resort. The USD default can misprice a
	// holding whose true currency is neither, so it is surfaced to the
	// caller rather than applied silently.
	currency := h.Currency
	assumed := false
	if currency == "" && hasQuote {
		currency = quote.Currency
	}
	if currency == "" {
		currency = SecondaryCurrency
		assumed = true
	}

	raw := h.Quantity.Mul(price)
	if strings.EqualFold(currency, ReportingCurrency) {
		return raw, status, assumed
	}
	return raw.Mul(snap.FxRate), status, assumed
}
