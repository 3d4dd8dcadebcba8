package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/assetfolio/backend/src/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mixedPortfolioSnapshot() models.PriceSnapshot {
	return models.PriceSnapshot{
		FxRate:        d("1400"),
		GoldSpotPrice: d("2600"),
		EquityQuotes: map[string]models.EquityQuote{
			"AAPL": {Price: d("190"), Currency: "USD"},
		},
	}
}

func TestComputeNetWorth_MixedPortfolio(t *testing.T) {
	holdings := []DecryptedHolding{
		{ID: 1, AssetClass: models.AssetClassCashKRW, Quantity: d("5000000")},
		{ID: 2, AssetClass: models.AssetClassCashUSD, Quantity: d("2500")},
		{ID: 3, AssetClass: models.AssetClassGold, Quantity: d("150.55")},
		{ID: 4, AssetClass: models.AssetClassEquity, Symbol: "AAPL", Currency: "USD", Quantity: d("50"), AvgPrice: d("185.2")},
	}

	report := ComputeNetWorth(holdings, mixedPortfolioSnapshot())
	require.Len(t, report.Items, 4)
	assert.Equal(t, 0, report.MissingQuotes)
	assert.Equal(t, 0, report.Unreadable)

	// KRW cash passes through untouched.
	assert.True(t, report.Items[0].ValueKRW.Equal(d("5000000")), "got %s", report.Items[0].ValueKRW)
	// USD cash: 2,500 x 1,400.
	assert.True(t, report.Items[1].ValueKRW.Equal(d("3500000")), "got %s", report.Items[1].ValueKRW)
	// Gold: (150.55g / 31.1034768) oz x 2,600 USD/oz x 1,400 KRW/USD.
	goldValue, _ := report.Items[2].ValueKRW.Float64()
	assert.InDelta(t, 17618673.4, goldValue, 1.0)
	// Equity: 50 x 190 x 1,400.
	assert.True(t, report.Items[3].ValueKRW.Equal(d("13300000")), "got %s", report.Items[3].ValueKRW)
	assert.Equal(t, models.ValuationStatusOK, report.Items[3].Status)

	total, _ := report.TotalKRW.Float64()
	assert.InDelta(t, 39418673.4, total, 1.0)
}

func TestComputeNetWorth_MissingQuoteFallsBackToCostBasis(t *testing.T) {
	holdings := []DecryptedHolding{
		{ID: 1, AssetClass: models.AssetClassEquity, Symbol: "AAPL", Currency: "USD", Quantity: d("50"), AvgPrice: d("185.2")},
	}
	snap := models.PriceSnapshot{
		FxRate:        d("1400"),
		GoldSpotPrice: d("2600"),
		EquityQuotes:  map[string]models.EquityQuote{},
	}

	report := ComputeNetWorth(holdings, snap)
	require.Len(t, report.Items, 1)

	// 50 x 185.2 x 1,400 — valued at cost, not dropped, not an error.
	assert.True(t, report.TotalKRW.Equal(d("12964000")), "got %s", report.TotalKRW)
	assert.Equal(t, models.ValuationStatusEstimated, report.Items[0].Status)
	assert.Equal(t, 1, report.MissingQuotes)
}

func TestComputeNetWorth_MissingQuoteWithoutCostBasisIsZeroNotDropped(t *testing.T) {
	holdings := []DecryptedHolding{
		{ID: 1, AssetClass: models.AssetClassEquity, Symbol: "XYZ", Currency: "USD", Quantity: d("10")},
	}
	snap := models.PriceSnapshot{FxRate: d("1400"), EquityQuotes: map[string]models.EquityQuote{}}

	report := ComputeNetWorth(holdings, snap)
	require.Len(t, report.Items, 1)
	assert.True(t, report.Items[0].ValueKRW.IsZero())
	assert.Equal(t, models.ValuationStatusEstimated, report.Items[0].Status)
}

func TestComputeNetWorth_ZeroQuantityContributesZero(t *testing.T) {
	holdings := []DecryptedHolding{
		{ID: 1, AssetClass: models.AssetClassEquity, Symbol: "AAPL", Currency: "USD", Quantity: d("0"), AvgPrice: d("185.2")},
	}

	report := ComputeNetWorth(holdings, mixedPortfolioSnapshot())
	require.Len(t, report.Items, 1)
	assert.True(t, report.TotalKRW.IsZero())
	assert.Equal(t, models.ValuationStatusOK, report.Items[0].Status)
}

func TestComputeNetWorth_IsIdempotent(t *testing.T) {
	holdings := []DecryptedHolding{
		{ID: 1, AssetClass: models.AssetClassCashUSD, Quantity: d("2500")},
		{ID: 2, AssetClass: models.AssetClassGold, Quantity: d("150.55")},
	}
	snap := mixedPortfolioSnapshot()

	first := ComputeNetWorth(holdings, snap)
	second := ComputeNetWorth(holdings, snap)
	assert.True(t, first.TotalKRW.Equal(second.TotalKRW))
	assert.Equal(t, len(first.Items), len(second.Items))
}

func TestComputeNetWorth_EquityCurrencyPrecedence(t *testing.T) {
	snap := models.PriceSnapshot{
		FxRate: d("1400"),
		EquityQuotes: map[string]models.EquityQuote{
			"005930.KS": {Price: d("70000"), Currency: "KRW"},
			"AAPL":      {Price: d("190"), Currency: "USD"},
			"MYSTERY":   {Price: d("10"), Currency: ""},
		},
	}

	t.Run("holding tag wins over quote currency", func(t *testing.T) {
		// Holding says KRW even though nothing else does: no FX conversion.
		holdings := []DecryptedHolding{
			{ID: 1, AssetClass: models.AssetClassEquity, Symbol: "005930.KS", Currency: "KRW", Quantity: d("10")},
		}
		report := ComputeNetWorth(holdings, snap)
		assert.True(t, report.TotalKRW.Equal(d("700000")), "got %s", report.TotalKRW)
		assert.False(t, report.Items[0].CurrencyAssumed)
	})

	t.Run("quote currency used when holding has none", func(t *testing.T) {
		holdings := []DecryptedHolding{
			{ID: 1, AssetClass: models.AssetClassEquity, Symbol: "AAPL", Quantity: d("50")},
		}
		report := ComputeNetWorth(holdings, snap)
		assert.True(t, report.TotalKRW.Equal(d("13300000")), "got %s", report.TotalKRW)
		assert.False(t, report.Items[0].CurrencyAssumed)
	})

	t.Run("USD assumed and flagged when neither side has a currency", func(t *testing.T) {
		holdings := []DecryptedHolding{
			{ID: 1, AssetClass: models.AssetClassEquity, Symbol: "MYSTERY", Quantity: d("10")},
		}
		report := ComputeNetWorth(holdings, snap)
		assert.True(t, report.TotalKRW.Equal(d("140000")), "got %s", report.TotalKRW)
		assert.True(t, report.Items[0].CurrencyAssumed)
	})
}

func TestComputeNetWorth_UnreadableHoldingExcludedAndFlagged(t *testing.T) {
	holdings := []DecryptedHolding{
		{ID: 1, AssetClass: models.AssetClassCashKRW, Quantity: d("5000000")},
		{ID: 2, AssetClass: models.AssetClassCashUSD, Unreadable: true},
	}

	report := ComputeNetWorth(holdings, mixedPortfolioSnapshot())
	require.Len(t, report.Items, 2)

	// The unreadable row shows up flagged, not as a zero balance hidden
	// among real ones.
	assert.Equal(t, models.ValuationStatusUnavailable, report.Items[1].Status)
	assert.Equal(t, 1, report.Unreadable)
	assert.True(t, report.TotalKRW.Equal(d("5000000")), "got %s", report.TotalKRW)
}

func TestComputeNetWorth_EmptyPortfolio(t *testing.T) {
	report := ComputeNetWorth(nil, mixedPortfolioSnapshot())
	assert.True(t, report.TotalKRW.IsZero())
	assert.Empty(t, report.Items)
}
