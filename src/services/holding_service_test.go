package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/assetfolio/backend/src/database"
	"github.com/username/assetfolio/backend/src/models"
	"github.com/username/assetfolio/backend/src/security"
)

type staticQuotes struct {
	snap models.PriceSnapshot
}

func (s staticQuotes) GetSnapshot(ctx context.Context, symbols []string) (models.PriceSnapshot, error) {
	return s.snap, nil
}

func newTestService(t *testing.T, snap models.PriceSnapshot) (HoldingService, *sql.DB) {
	t.Helper()

	db, err := database.OpenForTest()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`INSERT INTO users (username, password, email) VALUES ('alice', 'hash', 'alice@example.com')`)
	require.NoError(t, err)

	cipher, err := security.NewFieldCipher([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	return NewHoldingService(db, cipher, staticQuotes{snap: snap}), db
}

func TestUpsertHolding_EncryptsAtRestAndDecryptsOnRead(t *testing.T) {
	svc, db := newTestService(t, models.PriceSnapshot{})

	_, err := svc.UpsertHolding(1, HoldingInput{
		AssetClass: models.AssetClassCashKRW,
		Quantity:   "5000000",
	})
	require.NoError(t, err)

	// The stored column must be an envelope, never the plaintext number.
	var quantityEnc string
	require.NoError(t, db.QueryRow(`SELECT quantity_enc FROM holdings`).Scan(&quantityEnc))
	assert.NotContains(t, quantityEnc, "5000000")
	assert.Len(t, strings.Split(quantityEnc, ":"), 3)

	holdings, err := svc.ListHoldings(1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.False(t, holdings[0].Unreadable)
	assert.True(t, holdings[0].Quantity.Equal(d("5000000")))
}

func TestUpsertHolding_OverwritesByNaturalKey(t *testing.T) {
	svc, db := newTestService(t, models.PriceSnapshot{})

	_, err := svc.UpsertHolding(1, HoldingInput{
		AssetClass: models.AssetClassEquity,
		Symbol:     "AAPL",
		Currency:   "USD",
		Quantity:   "50",
		AvgPrice:   "185.2",
	})
	require.NoError(t, err)

	_, err = svc.UpsertHolding(1, HoldingInput{
		AssetClass: models.AssetClassEquity,
		Symbol:     "AAPL",
		Currency:   "USD",
		Quantity:   "75",
		AvgPrice:   "188.0",
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM holdings`).Scan(&count))
	assert.Equal(t, 1, count, "upsert must not duplicate the natural key")

	holdings, err := svc.ListHoldings(1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.True(t, holdings[0].Quantity.Equal(d("75")))
	assert.True(t, holdings[0].AvgPrice.Equal(d("188.0")))
}

func TestUpsertHolding_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, models.PriceSnapshot{})

	_, err := svc.UpsertHolding(1, HoldingInput{AssetClass: models.AssetClassCashKRW, Quantity: "-5"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.UpsertHolding(1, HoldingInput{AssetClass: models.AssetClassCashKRW, Quantity: "abc"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.UpsertHolding(1, HoldingInput{AssetClass: "bonds", Quantity: "10"})
	assert.Error(t, err)

	// Equity requires an explicit currency at the data-entry boundary.
	_, err = svc.UpsertHolding(1, HoldingInput{AssetClass: models.AssetClassEquity, Symbol: "AAPL", Quantity: "10"})
	assert.Error(t, err)

	_, err = svc.UpsertHolding(1, HoldingInput{
		AssetClass: models.AssetClassEquity, Symbol: "AAPL", Currency: "USD", Quantity: "10", AvgPrice: "-1",
	})
	assert.ErrorIs(t, err, ErrInvalidAvgPrice)
}

func TestUpsertHolding_RejectsForeignAccount(t *testing.T) {
	svc, db := newTestService(t, models.PriceSnapshot{})

	_, err := db.Exec(`INSERT INTO users (username, password, email) VALUES ('bob', 'hash', 'bob@example.com')`)
	require.NoError(t, err)
	res, err := db.Exec(`INSERT INTO accounts (user_id, name) VALUES (2, 'bobs broker')`)
	require.NoError(t, err)
	accountID, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = svc.UpsertHolding(1, HoldingInput{
		AssetClass: models.AssetClassCashKRW,
		Quantity:   "1000",
		AccountID:  &accountID,
	})
	assert.ErrorIs(t, err, ErrAccountNotOwned)
}

func TestListHoldings_FlagsUnreadableRowAndKeepsTheRest(t *testing.T) {
	svc, db := newTestService(t, models.PriceSnapshot{})

	_, err := svc.UpsertHolding(1, HoldingInput{AssetClass: models.AssetClassCashKRW, Quantity: "5000000"})
	require.NoError(t, err)
	_, err = svc.UpsertHolding(1, HoldingInput{AssetClass: models.AssetClassCashUSD, Quantity: "2500"})
	require.NoError(t, err)

	// Corrupt one envelope the way a wrong key or bit rot would.
	_, err = db.Exec(`UPDATE holdings SET quantity_enc = 'not:an:envelope' WHERE asset_class = ?`, models.AssetClassCashUSD)
	require.NoError(t, err)

	holdings, err := svc.ListHoldings(1)
	require.NoError(t, err, "one bad row must not fail the batch")
	require.Len(t, holdings, 2)

	byClass := map[string]DecryptedHolding{}
	for _, h := range holdings {
		byClass[h.AssetClass] = h
	}
	assert.False(t, byClass[models.AssetClassCashKRW].Unreadable)
	assert.True(t, byClass[models.AssetClassCashUSD].Unreadable)
}

func TestNetWorth_EndToEnd(t *testing.T) {
	snap := models.PriceSnapshot{
		FxRate:        d("1400"),
		GoldSpotPrice: d("2600"),
		EquityQuotes: map[string]models.EquityQuote{
			"AAPL": {Price: d("190"), Currency: "USD"},
		},
	}
	svc, _ := newTestService(t, snap)

	for _, input := range []HoldingInput{
		{AssetClass: models.AssetClassCashKRW, Quantity: "5000000"},
		{AssetClass: models.AssetClassCashUSD, Quantity: "2500"},
		{AssetClass: models.AssetClassEquity, Symbol: "AAPL", Currency: "USD", Quantity: "50", AvgPrice: "185.2"},
	} {
		_, err := svc.UpsertHolding(1, input)
		require.NoError(t, err)
	}

	report, err := svc.NetWorth(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, report.Items, 3)

	// 5,000,000 + 2,500x1,400 + 50x190x1,400
	assert.True(t, report.TotalKRW.Equal(d("21800000")), "got %s", report.TotalKRW)
	assert.Equal(t, 0, report.MissingQuotes)
	assert.Equal(t, 0, report.Unreadable)
}
