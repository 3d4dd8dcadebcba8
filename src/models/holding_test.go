package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/assetfolio/backend/src/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenForTest()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`INSERT INTO users (username, password, email) VALUES ('alice', 'hash', 'alice@example.com')`)
	require.NoError(t, err)
	return db
}

func createTestAccount(t *testing.T, db *sql.DB, userID int64, name string) int64 {
	t.Helper()
	account := &Account{UserID: userID, Name: name}
	require.NoError(t, CreateAccount(db, account))
	return account.ID
}

func TestUpsertHolding_GlobalRowNaturalKey(t *testing.T) {
	db := newTestDB(t)

	first := &Holding{UserID: 1, AssetClass: AssetClassCashKRW, QuantityEnc: "env:one:a"}
	require.NoError(t, UpsertHolding(db, first))

	// Same natural key with a NULL account must hit the same row, even
	// though sqlite treats NULLs as distinct in plain unique indexes.
	second := &Holding{UserID: 1, AssetClass: AssetClassCashKRW, QuantityEnc: "env:two:b"}
	require.NoError(t, UpsertHolding(db, second))
	assert.Equal(t, first.ID, second.ID)

	holdings, err := GetHoldingsByUser(db, 1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "env:two:b", holdings[0].QuantityEnc)
}

func TestUpsertHolding_DistinctAccountsAreDistinctRows(t *testing.T) {
	db := newTestDB(t)
	brokerA := createTestAccount(t, db, 1, "broker A")
	brokerB := createTestAccount(t, db, 1, "broker B")

	for _, accountID := range []int64{brokerA, brokerB} {
		h := &Holding{
			UserID:      1,
			AssetClass:  AssetClassEquity,
			Symbol:      "AAPL",
			Currency:    "USD",
			QuantityEnc: "env:x:y",
			AccountID:   sql.NullInt64{Int64: accountID, Valid: true},
		}
		require.NoError(t, UpsertHolding(db, h))
	}
	// Plus a global row for the same symbol.
	global := &Holding{UserID: 1, AssetClass: AssetClassEquity, Symbol: "AAPL", Currency: "USD", QuantityEnc: "env:g:g"}
	require.NoError(t, UpsertHolding(db, global))

	holdings, err := GetHoldingsByUser(db, 1)
	require.NoError(t, err)
	assert.Len(t, holdings, 3)
}

func TestDeleteHolding(t *testing.T) {
	db := newTestDB(t)

	h := &Holding{UserID: 1, AssetClass: AssetClassGold, QuantityEnc: "env:x:y"}
	require.NoError(t, UpsertHolding(db, h))

	require.NoError(t, DeleteHolding(db, 1, AssetClassGold, "", sql.NullInt64{}))

	err := DeleteHolding(db, 1, AssetClassGold, "", sql.NullInt64{})
	assert.ErrorIs(t, err, ErrHoldingNotFound)
}

func TestDeleteAccount_RemovesLinkedHoldings(t *testing.T) {
	db := newTestDB(t)
	broker := createTestAccount(t, db, 1, "broker")

	linked := &Holding{
		UserID:      1,
		AssetClass:  AssetClassEquity,
		Symbol:      "AAPL",
		Currency:    "USD",
		QuantityEnc: "env:x:y",
		AccountID:   sql.NullInt64{Int64: broker, Valid: true},
	}
	require.NoError(t, UpsertHolding(db, linked))
	global := &Holding{UserID: 1, AssetClass: AssetClassCashKRW, QuantityEnc: "env:g:g"}
	require.NoError(t, UpsertHolding(db, global))

	require.NoError(t, DeleteAccount(db, broker, 1))

	holdings, err := GetHoldingsByUser(db, 1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, AssetClassCashKRW, holdings[0].AssetClass)
}

func TestReconcileHoldings_DropsOrphansKeepsGlobal(t *testing.T) {
	db := newTestDB(t)
	broker := createTestAccount(t, db, 1, "broker")

	linked := &Holding{
		UserID:      1,
		AssetClass:  AssetClassEquity,
		Symbol:      "AAPL",
		Currency:    "USD",
		QuantityEnc: "env:x:y",
		AccountID:   sql.NullInt64{Int64: broker, Valid: true},
	}
	require.NoError(t, UpsertHolding(db, linked))
	global := &Holding{UserID: 1, AssetClass: AssetClassCashUSD, QuantityEnc: "env:g:g"}
	require.NoError(t, UpsertHolding(db, global))

	// Orphan the linked holding by removing the account behind the
	// foreign key's back.
	_, err := db.Exec("PRAGMA foreign_keys = OFF")
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM accounts WHERE id = ?`, broker)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	removed, err := ReconcileHoldings(db, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	holdings, err := GetHoldingsByUser(db, 1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, AssetClassCashUSD, holdings[0].AssetClass)
}
