package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Asset classes a holding can belong to. Cash is split by currency because
// the two are valued differently; everything else carries a symbol.
const (
	AssetClassCashKRW = "cash_krw"
	AssetClassCashUSD = "cash_usd"
	AssetClassGold    = "gold"
	AssetClassEquity  = "equity"
)

var ErrHoldingNotFound = errors.New("holding not found")

// ValidAssetClass reports whether s is one of the known asset classes.
func ValidAssetClass(s string) bool {
	switch s {
	case AssetClassCashKRW, AssetClassCashUSD, AssetClassGold, AssetClassEquity:
		return true
	}
	return false
}

// Holding is a stored position. Quantity and average price are persisted
// only as field-cipher envelopes; the plaintext decimal strings never touch
// the database.
type Holding struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	AssetClass  string         `json:"asset_class"`
	Symbol      string         `json:"symbol"`
	Currency    string         `json:"currency"`
	QuantityEnc string         `json:"-"`
	AvgPriceEnc sql.NullString `json:"-"`
	AccountID   sql.NullInt64  `json:"account_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// UpsertHolding writes a holding by its natural key
// (user, asset class, symbol, account). An existing row is fully
// overwritten, never incremented: every balance update is an absolute value.
// The write is a single atomic statement, so two concurrent writers of the
// same key cannot race a lookup; the conflict target matches
// idx_holdings_natural_key.
func UpsertHolding(db *sql.DB, h *Holding) error {
	_, err := db.Exec(`
		INSERT INTO holdings (user_id, asset_class, symbol, currency, quantity_enc, avg_price_enc, account_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, asset_class, symbol, ifnull(account_id, 0)) DO UPDATE
		SET quantity_enc = excluded.quantity_enc,
		    avg_price_enc = excluded.avg_price_enc,
		    currency = excluded.currency,
		    updated_at = CURRENT_TIMESTAMP`,
		h.UserID, h.AssetClass, h.Symbol, h.Currency, h.QuantityEnc, h.AvgPriceEnc, h.AccountID)
	if err != nil {
		return fmt.Errorf("upserting holding: %w", err)
	}

	err = db.QueryRow(`
		SELECT id FROM holdings
		WHERE user_id = ? AND asset_class = ? AND symbol = ? AND account_id IS ?`,
		h.UserID, h.AssetClass, h.Symbol, h.AccountID).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("reading back holding id: %w", err)
	}
	return nil
}

func GetHoldingsByUser(db *sql.DB, userID int64) ([]Holding, error) {
	rows, err := db.Query(`
		SELECT id, user_id, asset_class, symbol, currency, quantity_enc, avg_price_enc, account_id, created_at, updated_at
		FROM holdings
		WHERE user_id = ?
		ORDER BY asset_class, symbol, id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.ID, &h.UserID, &h.AssetClass, &h.Symbol, &h.Currency,
			&h.QuantityEnc, &h.AvgPriceEnc, &h.AccountID, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// DeleteHolding hard-deletes by natural key. accountID nil targets the
// global (unlinked) row.
func DeleteHolding(db *sql.DB, userID int64, assetClass, symbol string, accountID sql.NullInt64) error {
	res, err := db.Exec(`
		DELETE FROM holdings
		WHERE user_id = ? AND asset_class = ? AND symbol = ? AND account_id IS ?`,
		userID, assetClass, symbol, accountID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

// ReconcileHoldings removes holdings linked to accounts the user no longer
// has. Global holdings (NULL account) are never touched.
func ReconcileHoldings(db *sql.DB, userID int64) (int64, error) {
	res, err := db.Exec(`
		DELETE FROM holdings
		WHERE user_id = ?
		  AND account_id IS NOT NULL
		  AND account_id NOT IN (SELECT id FROM accounts WHERE user_id = ?)`,
		userID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
