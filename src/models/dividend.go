package models

import (
	"database/sql"
	"time"
)

// Dividend is a manually recorded payout.
type Dividend struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Symbol    string    `json:"symbol"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	PayDate   string    `json:"pay_date"` // YYYY-MM-DD
	CreatedAt time.Time `json:"created_at"`
}

func CreateDividend(db *sql.DB, d *Dividend) error {
	res, err := db.Exec(`
		INSERT INTO dividends (user_id, symbol, amount, currency, pay_date)
		VALUES (?, ?, ?, ?, ?)`,
		d.UserID, d.Symbol, d.Amount, d.Currency, d.PayDate)
	if err != nil {
		return err
	}
	d.ID, err = res.LastInsertId()
	return err
}

func GetDividendsByUser(db *sql.DB, userID int64) ([]Dividend, error) {
	rows, err := db.Query(`
		SELECT id, user_id, symbol, amount, currency, pay_date, created_at
		FROM dividends WHERE user_id = ? ORDER BY pay_date DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dividends []Dividend
	for rows.Next() {
		var d Dividend
		if err := rows.Scan(&d.ID, &d.UserID, &d.Symbol, &d.Amount, &d.Currency, &d.PayDate, &d.CreatedAt); err != nil {
			return nil, err
		}
		dividends = append(dividends, d)
	}
	return dividends, rows.Err()
}
