package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrAccountNotFound = errors.New("account not found")

// Account is a named brokerage grouping. Holdings may link to one; holdings
// without a link are global.
type Account struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Broker    string    `json:"broker"`
	CreatedAt time.Time `json:"created_at"`
}

func CreateAccount(db *sql.DB, a *Account) error {
	res, err := db.Exec(`INSERT INTO accounts (user_id, name, broker) VALUES (?, ?, ?)`,
		a.UserID, a.Name, a.Broker)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

func GetAccountsByUser(db *sql.DB, userID int64) ([]Account, error) {
	rows, err := db.Query(`
		SELECT id, user_id, name, broker, created_at
		FROM accounts WHERE user_id = ? ORDER BY name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Broker, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func AccountBelongsToUser(db *sql.DB, accountID, userID int64) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteAccount removes an account and every holding linked to it, in one
// transaction. Positions in a closed account fall out of net worth rather
// than lingering as unreachable rows.
func DeleteAccount(db *sql.DB, accountID, userID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM holdings WHERE account_id = ? AND user_id = ?`, accountID, userID); err != nil {
		return fmt.Errorf("deleting holdings of account %d: %w", accountID, err)
	}

	res, err := tx.Exec(`DELETE FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return tx.Commit()
}
