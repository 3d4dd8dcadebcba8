package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/models"
	"github.com/username/assetfolio/backend/src/security"
	"github.com/username/assetfolio/backend/src/security/validation"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a finite non-negative decimal")
	ErrInvalidAvgPrice = errors.New("avg_price must be a finite non-negative decimal")
	ErrAccountNotOwned = errors.New("account does not belong to user")
)

type holdingServiceImpl struct {
	db       *sql.DB
	cipher   *security.FieldCipher
	quotes   QuoteService
	validate *validator.Validate
}

func NewHoldingService(db *sql.DB, cipher *security.FieldCipher, quotes QuoteService) HoldingService {
	return &holdingServiceImpl{
		db:       db,
		cipher:   cipher,
		quotes:   quotes,
		validate: validator.New(),
	}
}

// UpsertHolding validates the payload, encrypts the numeric fields and
// writes the row by natural key. Negative quantities are rejected here, at
// the write path, so the aggregator never has to decide what a short
// position is worth.
func (s *holdingServiceImpl) UpsertHolding(userID int64, input HoldingInput) (*models.Holding, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid holding payload: %w", err)
	}

	quantity, err := decimal.NewFromString(input.Quantity)
	if err != nil || quantity.IsNegative() {
		return nil, ErrInvalidQuantity
	}

	var avgPrice *decimal.Decimal
	if input.AvgPrice != "" {
		p, err := decimal.NewFromString(input.AvgPrice)
		if err != nil || p.IsNegative() {
			return nil, ErrInvalidAvgPrice
		}
		avgPrice = &p
	}

	if input.AccountID != nil {
		owned, err := models.AccountBelongsToUser(s.db, *input.AccountID, userID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, ErrAccountNotOwned
		}
	}

	symbol := ""
	currency := ""
	switch input.AssetClass {
	case models.AssetClassEquity:
		symbol = validation.NormalizeSymbol(input.Symbol)
		currency = input.Currency
	case models.AssetClassCashKRW:
		currency = ReportingCurrency
	case models.AssetClassCashUSD, models.AssetClassGold:
		currency = SecondaryCurrency
	}

	quantityEnc, err := s.cipher.Encrypt(quantity.String())
	if err != nil {
		return nil, fmt.Errorf("encrypting quantity: %w", err)
	}

	holding := &models.Holding{
		UserID:      userID,
		AssetClass:  input.AssetClass,
		Symbol:      symbol,
		Currency:    currency,
		QuantityEnc: quantityEnc,
	}
	if avgPrice != nil {
		avgPriceEnc, err := s.cipher.Encrypt(avgPrice.String())
		if err != nil {
			return nil, fmt.Errorf("encrypting avg price: %w", err)
		}
		holding.AvgPriceEnc = sql.NullString{String: avgPriceEnc, Valid: true}
	}
	if input.AccountID != nil {
		holding.AccountID = sql.NullInt64{Int64: *input.AccountID, Valid: true}
	}

	if err := models.UpsertHolding(s.db, holding); err != nil {
		return nil, err
	}
	return holding, nil
}

func (s *holdingServiceImpl) DeleteHolding(userID int64, assetClass, symbol string, accountID *int64) error {
	var acc sql.NullInt64
	if accountID != nil {
		acc = sql.NullInt64{Int64: *accountID, Valid: true}
	}
	return models.DeleteHolding(s.db, userID, assetClass, symbol, acc)
}

// ListHoldings loads and decrypts every holding of a user. Decryption
// failures are local to a row: the row comes back flagged Unreadable and
// the rest of the batch is unaffected.
func (s *holdingServiceImpl) ListHoldings(userID int64) ([]DecryptedHolding, error) {
	rows, err := models.GetHoldingsByUser(s.db, userID)
	if err != nil {
		return nil, err
	}

	holdings := make([]DecryptedHolding, 0, len(rows))
	for _, row := range rows {
		holdings = append(holdings, s.decryptHolding(row))
	}
	return holdings, nil
}

func (s *holdingServiceImpl) decryptHolding(row models.Holding) DecryptedHolding {
	h := DecryptedHolding{
		ID:         row.ID,
		AssetClass: row.AssetClass,
		Symbol:     row.Symbol,
		Currency:   row.Currency,
	}
	if row.AccountID.Valid {
		id := row.AccountID.Int64
		h.AccountID = &id
	}

	quantityStr, err := s.cipher.Decrypt(row.QuantityEnc)
	if err != nil {
		logger.L.Warn("Holding quantity could not be decrypted, flagging as unreadable",
			"holdingID", row.ID, "userID", row.UserID, "error", err)
		h.Unreadable = true
		return h
	}
	quantity, err := decimal.NewFromString(quantityStr)
	if err != nil {
		logger.L.Warn("Decrypted quantity is not a decimal, flagging as unreadable",
			"holdingID", row.ID, "userID", row.UserID, "error", err)
		h.Unreadable = true
		return h
	}
	h.Quantity = quantity

	if row.AvgPriceEnc.Valid {
		avgPriceStr, err := s.cipher.Decrypt(row.AvgPriceEnc.String)
		if err != nil {
			logger.L.Warn("Holding avg price could not be decrypted, flagging as unreadable",
				"holdingID", row.ID, "userID", row.UserID, "error", err)
			h.Unreadable = true
			return h
		}
		avgPrice, err := decimal.NewFromString(avgPriceStr)
		if err != nil {
			h.Unreadable = true
			return h
		}
		h.AvgPrice = avgPrice
	}
	return h
}

// NetWorth is the whole pipeline: load, decrypt, snapshot, aggregate.
// Only loading the rows or building the snapshot can fail; valuation
// itself never does.
func (s *holdingServiceImpl) NetWorth(ctx context.Context, userID int64) (models.NetWorthReport, error) {
	holdings, err := s.ListHoldings(userID)
	if err != nil {
		return models.NetWorthReport{}, fmt.Errorf("loading holdings for user %d: %w", userID, err)
	}

	symbolSet := make(map[string]bool)
	for _, h := range holdings {
		if h.AssetClass == models.AssetClassEquity && !h.Unreadable && h.Symbol != "" {
			symbolSet[h.Symbol] = true
		}
	}
	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}

	snapshot, err := s.quotes.GetSnapshot(ctx, symbols)
	if err != nil {
		return models.NetWorthReport{}, fmt.Errorf("building price snapshot: %w", err)
	}

	return ComputeNetWorth(holdings, snapshot), nil
}
