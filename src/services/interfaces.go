package services

import (
	"context"

	"github.com/username/assetfolio/backend/src/models"
)

// QuoteService builds the ephemeral price snapshot a valuation runs on:
// the USD/KRW rate, the gold spot price, and whatever equity quotes the
// provider returned. Symbols with no quote are simply absent from the
// snapshot; retry and staleness policy live behind this interface, not in
// the aggregator.
type QuoteService interface {
	GetSnapshot(ctx context.Context, symbols []string) (models.PriceSnapshot, error)
}

// HoldingInput is the write-path payload for creating or overwriting a
// position. Quantity and average price travel as decimal strings so no
// precision is lost before encryption.
type HoldingInput struct {
	AssetClass string `json:"asset_class" validate:"required,oneof=cash_krw cash_usd gold equity"`
	Symbol     string `json:"symbol" validate:"required_if=AssetClass equity,omitempty,max=24"`
	Currency   string `json:"currency" validate:"required_if=AssetClass equity,omitempty,uppercase,len=3"`
	Quantity   string `json:"quantity" validate:"required"`
	AvgPrice   string `json:"avg_price" validate:"omitempty"`
	AccountID  *int64 `json:"account_id"`
}

// HoldingService owns the encrypt-before-store / decrypt-after-load
// discipline and the valuation entry point.
type HoldingService interface {
	UpsertHolding(userID int64, input HoldingInput) (*models.Holding, error)
	DeleteHolding(userID int64, assetClass, symbol string, accountID *int64) error
	ListHoldings(userID int64) ([]DecryptedHolding, error)
	NetWorth(ctx context.Context, userID int64) (models.NetWorthReport, error)
}
