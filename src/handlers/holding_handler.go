package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/username/assetfolio/backend/src/database"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/models"
	"github.com/username/assetfolio/backend/src/services"
)

type HoldingHandler struct {
	holdingService services.HoldingService
}

func NewHoldingHandler(holdingService services.HoldingService) *HoldingHandler {
	return &HoldingHandler{holdingService: holdingService}
}

// holdingView is the list representation: decrypted decimal strings plus a
// readability flag. An unreadable balance renders as unavailable, never as
// zero, so it cannot be mistaken for an empty position.
type holdingView struct {
	ID         int64  `json:"id"`
	AssetClass string `json:"asset_class"`
	Symbol     string `json:"symbol,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Quantity   string `json:"quantity,omitempty"`
	AvgPrice   string `json:"avg_price,omitempty"`
	AccountID  *int64 `json:"account_id,omitempty"`
	Unreadable bool   `json:"unreadable,omitempty"`
}

// HandleUpsertHolding creates or fully overwrites a position by natural key.
func (h *HoldingHandler) HandleUpsertHolding(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var input services.HoldingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	holding, err := h.holdingService.UpsertHolding(userID, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuantity),
			errors.Is(err, services.ErrInvalidAvgPrice):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrAccountNotOwned):
			sendJSONError(w, err.Error(), http.StatusForbidden)
		default:
			logger.L.Error("Failed to upsert holding", "userID", userID, "error", err)
			sendJSONError(w, fmt.Sprintf("Failed to save holding: %v", err), http.StatusBadRequest)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":          holding.ID,
		"asset_class": holding.AssetClass,
		"symbol":      holding.Symbol,
	})
}

func (h *HoldingHandler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	holdings, err := h.holdingService.ListHoldings(userID)
	if err != nil {
		logger.L.Error("Error retrieving holdings", "userID", userID, "error", err)
		sendJSONError(w, fmt.Sprintf("Error retrieving holdings for userID %d", userID), http.StatusInternalServerError)
		return
	}

	views := make([]holdingView, 0, len(holdings))
	for _, holding := range holdings {
		view := holdingView{
			ID:         holding.ID,
			AssetClass: holding.AssetClass,
			Symbol:     holding.Symbol,
			Currency:   holding.Currency,
			AccountID:  holding.AccountID,
			Unreadable: holding.Unreadable,
		}
		if !holding.Unreadable {
			view.Quantity = holding.Quantity.String()
			if !holding.AvgPrice.IsZero() {
				view.AvgPrice = holding.AvgPrice.String()
			}
		}
		views = append(views, view)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// HandleDeleteHolding hard-deletes by natural key taken from query params.
func (h *HoldingHandler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	assetClass := r.URL.Query().Get("asset_class")
	if !models.ValidAssetClass(assetClass) {
		sendJSONError(w, "invalid or missing asset_class", http.StatusBadRequest)
		return
	}
	symbol := r.URL.Query().Get("symbol")

	var accountID *int64
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			sendJSONError(w, "invalid account_id", http.StatusBadRequest)
			return
		}
		accountID = &parsed
	}

	if err := h.holdingService.DeleteHolding(userID, assetClass, symbol, accountID); err != nil {
		if errors.Is(err, models.ErrHoldingNotFound) {
			sendJSONError(w, "holding not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error deleting holding", "userID", userID, "error", err)
		sendJSONError(w, "Error deleting holding", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReconcileHoldings drops holdings whose account no longer exists.
func (h *HoldingHandler) HandleReconcileHoldings(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	removed, err := models.ReconcileHoldings(database.DB, userID)
	if err != nil {
		logger.L.Error("Error reconciling holdings", "userID", userID, "error", err)
		sendJSONError(w, "Error reconciling holdings", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Reconciled holdings", "userID", userID, "removed", removed)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"removed": removed})
}
