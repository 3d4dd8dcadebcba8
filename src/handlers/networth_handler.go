package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/services"
	"github.com/username/assetfolio/backend/src/utils"
)

type NetWorthHandler struct {
	holdingService services.HoldingService
}

func NewNetWorthHandler(holdingService services.HoldingService) *NetWorthHandler {
	return &NetWorthHandler{holdingService: holdingService}
}

// HandleGetNetWorth runs the full valuation pipeline for the caller:
// load holdings, decrypt, snapshot prices, aggregate into KRW.
func (h *NetWorthHandler) HandleGetNetWorth(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	logger.L.Info("Handling GetNetWorth", "userID", userID)

	report, err := h.holdingService.NetWorth(r.Context(), userID)
	if err != nil {
		logger.L.Error("Error computing net worth", "userID", userID, "error", err)
		sendJSONError(w, fmt.Sprintf("Error computing net worth for userID %d", userID), http.StatusInternalServerError)
		return
	}

	if report.MissingQuotes > 0 {
		logger.L.Warn("Net worth computed with missing quotes",
			"userID", userID, "missingQuotes", report.MissingQuotes)
	}
	if report.Unreadable > 0 {
		logger.L.Warn("Net worth computed with unreadable holdings",
			"userID", userID, "unreadable", report.Unreadable)
	}

	etag, err := utils.GenerateETag(report)
	if err == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.L.Error("Error encoding net worth report to JSON", "userID", userID, "error", err)
	}
}
