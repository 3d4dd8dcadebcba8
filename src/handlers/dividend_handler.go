package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/database"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/models"
	"github.com/username/assetfolio/backend/src/services"
)

type DividendHandler struct {
	quoteService services.QuoteService
}

func NewDividendHandler(quoteService services.QuoteService) *DividendHandler {
	return &DividendHandler{quoteService: quoteService}
}

func (h *DividendHandler) HandleCreateDividend(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req struct {
		Symbol   string  `json:"symbol"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		PayDate  string  `json:"pay_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" || req.Amount <= 0 || req.Currency == "" {
		sendJSONError(w, "symbol, positive amount and currency are required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", req.PayDate); err != nil {
		sendJSONError(w, "pay_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	dividend := &models.Dividend{
		UserID:   userID,
		Symbol:   req.Symbol,
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		PayDate:  req.PayDate,
	}
	if err := models.CreateDividend(database.DB, dividend); err != nil {
		logger.L.Error("Error recording dividend", "userID", userID, "error", err)
		sendJSONError(w, "Error recording dividend", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dividend)
}

func (h *DividendHandler) HandleGetDividends(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	logger.L.Info("Handling GetDividends", "userID", userID)

	dividends, err := models.GetDividendsByUser(database.DB, userID)
	if err != nil {
		logger.L.Error("Error retrieving dividends", "userID", userID, "error", err)
		sendJSONError(w, fmt.Sprintf("Error retrieving dividends for userID %d", userID), http.StatusInternalServerError)
		return
	}
	if dividends == nil {
		dividends = []models.Dividend{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dividends)
}

// HandleGetDividendSummary sums recorded payouts per year in KRW, using the
// current FX rate for USD amounts. Historical per-date rates would be more
// precise; the dashboard only needs the order of magnitude.
func (h *DividendHandler) HandleGetDividendSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	dividends, err := models.GetDividendsByUser(database.DB, userID)
	if err != nil {
		logger.L.Error("Error retrieving dividends for summary", "userID", userID, "error", err)
		sendJSONError(w, "Error retrieving dividends", http.StatusInternalServerError)
		return
	}

	snapshot, err := h.quoteService.GetSnapshot(r.Context(), nil)
	if err != nil {
		logger.L.Error("Error building snapshot for dividend summary", "userID", userID, "error", err)
		sendJSONError(w, "Error fetching exchange rate", http.StatusInternalServerError)
		return
	}

	summary := make(map[string]decimal.Decimal)
	for _, dividend := range dividends {
		year := dividend.PayDate
		if len(year) >= 4 {
			year = year[:4]
		}
		amount := decimal.NewFromFloat(dividend.Amount)
		if !strings.EqualFold(dividend.Currency, services.ReportingCurrency) {
			amount = amount.Mul(snapshot.FxRate)
		}
		summary[year] = summary[year].Add(amount)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
