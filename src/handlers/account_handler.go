package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/assetfolio/backend/src/database"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/models"
	"github.com/username/assetfolio/backend/src/security/validation"
)

type AccountHandler struct{}

func NewAccountHandler() *AccountHandler {
	return &AccountHandler{}
}

func (h *AccountHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name   string `json:"name"`
		Broker string `json:"broker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		sendJSONError(w, "account name is required", http.StatusBadRequest)
		return
	}

	account := &models.Account{
		UserID: userID,
		Name:   validation.SanitizeName(req.Name),
		Broker: validation.SanitizeName(req.Broker),
	}
	if err := models.CreateAccount(database.DB, account); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			sendJSONError(w, "an account with that name already exists", http.StatusConflict)
			return
		}
		logger.L.Error("Error creating account", "userID", userID, "error", err)
		sendJSONError(w, "Error creating account", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}

func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	accounts, err := models.GetAccountsByUser(database.DB, userID)
	if err != nil {
		logger.L.Error("Error retrieving accounts", "userID", userID, "error", err)
		sendJSONError(w, "Error retrieving accounts", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// HandleDeleteAccount removes an account and its holdings together, so the
// positions fall out of net worth instead of becoming orphans.
func (h *AccountHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	accountID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		sendJSONError(w, "invalid account id", http.StatusBadRequest)
		return
	}

	if err := models.DeleteAccount(database.DB, accountID, userID); err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			sendJSONError(w, "account not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error deleting account", "userID", userID, "accountID", accountID, "error", err)
		sendJSONError(w, "Error deleting account", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
