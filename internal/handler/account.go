// Package handler provides HTTP handlers for the investa services.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"investa/internal/account"
	"investa/internal/ledger"
	"investa/internal/middleware"
	"investa/internal/referral"
	"investa/pkg/logger"
	"investa/pkg/validator"
)

// AccountHandler manages account and bank card endpoints.
type AccountHandler struct {
	accounts  *account.Service
	ledger    *ledger.Service
	referrals *referral.Engine
	validator *validator.Validator
	logger    logger.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts *account.Service, ledgerSvc *ledger.Service, referrals *referral.Engine, val *validator.Validator, log logger.Logger) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		ledger:    ledgerSvc,
		referrals: referrals,
		validator: val,
		logger:    log,
	}
}

// OpenAccount handles account creation.
func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req account.OpenAccountRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	acct, err := h.accounts.Open(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to open account", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, expiresAt, err := h.accounts.IssueToken(acct.ID, "user")
	if err != nil {
		h.logger.Error("Failed to issue token", map[string]interface{}{"error": err.Error(), "account_id": acct.ID})
		h.respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"account":    acct,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// GetBalances returns the authenticated account's balance summary.
func (h *AccountHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	balances, err := h.ledger.GetBalances(r.Context(), accountID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Account not found")
		return
	}

	h.respondJSON(w, http.StatusOK, balances)
}

// BindCard registers a withdrawal destination for the authenticated account.
func (h *AccountHandler) BindCard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req account.BindCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AccountID = accountID

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	card, err := h.accounts.BindCard(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to bind card", map[string]interface{}{"error": err.Error(), "account_id": accountID})
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, card)
}

// GetCards lists the authenticated account's withdrawal destinations.
func (h *AccountHandler) GetCards(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cards, err := h.accounts.GetCards(r.Context(), accountID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch cards")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"cards": cards,
		"count": len(cards),
	})
}

// ChangeTransactionPassword rotates the withdrawal password.
func (h *AccountHandler) ChangeTransactionPassword(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Current string `json:"current" validate:"required"`
		Next    string `json:"next" validate:"required,min=6"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	if err := h.accounts.ChangeTransactionPassword(r.Context(), accountID, req.Current, req.Next); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Transaction password updated"})
}

// GetTeamStats returns referral bonus history and totals for the
// authenticated account.
func (h *AccountHandler) GetTeamStats(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, offset := pagination(r)
	stats, err := h.referrals.GetReferrerStats(r.Context(), accountID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to fetch team stats", map[string]interface{}{"error": err.Error(), "account_id": accountID})
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch team stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

func (h *AccountHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *AccountHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
