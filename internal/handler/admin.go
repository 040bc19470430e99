package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"investa/internal/domain"
	"investa/internal/lifecycle"
	"investa/internal/settings"
	"investa/pkg/logger"
	"investa/pkg/validator"
)

// AdminHandler manages the review queue and platform settings.
type AdminHandler struct {
	lifecycle *lifecycle.Service
	settings  *settings.Service
	accounts  AccountAdmin
	validator *validator.Validator
	logger    logger.Logger
}

// AccountAdmin is the slice of the account service admin endpoints need.
type AccountAdmin interface {
	UpdateStatus(ctx context.Context, accountID uuid.UUID, status domain.AccountStatus) error
	ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

func NewAdminHandler(lifecycleSvc *lifecycle.Service, settingsSvc *settings.Service, accounts AccountAdmin, val *validator.Validator, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		lifecycle: lifecycleSvc,
		settings:  settingsSvc,
		accounts:  accounts,
		validator: val,
		logger:    log,
	}
}

// GetPendingTransactions returns the review queue.
func (h *AdminHandler) GetPendingTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	txs, err := h.lifecycle.ListPending(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to fetch pending transactions", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch pending transactions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"limit":        limit,
		"offset":       offset,
	})
}

// GetDepositDetail returns a deposit transaction together with the payment
// evidence submitted for it.
func (h *AdminHandler) GetDepositDetail(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	detail, err := h.lifecycle.GetDepositDetail(r.Context(), txID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Deposit not found")
		return
	}

	h.respondJSON(w, http.StatusOK, detail)
}

// ListAccounts pages through all accounts for back-office review.
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	accounts, err := h.accounts.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to fetch accounts", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch accounts")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"limit":    limit,
		"offset":   offset,
	})
}

// ReviewTransaction approves or rejects a pending transaction.
func (h *AdminHandler) ReviewTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	txID, err := uuid.Parse(vars["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	var req struct {
		Action string `json:"action" validate:"required,oneof=approve reject"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	var tx *domain.Transaction
	if req.Action == "approve" {
		tx, err = h.lifecycle.Approve(r.Context(), txID, req.Reason)
	} else {
		tx, err = h.lifecycle.Reject(r.Context(), txID, req.Reason)
	}
	if err != nil {
		h.logger.Error("Failed to review transaction", map[string]interface{}{"error": err.Error(), "tx_id": txID})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, tx)
}

// GetSettings returns the current platform settings.
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch settings")
		return
	}

	h.respondJSON(w, http.StatusOK, cfg)
}

// UpdateSettings replaces the platform settings.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.PlatformSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.settings.Update(r.Context(), &req); err != nil {
		h.logger.Error("Failed to update settings", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Settings updated"})
}

// UpdateAccountStatus blocks or reactivates an account.
func (h *AdminHandler) UpdateAccountStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID, err := uuid.Parse(vars["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	var req struct {
		Status domain.AccountStatus `json:"status" validate:"required,oneof=active inactive blocked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	if err := h.accounts.UpdateStatus(r.Context(), accountID, req.Status); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Account status updated"})
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *AdminHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
