package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"investa/internal/domain"
	"investa/internal/lifecycle"
	"investa/internal/middleware"
	"investa/pkg/logger"
	"investa/pkg/validator"
)

// TransactionHandler manages deposit and withdrawal endpoints.
type TransactionHandler struct {
	service   *lifecycle.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewTransactionHandler(service *lifecycle.Service, val *validator.Validator, log logger.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, validator: val, logger: log}
}

// SubmitDeposit records a pending deposit with its proof of payment.
func (h *TransactionHandler) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req lifecycle.SubmitDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AccountID = accountID

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	tx, err := h.service.SubmitDeposit(r.Context(), &req)
	if err != nil {
		h.logger.Error("Deposit submission failed", map[string]interface{}{"error": err.Error(), "account_id": accountID})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, tx)
}

// SubmitWithdrawal reserves funds and queues a withdrawal for review.
func (h *TransactionHandler) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req lifecycle.SubmitWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AccountID = accountID

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	tx, err := h.service.SubmitWithdrawal(r.Context(), &req)
	if err != nil {
		h.logger.Error("Withdrawal submission failed", map[string]interface{}{"error": err.Error(), "account_id": accountID})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, tx)
}

// GetTransactions returns paginated transactions for the authenticated
// account, optionally filtered by type.
func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var typeFilter *domain.TransactionType
	if v := r.URL.Query().Get("type"); v != "" {
		t := domain.TransactionType(v)
		typeFilter = &t
	}

	limit, offset := pagination(r)
	txs, total, err := h.service.ListTransactions(r.Context(), accountID, typeFilter, limit, offset)
	if err != nil {
		h.logger.Error("Failed to fetch transactions", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}

// GetTransaction returns a single transaction owned by the caller.
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	txID, err := uuid.Parse(vars["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	tx, err := h.service.GetTransaction(r.Context(), txID)
	if err != nil || tx.AccountID != accountID {
		h.respondError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	h.respondJSON(w, http.StatusOK, tx)
}

// ListPaymentMethods returns the active deposit channels.
func (h *TransactionHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.ListPaymentMethods(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch payment methods")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"methods": methods,
		"count":   len(methods),
	})
}

func (h *TransactionHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *TransactionHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
