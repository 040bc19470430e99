package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"investa/internal/investment"
	"investa/internal/middleware"
	apperrors "investa/pkg/errors"
	"investa/pkg/logger"
	"investa/pkg/validator"
)

// InvestmentHandler manages VIP and staking investment endpoints.
type InvestmentHandler struct {
	service   *investment.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewInvestmentHandler(service *investment.Service, val *validator.Validator, log logger.Logger) *InvestmentHandler {
	return &InvestmentHandler{service: service, validator: val, logger: log}
}

// CreateVIP buys a VIP package for the authenticated account.
func (h *InvestmentHandler) CreateVIP(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req investment.CreateVIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AccountID = accountID

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	inv, err := h.service.CreateVIPInvestment(r.Context(), &req)
	if err != nil {
		h.logger.Error("VIP investment failed", map[string]interface{}{"error": err.Error(), "account_id": accountID})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, inv)
}

// CreateStaking locks funds into a staking plan for the authenticated account.
func (h *InvestmentHandler) CreateStaking(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req investment.CreateStakingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AccountID = accountID

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	inv, err := h.service.CreateStakingInvestment(r.Context(), &req)
	if err != nil {
		h.logger.Error("Staking investment failed", map[string]interface{}{"error": err.Error(), "account_id": accountID})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, inv)
}

// RedeemStaking completes a matured staking position and releases its
// principal to the withdrawable balance.
func (h *InvestmentHandler) RedeemStaking(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	investmentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid investment ID")
		return
	}

	inv, err := h.service.RedeemStaking(r.Context(), accountID, investmentID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvestmentNotFound):
			h.respondError(w, http.StatusNotFound, "Investment not found")
		case errors.Is(err, apperrors.ErrInvestmentLocked):
			h.respondError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("Staking redemption failed", map[string]interface{}{"error": err.Error(), "account_id": accountID})
			h.respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.respondJSON(w, http.StatusOK, inv)
}

// CloseVIP ends an open-ended VIP position and returns the principal to
// the deposit balance.
func (h *InvestmentHandler) CloseVIP(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	investmentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid investment ID")
		return
	}

	inv, err := h.service.CloseVIPInvestment(r.Context(), accountID, investmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvestmentNotFound) {
			h.respondError(w, http.StatusNotFound, "Investment not found")
			return
		}
		h.logger.Error("VIP closure failed", map[string]interface{}{"error": err.Error(), "account_id": accountID})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, inv)
}

// ListInvestments returns the authenticated account's VIP and staking positions.
func (h *InvestmentHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vip, staking, err := h.service.GetAccountInvestments(r.Context(), accountID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch investments")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"vip":     vip,
		"staking": staking,
	})
}

// ListPackages returns the active VIP package catalog.
func (h *InvestmentHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.service.ListVIPPackages(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch packages")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"packages": packages,
		"count":    len(packages),
	})
}

// ListPlans returns the active staking plan catalog.
func (h *InvestmentHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListStakingPlans(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch plans")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
		"count": len(plans),
	})
}

func (h *InvestmentHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *InvestmentHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
