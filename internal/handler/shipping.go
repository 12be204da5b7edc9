package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/shipping"
)

type FeeRuleRequest struct {
	Zone        string `json:"zone" validate:"required,min=1"`
	BaseFee     string `json:"base_fee" validate:"required"`
	PerKmFee    string `json:"per_km_fee,omitempty"`
	MinDistance int    `json:"min_distance,omitempty" validate:"omitempty,min=0"`
	MaxDistance int    `json:"max_distance,omitempty" validate:"omitempty,min=0"`
	Active      *bool  `json:"active,omitempty"`
}

type ShippingHandler struct {
	repo     shipping.Repository
	validate *validator.Validate
}

func NewShippingHandler(repo shipping.Repository) *ShippingHandler {
	return &ShippingHandler{repo: repo, validate: validator.New()}
}

func (h *ShippingHandler) RegisterRoutes(router chi.Router) {
	router.Post("/shipping-fee-rules", h.handleCreateRule)
	router.Get("/shipping-fee-rules", h.handleListRules)
	router.Delete("/shipping-fee-rules/{id}", h.handleDeleteRule)
}

func (h *ShippingHandler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "shipping-fee-rules", "create")
	if !ok {
		return
	}

	var requestPayload FeeRuleRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode shipping fee rule request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	rule := shipping.FeeRule{
		Zone:        requestPayload.Zone,
		MinDistance: requestPayload.MinDistance,
		MaxDistance: requestPayload.MaxDistance,
		Active:      true,
	}
	if requestPayload.Active != nil {
		rule.Active = *requestPayload.Active
	}

	var err error
	if rule.BaseFee, err = parseAmount("base_fee", requestPayload.BaseFee); err != nil || rule.BaseFee.IsNegative() {
		respondWithError(w, http.StatusBadRequest, "Invalid base_fee parameter")
		return
	}
	if requestPayload.PerKmFee != "" {
		if rule.PerKmFee, err = parseAmount("per_km_fee", requestPayload.PerKmFee); err != nil || rule.PerKmFee.IsNegative() {
			respondWithError(w, http.StatusBadRequest, "Invalid per_km_fee parameter")
			return
		}
	}

	if err := h.repo.Create(r.Context(), auth.ResolveScope(principal), &rule); err != nil {
		if errors.Is(err, auth.ErrPermissionDenied) {
			respondWithError(w, http.StatusForbidden, "Permission denied")
			return
		}
		log.Error().Err(err).Msg("Failed to create shipping fee rule")
		respondWithError(w, http.StatusInternalServerError, "Failed to create shipping fee rule")
		return
	}
	respondWithJSON(w, http.StatusCreated, rule)
}

func (h *ShippingHandler) handleListRules(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "shipping-fee-rules", "list")
	if !ok {
		return
	}

	rules, err := h.repo.List(r.Context(), auth.ResolveScope(principal))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list shipping fee rules")
		respondWithError(w, http.StatusInternalServerError, "Failed to list shipping fee rules")
		return
	}
	respondWithJSON(w, http.StatusOK, rules)
}

func (h *ShippingHandler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "shipping-fee-rules", "delete")
	if !ok {
		return
	}

	ruleID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), auth.ResolveScope(principal), ruleID); err != nil {
		if errors.Is(err, shipping.ErrRuleNotFound) {
			respondWithError(w, http.StatusNotFound, "Shipping fee rule not found")
			return
		}
		if errors.Is(err, auth.ErrPermissionDenied) {
			respondWithError(w, http.StatusForbidden, "Permission denied")
			return
		}
		log.Error().Err(err).Stringer("rule_id", ruleID).Msg("Failed to delete shipping fee rule")
		respondWithError(w, http.StatusInternalServerError, "Failed to delete shipping fee rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
