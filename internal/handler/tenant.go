package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/tenant"
)

type CreateTenantRequest struct {
	Name           string `json:"name" validate:"required,min=2"`
	CommissionRate string `json:"commission_rate,omitempty"`
	Currency       string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

type TenantHandler struct {
	repo     tenant.Repository
	validate *validator.Validate
}

func NewTenantHandler(repo tenant.Repository) *TenantHandler {
	return &TenantHandler{repo: repo, validate: validator.New()}
}

func (h *TenantHandler) RegisterRoutes(router chi.Router) {
	router.Post("/tenants", h.handleCreateTenant)
	router.Get("/tenants", h.handleListTenants)
	router.Get("/tenants/{id}", h.handleGetTenantByID)
}

func (h *TenantHandler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePermission(w, r, "tenants", "create"); !ok {
		return
	}

	var requestPayload CreateTenantRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode tenant request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	t := tenant.Tenant{
		Name:     requestPayload.Name,
		Active:   true,
		Currency: requestPayload.Currency,
	}
	if requestPayload.CommissionRate != "" {
		rate, err := parseAmount("commission_rate", requestPayload.CommissionRate)
		if err != nil || rate.IsNegative() {
			respondWithError(w, http.StatusBadRequest, "Invalid commission_rate parameter")
			return
		}
		t.CommissionRate = rate
	}

	if err := h.repo.Create(r.Context(), &t); err != nil {
		log.Error().Err(err).Msg("Failed to create tenant")
		respondWithError(w, http.StatusInternalServerError, "Failed to create tenant")
		return
	}
	respondWithJSON(w, http.StatusCreated, t)
}

func (h *TenantHandler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePermission(w, r, "tenants", "list"); !ok {
		return
	}

	tenants, err := h.repo.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list tenants")
		respondWithError(w, http.StatusInternalServerError, "Failed to list tenants")
		return
	}
	respondWithJSON(w, http.StatusOK, tenants)
}

func (h *TenantHandler) handleGetTenantByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePermission(w, r, "tenants", "retrieve"); !ok {
		return
	}

	tenantID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	found, err := h.repo.GetByID(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondWithError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		log.Error().Err(err).Stringer("tenant_id", tenantID).Msg("Failed to get tenant")
		respondWithError(w, http.StatusInternalServerError, "Failed to get tenant")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}
