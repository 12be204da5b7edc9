package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/customer"
)

type CustomerRequest struct {
	Name  string `json:"name" validate:"required,min=1"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

type CustomerHandler struct {
	repo     customer.Repository
	validate *validator.Validate
}

func NewCustomerHandler(repo customer.Repository) *CustomerHandler {
	return &CustomerHandler{repo: repo, validate: validator.New()}
}

func (h *CustomerHandler) RegisterRoutes(router chi.Router) {
	router.Post("/customers", h.handleCreateCustomer)
	router.Get("/customers", h.handleListCustomers)
	router.Get("/customers/{id}", h.handleGetCustomerByID)
}

func (h *CustomerHandler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "customers", "create")
	if !ok {
		return
	}

	var requestPayload CustomerRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode customer request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	c := customer.Customer{
		Name:  requestPayload.Name,
		Email: requestPayload.Email,
		Phone: requestPayload.Phone,
	}
	if err := h.repo.Create(r.Context(), auth.ResolveScope(principal), &c); err != nil {
		if errors.Is(err, auth.ErrPermissionDenied) {
			respondWithError(w, http.StatusForbidden, "Permission denied")
			return
		}
		log.Error().Err(err).Msg("Failed to create customer")
		respondWithError(w, http.StatusInternalServerError, "Failed to create customer")
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CustomerHandler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "customers", "list")
	if !ok {
		return
	}

	customers, err := h.repo.List(r.Context(), auth.ResolveScope(principal))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list customers")
		respondWithError(w, http.StatusInternalServerError, "Failed to list customers")
		return
	}
	respondWithJSON(w, http.StatusOK, customers)
}

func (h *CustomerHandler) handleGetCustomerByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "customers", "retrieve")
	if !ok {
		return
	}

	customerID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	found, err := h.repo.GetByID(r.Context(), auth.ResolveScope(principal), customerID)
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound) {
			respondWithError(w, http.StatusNotFound, "Customer not found")
			return
		}
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("Failed to get customer")
		respondWithError(w, http.StatusInternalServerError, "Failed to get customer")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}
