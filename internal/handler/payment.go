package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/gateway"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
)

type CreateIntentRequest struct {
	Provider string            `json:"provider,omitempty"`
	Amount   string            `json:"amount" validate:"required"`
	Currency string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type PaymentHandler struct {
	repo     payment.Repository
	gateways *gateway.Factory
	currency string
	validate *validator.Validate
}

func NewPaymentHandler(repo payment.Repository, gateways *gateway.Factory, currency string) *PaymentHandler {
	if currency == "" {
		currency = "SAR"
	}
	return &PaymentHandler{repo: repo, gateways: gateways, currency: currency, validate: validator.New()}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router) {
	router.Post("/payments/intent", h.handleCreateIntent)
	router.Get("/payments", h.handleListPayments)
	router.Get("/payments/{payment_id}", h.handleGetPayment)
}

func (h *PaymentHandler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	_, ok := requirePermission(w, r, "payments", "intent")
	if !ok {
		return
	}

	var requestPayload CreateIntentRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create intent request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	amount, err := parseAmount("amount", requestPayload.Amount)
	if err != nil || !amount.IsPositive() {
		respondWithError(w, http.StatusBadRequest, "Invalid amount parameter")
		return
	}
	currency := requestPayload.Currency
	if currency == "" {
		currency = h.currency
	}

	gw := h.gateways.ForProvider(requestPayload.Provider)
	intent, err := gw.CreateIntent(r.Context(), amount, currency, requestPayload.Metadata)
	if err != nil {
		log.Error().Err(err).Str("provider", requestPayload.Provider).Msg("Failed to create payment intent")
		respondWithError(w, http.StatusBadGateway, "Failed to create payment intent")
		return
	}
	respondWithJSON(w, http.StatusCreated, intent)
}

func (h *PaymentHandler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "payments", "list")
	if !ok {
		return
	}

	payments, err := h.repo.List(r.Context(), auth.ResolveScope(principal))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list payments")
		respondWithError(w, http.StatusInternalServerError, "Failed to list payments")
		return
	}
	respondWithJSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "payments", "retrieve")
	if !ok {
		return
	}

	paymentID := chi.URLParam(r, "payment_id")
	if paymentID == "" {
		respondWithError(w, http.StatusBadRequest, "payment_id parameter is required")
		return
	}

	found, err := h.repo.GetByPaymentID(r.Context(), auth.ResolveScope(principal), paymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			respondWithError(w, http.StatusNotFound, "Payment not found")
			return
		}
		log.Error().Err(err).Str("payment_id", paymentID).Msg("Failed to get payment")
		respondWithError(w, http.StatusInternalServerError, "Failed to get payment")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}
