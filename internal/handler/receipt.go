package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/receipt"
)

type ReceiptHandler struct {
	service receipt.Service
}

func NewReceiptHandler(service receipt.Service) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

func (h *ReceiptHandler) RegisterRoutes(router chi.Router) {
	router.Get("/receipts", h.handleListReceipts)
	router.Get("/receipts/{id}", h.handleGetReceiptByID)
	router.Get("/receipts/{id}/download", h.handleDownloadReceipt)
}

func (h *ReceiptHandler) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "receipts", "list")
	if !ok {
		return
	}

	receipts, err := h.service.List(r.Context(), principal)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list receipts via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to list receipts")
		return
	}
	respondWithJSON(w, http.StatusOK, receipts)
}

func (h *ReceiptHandler) handleGetReceiptByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "receipts", "retrieve")
	if !ok {
		return
	}

	found, err := h.service.GetByID(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, receipt.ErrReceiptNotFound) {
			respondWithError(w, http.StatusNotFound, "Receipt not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get receipt via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to get receipt")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

func (h *ReceiptHandler) handleDownloadReceipt(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "receipts", "download")
	if !ok {
		return
	}

	found, err := h.service.GetByID(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, receipt.ErrReceiptNotFound) {
			respondWithError(w, http.StatusNotFound, "Receipt not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get receipt via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to get receipt")
		return
	}

	url, err := h.service.DownloadURL(r.Context(), found)
	if err != nil {
		log.Error().Err(err).Str("payment_id", found.PaymentID).Msg("Failed to build receipt download URL")
		respondWithError(w, http.StatusInternalServerError, "Failed to build download URL")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}
