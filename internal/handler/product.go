package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/product"
)

type ProductRequest struct {
	Name              string `json:"name" validate:"required,min=1"`
	SKU               string `json:"sku,omitempty"`
	Price             string `json:"price" validate:"required"`
	Quantity          string `json:"quantity,omitempty"`
	LowStockThreshold string `json:"low_stock_threshold,omitempty"`
}

type ProductHandler struct {
	service  product.Service
	validate *validator.Validate
}

func NewProductHandler(service product.Service) *ProductHandler {
	return &ProductHandler{service: service, validate: validator.New()}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Post("/products", h.handleCreateProduct)
	router.Get("/products", h.handleListProducts)
	router.Get("/products/{id}", h.handleGetProductByID)
	router.Put("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleDeleteProduct)
}

func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request, p *product.Product) bool {
	var requestPayload ProductRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode product request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return false
	}

	p.Name = requestPayload.Name
	p.SKU = requestPayload.SKU

	var err error
	if p.Price, err = parseAmount("price", requestPayload.Price); err != nil || p.Price.IsNegative() {
		respondWithError(w, http.StatusBadRequest, "Invalid price parameter")
		return false
	}
	if requestPayload.Quantity != "" {
		if p.Quantity, err = parseAmount("quantity", requestPayload.Quantity); err != nil || p.Quantity.IsNegative() {
			respondWithError(w, http.StatusBadRequest, "Invalid quantity parameter")
			return false
		}
	}
	if requestPayload.LowStockThreshold != "" {
		if p.LowStockThreshold, err = parseAmount("low_stock_threshold", requestPayload.LowStockThreshold); err != nil || p.LowStockThreshold.IsNegative() {
			respondWithError(w, http.StatusBadRequest, "Invalid low_stock_threshold parameter")
			return false
		}
	}
	return true
}

func (h *ProductHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "products", "create")
	if !ok {
		return
	}

	var p product.Product
	if !h.decodeProduct(w, r, &p) {
		return
	}

	created, err := h.service.Create(r.Context(), principal, &p)
	if err != nil {
		if errors.Is(err, auth.ErrPermissionDenied) {
			respondWithError(w, http.StatusForbidden, "Permission denied")
			return
		}
		log.Error().Err(err).Msg("Failed to create product via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "products", "list")
	if !ok {
		return
	}

	products, err := h.service.List(r.Context(), principal)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list products via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleGetProductByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "products", "retrieve")
	if !ok {
		return
	}

	productID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	found, err := h.service.GetByID(r.Context(), principal, productID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Error().Err(err).Stringer("product_id", productID).Msg("Failed to get product via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

func (h *ProductHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "products", "update")
	if !ok {
		return
	}

	productID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	p := product.Product{ID: productID}
	if !h.decodeProduct(w, r, &p) {
		return
	}

	if err := h.service.Update(r.Context(), principal, &p); err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		if errors.Is(err, auth.ErrPermissionDenied) {
			respondWithError(w, http.StatusForbidden, "Permission denied")
			return
		}
		log.Error().Err(err).Stringer("product_id", productID).Msg("Failed to update product via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "products", "delete")
	if !ok {
		return
	}

	productID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), principal, productID); err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		if errors.Is(err, auth.ErrPermissionDenied) {
			respondWithError(w, http.StatusForbidden, "Permission denied")
			return
		}
		log.Error().Err(err).Stringer("product_id", productID).Msg("Failed to delete product via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
