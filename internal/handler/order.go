package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/order"
)

type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  string `json:"quantity" validate:"required"`
	UnitPrice string `json:"unit_price" validate:"required"`
}

type CreateOrderRequest struct {
	CustomerID  *string            `json:"customer_id,omitempty" validate:"omitempty,uuid4"`
	Status      string             `json:"status,omitempty" validate:"omitempty,oneof=draft placed"`
	Items       []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	TaxAmount   string             `json:"tax_amount,omitempty"`
	ShippingFee string             `json:"shipping_fee,omitempty"`
}

type SetItemsRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type PayOrderRequest struct {
	Provider string `json:"provider,omitempty"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{service: service, validate: validator.New()}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrderByID)
	router.Post("/orders/{id}/items", h.handleSetItems)
	router.Post("/orders/{id}/cancel", h.handleCancelOrder)
	router.Post("/orders/{id}/pay", h.handlePayOrder)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "orders", "create")
	if !ok {
		return
	}

	var requestPayload CreateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create order request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	var o order.Order
	o.Status = order.Status(requestPayload.Status)
	if requestPayload.CustomerID != nil {
		customerID, err := uuid.FromString(*requestPayload.CustomerID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid customer_id parameter")
			return
		}
		o.CustomerID = &customerID
	}

	items, err := buildOrderItems(requestPayload.Items)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	o.Items = items

	if requestPayload.TaxAmount != "" {
		if o.TaxAmount, err = parseAmount("tax_amount", requestPayload.TaxAmount); err != nil || o.TaxAmount.IsNegative() {
			respondWithError(w, http.StatusBadRequest, "Invalid tax_amount parameter")
			return
		}
	}
	if requestPayload.ShippingFee != "" {
		if o.ShippingFee, err = parseAmount("shipping_fee", requestPayload.ShippingFee); err != nil || o.ShippingFee.IsNegative() {
			respondWithError(w, http.StatusBadRequest, "Invalid shipping_fee parameter")
			return
		}
	}

	created, err := h.service.Create(r.Context(), principal, &o)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPermissionDenied):
			respondWithError(w, http.StatusForbidden, "Permission denied")
		case errors.Is(err, order.ErrInvalidTransition):
			respondWithError(w, http.StatusBadRequest, "Orders are created as draft or placed")
		default:
			log.Error().Err(err).Msg("Failed to create order via service")
			respondWithError(w, http.StatusInternalServerError, "Failed to create order")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "orders", "list")
	if !ok {
		return
	}

	orders, err := h.service.List(r.Context(), principal)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrderByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "orders", "retrieve")
	if !ok {
		return
	}

	orderID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	found, err := h.service.GetByID(r.Context(), principal, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to get order via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

func (h *OrderHandler) handleSetItems(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "orders", "update")
	if !ok {
		return
	}

	orderID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload SetItemsRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode set items request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	items, err := buildOrderItems(requestPayload.Items)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.SetItems(r.Context(), principal, orderID, items)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		clientMessage := "Failed to update order items"
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			clientMessage = "Order not found"
		case errors.Is(err, order.ErrOrderImmutable):
			clientMessage = "Paid order cannot be modified"
		case errors.Is(err, order.ErrInvalidTransition):
			clientMessage = "Cancelled order cannot be modified"
		default:
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to update order items via service")
		}
		respondWithError(w, statusCode, clientMessage)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "orders", "cancel")
	if !ok {
		return
	}

	orderID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), principal, orderID); err != nil {
		statusCode := mapErrorToStatusCode(err)
		clientMessage := "Failed to cancel order"
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			clientMessage = "Order not found"
		case errors.Is(err, order.ErrInvalidTransition):
			clientMessage = "Order cannot be cancelled in its current status"
		default:
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to cancel order via service")
		}
		respondWithError(w, statusCode, clientMessage)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": order.StatusCancelled.String()})
}

func (h *OrderHandler) handlePayOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "orders", "pay")
	if !ok {
		return
	}

	orderID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var requestPayload PayOrderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&requestPayload); err != nil {
			log.Warn().Err(err).Msg("Failed to decode pay order request")
			respondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}

	p, err := h.service.Pay(r.Context(), principal, orderID, requestPayload.Provider)
	if err != nil {
		if errors.Is(err, order.ErrOrderAlreadyPaid) && p != nil {
			respondWithJSON(w, http.StatusConflict, map[string]string{
				"error":      "Order is already paid",
				"payment_id": p.PaymentID,
			})
			return
		}
		statusCode := mapErrorToStatusCode(err)
		clientMessage := "Failed to pay order"
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			clientMessage = "Order not found"
		case errors.Is(err, order.ErrOrderAlreadyPaid):
			clientMessage = "Order is already paid"
		case errors.Is(err, order.ErrInvalidTransition):
			clientMessage = "Order cannot be paid in its current status"
		case errors.Is(err, auth.ErrPermissionDenied):
			clientMessage = "Permission denied"
		default:
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to pay order via service")
		}
		respondWithError(w, statusCode, clientMessage)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":     order.StatusPaid.String(),
		"payment_id": p.PaymentID,
	})
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}
	return id, true
}

func buildOrderItems(payload []OrderItemRequest) ([]order.OrderItem, error) {
	items := make([]order.OrderItem, 0, len(payload))
	for _, itemPayload := range payload {
		productID, err := uuid.FromString(itemPayload.ProductID)
		if err != nil {
			return nil, errors.New("invalid product_id in order item")
		}
		quantity, err := parseAmount("quantity", itemPayload.Quantity)
		if err != nil {
			return nil, err
		}
		if !quantity.IsPositive() {
			return nil, errors.New("quantity in order item must be greater than zero")
		}
		unitPrice, err := parseAmount("unit_price", itemPayload.UnitPrice)
		if err != nil {
			return nil, err
		}
		if unitPrice.IsNegative() {
			return nil, errors.New("unit_price in order item cannot be negative")
		}
		items = append(items, order.OrderItem{
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: unitPrice,
		})
	}
	return items, nil
}
