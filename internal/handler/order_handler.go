package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/middleware"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

type OrderItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items             []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddressID string             `json:"shipping_address_id,omitempty" validate:"omitempty,uuid4"`
	DiscountCode      string             `json:"discount_code,omitempty"`
}

type CreateOrderResponse struct {
	Order        *order.Order `json:"order"`
	ClientSecret string       `json:"client_secret"`
}

type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrderByID)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		if !respondWithValidationError(w, err) {
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "internal validation error")
		}
		return
	}

	input, err := toCreateOrderInput(req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyOrder):
			respondWithError(w, http.StatusBadRequest, "order must contain at least one item")
		case errors.Is(err, order.ErrProductUnavailable):
			// Distinguish "not available" from server errors so the client
			// knows this is not retryable as-is.
			respondWithError(w, http.StatusBadRequest, "product not available")
		case errors.Is(err, order.ErrGatewayUnavailable):
			log.Error().Err(err).Msg("Order creation failed at payment gateway")
			respondWithError(w, http.StatusBadGateway, "payment gateway unavailable")
		default:
			log.Error().Err(err).Msg("Failed to create order")
			respondWithError(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, CreateOrderResponse{
		Order:        result.Order,
		ClientSecret: result.ClientSecret,
	})
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.svc.GetOrdersByUserID(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to list orders")
		respondWithError(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrderByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.svc.GetOrderByID(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to get order")
		respondWithError(w, http.StatusInternalServerError, "failed to fetch order")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func toCreateOrderInput(req CreateOrderRequest) (order.CreateOrderInput, error) {
	input := order.CreateOrderInput{
		Items:        make([]order.ItemInput, 0, len(req.Items)),
		DiscountCode: req.DiscountCode,
	}

	for _, item := range req.Items {
		variantID, err := uuid.FromString(item.VariantID)
		if err != nil {
			return order.CreateOrderInput{}, err
		}
		input.Items = append(input.Items, order.ItemInput{
			VariantID: variantID,
			Quantity:  item.Quantity,
		})
	}

	if req.ShippingAddressID != "" {
		addrID, err := uuid.FromString(req.ShippingAddressID)
		if err != nil {
			return order.CreateOrderInput{}, err
		}
		input.ShippingAddressID = &addrID
	}

	return input, nil
}
