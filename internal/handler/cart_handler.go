package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/middleware"
)

type AddCartItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type MergeCartRequest struct {
	Items []AddCartItemRequest `json:"items" validate:"required,dive"`
}

type CartHandler struct {
	svc      cart.Service
	validate *validator.Validate
}

func NewCartHandler(svc cart.Service) *CartHandler {
	return &CartHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleListCart)
	router.Post("/cart", h.handleAddItem)
	router.Delete("/cart", h.handleRemoveItem)
	router.Post("/cart/merge", h.handleMergeCart)
}

func (h *CartHandler) handleListCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.svc.ListItems(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to list cart")
		respondWithError(w, http.StatusInternalServerError, "failed to fetch cart")
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddCartItemRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		if !respondWithValidationError(w, err) {
			respondWithError(w, http.StatusInternalServerError, "internal validation error")
		}
		return
	}

	variantID, err := uuid.FromString(req.VariantID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid variant id")
		return
	}

	if err := h.svc.AddItem(r.Context(), userID, variantID, req.Quantity); err != nil {
		if errors.Is(err, cart.ErrProductUnavailable) {
			respondWithError(w, http.StatusBadRequest, "product not available")
			return
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to add cart item")
		respondWithError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	variantID, err := uuid.FromString(r.URL.Query().Get("variantId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "variant id required")
		return
	}

	if err := h.svc.RemoveItem(r.Context(), userID, variantID); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			respondWithError(w, http.StatusNotFound, "cart item not found")
			return
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to remove cart item")
		respondWithError(w, http.StatusInternalServerError, "failed to remove from cart")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleMergeCart reconciles the client-side cart kept before login into the
// server cart. Quantities sum on conflict.
func (h *CartHandler) handleMergeCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MergeCartRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		if !respondWithValidationError(w, err) {
			respondWithError(w, http.StatusInternalServerError, "internal validation error")
		}
		return
	}

	items := make([]cart.Item, 0, len(req.Items))
	for _, it := range req.Items {
		variantID, err := uuid.FromString(it.VariantID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid variant id")
			return
		}
		items = append(items, cart.Item{
			UserID:    userID,
			VariantID: variantID,
			Quantity:  it.Quantity,
		})
	}

	if err := h.svc.MergeCart(r.Context(), userID, items); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to merge cart")
		respondWithError(w, http.StatusInternalServerError, "failed to merge cart")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
