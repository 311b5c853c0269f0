package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

// maxWebhookBody caps the raw payload read; provider events are small.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	settler *payment.Settler
}

func NewWebhookHandler(settler *payment.Settler) *WebhookHandler {
	return &WebhookHandler{settler: settler}
}

func (h *WebhookHandler) RegisterRoutes(router chi.Router) {
	router.Post("/webhooks/payment", h.handlePaymentWebhook)
}

// handlePaymentWebhook acknowledges with 200 only when the event has been
// fully applied (or was an idempotent no-op). Processing failures return 500
// so the provider redelivers; signature failures are terminal 400s.
func (h *WebhookHandler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payloadBytes, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	err = h.settler.HandleEvent(r.Context(), payloadBytes, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrSignatureInvalid):
			respondWithError(w, http.StatusBadRequest, "invalid signature")
		case errors.Is(err, payment.ErrMalformedEvent):
			respondWithError(w, http.StatusBadRequest, "malformed event")
		case errors.Is(err, payment.ErrOrderNotFound):
			// The event references an order this system never created; a
			// retry will not help, so acknowledge-and-drop is wrong but a
			// 404 tells the operator what happened.
			log.Error().Err(err).Msg("Webhook references unknown order")
			respondWithError(w, http.StatusNotFound, "order not found")
		default:
			log.Error().Err(err).Msg("Webhook processing failed")
			respondWithError(w, http.StatusInternalServerError, "webhook processing failed")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}
