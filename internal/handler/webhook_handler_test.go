package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

const testWebhookSecret = "whsec_handler_test"

type mockSettlementStore struct {
	successCalls int
	failureCalls int
	successErr   error
}

func (m *mockSettlementStore) ApplySuccess(ctx context.Context, orderID uuid.UUID) (bool, error) {
	m.successCalls++
	if m.successErr != nil {
		return false, m.successErr
	}
	return true, nil
}

func (m *mockSettlementStore) ApplyFailure(ctx context.Context, orderID uuid.UUID) (bool, error) {
	m.failureCalls++
	return true, nil
}

func newWebhookRouter(store payment.SettlementStore) *chi.Mux {
	r := chi.NewRouter()
	NewWebhookHandler(payment.NewSettler(store, testWebhookSecret)).RegisterRoutes(r)
	return r
}

func successEvent() []byte {
	orderID, _ := uuid.NewV4()
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","metadata":{"orderId":"%s"}}}}`,
		orderID,
	))
}

func TestWebhookHandler_ValidEvent(t *testing.T) {
	store := &mockSettlementStore{}
	router := newWebhookRouter(store)

	payloadBytes := successEvent()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(payloadBytes))
	req.Header.Set(payment.SignatureHeader, payment.SignPayload(payloadBytes, testWebhookSecret, time.Now()))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	assert.Equal(t, 1, store.successCalls)
}

func TestWebhookHandler_InvalidSignatureRejectedBeforeLookup(t *testing.T) {
	store := &mockSettlementStore{}
	router := newWebhookRouter(store)

	payloadBytes := successEvent()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(payloadBytes))
	req.Header.Set(payment.SignatureHeader, "t=1,v1=deadbeef")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, store.successCalls, "no state may be touched on a bad signature")
	assert.Equal(t, 0, store.failureCalls)
}

func TestWebhookHandler_ProcessingFailureNacks(t *testing.T) {
	store := &mockSettlementStore{successErr: fmt.Errorf("repository: %w", context.DeadlineExceeded)}
	router := newWebhookRouter(store)

	payloadBytes := successEvent()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(payloadBytes))
	req.Header.Set(payment.SignatureHeader, payment.SignPayload(payloadBytes, testWebhookSecret, time.Now()))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// 500 so the event source redelivers.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookHandler_UnknownOrder(t *testing.T) {
	store := &mockSettlementStore{successErr: payment.ErrOrderNotFound}
	router := newWebhookRouter(store)

	payloadBytes := successEvent()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(payloadBytes))
	req.Header.Set(payment.SignatureHeader, payment.SignPayload(payloadBytes, testWebhookSecret, time.Now()))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookHandler_UnknownEventTypeAcknowledged(t *testing.T) {
	store := &mockSettlementStore{}
	router := newWebhookRouter(store)

	payloadBytes := []byte(`{"id":"evt_2","type":"charge.refunded","data":{"object":{"id":"ch_1","metadata":{}}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(payloadBytes))
	req.Header.Set(payment.SignatureHeader, payment.SignPayload(payloadBytes, testWebhookSecret, time.Now()))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.successCalls)
	assert.Equal(t, 0, store.failureCalls)
}
