package payment_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/payment"
)

const testSecret = "whsec_test_secret"

func TestVerifySignature(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)

	tests := []struct {
		name    string
		payload []byte
		header  string
		wantErr bool
	}{
		{
			name:    "valid_signature",
			payload: payload,
			header:  payment.SignPayload(payload, testSecret, now),
			wantErr: false,
		},
		{
			name:    "tampered_payload",
			payload: []byte(`{"id":"evt_1","type":"payment_intent.payment_failed"}`),
			header:  payment.SignPayload(payload, testSecret, now),
			wantErr: true,
		},
		{
			name:    "wrong_secret",
			payload: payload,
			header:  payment.SignPayload(payload, "whsec_other", now),
			wantErr: true,
		},
		{
			name:    "missing_header",
			payload: payload,
			header:  "",
			wantErr: true,
		},
		{
			name:    "garbage_header",
			payload: payload,
			header:  "not-a-signature",
			wantErr: true,
		},
		{
			name:    "stale_timestamp",
			payload: payload,
			header:  payment.SignPayload(payload, testSecret, now.Add(-10*time.Minute)),
			wantErr: true,
		},
		{
			name:    "future_timestamp",
			payload: payload,
			header:  payment.SignPayload(payload, testSecret, now.Add(10*time.Minute)),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := payment.VerifySignature(tt.payload, tt.header, testSecret, now)
			if tt.wantErr {
				assert.True(t, errors.Is(err, payment.ErrSignatureInvalid), "expected ErrSignatureInvalid, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifySignature_AcceptsSecondarySignature(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)

	// During secret rotation the provider sends multiple v1 entries; any
	// matching one must verify.
	valid := payment.SignPayload(payload, testSecret, now)
	header := valid + ",v1=deadbeef"

	assert.NoError(t, payment.VerifySignature(payload, header, testSecret, now))
}

func TestParseEvent(t *testing.T) {
	t.Run("well_formed", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_1",
			"type": "payment_intent.succeeded",
			"data": {"object": {"id": "pi_123", "metadata": {"orderId": "550e8400-e29b-41d4-a716-446655440000"}}}
		}`)

		event, err := payment.ParseEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, "payment_intent.succeeded", event.Type)
		assert.Equal(t, "pi_123", event.Data.Object.ID)
		assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", event.Data.Object.Metadata["orderId"])
	})

	t.Run("invalid_json", func(t *testing.T) {
		_, err := payment.ParseEvent([]byte(`{not json`))
		assert.True(t, errors.Is(err, payment.ErrMalformedEvent))
	})

	t.Run("missing_type", func(t *testing.T) {
		_, err := payment.ParseEvent([]byte(`{"id":"evt_1"}`))
		assert.True(t, errors.Is(err, payment.ErrMalformedEvent))
	})
}
