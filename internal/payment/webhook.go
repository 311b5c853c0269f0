package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"

	// SignatureHeader is the HTTP header carrying the webhook signature.
	SignatureHeader = "Stripe-Signature"

	defaultTolerance = 5 * time.Minute
)

var (
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

// Event is the provider's webhook envelope. Only the fields the settlement
// flow needs are decoded.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object IntentObject `json:"object"`
	} `json:"data"`
}

// IntentObject is the payment-intent payload inside the event. Metadata
// carries the order correlation attached at intent-creation time.
type IntentObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// ParseEvent decodes the raw webhook body into an Event. It does not verify
// the signature; callers must do that first.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}
	return &event, nil
}

// VerifySignature checks the provider signature header against the raw
// payload. The header has the form "t=<unix>,v1=<hex>[,v1=<hex>...]" and the
// expected signature is HMAC-SHA256(secret, "<t>.<payload>"). Verification
// fails closed: any parse error, stale timestamp, or mismatched digest is
// ErrSignatureInvalid.
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > defaultTolerance || age < -defaultTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			return nil
		}
	}

	return ErrSignatureInvalid
}

func parseSignatureHeader(header string) (timestamp int64, signatures []string, err error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", ErrSignatureInvalid)
	}

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp, err = strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrSignatureInvalid)
			}
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: incomplete signature header", ErrSignatureInvalid)
	}

	return timestamp, signatures, nil
}

// SignPayload produces a valid signature header for the payload. Used by the
// tests and by local tooling that replays events.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
