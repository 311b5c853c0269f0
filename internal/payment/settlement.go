package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Settler consumes verified payment-provider events and transitions orders
// to their terminal payment state exactly once.
type Settler struct {
	store         SettlementStore
	webhookSecret string
	now           func() time.Time
}

func NewSettler(store SettlementStore, webhookSecret string) *Settler {
	return &Settler{
		store:         store,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

// HandleEvent verifies and applies one raw webhook delivery. The signature
// is checked before anything else; no state is touched on a bad signature.
// Unrecognized event types are acknowledged without effect.
func (s *Settler) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	if err := VerifySignature(payload, signatureHeader, s.webhookSecret, s.now()); err != nil {
		log.Warn().Err(err).Msg("settlement: webhook signature verification failed")
		return err
	}

	event, err := ParseEvent(payload)
	if err != nil {
		return err
	}

	switch event.Type {
	case EventPaymentSucceeded:
		return s.settleSuccess(ctx, event)
	case EventPaymentFailed:
		return s.settleFailure(ctx, event)
	default:
		log.Info().Str("event_type", event.Type).Str("event_id", event.ID).Msg("settlement: unhandled event type, acknowledged")
		return nil
	}
}

func (s *Settler) settleSuccess(ctx context.Context, event *Event) error {
	orderID, err := orderIDFromEvent(event)
	if err != nil {
		return err
	}

	applied, err := s.store.ApplySuccess(ctx, orderID)
	if err != nil {
		return fmt.Errorf("settlement: failed to apply payment success for order %s: %w", orderID, err)
	}

	if applied {
		log.Info().
			Stringer("order_id", orderID).
			Str("intent_id", event.Data.Object.ID).
			Msg("settlement: payment succeeded, order settled")
	} else {
		log.Info().
			Stringer("order_id", orderID).
			Str("event_id", event.ID).
			Msg("settlement: duplicate success delivery, no-op")
	}

	return nil
}

func (s *Settler) settleFailure(ctx context.Context, event *Event) error {
	orderID, err := orderIDFromEvent(event)
	if err != nil {
		return err
	}

	applied, err := s.store.ApplyFailure(ctx, orderID)
	if err != nil {
		return fmt.Errorf("settlement: failed to apply payment failure for order %s: %w", orderID, err)
	}

	if applied {
		log.Info().Stringer("order_id", orderID).Str("intent_id", event.Data.Object.ID).Msg("settlement: payment failed, order cancelled")
	}

	return nil
}

// orderIDFromEvent extracts the order correlation the Order Service attached
// to the intent metadata. Events are never allowed to create orders.
func orderIDFromEvent(event *Event) (uuid.UUID, error) {
	raw, ok := event.Data.Object.Metadata["orderId"]
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("%w: event %s has no order metadata", ErrMalformedEvent, event.ID)
	}

	orderID, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: event %s has malformed order id %q", ErrMalformedEvent, event.ID, raw)
	}

	return orderID, nil
}
