package service

import (
	"context"
	"fmt"
	"time"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/cache"
	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/gateway"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/logger"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/metrics"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// WebhookService reconciles asynchronous gateway notifications with the
// local booking and payment state.
type WebhookService struct {
	verifier gateway.PaymentGateway
	store    BookingStore
	payments PaymentStore
	bookings *BookingService
	dedup    *cache.DedupClient
}

func NewWebhookService(verifier gateway.PaymentGateway, store BookingStore, payments PaymentStore, bookings *BookingService, dedup *cache.DedupClient) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		store:    store,
		payments: payments,
		bookings: bookings,
		dedup:    dedup,
	}
}

// Handle verifies, deduplicates and applies one gateway event. A nil
// return means the event may be acknowledged; only a bad signature or an
// internal failure is surfaced to the transport layer.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := s.verifier.VerifyAndParseWebhook(payload, signature)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		return err
	}

	log := logger.WithContext(ctx).With(
		"event_id", event.ID, "event_type", event.Type,
		"booking_reference", event.BookingReference)

	booking, err := s.store.GetBookingByReference(ctx, event.BookingReference)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		// Unknown reference; ack so the gateway stops redelivering.
		log.Warn("Webhook for unknown booking reference")
		metrics.WebhookEvents.WithLabelValues("unknown_booking").Inc()
		return nil
	}

	payment, err := s.paymentForEvent(ctx, booking.ID, event)
	if err != nil {
		return err
	}
	if payment == nil {
		log.Warn("Webhook with no matching payment")
		metrics.WebhookEvents.WithLabelValues("unknown_payment").Inc()
		return nil
	}

	// The payment row's last event id is the authoritative replay guard;
	// the cache only short-circuits the common redelivery burst.
	if payment.LastEventID != nil && *payment.LastEventID == event.ID {
		log.Info("Webhook event already applied, skipping")
		metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		return apperrors.ErrAlreadyProcessed
	}

	if !s.dedup.FirstDelivery(ctx, event.ID) {
		log.Info("Webhook event already seen, skipping")
		metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		return apperrors.ErrAlreadyProcessed
	}

	switch event.Type {
	case gateway.EventPaymentSucceeded:
		err = s.applyPaymentSucceeded(ctx, booking, payment)
	case gateway.EventPaymentFailed:
		err = s.applyPaymentFailed(ctx, booking, payment, event.Reason)
	case gateway.EventDisputeCreated:
		err = s.applyDispute(ctx, booking, payment, event.Reason)
	default:
		log.Warn("Unhandled webhook event type")
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		return nil
	}

	if err != nil {
		// Release the cache claim so the redelivery can finish the job;
		// every effect above is idempotent under replay.
		s.dedup.Forget(ctx, event.ID)
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		return err
	}

	// The event id is recorded only after the effects commit. A crash in
	// between costs one redundant replay, never a lost delivery.
	if _, err := s.payments.ApplyEvent(ctx, payment.ID, event.ID); err != nil {
		s.dedup.Forget(ctx, event.ID)
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	metrics.WebhookEvents.WithLabelValues("applied").Inc()
	return nil
}

func (s *WebhookService) paymentForEvent(ctx context.Context, bookingID int64, event *gateway.Event) (*models.Payment, error) {
	payments, err := s.payments.ListByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	if event.ExternalPaymentID != "" {
		for i := range payments {
			p := &payments[i]
			if p.ExternalPaymentID != nil && *p.ExternalPaymentID == event.ExternalPaymentID {
				return p, nil
			}
		}
	}
	if len(payments) > 0 {
		return &payments[len(payments)-1], nil
	}
	return nil, nil
}

// applyPaymentSucceeded settles an asynchronous payment. A booking that is
// already PAID goes through confirmPaid again so a redelivery can finish a
// partial settlement; any other terminal state keeps its outcome.
func (s *WebhookService) applyPaymentSucceeded(ctx context.Context, booking *models.Booking, payment *models.Payment) error {
	switch booking.Status {
	case models.BookingPending, models.BookingPaid:
	default:
		logger.WithContext(ctx).Info("Payment succeeded for settled booking, no transition",
			"booking_id", booking.ID, "status", booking.Status)
		return nil
	}

	_, err := s.bookings.confirmPaid(ctx, booking, payment)
	if apperrors.IsValidation(err) {
		// Raced with a cancel or an expiry; the other writer's outcome
		// stands and the finance team reconciles the charge.
		logger.WithContext(ctx).Warn("Payment succeeded but booking left pending state",
			"booking_id", booking.ID, "status", booking.Status)
		return nil
	}
	return err
}

func (s *WebhookService) applyPaymentFailed(ctx context.Context, booking *models.Booking, payment *models.Payment, reason string) error {
	switch booking.Status {
	case models.BookingPending:
		cause := apperrors.NewGateway(apperrors.GatewayCardDeclined, reason, nil)
		err := s.bookings.failPending(ctx, booking, payment, cause)
		if apperrors.IsValidation(err) {
			return nil
		}
		return err
	case models.BookingCancelled:
		// Redelivery after a partial rollback. The release guard makes
		// this a no-op when the hold already returned to the pool.
		return s.store.ReleaseHold(ctx, booking)
	default:
		logger.WithContext(ctx).Info("Payment failed for non-pending booking, no transition",
			"booking_id", booking.ID, "status", booking.Status)
		return nil
	}
}

// applyDispute records a chargeback. The booking stays in its settled
// state; disputed funds are an accounting concern, not an inventory one.
func (s *WebhookService) applyDispute(ctx context.Context, booking *models.Booking, payment *models.Payment, reason string) error {
	detail := "dispute opened"
	if reason != "" {
		detail = "dispute opened: " + reason
	}
	if err := s.payments.RecordGatewayResult(ctx, payment.ID, payment.Status, nil, nil, &detail); err != nil {
		return fmt.Errorf("failed to record dispute: %w", err)
	}

	logger.WithContext(ctx).Warn("Dispute opened for booking",
		"booking_id", booking.ID, "payment_id", payment.ID,
		"reason", reason, "disputed_at", time.Now())
	return nil
}
