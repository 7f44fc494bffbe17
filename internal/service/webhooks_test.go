package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/gateway"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

func pendingBooking(t *testing.T, env *testEnv) *models.CreateBookingResponse {
	t.Helper()
	env.card.intentStatus = gateway.IntentPending
	created, err := env.services.Bookings.Create(context.Background(), createRequest(2))
	require.NoError(t, err)
	return created
}

func deliver(env *testEnv, event *gateway.Event) error {
	env.card.webhookEvent = event
	return env.services.Webhooks.Handle(context.Background(), []byte(`{}`), "sig")
}

func TestWebhookSettlesPendingBooking(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := pendingBooking(t, env)

	err := deliver(env, &gateway.Event{
		ID:               "evt_1",
		Type:             gateway.EventPaymentSucceeded,
		BookingReference: created.Booking.BookingReference,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingPaid, env.store.bookingStatus(created.Booking.ID))
	assert.Equal(t, models.PaymentCompleted, env.payments.status(created.Payment.ID))

	tickets, err := env.tickets.ListByBooking(context.Background(), created.Booking.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := pendingBooking(t, env)

	event := &gateway.Event{
		ID:               "evt_1",
		Type:             gateway.EventPaymentSucceeded,
		BookingReference: created.Booking.BookingReference,
	}

	require.NoError(t, deliver(env, event))
	assert.ErrorIs(t, deliver(env, event), apperrors.ErrAlreadyProcessed)

	assert.Equal(t, models.BookingPaid, env.store.bookingStatus(created.Booking.ID))
	tickets, err := env.tickets.ListByBooking(context.Background(), created.Booking.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestWebhookRedeliveryFinishesPartialSettlement(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := pendingBooking(t, env)

	event := &gateway.Event{
		ID:               "evt_1",
		Type:             gateway.EventPaymentSucceeded,
		BookingReference: created.Booking.BookingReference,
	}

	// The first delivery settles the booking but a storage fault stops
	// ticket issuance. The failure surfaces to the transport layer, so
	// the gateway redelivers instead of losing the event.
	env.tickets.failCreates = 1
	require.Error(t, deliver(env, event))
	assert.Equal(t, models.BookingPaid, env.store.bookingStatus(created.Booking.ID))

	require.NoError(t, deliver(env, event))
	tickets, err := env.tickets.ListByBooking(context.Background(), created.Booking.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	assert.ErrorIs(t, deliver(env, event), apperrors.ErrAlreadyProcessed)
}

func TestWebhookFailedRedeliveryReleasesHold(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := pendingBooking(t, env)
	require.Equal(t, 8, env.store.available(1))

	// A rollback that cancelled the booking but crashed before returning
	// the hold; the redelivery finishes the release.
	env.store.mu.Lock()
	env.store.bookings[created.Booking.ID].Status = models.BookingCancelled
	env.store.mu.Unlock()

	err := deliver(env, &gateway.Event{
		ID:               "evt_1",
		Type:             gateway.EventPaymentFailed,
		BookingReference: created.Booking.BookingReference,
		Reason:           "card declined",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, env.store.available(1))
}

func TestWebhookPaymentFailedReleasesHold(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := pendingBooking(t, env)
	assert.Equal(t, 8, env.store.available(1))

	err := deliver(env, &gateway.Event{
		ID:               "evt_1",
		Type:             gateway.EventPaymentFailed,
		BookingReference: created.Booking.BookingReference,
		Reason:           "card declined",
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingCancelled, env.store.bookingStatus(created.Booking.ID))
	assert.Equal(t, models.PaymentFailed, env.payments.status(created.Payment.ID))
	assert.Equal(t, 10, env.store.available(1))
}

func TestWebhookNeverResurrectsCancelledBooking(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := pendingBooking(t, env)

	_, err := env.services.Bookings.Cancel(context.Background(),
		created.Booking.BookingReference,
		&models.CancelBookingRequest{UserID: 7})
	require.NoError(t, err)

	// A late success notification must be acknowledged without undoing
	// the cancellation.
	err = deliver(env, &gateway.Event{
		ID:               "evt_late",
		Type:             gateway.EventPaymentSucceeded,
		BookingReference: created.Booking.BookingReference,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingCancelled, env.store.bookingStatus(created.Booking.ID))
	assert.Equal(t, 10, env.store.available(1))

	tickets, err := env.tickets.ListByBooking(context.Background(), created.Booking.ID)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestWebhookBadSignature(t *testing.T) {
	env := newTestEnv()
	env.card.webhookErr = apperrors.ErrBadSignature

	err := env.services.Webhooks.Handle(context.Background(), []byte(`{}`), "bogus")
	assert.ErrorIs(t, err, apperrors.ErrBadSignature)
}

func TestWebhookUnknownBookingAcked(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)

	err := deliver(env, &gateway.Event{
		ID:               "evt_1",
		Type:             gateway.EventPaymentSucceeded,
		BookingReference: "KK20260101DEADBEEF",
	})
	assert.NoError(t, err)
}

func TestWebhookDisputeKeepsBookingSettled(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)

	created, err := env.services.Bookings.Create(context.Background(), createRequest(1))
	require.NoError(t, err)
	require.Equal(t, models.BookingPaid, created.Booking.Status)

	err = deliver(env, &gateway.Event{
		ID:               "evt_dispute",
		Type:             gateway.EventDisputeCreated,
		BookingReference: created.Booking.BookingReference,
		Reason:           "fraudulent",
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingPaid, env.store.bookingStatus(created.Booking.ID))

	payment, err := env.payments.GetByID(context.Background(), created.Payment.ID)
	require.NoError(t, err)
	require.NotNil(t, payment.FailureReason)
	assert.Contains(t, *payment.FailureReason, "dispute")
}

func TestWebhookUnhandledTypeAcked(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := pendingBooking(t, env)

	err := deliver(env, &gateway.Event{
		ID:               "evt_1",
		Type:             "payment.chargeback_reversed",
		BookingReference: created.Booking.BookingReference,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.BookingPending, env.store.bookingStatus(created.Booking.ID))
}
