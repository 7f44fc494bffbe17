package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingTransitions(t *testing.T) {
	assert.True(t, BookingPending.CanTransition(BookingPaid))
	assert.True(t, BookingPending.CanTransition(BookingCancelled))
	assert.True(t, BookingPending.CanTransition(BookingExpired))
	assert.True(t, BookingPaid.CanTransition(BookingCancelled))
	assert.True(t, BookingPaid.CanTransition(BookingRefunded))

	assert.False(t, BookingPending.CanTransition(BookingRefunded))
	assert.False(t, BookingPaid.CanTransition(BookingExpired))
	assert.False(t, BookingExpired.CanTransition(BookingPaid))
	assert.False(t, BookingCancelled.CanTransition(BookingPaid))
	assert.False(t, BookingRefunded.CanTransition(BookingPending))
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []BookingStatus{BookingCancelled, BookingRefunded, BookingExpired} {
		assert.True(t, terminal.Terminal(), "expected %s to be terminal", terminal)
		for _, to := range []BookingStatus{BookingPending, BookingPaid, BookingCancelled, BookingRefunded, BookingExpired} {
			assert.False(t, terminal.CanTransition(to))
		}
	}
	assert.False(t, BookingPending.Terminal())
	assert.False(t, BookingPaid.Terminal())
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, PaymentPending.CanTransition(PaymentProcessing))
	assert.True(t, PaymentProcessing.CanTransition(PaymentCompleted))
	assert.True(t, PaymentProcessing.CanTransition(PaymentFailed))
	assert.True(t, PaymentCompleted.CanTransition(PaymentRefunded))
	assert.True(t, PaymentCompleted.CanTransition(PaymentPartiallyRefunded))

	assert.False(t, PaymentFailed.CanTransition(PaymentCompleted))
	assert.False(t, PaymentRefunded.CanTransition(PaymentCompleted))
}

func TestHoldExpired(t *testing.T) {
	now := time.Now()
	b := &Booking{Status: BookingPending, ExpiryDate: now.Add(-time.Minute)}
	assert.True(t, b.HoldExpired(now))

	b.ExpiryDate = now.Add(time.Minute)
	assert.False(t, b.HoldExpired(now))

	// Only PENDING bookings hold inventory.
	b.Status = BookingPaid
	b.ExpiryDate = now.Add(-time.Minute)
	assert.False(t, b.HoldExpired(now))
}

func TestSaleOpenAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tt := &TicketType{}
	assert.True(t, tt.SaleOpenAt(now))

	tt.SaleStart = &past
	tt.SaleEnd = &future
	assert.True(t, tt.SaleOpenAt(now))

	tt.SaleStart = &future
	tt.SaleEnd = nil
	assert.False(t, tt.SaleOpenAt(now))

	tt.SaleStart = nil
	tt.SaleEnd = &past
	assert.False(t, tt.SaleOpenAt(now))
}
