package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

func paidBooking(t *testing.T, env *testEnv) *models.CreateBookingResponse {
	t.Helper()
	created, err := env.services.Bookings.Create(context.Background(), createRequest(2))
	require.NoError(t, err)
	require.Equal(t, models.BookingPaid, created.Booking.Status)
	return created
}

func TestIssueIsIdempotent(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := paidBooking(t, env)

	booking, err := env.store.GetBooking(context.Background(), created.Booking.ID)
	require.NoError(t, err)

	// A duplicate settlement signal must not mint extra tickets.
	issued, err := env.services.Tickets.Issue(context.Background(), booking)
	require.NoError(t, err)
	assert.Len(t, issued, 2)

	count, err := env.tickets.CountByBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIssueSetsValidityWindow(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := paidBooking(t, env)

	event, err := env.store.GetEventInfo(context.Background(), 1)
	require.NoError(t, err)

	for _, ticket := range created.Tickets {
		assert.Equal(t, models.TicketActive, ticket.Status)
		assert.Equal(t, "Ana Horvat", ticket.HolderName)
		assert.WithinDuration(t, event.Date.Add(24*time.Hour), ticket.ValidUntil, time.Second)
		assert.True(t, ticket.ValidFrom.Before(ticket.ValidUntil))
	}
}

func TestValidateTicketChecksIn(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := paidBooking(t, env)
	number := created.Tickets[0].TicketNumber

	resp, err := env.services.Tickets.Validate(context.Background(), &models.ValidateTicketRequest{
		TicketNumber: number,
		Location:     "gate A",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ValidationValid, resp.Status)
	assert.Equal(t, number, resp.TicketNumber)
	assert.NotNil(t, resp.CheckInTime)

	stored, err := env.tickets.GetByNumber(context.Background(), number)
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, stored.Status)
	require.NotNil(t, stored.CheckInLocation)
	assert.Equal(t, "gate A", *stored.CheckInLocation)
}

func TestValidateTicketSecondScanAlreadyUsed(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := paidBooking(t, env)
	number := created.Tickets[0].TicketNumber

	req := &models.ValidateTicketRequest{TicketNumber: number, Location: "gate A"}

	first, err := env.services.Tickets.Validate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.ValidationValid, first.Status)

	second, err := env.services.Tickets.Validate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.ValidationAlreadyUsed, second.Status)
	assert.NotNil(t, second.CheckInTime)
}

func TestValidateTicketConcurrentScansSingleWinner(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := paidBooking(t, env)
	number := created.Tickets[0].TicketNumber

	const scanners = 8
	var wg sync.WaitGroup
	results := make(chan string, scanners)

	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := env.services.Tickets.Validate(context.Background(), &models.ValidateTicketRequest{
				TicketNumber: number,
			})
			if err != nil {
				results <- "error"
				return
			}
			results <- resp.Status
		}()
	}
	wg.Wait()
	close(results)

	valid := 0
	for status := range results {
		switch status {
		case models.ValidationValid:
			valid++
		case models.ValidationAlreadyUsed:
		default:
			t.Fatalf("unexpected validation status %q", status)
		}
	}
	assert.Equal(t, 1, valid)
}

func TestValidateUnknownTicket(t *testing.T) {
	env := newTestEnv()

	resp, err := env.services.Tickets.Validate(context.Background(), &models.ValidateTicketRequest{
		TicketNumber: "TKT20260101000000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ValidationInvalid, resp.Status)
}

func TestValidateCancelledTicket(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := paidBooking(t, env)
	number := created.Tickets[0].TicketNumber

	require.NoError(t, env.tickets.CancelByBooking(context.Background(), created.Booking.ID))

	resp, err := env.services.Tickets.Validate(context.Background(), &models.ValidateTicketRequest{
		TicketNumber: number,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ValidationInvalid, resp.Status)
}

func TestValidateTicketOutsideWindow(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := paidBooking(t, env)
	number := created.Tickets[0].TicketNumber

	env.tickets.mu.Lock()
	env.tickets.tickets[number].ValidFrom = time.Now().Add(time.Hour)
	env.tickets.mu.Unlock()

	resp, err := env.services.Tickets.Validate(context.Background(), &models.ValidateTicketRequest{
		TicketNumber: number,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ValidationNotYetValid, resp.Status)

	env.tickets.mu.Lock()
	env.tickets.tickets[number].ValidFrom = time.Now().Add(-2 * time.Hour)
	env.tickets.tickets[number].ValidUntil = time.Now().Add(-time.Hour)
	env.tickets.mu.Unlock()

	resp, err = env.services.Tickets.Validate(context.Background(), &models.ValidateTicketRequest{
		TicketNumber: number,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ValidationExpired, resp.Status)
}

func TestValidationPayload(t *testing.T) {
	env := newTestEnv()
	seedEvent(env.store, 10)
	created := paidBooking(t, env)

	payload := env.services.Tickets.Payload(&created.Tickets[0], created.Booking)
	assert.Equal(t, created.Tickets[0].TicketNumber, payload.TicketNumber)
	assert.Equal(t, created.Booking.BookingReference, payload.BookingReference)
	assert.Equal(t, created.Booking.EventID, payload.EventID)
	assert.Equal(t, "Ana Horvat", payload.HolderName)
}
