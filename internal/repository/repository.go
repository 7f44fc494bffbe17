package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

type Repositories struct {
	TicketTypes *TicketTypeRepository
	Bookings    *BookingRepository
	Payments    *PaymentRepository
	Tickets     *TicketRepository
	History     *HistoryRepository
	Events      *EventRepository
	Providers   *ProviderConfigRepository

	db *database.DB
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		TicketTypes: NewTicketTypeRepository(db),
		Bookings:    NewBookingRepository(db),
		Payments:    NewPaymentRepository(db),
		Tickets:     NewTicketRepository(db),
		History:     NewHistoryRepository(db),
		Events:      NewEventRepository(db),
		Providers:   NewProviderConfigRepository(db),
		db:          db,
	}
}

// Lookup helpers so the service layer can depend on one store facade.

func (r *Repositories) GetTicketType(ctx context.Context, id int64) (*models.TicketType, error) {
	return r.TicketTypes.GetByID(ctx, id)
}

func (r *Repositories) GetEventInfo(ctx context.Context, id int64) (*models.EventInfo, error) {
	return r.Events.GetInfo(ctx, id)
}

func (r *Repositories) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return r.Bookings.GetByID(ctx, id)
}

func (r *Repositories) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return r.Bookings.GetByReference(ctx, reference)
}

func (r *Repositories) ListExpiredBookings(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	return r.Bookings.ListExpired(ctx, cutoff, limit)
}

// CreateBookingWithHold takes the inventory hold, inserts the PENDING
// booking and its first audit entry in one transaction. Either all three
// commit or none do.
func (r *Repositories) CreateBookingWithHold(ctx context.Context, booking *models.Booking, changedBy string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.TicketTypes.ReserveTx(ctx, tx, booking.TicketTypeID, booking.Quantity); err != nil {
			return err
		}
		if err := r.Bookings.CreateTx(ctx, tx, booking); err != nil {
			return err
		}
		return r.History.AppendTx(ctx, tx, &models.BookingHistory{
			BookingID:    booking.ID,
			NewStatus:    string(booking.Status),
			ChangeReason: "created",
			ChangedBy:    changedBy,
		})
	})
}

// TransitionBooking applies one state-machine move plus its audit entry
// atomically. The compare-and-swap inside TransitionTx guarantees a total
// order of transitions per booking.
func (r *Repositories) TransitionBooking(ctx context.Context, booking *models.Booking, to models.BookingStatus, reason, changedBy string, confirmedAt *time.Time) error {
	from := booking.Status
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.Bookings.TransitionTx(ctx, tx, booking.ID, from, to, confirmedAt); err != nil {
			return err
		}
		prev := string(from)
		return r.History.AppendTx(ctx, tx, &models.BookingHistory{
			BookingID:      booking.ID,
			PreviousStatus: &prev,
			NewStatus:      string(to),
			ChangeReason:   reason,
			ChangedBy:      changedBy,
		})
	})
	if err != nil {
		return err
	}

	booking.Status = to
	if confirmedAt != nil {
		booking.ConfirmationDate = confirmedAt
	}
	return nil
}

// ReleaseHold returns a booking's reserved quantity to the pool. The
// released guard on the booking row makes the operation idempotent per
// booking, so retried cancellations cannot inflate the pool.
func (r *Repositories) ReleaseHold(ctx context.Context, booking *models.Booking) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		released, err := r.Bookings.MarkInventoryReleasedTx(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		if !released {
			return nil
		}
		return r.TicketTypes.ReleaseTx(ctx, tx, booking.TicketTypeID, booking.Quantity)
	})
}
