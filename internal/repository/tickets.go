package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// ErrDuplicateTicketNumber signals a ticket_number collision; the issuer
// regenerates the number and retries.
var ErrDuplicateTicketNumber = errors.New("duplicate ticket number")

const ticketColumns = `id, booking_id, ticket_number, status, holder_name, holder_email,
	valid_from, valid_until, check_in_time, check_in_location, created_at, updated_at`

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func scanTicket(row interface{ Scan(...any) error }) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := row.Scan(
		&t.ID,
		&t.BookingID,
		&t.TicketNumber,
		&t.Status,
		&t.HolderName,
		&t.HolderEmail,
		&t.ValidFrom,
		&t.ValidUntil,
		&t.CheckInTime,
		&t.CheckInLocation,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (booking_id, ticket_number, status, holder_name, holder_email, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		ticket.BookingID,
		ticket.TicketNumber,
		ticket.Status,
		ticket.HolderName,
		ticket.HolderEmail,
		ticket.ValidFrom,
		ticket.ValidUntil,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateTicketNumber
	}
	return err
}

func (r *TicketRepository) CountByBooking(ctx context.Context, bookingID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE booking_id = $1`, bookingID).Scan(&count)
	return count, err
}

func (r *TicketRepository) ListByBooking(ctx context.Context, bookingID int64) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE booking_id = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}

	return tickets, rows.Err()
}

func (r *TicketRepository) GetByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number = $1`
	return scanTicket(r.db.QueryRowContext(ctx, query, ticketNumber))
}

// CheckIn marks an ACTIVE ticket USED in one atomic check-and-set. It
// reports false when the ticket was not in a checkable state, in which case
// the caller re-reads to classify the rejection.
func (r *TicketRepository) CheckIn(ctx context.Context, ticketNumber, location string, now time.Time) (bool, error) {
	query := `
		UPDATE tickets
		SET status = 'USED', check_in_time = $2, check_in_location = $3, updated_at = NOW()
		WHERE ticket_number = $1 AND status = 'ACTIVE' AND check_in_time IS NULL
		  AND valid_from <= $2 AND valid_until >= $2`

	res, err := r.db.ExecContext(ctx, query, ticketNumber, now, location)
	if err != nil {
		return false, fmt.Errorf("failed to check in ticket: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CancelByBooking cascades a booking cancellation to its tickets. Already
// used tickets keep their USED state for the audit trail.
func (r *TicketRepository) CancelByBooking(ctx context.Context, bookingID int64) error {
	query := `
		UPDATE tickets
		SET status = 'CANCELLED', updated_at = NOW()
		WHERE booking_id = $1 AND status = 'ACTIVE'`

	_, err := r.db.ExecContext(ctx, query, bookingID)
	return err
}
