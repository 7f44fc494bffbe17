package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// ErrDuplicateReference signals a booking_reference collision; the caller
// regenerates the reference and retries.
var ErrDuplicateReference = errors.New("duplicate booking reference")

const bookingColumns = `id, booking_reference, user_id, event_id, ticket_type_id, quantity,
	unit_price, total_price, currency, platform_commission_rate,
	platform_commission_amount, organizer_revenue, status, payment_method,
	customer_name, customer_email, customer_phone, expiry_date,
	confirmation_date, inventory_released, created_at, updated_at`

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID,
		&b.BookingReference,
		&b.UserID,
		&b.EventID,
		&b.TicketTypeID,
		&b.Quantity,
		&b.UnitPrice,
		&b.TotalPrice,
		&b.Currency,
		&b.PlatformCommissionRate,
		&b.PlatformCommissionAmount,
		&b.OrganizerRevenue,
		&b.Status,
		&b.PaymentMethod,
		&b.CustomerName,
		&b.CustomerEmail,
		&b.CustomerPhone,
		&b.ExpiryDate,
		&b.ConfirmationDate,
		&b.InventoryReleased,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

// CreateTx inserts a PENDING booking inside the reservation transaction.
func (r *BookingRepository) CreateTx(ctx context.Context, tx *sql.Tx, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (booking_reference, user_id, event_id, ticket_type_id, quantity,
		                      unit_price, total_price, currency, platform_commission_rate,
		                      platform_commission_amount, organizer_revenue, status, payment_method,
		                      customer_name, customer_email, customer_phone, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRowContext(ctx, query,
		booking.BookingReference,
		booking.UserID,
		booking.EventID,
		booking.TicketTypeID,
		booking.Quantity,
		booking.UnitPrice,
		booking.TotalPrice,
		booking.Currency,
		booking.PlatformCommissionRate,
		booking.PlatformCommissionAmount,
		booking.OrganizerRevenue,
		booking.Status,
		booking.PaymentMethod,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.CustomerPhone,
		booking.ExpiryDate,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateReference
	}
	return err
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.db.QueryRowContext(ctx, query, id))
}

func (r *BookingRepository) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_reference = $1`
	return scanBooking(r.db.QueryRowContext(ctx, query, reference))
}

// TransitionTx moves a booking from one status to another with an optimistic
// compare-and-swap. Zero rows affected means another writer got there first.
func (r *BookingRepository) TransitionTx(ctx context.Context, tx *sql.Tx, id int64, from, to models.BookingStatus, confirmedAt *time.Time) error {
	query := `
		UPDATE bookings
		SET status = $3,
		    confirmation_date = COALESCE($4, confirmation_date),
		    updated_at = NOW()
		WHERE id = $1 AND status = $2`

	res, err := tx.ExecContext(ctx, query, id, from, to, confirmedAt)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrConcurrencyConflict
	}
	return nil
}

// MarkInventoryReleasedTx flips the released guard. It reports false when
// the guard was already set, which makes duplicate releases harmless.
func (r *BookingRepository) MarkInventoryReleasedTx(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	query := `
		UPDATE bookings
		SET inventory_released = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT inventory_released`

	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark inventory released: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListExpired returns PENDING bookings whose hold lapsed before the cutoff.
func (r *BookingRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'PENDING' AND expiry_date < $1
		ORDER BY expiry_date ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}

	return bookings, rows.Err()
}
