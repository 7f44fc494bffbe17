package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

const paymentColumns = `id, booking_id, payment_reference, amount, currency, method, status,
	external_payment_id, last_event_id, gateway_response, failure_reason,
	refund_id, refund_amount, refund_reason, refunded_at, created_at, updated_at`

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.PaymentReference,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&p.Status,
		&p.ExternalPaymentID,
		&p.LastEventID,
		&p.GatewayResponse,
		&p.FailureReason,
		&p.RefundID,
		&p.RefundAmount,
		&p.RefundReason,
		&p.RefundedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (booking_id, payment_reference, amount, currency, method, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		payment.BookingID,
		payment.PaymentReference,
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateReference
	}
	return err
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.db.QueryRowContext(ctx, query, id))
}

func (r *PaymentRepository) ListByBookingID(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}

	return payments, rows.Err()
}

// LatestCompleted returns the most recent COMPLETED payment for a booking,
// the one a refund must target.
func (r *PaymentRepository) LatestCompleted(ctx context.Context, bookingID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1 AND status = 'COMPLETED'
		ORDER BY created_at DESC
		LIMIT 1`
	return scanPayment(r.db.QueryRowContext(ctx, query, bookingID))
}

// Transition moves a payment between statuses with a compare-and-swap on
// the current status.
func (r *PaymentRepository) Transition(ctx context.Context, id int64, from, to models.PaymentStatus) error {
	query := `UPDATE payments SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrConcurrencyConflict
	}
	return nil
}

// RecordGatewayResult stores the gateway outcome on the payment row.
func (r *PaymentRepository) RecordGatewayResult(ctx context.Context, id int64, status models.PaymentStatus, externalID, gatewayResponse, failureReason *string) error {
	query := `
		UPDATE payments
		SET status = $2,
		    external_payment_id = COALESCE($3, external_payment_id),
		    gateway_response = COALESCE($4, gateway_response),
		    failure_reason = COALESCE($5, failure_reason),
		    updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status, externalID, gatewayResponse, failureReason)
	return err
}

// ApplyEvent records the gateway event id as last applied. It reports false
// when the same event id is already stored, which is how duplicate webhook
// deliveries are skipped.
func (r *PaymentRepository) ApplyEvent(ctx context.Context, id int64, eventID string) (bool, error) {
	query := `
		UPDATE payments
		SET last_event_id = $2, updated_at = NOW()
		WHERE id = $1 AND (last_event_id IS NULL OR last_event_id <> $2)`

	res, err := r.db.ExecContext(ctx, query, id, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to record gateway event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkRefunded records refund details against a payment that is COMPLETED
// or already claimed into the target refund status.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, id int64, refundID string, amount decimal.Decimal, reason string, partial bool) error {
	to := models.PaymentRefunded
	if partial {
		to = models.PaymentPartiallyRefunded
	}

	query := `
		UPDATE payments
		SET status = $2, refund_id = $3, refund_amount = $4, refund_reason = $5,
		    refunded_at = $6, updated_at = NOW()
		WHERE id = $1 AND (status = 'COMPLETED' OR status = $2)`

	res, err := r.db.ExecContext(ctx, query, id, to, refundID, amount, reason, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark payment refunded: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrConcurrencyConflict
	}
	return nil
}
