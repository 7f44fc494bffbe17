package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// TicketTypeRepository is the inventory ledger. It is the only component
// allowed to touch available_quantity, and it only ever does so through
// single conditional updates.
type TicketTypeRepository struct {
	db *database.DB
}

func NewTicketTypeRepository(db *database.DB) *TicketTypeRepository {
	return &TicketTypeRepository{db: db}
}

func (r *TicketTypeRepository) GetByID(ctx context.Context, id int64) (*models.TicketType, error) {
	tt := &models.TicketType{}
	query := `
		SELECT id, event_id, name, description, price, currency,
		       total_quantity, available_quantity, min_purchase, max_purchase,
		       sale_start, sale_end, external_provider, external_event_id,
		       is_active, created_at, updated_at
		FROM ticket_types
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.Description,
		&tt.Price,
		&tt.Currency,
		&tt.TotalQuantity,
		&tt.AvailableQuantity,
		&tt.MinPurchase,
		&tt.MaxPurchase,
		&tt.SaleStart,
		&tt.SaleEnd,
		&tt.ExternalProvider,
		&tt.ExternalEventID,
		&tt.IsActive,
		&tt.CreatedAt,
		&tt.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return tt, err
}

// ReserveTx decrements available_quantity by qty as a single conditional
// update. Zero rows affected means the pool is short, which closes the
// check-then-decrement race: there is no separate read.
func (r *TicketTypeRepository) ReserveTx(ctx context.Context, tx *sql.Tx, ticketTypeID int64, qty int) error {
	query := `
		UPDATE ticket_types
		SET available_quantity = available_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND is_active AND available_quantity >= $2`

	res, err := tx.ExecContext(ctx, query, ticketTypeID, qty)
	if err != nil {
		return fmt.Errorf("failed to reserve inventory: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrInsufficientInventory
	}
	return nil
}

// ReleaseTx returns qty to the pool, clamped so the result never exceeds
// total_quantity. The per-booking released guard lives on the booking row;
// the clamp here only defends the ledger invariant itself.
func (r *TicketTypeRepository) ReleaseTx(ctx context.Context, tx *sql.Tx, ticketTypeID int64, qty int) error {
	query := `
		UPDATE ticket_types
		SET available_quantity = LEAST(available_quantity + $2, total_quantity), updated_at = NOW()
		WHERE id = $1`

	res, err := tx.ExecContext(ctx, query, ticketTypeID, qty)
	if err != nil {
		return fmt.Errorf("failed to release inventory: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Reserve runs ReserveTx in its own short transaction.
func (r *TicketTypeRepository) Reserve(ctx context.Context, ticketTypeID int64, qty int) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return r.ReserveTx(ctx, tx, ticketTypeID, qty)
	})
}
