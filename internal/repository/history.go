package repository

import (
	"context"
	"database/sql"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// HistoryRepository is the append-only audit log. Rows are never updated
// or deleted.
type HistoryRepository struct {
	db *database.DB
}

func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) AppendTx(ctx context.Context, tx *sql.Tx, entry *models.BookingHistory) error {
	query := `
		INSERT INTO booking_history (booking_id, previous_status, new_status, change_reason, changed_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return tx.QueryRowContext(ctx, query,
		entry.BookingID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ChangeReason,
		entry.ChangedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *HistoryRepository) ListByBooking(ctx context.Context, bookingID int64) ([]models.BookingHistory, error) {
	query := `
		SELECT id, booking_id, previous_status, new_status, change_reason, changed_by, created_at
		FROM booking_history
		WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.BookingHistory
	for rows.Next() {
		var e models.BookingHistory
		err := rows.Scan(
			&e.ID,
			&e.BookingID,
			&e.PreviousStatus,
			&e.NewStatus,
			&e.ChangeReason,
			&e.ChangedBy,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
