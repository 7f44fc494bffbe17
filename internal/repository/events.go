package repository

import (
	"context"
	"database/sql"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// EventRepository reads the catalog subsystem's events table. The
// reservation engine only needs a small projection and never writes.
type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) GetInfo(ctx context.Context, id int64) (*models.EventInfo, error) {
	e := &models.EventInfo{}
	query := `
		SELECT id, title, date, organizer_generated, platform_commission_rate
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID,
		&e.Title,
		&e.Date,
		&e.OrganizerGenerated,
		&e.PlatformCommissionRate,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return e, err
}
