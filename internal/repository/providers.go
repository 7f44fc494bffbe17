package repository

import (
	"context"
	"database/sql"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/database"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// ProviderConfigRepository reads external ticket-provider credentials.
type ProviderConfigRepository struct {
	db *database.DB
}

func NewProviderConfigRepository(db *database.DB) *ProviderConfigRepository {
	return &ProviderConfigRepository{db: db}
}

func (r *ProviderConfigRepository) GetEnabledByName(ctx context.Context, name string) (*models.ExternalProviderConfig, error) {
	cfg := &models.ExternalProviderConfig{}
	query := `
		SELECT id, name, api_base_url, api_key, is_enabled, created_at
		FROM external_providers
		WHERE name = $1 AND is_enabled`

	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&cfg.ID,
		&cfg.Name,
		&cfg.APIBaseURL,
		&cfg.APIKey,
		&cfg.IsEnabled,
		&cfg.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return cfg, err
}
