package repository

import (
	"context"
	"database/sql"
	"errors"

	"takeatoll/backend/services/tolls-service/internal/models"
)

// ConfigOptionRepository reads the configuration_options table.
type ConfigOptionRepository struct {
	db *sql.DB
}

// NewConfigOptionRepository returns repository.
func NewConfigOptionRepository(db *sql.DB) *ConfigOptionRepository {
	return &ConfigOptionRepository{db: db}
}

// GetOption returns the option or ErrNotFound.
func (r *ConfigOptionRepository) GetOption(ctx context.Context, name string) (*models.ConfigurationOption, error) {
	return getOption(ctx, r.db, name)
}

func getOption(ctx context.Context, q queryer, name string) (*models.ConfigurationOption, error) {
	const query = `SELECT name, value FROM configuration_options WHERE name = $1`
	var opt models.ConfigurationOption
	err := q.QueryRowContext(ctx, query, name).Scan(&opt.Name, &opt.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &opt, nil
}

// SetOption creates or replaces an option.
func (r *ConfigOptionRepository) SetOption(ctx context.Context, name, value string) error {
	const query = `
		INSERT INTO configuration_options (name, value)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
	`
	_, err := r.db.ExecContext(ctx, query, name, value)
	return err
}
