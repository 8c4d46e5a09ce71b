package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"takeatoll/backend/services/tolls-service/internal/models"
)

// TransponderRepository resolves toll tags.
type TransponderRepository struct {
	db *sql.DB
}

// NewTransponderRepository returns repository.
func NewTransponderRepository(db *sql.DB) *TransponderRepository {
	return &TransponderRepository{db: db}
}

// FindBySerial returns the transponder with the given serial number or ErrNotFound.
func (r *TransponderRepository) FindBySerial(ctx context.Context, serial string) (*models.Transponder, error) {
	const query = `
		SELECT serial_number, customer_id, created_at
		FROM transponders
		WHERE serial_number = $1
	`
	var t models.Transponder
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(serial)).Scan(&t.SerialNumber, &t.CustomerID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTransponder assigns a serial number to a customer.
func (r *TransponderRepository) UpsertTransponder(ctx context.Context, t *models.Transponder) error {
	const query = `
		INSERT INTO transponders (serial_number, customer_id)
		VALUES ($1, $2)
		ON CONFLICT (serial_number) DO UPDATE SET customer_id = EXCLUDED.customer_id
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query, strings.TrimSpace(t.SerialNumber), t.CustomerID).Scan(&t.CreatedAt)
}
