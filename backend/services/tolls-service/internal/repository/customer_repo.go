package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	libdb "takeatoll/backend/libs/db"
	"takeatoll/backend/services/tolls-service/internal/models"
)

// CustomerRepository handles the customers table.
type CustomerRepository struct {
	db *sql.DB
}

// NewCustomerRepository returns repository instance.
func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// CreateCustomer inserts a new customer. Duplicate emails yield ErrConflict.
func (r *CustomerRepository) CreateCustomer(ctx context.Context, c *models.Customer) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	const query = `
		INSERT INTO customers (first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, c.FirstName, c.LastName, c.Email, c.PasswordHash).
		Scan(&c.ID, &c.CreatedAt)
	if libdb.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// GetByEmail fetches a customer by email.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	const query = `
		SELECT id, first_name, last_name, email, password_hash, created_at
		FROM customers
		WHERE email = $1
		LIMIT 1
	`
	var c models.Customer
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
