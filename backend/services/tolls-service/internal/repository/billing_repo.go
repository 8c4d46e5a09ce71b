package repository

import (
	"context"
	"database/sql"
	"time"

	"takeatoll/backend/services/tolls-service/internal/models"
)

// BillingRepository runs the billing aggregate query.
type BillingRepository struct {
	db *sql.DB
}

// NewBillingRepository returns repository.
func NewBillingRepository(db *sql.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// SumCostByCustomer totals priced segments with updated_at in [from, to). Rows come from
// passthroughs only, so customers without segments never appear, and open segments (NULL cost)
// are skipped rather than counted as zero.
func (r *BillingRepository) SumCostByCustomer(ctx context.Context, from, to time.Time) ([]models.BillingTotal, error) {
	const query = `
		SELECT p.customer_id, SUM(p.cost) AS amount_due
		FROM passthroughs p
		WHERE p.updated_at >= $1
		  AND p.updated_at < $2
		  AND p.cost IS NOT NULL
		GROUP BY p.customer_id
		ORDER BY p.customer_id
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.BillingTotal
	for rows.Next() {
		var t models.BillingTotal
		if err := rows.Scan(&t.CustomerID, &t.AmountDue); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}
