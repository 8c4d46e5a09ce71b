package models

import "time"

// BillingTotal is the amount due by one customer over a billing period.
type BillingTotal struct {
	CustomerID int64   `db:"customer_id" json:"customer_id"`
	AmountDue  float64 `db:"amount_due" json:"amount_due"`
}

// BillingStatement lists per-customer totals for a period, ordered by customer id.
type BillingStatement struct {
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Lines       []BillingTotal `json:"lines"`
	Total       float64        `json:"total"`
	GeneratedAt time.Time      `json:"generated_at"`
}
