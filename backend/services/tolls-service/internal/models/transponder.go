package models

import "time"

// Transponder is the toll tag carried by a vehicle. Each one belongs to a single customer.
type Transponder struct {
	SerialNumber string    `db:"serial_number" json:"serial_number"`
	CustomerID   int64     `db:"customer_id" json:"customer_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
