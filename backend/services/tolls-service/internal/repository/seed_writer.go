package repository

import "database/sql"

// SeedWriter groups the repositories a fixture writes to.
type SeedWriter struct {
	*StationRepository
	*CustomerRepository
	*TransponderRepository
	*ConfigOptionRepository
}

// NewSeedWriter returns a writer over db.
func NewSeedWriter(db *sql.DB) *SeedWriter {
	return &SeedWriter{
		StationRepository:      NewStationRepository(db),
		CustomerRepository:     NewCustomerRepository(db),
		TransponderRepository:  NewTransponderRepository(db),
		ConfigOptionRepository: NewConfigOptionRepository(db),
	}
}
