package repository

import (
	"context"
	"database/sql"
	"errors"

	"takeatoll/backend/services/tolls-service/internal/models"
)

// StationRepository reads and writes toll stations.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// FindByID returns a station or ErrNotFound.
func (r *StationRepository) FindByID(ctx context.Context, id int64) (*models.Station, error) {
	return findStation(ctx, r.db, id)
}

func findStation(ctx context.Context, q queryer, id int64) (*models.Station, error) {
	const query = `
		SELECT id, name, lat, lng, created_at
		FROM stations
		WHERE id = $1
	`
	var s models.Station
	err := q.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.Lat, &s.Lng, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertStation stores a station. A zero ID lets the database assign one.
func (r *StationRepository) UpsertStation(ctx context.Context, station *models.Station) error {
	if station.ID == 0 {
		const insert = `
			INSERT INTO stations (name, lat, lng)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`
		return r.db.QueryRowContext(ctx, insert, station.Name, station.Lat, station.Lng).
			Scan(&station.ID, &station.CreatedAt)
	}

	const upsert = `
		INSERT INTO stations (id, name, lat, lng)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, upsert, station.ID, station.Name, station.Lat, station.Lng).
		Scan(&station.CreatedAt); err != nil {
		return err
	}

	// explicit ids bypass the sequence
	const bump = `SELECT setval(pg_get_serial_sequence('stations', 'id'), GREATEST((SELECT MAX(id) FROM stations), 1))`
	_, err := r.db.ExecContext(ctx, bump)
	return err
}
