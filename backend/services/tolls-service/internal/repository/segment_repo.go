package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	libdb "takeatoll/backend/libs/db"
	"takeatoll/backend/services/tolls-service/internal/models"
)

const segmentColumns = `id, transponder_sn, customer_id, start_station_id, end_station_id, cost, created_at, updated_at`

// SegmentTx is the set of segment writes available inside a ledger transaction.
type SegmentTx interface {
	// LockOpen returns the open segments matching filter, most recently updated first,
	// locked until the transaction ends.
	LockOpen(ctx context.Context, filter models.OpenSegmentFilter) ([]models.Segment, error)
	// CloseOpen sets the end station on every open segment matching filter.
	CloseOpen(ctx context.Context, filter models.OpenSegmentFilter, endStationID int64) (int64, error)
	// SetCost stores the computed cost of a segment.
	SetCost(ctx context.Context, id int64, cost float64) error
	// Insert stores a new open segment and fills in its identifier.
	Insert(ctx context.Context, seg *models.Segment) error

	// FindByID and GetOption read pricing inputs on the transaction's own connection.
	FindByID(ctx context.Context, id int64) (*models.Station, error)
	GetOption(ctx context.Context, name string) (*models.ConfigurationOption, error)
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SegmentRepository persists passthroughs.
type SegmentRepository struct {
	db *sql.DB
}

// NewSegmentRepository returns repository.
func NewSegmentRepository(db *sql.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// WithinTx runs fn in a transaction serialized on lockKey through a Postgres advisory lock.
func (r *SegmentRepository) WithinTx(ctx context.Context, lockKey string, fn func(SegmentTx) error) error {
	return libdb.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("segments: lock %q: %w", lockKey, err)
		}
		return fn(&segmentTx{q: tx})
	})
}

// GetSegment returns a segment or ErrNotFound.
func (r *SegmentRepository) GetSegment(ctx context.Context, id int64) (*models.Segment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+segmentColumns+` FROM passthroughs WHERE id = $1`, id)
	seg, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return seg, err
}

// Delete removes a segment.
func (r *SegmentRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM passthroughs WHERE id = $1`, id)
	return err
}

type segmentTx struct {
	q queryer
}

func (t *segmentTx) LockOpen(ctx context.Context, filter models.OpenSegmentFilter) ([]models.Segment, error) {
	where, args := openClause(filter, 1)
	query := `SELECT ` + segmentColumns + ` FROM passthroughs WHERE ` + where + `
		ORDER BY updated_at DESC, id DESC
		FOR UPDATE`

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, *seg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

func (t *segmentTx) CloseOpen(ctx context.Context, filter models.OpenSegmentFilter, endStationID int64) (int64, error) {
	where, args := openClause(filter, 2)
	result, err := t.q.ExecContext(ctx, `UPDATE passthroughs SET end_station_id = $1 WHERE `+where,
		append([]any{endStationID}, args...)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (t *segmentTx) SetCost(ctx context.Context, id int64, cost float64) error {
	result, err := t.q.ExecContext(ctx, `UPDATE passthroughs SET cost = $2 WHERE id = $1`, id, cost)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *segmentTx) Insert(ctx context.Context, seg *models.Segment) error {
	const query = `
		INSERT INTO passthroughs (transponder_sn, customer_id, start_station_id, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return t.q.QueryRowContext(ctx, query,
		seg.TransponderSN,
		seg.CustomerID,
		seg.StartStationID,
		seg.UpdatedAt,
	).Scan(&seg.ID, &seg.CreatedAt)
}

func (t *segmentTx) FindByID(ctx context.Context, id int64) (*models.Station, error) {
	return findStation(ctx, t.q, id)
}

func (t *segmentTx) GetOption(ctx context.Context, name string) (*models.ConfigurationOption, error) {
	return getOption(ctx, t.q, name)
}

func openClause(filter models.OpenSegmentFilter, firstArg int) (string, []any) {
	if filter.TransponderSN == "" {
		return `end_station_id IS NULL`, nil
	}
	return fmt.Sprintf(`end_station_id IS NULL AND transponder_sn = $%d`, firstArg), []any{filter.TransponderSN}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSegment(row rowScanner) (*models.Segment, error) {
	var (
		seg     models.Segment
		endID   sql.NullInt64
		costVal sql.NullFloat64
	)
	if err := row.Scan(
		&seg.ID,
		&seg.TransponderSN,
		&seg.CustomerID,
		&seg.StartStationID,
		&endID,
		&costVal,
		&seg.CreatedAt,
		&seg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if endID.Valid {
		v := endID.Int64
		seg.EndStationID = &v
	}
	if costVal.Valid {
		v := costVal.Float64
		seg.Cost = &v
	}
	return &seg, nil
}
