package models

import "time"

// Segment is a passthrough between an entrance station and an exit station.
// It is open while EndStationID is nil.
type Segment struct {
	ID             int64     `db:"id" json:"id"`
	TransponderSN  string    `db:"transponder_sn" json:"transponder_sn"`
	CustomerID     int64     `db:"customer_id" json:"customer_id"`
	StartStationID int64     `db:"start_station_id" json:"start_station_id"`
	EndStationID   *int64    `db:"end_station_id" json:"end_station_id"`
	Cost           *float64  `db:"cost" json:"cost"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the segment still waits for an exit.
func (s *Segment) IsOpen() bool {
	return s.EndStationID == nil
}

// OpenSegmentFilter narrows the open segment search. An empty TransponderSN matches every
// open segment.
type OpenSegmentFilter struct {
	TransponderSN string
}

// Matches reports whether seg is open and passes the filter.
func (f OpenSegmentFilter) Matches(seg *Segment) bool {
	if !seg.IsOpen() {
		return false
	}
	return f.TransponderSN == "" || seg.TransponderSN == f.TransponderSN
}

// SegmentEventKind labels live feed events.
type SegmentEventKind string

const (
	SegmentOpened SegmentEventKind = "opened"
	SegmentClosed SegmentEventKind = "closed"
)

// SegmentEvent is published after a ledger transaction commits.
type SegmentEvent struct {
	Kind    SegmentEventKind `json:"kind"`
	Segment Segment          `json:"segment"`
	At      time.Time        `json:"at"`
}
