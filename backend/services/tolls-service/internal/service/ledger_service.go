package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"takeatoll/backend/libs/metrics"
	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/repository"
)

// OpenSegmentScope decides which open segments an event at a station may close.
type OpenSegmentScope string

const (
	// ScopeGlobal closes any open segment, whichever transponder opened it.
	ScopeGlobal OpenSegmentScope = "global"
	// ScopeTransponder only closes segments opened by the same transponder.
	ScopeTransponder OpenSegmentScope = "transponder"
)

const globalLockKey = "passthroughs:open"

// ParseOpenSegmentScope validates a configured scope. Empty means ScopeGlobal.
func ParseOpenSegmentScope(raw string) (OpenSegmentScope, error) {
	switch OpenSegmentScope(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeTransponder:
		return ScopeTransponder, nil
	default:
		return "", fmt.Errorf("ledger: unknown open segment scope %q", raw)
	}
}

// SegmentStore runs ledger transactions.
type SegmentStore interface {
	WithinTx(ctx context.Context, lockKey string, fn func(repository.SegmentTx) error) error
}

// SegmentCoster prices a segment between two stations using the given lookups.
type SegmentCoster interface {
	CostWithin(ctx context.Context, lookups CostLookups, startStationID, endStationID int64) (float64, error)
}

// SegmentPublisher receives ledger events after commit.
type SegmentPublisher interface {
	Publish(event models.SegmentEvent)
}

// ExitResult reports what an exit event did.
type ExitResult struct {
	Closed  bool            `json:"closed"`
	Cost    *float64        `json:"cost,omitempty"`
	Segment *models.Segment `json:"segment,omitempty"`
}

type closedSegment struct {
	segment models.Segment
	cost    float64
	rows    int64
}

// LedgerService opens and closes passthrough segments.
type LedgerService struct {
	store     SegmentStore
	costs     SegmentCoster
	scope     OpenSegmentScope
	publisher SegmentPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedgerService builds LedgerService.
func NewLedgerService(store SegmentStore, costs SegmentCoster, scope OpenSegmentScope, logger *zap.Logger) *LedgerService {
	if scope == "" {
		scope = ScopeGlobal
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		store:  store,
		costs:  costs,
		scope:  scope,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetPublisher attaches the live feed. A nil publisher disables events.
func (s *LedgerService) SetPublisher(p SegmentPublisher) {
	s.publisher = p
}

// SetClock replaces the time source used for updated_at.
func (s *LedgerService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Scope returns the configured open segment scope.
func (s *LedgerService) Scope() OpenSegmentScope {
	return s.scope
}

// RecordEntrance closes the pending segment, if any, at stationID and opens a new one for
// the transponder. Both writes commit together.
func (s *LedgerService) RecordEntrance(ctx context.Context, stationID int64, transponder *models.Transponder) (*models.Segment, error) {
	if transponder == nil {
		return nil, fmt.Errorf("ledger: record entrance: %w", ErrTransponderNotFound)
	}
	started := time.Now()
	filter := s.filter(transponder)

	var (
		closed *closedSegment
		opened models.Segment
	)
	err := s.store.WithinTx(ctx, s.lockKey(filter), func(tx repository.SegmentTx) error {
		var err error
		if closed, err = s.closeOpenSegment(ctx, tx, stationID, filter); err != nil {
			return err
		}
		opened = models.Segment{
			TransponderSN:  transponder.SerialNumber,
			CustomerID:     transponder.CustomerID,
			StartStationID: stationID,
			UpdatedAt:      s.now(),
		}
		return tx.Insert(ctx, &opened)
	})
	if err != nil {
		metrics.ObserveLedger("entrance", metrics.ResultError, time.Since(started))
		return nil, fmt.Errorf("ledger: record entrance: %w", err)
	}
	metrics.ObserveLedger("entrance", metrics.ResultSuccess, time.Since(started))

	if closed != nil {
		s.afterClose(closed)
	}
	metrics.IncSegmentOpened()
	s.publish(models.SegmentOpened, opened)
	s.logger.Debug("segment opened",
		zap.Int64("segment_id", opened.ID),
		zap.Int64("station_id", stationID),
		zap.String("transponder", opened.TransponderSN),
	)
	return &opened, nil
}

// RecordExit closes the pending segment at stationID. Closed is false when nothing was open.
func (s *LedgerService) RecordExit(ctx context.Context, stationID int64, transponder *models.Transponder) (*ExitResult, error) {
	if transponder == nil {
		return nil, fmt.Errorf("ledger: record exit: %w", ErrTransponderNotFound)
	}
	started := time.Now()
	filter := s.filter(transponder)

	var closed *closedSegment
	err := s.store.WithinTx(ctx, s.lockKey(filter), func(tx repository.SegmentTx) error {
		var err error
		closed, err = s.closeOpenSegment(ctx, tx, stationID, filter)
		return err
	})
	if err != nil {
		metrics.ObserveLedger("exit", metrics.ResultError, time.Since(started))
		return nil, fmt.Errorf("ledger: record exit: %w", err)
	}

	if closed == nil {
		metrics.ObserveLedger("exit", metrics.ResultRejected, time.Since(started))
		return &ExitResult{Closed: false}, nil
	}
	metrics.ObserveLedger("exit", metrics.ResultSuccess, time.Since(started))

	s.afterClose(closed)
	cost := closed.cost
	segment := closed.segment
	return &ExitResult{Closed: true, Cost: &cost, Segment: &segment}, nil
}

// closeOpenSegment prices the most recent open segment before touching any row, then ends
// every matching open segment at stationID. It returns nil when nothing was open.
func (s *LedgerService) closeOpenSegment(ctx context.Context, tx repository.SegmentTx, stationID int64, filter models.OpenSegmentFilter) (*closedSegment, error) {
	open, err := tx.LockOpen(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("lock open segments: %w", err)
	}
	if len(open) == 0 {
		return nil, nil
	}
	latest := open[0]

	cost, err := s.costs.CostWithin(ctx, tx, latest.StartStationID, stationID)
	if err != nil {
		return nil, fmt.Errorf("price segment %d: %w", latest.ID, err)
	}

	rows, err := tx.CloseOpen(ctx, filter, stationID)
	if err != nil {
		return nil, fmt.Errorf("close open segments: %w", err)
	}
	if err := tx.SetCost(ctx, latest.ID, cost); err != nil {
		return nil, fmt.Errorf("store cost of segment %d: %w", latest.ID, err)
	}

	end := stationID
	latest.EndStationID = &end
	latest.Cost = &cost
	return &closedSegment{segment: latest, cost: cost, rows: rows}, nil
}

func (s *LedgerService) afterClose(closed *closedSegment) {
	if closed.rows > 1 {
		s.logger.Warn("closed more than one open segment",
			zap.Int64("rows", closed.rows),
			zap.Int64("priced_segment_id", closed.segment.ID),
			zap.String("scope", string(s.scope)),
		)
	}
	metrics.ObserveSegmentClosed(closed.cost)
	s.publish(models.SegmentClosed, closed.segment)
	s.logger.Debug("segment closed",
		zap.Int64("segment_id", closed.segment.ID),
		zap.Float64("cost", closed.cost),
	)
}

func (s *LedgerService) filter(transponder *models.Transponder) models.OpenSegmentFilter {
	if s.scope == ScopeTransponder {
		return models.OpenSegmentFilter{TransponderSN: transponder.SerialNumber}
	}
	return models.OpenSegmentFilter{}
}

func (s *LedgerService) lockKey(filter models.OpenSegmentFilter) string {
	if filter.TransponderSN == "" {
		return globalLockKey
	}
	return globalLockKey + ":" + filter.TransponderSN
}

func (s *LedgerService) publish(kind models.SegmentEventKind, seg models.Segment) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(models.SegmentEvent{Kind: kind, Segment: seg, At: s.now()})
}
