// Package memory keeps every repository of the tolls service in process memory.
// Transactions are serialized and roll back by discarding a working copy.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/repository"
)

// Store is an in-memory stand-in for the Postgres repositories.
type Store struct {
	txMu sync.Mutex

	mu           sync.RWMutex
	stations     map[int64]models.Station
	customers    map[int64]models.Customer
	transponders map[string]models.Transponder
	options      map[string]string
	segments     []models.Segment

	nextStationID  int64
	nextCustomerID int64
	nextSegmentID  int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		stations:     make(map[int64]models.Station),
		customers:    make(map[int64]models.Customer),
		transponders: make(map[string]models.Transponder),
		options:      make(map[string]string),
	}
}

// FindByID returns a station.
func (s *Store) FindByID(ctx context.Context, id int64) (*models.Station, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

// UpsertStation stores a station, assigning an id when it is zero.
func (s *Store) UpsertStation(ctx context.Context, station *models.Station) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if station.ID == 0 {
		s.nextStationID++
		station.ID = s.nextStationID
	} else if station.ID > s.nextStationID {
		s.nextStationID = station.ID
	}
	if prev, ok := s.stations[station.ID]; ok {
		station.CreatedAt = prev.CreatedAt
	} else {
		station.CreatedAt = time.Now().UTC()
	}
	s.stations[station.ID] = *station
	return nil
}

// FindBySerial returns a transponder.
func (s *Store) FindBySerial(ctx context.Context, serial string) (*models.Transponder, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transponders[strings.TrimSpace(serial)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

// UpsertTransponder assigns a serial to a customer.
func (s *Store) UpsertTransponder(ctx context.Context, t *models.Transponder) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	t.SerialNumber = strings.TrimSpace(t.SerialNumber)
	if prev, ok := s.transponders[t.SerialNumber]; ok {
		t.CreatedAt = prev.CreatedAt
	} else {
		t.CreatedAt = time.Now().UTC()
	}
	s.transponders[t.SerialNumber] = *t
	return nil
}

// CreateCustomer inserts a customer; duplicate emails yield repository.ErrConflict.
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	for _, existing := range s.customers {
		if existing.Email == c.Email {
			return repository.ErrConflict
		}
	}
	s.nextCustomerID++
	c.ID = s.nextCustomerID
	c.CreatedAt = time.Now().UTC()
	s.customers[c.ID] = *c
	return nil
}

// GetByEmail fetches a customer by email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, c := range s.customers {
		if c.Email == email {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetOption returns a configuration option.
func (s *Store) GetOption(ctx context.Context, name string) (*models.ConfigurationOption, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.options[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &models.ConfigurationOption{Name: name, Value: v}, nil
}

// SetOption creates or replaces an option.
func (s *Store) SetOption(ctx context.Context, name, value string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[name] = value
	return nil
}

// WithinTx runs fn against a private copy of the segments and publishes it only when fn
// succeeds. Transactions never overlap, whatever the lock key.
func (s *Store) WithinTx(ctx context.Context, lockKey string, fn func(repository.SegmentTx) error) error {
	_ = lockKey
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	work := &memTx{
		store:    s,
		segments: append([]models.Segment(nil), s.segments...),
		nextID:   s.nextSegmentID,
	}
	s.mu.RUnlock()

	if err := fn(work); err != nil {
		return err
	}

	s.mu.Lock()
	s.segments = work.segments
	s.nextSegmentID = work.nextID
	s.mu.Unlock()
	return nil
}

// AddSegment stores a segment as-is, for fixtures.
func (s *Store) AddSegment(seg models.Segment) models.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSegmentID++
	seg.ID = s.nextSegmentID
	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = seg.UpdatedAt
	}
	s.segments = append(s.segments, seg)
	return seg
}

// Segment returns a stored segment by id.
func (s *Store) Segment(id int64) (models.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, seg := range s.segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return models.Segment{}, false
}

// Segments returns a snapshot of every stored segment in insertion order.
func (s *Store) Segments() []models.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Segment(nil), s.segments...)
}

// SumCostByCustomer totals priced segments with UpdatedAt in [from, to).
func (s *Store) SumCostByCustomer(ctx context.Context, from, to time.Time) ([]models.BillingTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	sums := make(map[int64]float64)
	for _, seg := range s.segments {
		if seg.Cost == nil || seg.UpdatedAt.Before(from) || !seg.UpdatedAt.Before(to) {
			continue
		}
		sums[seg.CustomerID] += *seg.Cost
	}
	s.mu.RUnlock()

	totals := make([]models.BillingTotal, 0, len(sums))
	for id, amount := range sums {
		totals = append(totals, models.BillingTotal{CustomerID: id, AmountDue: amount})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].CustomerID < totals[j].CustomerID })
	return totals, nil
}

type memTx struct {
	store    *Store
	segments []models.Segment
	nextID   int64
}

func (t *memTx) LockOpen(ctx context.Context, filter models.OpenSegmentFilter) ([]models.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var open []models.Segment
	for i := range t.segments {
		if filter.Matches(&t.segments[i]) {
			open = append(open, t.segments[i])
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].UpdatedAt.Equal(open[j].UpdatedAt) {
			return open[i].ID > open[j].ID
		}
		return open[i].UpdatedAt.After(open[j].UpdatedAt)
	})
	return open, nil
}

func (t *memTx) CloseOpen(ctx context.Context, filter models.OpenSegmentFilter, endStationID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var closed int64
	for i := range t.segments {
		if filter.Matches(&t.segments[i]) {
			end := endStationID
			t.segments[i].EndStationID = &end
			closed++
		}
	}
	return closed, nil
}

func (t *memTx) SetCost(ctx context.Context, id int64, cost float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range t.segments {
		if t.segments[i].ID == id {
			c := cost
			t.segments[i].Cost = &c
			return nil
		}
	}
	return repository.ErrNotFound
}

func (t *memTx) Insert(ctx context.Context, seg *models.Segment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.nextID++
	seg.ID = t.nextID
	seg.CreatedAt = seg.UpdatedAt
	t.segments = append(t.segments, *seg)
	return nil
}

func (t *memTx) FindByID(ctx context.Context, id int64) (*models.Station, error) {
	return t.store.FindByID(ctx, id)
}

func (t *memTx) GetOption(ctx context.Context, name string) (*models.ConfigurationOption, error) {
	return t.store.GetOption(ctx, name)
}
