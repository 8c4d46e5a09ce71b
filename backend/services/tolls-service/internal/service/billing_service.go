package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"takeatoll/backend/libs/metrics"
	"takeatoll/backend/services/tolls-service/internal/models"
)

// DateLayout is the calendar date format of billing periods.
const DateLayout = "2006-01-02"

const (
	triggerRequest  = "request"
	triggerPeriodic = "periodic"
)

// BillingRepository sums priced segments.
type BillingRepository interface {
	SumCostByCustomer(ctx context.Context, from, to time.Time) ([]models.BillingTotal, error)
}

// BillingService computes what customers owe over a period.
type BillingService struct {
	repo   BillingRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewBillingService builds BillingService.
func NewBillingService(repo BillingRepository, logger *zap.Logger) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ParsePeriod parses two YYYY-MM-DD dates. Bad dates or end before start yield ErrInvalidPeriod.
func ParsePeriod(start, end string) (time.Time, time.Time, error) {
	from, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %q", ErrInvalidPeriod, start)
	}
	to, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q", ErrInvalidPeriod, end)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end before start", ErrInvalidPeriod)
	}
	return from, to, nil
}

// Totals maps customer id to amount due for segments updated between the start and end
// calendar dates, both included. Customers without priced segments are absent.
func (s *BillingService) Totals(ctx context.Context, start, end time.Time) (map[int64]float64, error) {
	stmt, err := s.statement(ctx, start, end, triggerRequest)
	if err != nil {
		return nil, err
	}
	totals := make(map[int64]float64, len(stmt.Lines))
	for _, line := range stmt.Lines {
		totals[line.CustomerID] = line.AmountDue
	}
	return totals, nil
}

// Statement returns the totals ordered by customer id along with the grand total.
func (s *BillingService) Statement(ctx context.Context, start, end time.Time) (*models.BillingStatement, error) {
	return s.statement(ctx, start, end, triggerRequest)
}

// RunPeriodic logs the trailing period's totals every interval until ctx is done.
// A non-positive interval disables the loop.
func (s *BillingService) RunPeriodic(ctx context.Context, interval, period time.Duration) {
	if interval <= 0 {
		s.logger.Info("periodic billing disabled")
		return
	}
	if period <= 0 {
		period = interval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, period)
		}
	}
}

func (s *BillingService) runOnce(ctx context.Context, period time.Duration) {
	end := s.now()
	start := end.Add(-period)
	stmt, err := s.aggregate(ctx, start, end, triggerPeriodic)
	if err != nil {
		s.logger.Error("periodic billing failed", zap.Error(err))
		return
	}
	for _, line := range stmt.Lines {
		s.logger.Info("customer amount due",
			zap.Int64("customer_id", line.CustomerID),
			zap.Float64("amount_due", line.AmountDue),
			zap.Time("from", stmt.Start),
			zap.Time("to", stmt.End),
		)
	}
	s.logger.Info("periodic billing done",
		zap.Int("customers", len(stmt.Lines)),
		zap.Float64("total", stmt.Total),
	)
}

// statement bills whole calendar days, start and end dates included.
func (s *BillingService) statement(ctx context.Context, start, end time.Time, trigger string) (*models.BillingStatement, error) {
	from := truncateDay(start)
	last := truncateDay(end)
	if last.Before(from) {
		metrics.ObserveBilling(trigger, metrics.ResultRejected, 0)
		return nil, fmt.Errorf("%w: end before start", ErrInvalidPeriod)
	}
	stmt, err := s.aggregate(ctx, from, last.AddDate(0, 0, 1), trigger)
	if err != nil {
		return nil, err
	}
	stmt.End = last
	return stmt, nil
}

// aggregate sums priced segments with updated_at in [from, to).
func (s *BillingService) aggregate(ctx context.Context, from, to time.Time, trigger string) (*models.BillingStatement, error) {
	started := time.Now()
	lines, err := s.repo.SumCostByCustomer(ctx, from, to)
	if err != nil {
		metrics.ObserveBilling(trigger, metrics.ResultError, time.Since(started))
		return nil, fmt.Errorf("billing: sum costs: %w", err)
	}
	metrics.ObserveBilling(trigger, metrics.ResultSuccess, time.Since(started))

	stmt := &models.BillingStatement{
		Start:       from,
		End:         to,
		Lines:       lines,
		GeneratedAt: s.now(),
	}
	if stmt.Lines == nil {
		stmt.Lines = []models.BillingTotal{}
	}
	for _, line := range stmt.Lines {
		stmt.Total += line.AmountDue
	}
	return stmt, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
