package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"takeatoll/backend/libs/metrics"
	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/repository"
)

// Passthrough event types.
const (
	EventEntrance = "entrance"
	EventExit     = "exit"
)

// Event is a passthrough reported by a station. A nil *Event stands for an empty body.
type Event struct {
	Type         string `json:"type"`
	SerialNumber string `json:"serialNumber"`
}

// EventResult carries the outcome of a dispatched event: Segment for entrances, Exit for exits.
type EventResult struct {
	Type    string          `json:"type"`
	Segment *models.Segment `json:"segment,omitempty"`
	Exit    *ExitResult     `json:"exit,omitempty"`
}

// TransponderFinder resolves transponders by serial number.
type TransponderFinder interface {
	FindBySerial(ctx context.Context, serial string) (*models.Transponder, error)
}

// Ledger is the part of LedgerService the dispatcher drives.
type Ledger interface {
	RecordEntrance(ctx context.Context, stationID int64, transponder *models.Transponder) (*models.Segment, error)
	RecordExit(ctx context.Context, stationID int64, transponder *models.Transponder) (*ExitResult, error)
}

// Dispatcher validates passthrough events and routes them to the ledger.
type Dispatcher struct {
	stations     StationFinder
	transponders TransponderFinder
	ledger       Ledger
	logger       *zap.Logger
}

// NewDispatcher builds Dispatcher.
func NewDispatcher(stations StationFinder, transponders TransponderFinder, ledger Ledger, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		stations:     stations,
		transponders: transponders,
		ledger:       ledger,
		logger:       logger,
	}
}

// HandleEvent checks, in order, the station, the body, the type, the serial number and the
// transponder, then records the event. The first failed check is returned.
func (d *Dispatcher) HandleEvent(ctx context.Context, stationID int64, ev *Event) (*EventResult, error) {
	eventType := ""
	if ev != nil {
		eventType = ev.Type
	}

	result, err := d.handle(ctx, stationID, ev)
	switch {
	case err == nil:
		metrics.IncPassthroughEvent(eventType, metrics.ResultSuccess)
	case IsValidation(err):
		metrics.IncPassthroughEvent(eventLabel(eventType), metrics.ResultRejected)
	default:
		metrics.IncPassthroughEvent(eventLabel(eventType), metrics.ResultError)
	}
	return result, err
}

func (d *Dispatcher) handle(ctx context.Context, stationID int64, ev *Event) (*EventResult, error) {
	if stationID <= 0 {
		return nil, ErrStationNotFound
	}
	if _, err := d.stations.FindByID(ctx, stationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, fmt.Errorf("dispatch: load station %d: %w", stationID, err)
	}

	if ev == nil {
		return nil, ErrMissingBody
	}
	if ev.Type != EventEntrance && ev.Type != EventExit {
		return nil, ErrInvalidType
	}
	serial := strings.TrimSpace(ev.SerialNumber)
	if serial == "" {
		return nil, ErrMissingSerial
	}

	transponder, err := d.transponders.FindBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransponderNotFound
		}
		return nil, fmt.Errorf("dispatch: load transponder: %w", err)
	}

	switch ev.Type {
	case EventEntrance:
		seg, err := d.ledger.RecordEntrance(ctx, stationID, transponder)
		if err != nil {
			return nil, err
		}
		return &EventResult{Type: EventEntrance, Segment: seg}, nil
	default:
		exit, err := d.ledger.RecordExit(ctx, stationID, transponder)
		if err != nil {
			return nil, err
		}
		if !exit.Closed {
			d.logger.Info("exit without open segment",
				zap.Int64("station_id", stationID),
				zap.String("transponder", serial),
			)
			return nil, ErrNoSegmentToClose
		}
		return &EventResult{Type: EventExit, Exit: exit}, nil
	}
}

func eventLabel(eventType string) string {
	if eventType == EventEntrance || eventType == EventExit {
		return eventType
	}
	return "invalid"
}
