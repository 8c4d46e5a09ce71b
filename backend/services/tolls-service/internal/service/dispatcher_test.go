package service

import (
	"context"
	"errors"
	"testing"

	"takeatoll/backend/services/tolls-service/internal/models"
)

func TestDispatcherValidationOrder(t *testing.T) {
	cases := []struct {
		name    string
		station int64
		event   *Event
		want    error
	}{
		{name: "zero station wins over empty body", station: 0, event: nil, want: ErrStationNotFound},
		{name: "unknown station", station: 99, event: &Event{Type: "bogus"}, want: ErrStationNotFound},
		{name: "missing body", station: stationS1, event: nil, want: ErrMissingBody},
		{name: "empty type", station: stationS1, event: &Event{SerialNumber: "T1"}, want: ErrInvalidType},
		{name: "bad type before serial", station: stationS1, event: &Event{Type: "park"}, want: ErrInvalidType},
		{name: "blank serial", station: stationS1, event: &Event{Type: EventEntrance, SerialNumber: "  "}, want: ErrMissingSerial},
		{name: "unknown transponder", station: stationS1, event: &Event{Type: EventExit, SerialNumber: "T404"}, want: ErrTransponderNotFound},
		{name: "exit with nothing open", station: stationS2, event: &Event{Type: EventExit, SerialNumber: "T1"}, want: ErrNoSegmentToClose},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, ScopeGlobal)
			_, err := f.dispatcher.HandleEvent(context.Background(), tc.station, tc.event)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDispatcherRoutesEvents(t *testing.T) {
	f := newFixture(t, ScopeGlobal)
	ctx := context.Background()

	entrance, err := f.dispatcher.HandleEvent(ctx, stationS1, &Event{Type: EventEntrance, SerialNumber: " T1 "})
	if err != nil {
		t.Fatalf("entrance: %v", err)
	}
	if entrance.Type != EventEntrance || entrance.Segment == nil || entrance.Segment.TransponderSN != "T1" {
		t.Fatalf("unexpected entrance result: %+v", entrance)
	}

	exit, err := f.dispatcher.HandleEvent(ctx, stationS2, &Event{Type: EventExit, SerialNumber: "T1"})
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if exit.Type != EventExit || exit.Exit == nil || !exit.Exit.Closed || exit.Exit.Cost == nil {
		t.Fatalf("unexpected exit result: %+v", exit)
	}
}

type failingStations struct{}

func (failingStations) FindByID(context.Context, int64) (*models.Station, error) {
	return nil, errors.New("connection reset")
}

func TestDispatcherSystemErrorIsNotValidation(t *testing.T) {
	f := newFixture(t, ScopeGlobal)
	d := NewDispatcher(failingStations{}, f.store, f.ledger, nil)

	_, err := d.HandleEvent(context.Background(), stationS1, &Event{Type: EventEntrance, SerialNumber: "T1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsValidation(err) {
		t.Fatalf("lookup failure must not be a validation error: %v", err)
	}
}
