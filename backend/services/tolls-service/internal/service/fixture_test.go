package service

import (
	"context"
	"sync"
	"testing"

	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/repository/memory"
)

const (
	stationS1 int64 = 1
	stationS2 int64 = 2
	stationS3 int64 = 3

	customerA int64 = 1
	customerB int64 = 2
	customerC int64 = 3
)

type fixture struct {
	store      *memory.Store
	costs      *CostService
	ledger     *LedgerService
	dispatcher *Dispatcher
	events     *recordingPublisher
}

func newFixture(t *testing.T, scope OpenSegmentScope) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	stations := []models.Station{
		{ID: stationS1, Name: "S1", Lat: 0, Lng: 0},
		{ID: stationS2, Name: "S2", Lat: 0, Lng: 1},
		{ID: stationS3, Name: "S3", Lat: 0, Lng: 2},
	}
	for i := range stations {
		if err := store.UpsertStation(ctx, &stations[i]); err != nil {
			t.Fatalf("seed station: %v", err)
		}
	}
	for _, tr := range []models.Transponder{
		{SerialNumber: "T1", CustomerID: customerA},
		{SerialNumber: "T2", CustomerID: customerB},
	} {
		tr := tr
		if err := store.UpsertTransponder(ctx, &tr); err != nil {
			t.Fatalf("seed transponder: %v", err)
		}
	}
	if err := store.SetOption(ctx, models.PricePerDistanceUnitOption, "2.0"); err != nil {
		t.Fatalf("seed option: %v", err)
	}

	costs := NewCostService(store, store, "")
	ledger := NewLedgerService(store, costs, scope, nil)
	events := &recordingPublisher{}
	ledger.SetPublisher(events)

	return &fixture{
		store:      store,
		costs:      costs,
		ledger:     ledger,
		dispatcher: NewDispatcher(store, store, ledger, nil),
		events:     events,
	}
}

func (f *fixture) transponder(t *testing.T, serial string) *models.Transponder {
	t.Helper()
	tr, err := f.store.FindBySerial(context.Background(), serial)
	if err != nil {
		t.Fatalf("find transponder %s: %v", serial, err)
	}
	return tr
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SegmentEvent
}

func (p *recordingPublisher) Publish(event models.SegmentEvent) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *recordingPublisher) kinds() []models.SegmentEventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]models.SegmentEventKind, 0, len(p.events))
	for _, ev := range p.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}
