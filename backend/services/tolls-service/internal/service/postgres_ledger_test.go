package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	libdb "takeatoll/backend/libs/db"
	"takeatoll/backend/services/tolls-service/internal/db"
	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/repository"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TOLLS_TEST_DSN")
	if dsn == "" {
		t.Skip("TOLLS_TEST_DSN not set")
	}

	ctx := context.Background()
	sqlDB, err := db.NewPostgres(dsn, libdb.PoolOptions{MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(ctx, sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := sqlDB.ExecContext(ctx, `TRUNCATE passthroughs, transponders, customers, stations, configuration_options RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	for _, st := range []models.Station{
		{ID: stationS1, Name: "S1", Lat: 0, Lng: 0},
		{ID: stationS2, Name: "S2", Lat: 0, Lng: 1},
	} {
		st := st
		if err := repository.NewStationRepository(sqlDB).UpsertStation(ctx, &st); err != nil {
			t.Fatalf("station: %v", err)
		}
	}
	customer := &models.Customer{FirstName: "Ada", LastName: "Rossi", Email: "ada@example.com", PasswordHash: "x"}
	if err := repository.NewCustomerRepository(sqlDB).CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("customer: %v", err)
	}
	if err := repository.NewTransponderRepository(sqlDB).UpsertTransponder(ctx, &models.Transponder{SerialNumber: "T1", CustomerID: customer.ID}); err != nil {
		t.Fatalf("transponder: %v", err)
	}
	if err := repository.NewConfigOptionRepository(sqlDB).SetOption(ctx, models.PricePerDistanceUnitOption, "2.0"); err != nil {
		t.Fatalf("option: %v", err)
	}
	return sqlDB
}

func TestPostgresConcurrentExitsCloseOnce(t *testing.T) {
	sqlDB := setupPostgres(t)
	ctx := context.Background()

	stations := repository.NewStationRepository(sqlDB)
	options := repository.NewConfigOptionRepository(sqlDB)
	ledger := NewLedgerService(repository.NewSegmentRepository(sqlDB), NewCostService(stations, options, ""), ScopeGlobal, nil)
	dispatcher := NewDispatcher(stations, repository.NewTransponderRepository(sqlDB), ledger, nil)

	if _, err := dispatcher.HandleEvent(ctx, stationS1, &Event{Type: EventEntrance, SerialNumber: "T1"}); err != nil {
		t.Fatalf("entrance: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dispatcher.HandleEvent(ctx, stationS2, &Event{Type: EventExit, SerialNumber: "T1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrNoSegmentToClose) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one closing exit, got %d", success)
	}

	var priced int
	if err := sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM passthroughs WHERE end_station_id IS NOT NULL AND cost IS NOT NULL`).Scan(&priced); err != nil {
		t.Fatalf("count: %v", err)
	}
	if priced != 1 {
		t.Fatalf("expected one priced segment, got %d", priced)
	}

	totals, err := NewBillingService(repository.NewBillingRepository(sqlDB), nil).Totals(ctx, time.Now().UTC(), time.Now().UTC())
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("expected one billed customer, got %v", totals)
	}
}

func TestPostgresBillingBoundaries(t *testing.T) {
	sqlDB := setupPostgres(t)
	ctx := context.Background()
	segments := repository.NewSegmentRepository(sqlDB)

	ada, err := repository.NewCustomerRepository(sqlDB).GetByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("customer: %v", err)
	}
	bruno := &models.Customer{FirstName: "Bruno", LastName: "Verdi", Email: "bruno@example.com", PasswordHash: "x"}
	if err := repository.NewCustomerRepository(sqlDB).CreateCustomer(ctx, bruno); err != nil {
		t.Fatalf("customer: %v", err)
	}

	day := time.Date(2022, 3, 27, 0, 0, 0, 0, time.UTC)
	insert := func(customerID int64, updatedAt time.Time, cost *float64) int64 {
		t.Helper()
		seg := models.Segment{TransponderSN: "T1", CustomerID: customerID, StartStationID: stationS1, UpdatedAt: updatedAt}
		if err := segments.WithinTx(ctx, "billing-fixture", func(tx repository.SegmentTx) error {
			if err := tx.Insert(ctx, &seg); err != nil {
				return err
			}
			if cost == nil {
				return nil
			}
			return tx.SetCost(ctx, seg.ID, *cost)
		}); err != nil {
			t.Fatalf("insert segment: %v", err)
		}
		if cost != nil {
			if _, err := sqlDB.ExecContext(ctx, `UPDATE passthroughs SET end_station_id = $2 WHERE id = $1`, seg.ID, stationS2); err != nil {
				t.Fatalf("close segment: %v", err)
			}
		}
		t.Cleanup(func() { _ = segments.Delete(context.Background(), seg.ID) })
		return seg.ID
	}

	insert(ada.ID, day.Add(-time.Second), costPtr(1))
	insert(ada.ID, day.Add(9*time.Hour), costPtr(3.50))
	insert(ada.ID, day.Add(23*time.Hour+59*time.Minute), costPtr(4.25))
	openID := insert(bruno.ID, day.Add(10*time.Hour), nil)
	insert(ada.ID, day.AddDate(0, 0, 1), costPtr(9))

	totals, err := NewBillingService(repository.NewBillingRepository(sqlDB), nil).Totals(ctx, day, day)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if len(totals) != 1 || totals[ada.ID] != 7.75 {
		t.Fatalf("expected only %d with 7.75, got %v", ada.ID, totals)
	}
	if _, ok := totals[bruno.ID]; ok {
		t.Fatalf("customer with only an open segment must be absent")
	}

	open, err := segments.GetSegment(ctx, openID)
	if err != nil {
		t.Fatalf("get segment: %v", err)
	}
	if open.Cost != nil || open.EndStationID != nil {
		t.Fatalf("expected segment %d to stay open, got %+v", openID, open)
	}

	if err := segments.Delete(ctx, openID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := segments.GetSegment(ctx, openID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
