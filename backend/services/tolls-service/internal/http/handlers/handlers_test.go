package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/repository/memory"
	"takeatoll/backend/services/tolls-service/internal/service"
)

type testEnv struct {
	store   *memory.Store
	mux     *http.ServeMux
	billing *service.BillingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	for _, st := range []models.Station{
		{ID: 1, Name: "S1", Lat: 0, Lng: 0},
		{ID: 2, Name: "S2", Lat: 0, Lng: 1},
	} {
		st := st
		if err := store.UpsertStation(ctx, &st); err != nil {
			t.Fatalf("seed station: %v", err)
		}
	}
	for _, tr := range []models.Transponder{
		{SerialNumber: "T1", CustomerID: 1},
		{SerialNumber: "12345", CustomerID: 2},
	} {
		tr := tr
		if err := store.UpsertTransponder(ctx, &tr); err != nil {
			t.Fatalf("seed transponder: %v", err)
		}
	}
	if err := store.SetOption(ctx, models.PricePerDistanceUnitOption, "2.0"); err != nil {
		t.Fatalf("seed option: %v", err)
	}

	logger := zap.NewNop()
	costs := service.NewCostService(store, store, "")
	ledger := service.NewLedgerService(store, costs, service.ScopeGlobal, logger)
	dispatcher := service.NewDispatcher(store, store, ledger, logger)
	billing := service.NewBillingService(store, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/stations/{stationId}/passthroughs", NewPassthroughsHandler(dispatcher, logger).Store)
	mux.HandleFunc("/api/billing", NewBillingHandler(billing, logger).Totals)

	return &testEnv{store: store, mux: mux, billing: billing}
}

func (e *testEnv) post(station, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/stations/"+station+"/passthroughs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestPassthroughEntranceThenExit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post("1", `{"type":"entrance","serialNumber":"T1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("entrance: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec)
	passthrough, ok := payload["passthrough"].(map[string]interface{})
	if payload["ok"] != true || !ok {
		t.Fatalf("unexpected entrance payload %v", payload)
	}
	if passthrough["start_station_id"] != float64(1) || passthrough["transponder_sn"] != "T1" {
		t.Fatalf("unexpected passthrough %v", passthrough)
	}

	rec = env.post("2", `{"type":"exit","serialNumber":"T1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("exit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload = decodeEnvelope(t, rec)
	cost, ok := payload["cost"].(float64)
	if payload["ok"] != true || !ok || cost <= 222 || cost >= 223 {
		t.Fatalf("expected cost near 222.39, got %v", payload)
	}
}

func TestPassthroughErrors(t *testing.T) {
	cases := []struct {
		name    string
		station string
		body    string
		status  int
		message string
	}{
		{"non numeric station", "abc", `{"type":"entrance","serialNumber":"T1"}`, http.StatusNotFound, "Station not found"},
		{"zero station", "0", `{"type":"entrance","serialNumber":"T1"}`, http.StatusNotFound, "Station not found"},
		{"unknown station", "99", ``, http.StatusNotFound, "Station not found"},
		{"empty body", "1", ``, http.StatusBadRequest, "Missing request body"},
		{"empty object", "1", `{}`, http.StatusBadRequest, "Missing request body"},
		{"not json", "1", `type=entrance`, http.StatusBadRequest, "Missing request body"},
		{"bad type", "1", `{"type":"park","serialNumber":"T1"}`, http.StatusBadRequest, "Invalid access type"},
		{"missing serial", "1", `{"type":"entrance"}`, http.StatusBadRequest, "Missing serial number for transponder"},
		{"unknown numeric serial", "1", `{"type":"entrance","serialNumber":999}`, http.StatusNotFound, "Transponder not found"},
		{"exit without entrance", "2", `{"type":"exit","serialNumber":"T1"}`, http.StatusBadRequest, "No segment to close"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.post(tc.station, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			payload := decodeEnvelope(t, rec)
			if payload["ok"] != false || payload["message"] != tc.message {
				t.Fatalf("expected message %q, got %v", tc.message, payload)
			}
		})
	}
}

func TestPassthroughNumericSerial(t *testing.T) {
	env := newTestEnv(t)
	rec := env.post("1", `{"type":"entrance","serialNumber":12345}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

type brokenDispatcher struct{}

func (brokenDispatcher) HandleEvent(context.Context, int64, *service.Event) (*service.EventResult, error) {
	return nil, errors.New("pq: connection refused")
}

func TestPassthroughSystemErrorIsHidden(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stations/{stationId}/passthroughs", NewPassthroughsHandler(brokenDispatcher{}, zap.NewNop()).Store)

	req := httptest.NewRequest(http.MethodPost, "/api/stations/1/passthroughs", strings.NewReader(`{"type":"exit","serialNumber":"T1"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestBillingJSON(t *testing.T) {
	env := newTestEnv(t)
	day := time.Date(2022, 3, 27, 12, 0, 0, 0, time.UTC)
	for _, amount := range []float64{3.50, 4.25} {
		amount := amount
		end := int64(2)
		env.store.AddSegment(models.Segment{CustomerID: 1, StartStationID: 1, EndStationID: &end, Cost: &amount, UpdatedAt: day})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/billing?start=2022-03-27&end=2022-03-27", nil)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec)
	totals, ok := payload["totals"].(map[string]interface{})
	if !ok || totals["1"] != 7.75 || len(totals) != 1 {
		t.Fatalf("unexpected totals %v", payload)
	}
}

func TestBillingExports(t *testing.T) {
	env := newTestEnv(t)
	cases := map[string]string{
		"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"pdf":  "application/pdf",
	}
	for format, contentType := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/billing?start=2022-03-01&end=2022-03-31&format="+format, nil)
		rec := httptest.NewRecorder()
		env.mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", format, rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != contentType {
			t.Fatalf("%s: expected %s, got %s", format, contentType, got)
		}
		if !strings.Contains(rec.Header().Get("Content-Disposition"), "billing_2022-03-01_2022-03-31."+format) {
			t.Fatalf("%s: unexpected disposition %q", format, rec.Header().Get("Content-Disposition"))
		}
	}
}

func TestBillingBadRequests(t *testing.T) {
	env := newTestEnv(t)
	for _, query := range []string{
		"start=2022-03-02&end=2022-03-01",
		"start=yesterday&end=2022-03-01",
		"end=2022-03-01",
		"start=2022-03-01&end=2022-03-02&format=csv",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/billing?"+query, nil)
		rec := httptest.NewRecorder()
		env.mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(pinger{err: errors.New("down")})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
