package seed

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/password"
	"takeatoll/backend/services/tolls-service/internal/repository/memory"
)

const fixtureYAML = `
options:
  pricePerDistanceUnit: "0.25"
stations:
  - id: 1
    name: Bologna
    lat: 44.4949
    lng: 11.3426
  - id: 2
    name: Firenze
    lat: 43.7696
    lng: 11.2558
customers:
  - first_name: Ada
    last_name: Rossi
    email: Ada@Example.com
    password: secret
    transponders: [SN-100, SN-101]
  - first_name: Bruno
    last_name: Verdi
    email: bruno@example.com
    password: hunter2
    transponders: [SN-200]
`

func TestApplyFixture(t *testing.T) {
	f, err := Parse([]byte(fixtureYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ctx := context.Background()
	store := memory.NewStore()
	hasher := password.NewBcryptHasher(bcrypt.MinCost)

	report, err := Apply(ctx, store, hasher, f, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Stations != 2 || report.CustomersCreated != 2 || report.Transponders != 3 || report.Options != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	opt, err := store.GetOption(ctx, models.PricePerDistanceUnitOption)
	if err != nil || opt.Value != "0.25" {
		t.Fatalf("expected price option, got %+v, %v", opt, err)
	}

	ada, err := store.GetByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if err := hasher.Compare(ada.PasswordHash, "secret"); err != nil {
		t.Fatalf("password not hashed correctly: %v", err)
	}

	tr, err := store.FindBySerial(ctx, "SN-101")
	if err != nil || tr.CustomerID != ada.ID {
		t.Fatalf("expected SN-101 owned by %d, got %+v, %v", ada.ID, tr, err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	f, err := Parse([]byte(fixtureYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := context.Background()
	store := memory.NewStore()
	hasher := password.NewBcryptHasher(bcrypt.MinCost)

	if _, err := Apply(ctx, store, hasher, f, nil); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	report, err := Apply(ctx, store, hasher, f, nil)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if report.CustomersCreated != 0 || report.CustomersReused != 2 || report.PasswordsStale != 0 {
		t.Fatalf("expected customers reused, got %+v", report)
	}
	if len(report.StationIDs) != 2 || report.StationIDs[0] != 1 || report.StationIDs[1] != 2 {
		t.Fatalf("expected station ids [1 2], got %v", report.StationIDs)
	}
}

func TestApplyKeepsStoredPasswordWhenFixtureChanges(t *testing.T) {
	f, err := Parse([]byte(fixtureYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := context.Background()
	store := memory.NewStore()
	hasher := password.NewBcryptHasher(bcrypt.MinCost)

	if _, err := Apply(ctx, store, hasher, f, nil); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	f.Customers[0].Password = "changed"
	report, err := Apply(ctx, store, hasher, f, nil)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if report.PasswordsStale != 1 {
		t.Fatalf("expected one stale password, got %+v", report)
	}

	ada, err := store.GetByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if err := hasher.Compare(ada.PasswordHash, "secret"); err != nil {
		t.Fatalf("stored password must be kept: %v", err)
	}
}

func TestParseRejectsBadFixtures(t *testing.T) {
	cases := map[string]string{
		"duplicate serial": `
customers:
  - email: a@example.com
    transponders: [X]
  - email: b@example.com
    transponders: [X]
`,
		"latitude out of range": `
stations:
  - name: Nowhere
    lat: 91
    lng: 0
`,
		"missing email": `
customers:
  - first_name: Nobody
`,
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil || !strings.HasPrefix(err.Error(), "seed:") {
			t.Errorf("%s: expected seed error, got %v", name, err)
		}
	}
}

func TestShippedFixtureParses(t *testing.T) {
	f, err := LoadFile("../../fixtures/seed.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(f.Stations) == 0 || f.Options[models.PricePerDistanceUnitOption] == "" {
		t.Fatalf("fixture lacks stations or price: %+v", f)
	}
}
