// Package seed loads stations, customers, transponders and options from a YAML fixture.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/password"
	"takeatoll/backend/services/tolls-service/internal/repository"
)

// Fixture is the file layout.
type Fixture struct {
	Options   map[string]string `yaml:"options"`
	Stations  []Station         `yaml:"stations"`
	Customers []Customer        `yaml:"customers"`
}

// Station entry. ID may be omitted.
type Station struct {
	ID   int64   `yaml:"id"`
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

// Customer entry with the serial numbers of its transponders.
type Customer struct {
	FirstName    string   `yaml:"first_name"`
	LastName     string   `yaml:"last_name"`
	Email        string   `yaml:"email"`
	Password     string   `yaml:"password"`
	Transponders []string `yaml:"transponders"`
}

// Writer is the storage the fixture is applied to.
type Writer interface {
	UpsertStation(ctx context.Context, station *models.Station) error
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	UpsertTransponder(ctx context.Context, t *models.Transponder) error
	SetOption(ctx context.Context, name, value string) error
}

// Report counts what Apply wrote.
type Report struct {
	Options          int
	Stations         int
	CustomersCreated int
	CustomersReused  int
	Transponders     int
	// PasswordsStale counts reused customers whose stored hash no longer matches the fixture.
	PasswordsStale int
	StationIDs     []int64
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks coordinates, emails and serial number uniqueness.
func (f *Fixture) Validate() error {
	for i, st := range f.Stations {
		if strings.TrimSpace(st.Name) == "" {
			return fmt.Errorf("seed: station %d: name required", i)
		}
		if st.Lat < -90 || st.Lat > 90 || st.Lng < -180 || st.Lng > 180 {
			return fmt.Errorf("seed: station %q: coordinates out of range", st.Name)
		}
	}
	serials := make(map[string]string)
	for i, c := range f.Customers {
		if strings.TrimSpace(c.Email) == "" {
			return fmt.Errorf("seed: customer %d: email required", i)
		}
		for _, sn := range c.Transponders {
			sn = strings.TrimSpace(sn)
			if sn == "" {
				return fmt.Errorf("seed: customer %s: blank transponder serial", c.Email)
			}
			if owner, dup := serials[sn]; dup {
				return fmt.Errorf("seed: transponder %s assigned to %s and %s", sn, owner, c.Email)
			}
			serials[sn] = c.Email
		}
	}
	return nil
}

// Apply writes the fixture. Running it twice leaves the same data behind.
func Apply(ctx context.Context, w Writer, hasher password.Hasher, f *Fixture, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	report := &Report{}

	for name, value := range f.Options {
		if err := w.SetOption(ctx, name, value); err != nil {
			return report, fmt.Errorf("seed: option %s: %w", name, err)
		}
		report.Options++
	}

	for _, st := range f.Stations {
		station := &models.Station{ID: st.ID, Name: strings.TrimSpace(st.Name), Lat: st.Lat, Lng: st.Lng}
		if err := w.UpsertStation(ctx, station); err != nil {
			return report, fmt.Errorf("seed: station %s: %w", st.Name, err)
		}
		report.Stations++
		report.StationIDs = append(report.StationIDs, station.ID)
	}

	for _, c := range f.Customers {
		customer, created, err := ensureCustomer(ctx, w, hasher, c)
		if err != nil {
			return report, err
		}
		if created {
			report.CustomersCreated++
		} else {
			report.CustomersReused++
			if passwordStale(hasher, customer.PasswordHash, c.Password) {
				report.PasswordsStale++
				logger.Warn("fixture password differs from stored one, keeping stored",
					zap.Int64("customer_id", customer.ID))
			}
		}

		for _, sn := range c.Transponders {
			t := &models.Transponder{SerialNumber: strings.TrimSpace(sn), CustomerID: customer.ID}
			if err := w.UpsertTransponder(ctx, t); err != nil {
				return report, fmt.Errorf("seed: transponder %s: %w", sn, err)
			}
			report.Transponders++
		}
	}

	logger.Info("fixture applied",
		zap.Int("options", report.Options),
		zap.Int("stations", report.Stations),
		zap.Int("customers_created", report.CustomersCreated),
		zap.Int("customers_reused", report.CustomersReused),
		zap.Int("transponders", report.Transponders),
		zap.Int("passwords_stale", report.PasswordsStale),
	)
	return report, nil
}

func passwordStale(hasher password.Hasher, stored, fixture string) bool {
	if password.IsHash(fixture) {
		return stored != fixture
	}
	return hasher.Compare(stored, fixture) != nil
}

func ensureCustomer(ctx context.Context, w Writer, hasher password.Hasher, c Customer) (*models.Customer, bool, error) {
	existing, err := w.GetByEmail(ctx, c.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("seed: customer %s: %w", c.Email, err)
	}

	hash := c.Password
	if !password.IsHash(hash) {
		if hash, err = hasher.Hash(c.Password); err != nil {
			return nil, false, fmt.Errorf("seed: customer %s: %w", c.Email, err)
		}
	}

	customer := &models.Customer{
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		PasswordHash: hash,
	}
	if err := w.CreateCustomer(ctx, customer); err != nil {
		return nil, false, fmt.Errorf("seed: customer %s: %w", c.Email, err)
	}
	return customer, true, nil
}
