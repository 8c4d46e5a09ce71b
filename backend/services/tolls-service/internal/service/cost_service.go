package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"takeatoll/backend/services/tolls-service/internal/geo"
	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/repository"
)

// StationFinder resolves stations by id.
type StationFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Station, error)
}

// ConfigOptionFinder resolves named configuration options.
type ConfigOptionFinder interface {
	GetOption(ctx context.Context, name string) (*models.ConfigurationOption, error)
}

// CostLookups bundles the reads pricing needs, so a caller holding a transaction can supply
// its own.
type CostLookups interface {
	StationFinder
	ConfigOptionFinder
}

// CostService prices a trip between two stations.
type CostService struct {
	stations    StationFinder
	options     ConfigOptionFinder
	priceOption string
}

// NewCostService builds CostService. An empty priceOption falls back to pricePerDistanceUnit.
func NewCostService(stations StationFinder, options ConfigOptionFinder, priceOption string) *CostService {
	priceOption = strings.TrimSpace(priceOption)
	if priceOption == "" {
		priceOption = models.PricePerDistanceUnitOption
	}
	return &CostService{
		stations:    stations,
		options:     options,
		priceOption: priceOption,
	}
}

// Cost returns distance(start, end) * price per distance unit.
func (s *CostService) Cost(ctx context.Context, startStationID, endStationID int64) (float64, error) {
	return s.cost(ctx, s.stations, s.options, startStationID, endStationID)
}

// CostWithin is Cost with stations and options read through lookups.
func (s *CostService) CostWithin(ctx context.Context, lookups CostLookups, startStationID, endStationID int64) (float64, error) {
	return s.cost(ctx, lookups, lookups, startStationID, endStationID)
}

func (s *CostService) cost(ctx context.Context, stations StationFinder, options ConfigOptionFinder, startStationID, endStationID int64) (float64, error) {
	start, err := loadStation(ctx, stations, startStationID)
	if err != nil {
		return 0, err
	}
	end := start
	if endStationID != startStationID {
		if end, err = loadStation(ctx, stations, endStationID); err != nil {
			return 0, err
		}
	}

	price, err := s.price(ctx, options)
	if err != nil {
		return 0, err
	}

	distance := geo.Distance(
		geo.Point{Lat: start.Lat, Lng: start.Lng},
		geo.Point{Lat: end.Lat, Lng: end.Lng},
	)
	return distance * price, nil
}

func loadStation(ctx context.Context, stations StationFinder, id int64) (*models.Station, error) {
	st, err := stations.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrCostStationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("cost: load station %d: %w", id, err)
	}
	return st, nil
}

func (s *CostService) price(ctx context.Context, options ConfigOptionFinder) (float64, error) {
	opt, err := options.GetOption(ctx, s.priceOption)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrConfigMissing, s.priceOption)
	}
	if err != nil {
		return 0, fmt.Errorf("cost: load option %s: %w", s.priceOption, err)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(opt.Value), 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: %s=%q", ErrConfigInvalid, s.priceOption, opt.Value)
	}
	return price, nil
}
