package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"takeatoll/backend/libs/metrics"
	"takeatoll/backend/services/tolls-service/internal/models"
)

// StationSource is the authoritative station lookup behind the cache.
type StationSource interface {
	FindByID(ctx context.Context, id int64) (*models.Station, error)
}

// cachedStation is what lands in redis. Coordinates are all pricing needs.
type cachedStation struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// StationCache serves station lookups from redis, falling back to the source on a miss.
// Redis failures are logged and never fail the lookup.
type StationCache struct {
	client redis.Cmdable
	source StationSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewStationCache returns a cache-aside station finder.
func NewStationCache(client redis.Cmdable, source StationSource, ttl time.Duration, logger *zap.Logger) *StationCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StationCache{client: client, source: source, ttl: ttl, logger: logger}
}

func (c *StationCache) key(id int64) string {
	return fmt.Sprintf("stations:coords:%d", id)
}

// FindByID returns the station, reading through to the source when redis has no entry.
func (c *StationCache) FindByID(ctx context.Context, id int64) (*models.Station, error) {
	if st, ok := c.get(ctx, id); ok {
		metrics.IncStationCache(true)
		return st, nil
	}
	metrics.IncStationCache(false)

	st, err := c.source.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.save(ctx, st)
	return st, nil
}

// Invalidate drops a cached station after it changed.
func (c *StationCache) Invalidate(ctx context.Context, id int64) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

func (c *StationCache) get(ctx context.Context, id int64) (*models.Station, bool) {
	result, err := c.client.Get(ctx, c.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("station cache read failed", zap.Int64("station_id", id), zap.Error(err))
		return nil, false
	}

	var cached cachedStation
	if err := json.Unmarshal([]byte(result), &cached); err != nil {
		c.logger.Warn("station cache entry corrupt", zap.Int64("station_id", id), zap.Error(err))
		return nil, false
	}
	return &models.Station{ID: cached.ID, Name: cached.Name, Lat: cached.Lat, Lng: cached.Lng}, true
}

func (c *StationCache) save(ctx context.Context, st *models.Station) {
	data, err := json.Marshal(cachedStation{ID: st.ID, Name: st.Name, Lat: st.Lat, Lng: st.Lng})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(st.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("station cache write failed", zap.Int64("station_id", st.ID), zap.Error(err))
	}
}
