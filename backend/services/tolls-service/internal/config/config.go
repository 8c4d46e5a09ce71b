package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	libconfig "takeatoll/backend/libs/config"
	libdb "takeatoll/backend/libs/db"
	libredis "takeatoll/backend/libs/redis"
	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/service"
)

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Billing  BillingConfig  `yaml:"billing"`
	Feed     FeedConfig     `yaml:"feed"`
	Seed     SeedConfig     `yaml:"seed"`
}

type HTTPConfig struct {
	Port string `yaml:"port" env:"TOLLS_HTTP_PORT"`
}

type DatabaseConfig struct {
	DSN          string        `yaml:"dsn" env:"TOLLS_POSTGRES_DSN"`
	MaxOpenConns int           `yaml:"maxOpenConns" env:"TOLLS_DB_MAX_OPEN_CONNS"`
	MaxIdleConns int           `yaml:"maxIdleConns" env:"TOLLS_DB_MAX_IDLE_CONNS"`
	ConnLifetime time.Duration `yaml:"connLifetime" env:"TOLLS_DB_CONN_LIFETIME"`
	Migrate      bool          `yaml:"migrate" env:"TOLLS_DB_MIGRATE"`
}

// RedisConfig is optional; an empty Addr disables the station cache.
type RedisConfig struct {
	Addr       string        `yaml:"addr" env:"TOLLS_REDIS_ADDR"`
	Password   string        `yaml:"password" env:"TOLLS_REDIS_PASSWORD"`
	DB         int           `yaml:"db" env:"TOLLS_REDIS_DB"`
	StationTTL time.Duration `yaml:"stationTTL" env:"TOLLS_REDIS_STATION_TTL"`
}

type LedgerConfig struct {
	OpenSegmentScope string `yaml:"openSegmentScope" env:"TOLLS_OPEN_SEGMENT_SCOPE"`
	PriceOption      string `yaml:"priceOption" env:"TOLLS_PRICE_OPTION"`
}

// BillingConfig drives the periodic billing log. A zero Interval disables it.
type BillingConfig struct {
	Interval time.Duration `yaml:"interval" env:"TOLLS_BILLING_INTERVAL"`
	Period   time.Duration `yaml:"period" env:"TOLLS_BILLING_PERIOD"`
}

type FeedConfig struct {
	PingInterval time.Duration `yaml:"pingInterval" env:"TOLLS_FEED_PING_INTERVAL"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"TOLLS_FEED_WRITE_TIMEOUT"`
}

type SeedConfig struct {
	BcryptCost int `yaml:"bcryptCost" env:"TOLLS_BCRYPT_COST"`
}

// Defaults returns the configuration used when neither file nor env set a value.
func Defaults() *Config {
	return &Config{
		HTTP: HTTPConfig{Port: "8080"},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			ConnLifetime: 30 * time.Minute,
			Migrate:      true,
		},
		Redis:  RedisConfig{StationTTL: 10 * time.Minute},
		Ledger: LedgerConfig{OpenSegmentScope: string(service.ScopeGlobal), PriceOption: models.PricePerDistanceUnitOption},
		Billing: BillingConfig{
			Interval: 0,
			Period:   30 * 24 * time.Hour,
		},
		Feed: FeedConfig{
			PingInterval: 30 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(libconfig.FileEnv))
}

// LoadFile is Load with an explicit YAML path; an empty path uses env only.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if err := libconfig.LoadConfigFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and normalises the ledger scope.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database DSN is required")
	}
	scope, err := service.ParseOpenSegmentScope(c.Ledger.OpenSegmentScope)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Ledger.OpenSegmentScope = string(scope)
	if strings.TrimSpace(c.Ledger.PriceOption) == "" {
		c.Ledger.PriceOption = models.PricePerDistanceUnitOption
	}
	if c.Billing.Interval < 0 {
		return errors.New("config: billing interval must not be negative")
	}
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Scope returns the validated open segment scope.
func (c *Config) Scope() service.OpenSegmentScope {
	return service.OpenSegmentScope(c.Ledger.OpenSegmentScope)
}

// PoolOptions maps database settings onto the shared pool options.
func (c *Config) PoolOptions() libdb.PoolOptions {
	return libdb.PoolOptions{
		MaxOpenConns: c.Database.MaxOpenConns,
		MaxIdleConns: c.Database.MaxIdleConns,
		ConnLifetime: c.Database.ConnLifetime,
	}
}

// RedisEnabled reports whether a redis address is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// RedisOptions maps redis settings onto the shared client options.
func (c *Config) RedisOptions() libredis.Options {
	return libredis.Options{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB}
}
