// internal/common/config/config.go
package config

import (
	"fmt"
	"time"

	"listing-search-workers/internal/search"
)

// Store backends selectable with store.backend.
const (
	BackendPostgres      = "postgres"
	BackendElasticsearch = "elasticsearch"
	BackendMemory        = "memory"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Store    StoreConfig             `mapstructure:"store"`
	Search   SearchConfig            `mapstructure:"search"`
	HTTP     HTTPConfig              `mapstructure:"http"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Registry RegistryConfig          `mapstructure:"registry"`
	Tracing  TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single address shorthand
	Index     string   `mapstructure:"index"`
}

// GetURL returns the URL field or the first address.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// GetAddresses returns Addresses, or URL when no list is configured.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Listing Search Configuration ---

// StoreConfig selects where listings are read from.
type StoreConfig struct {
	Backend  string      `mapstructure:"backend"`
	SeedFile string      `mapstructure:"seed_file"` // memory backend only
	Cache    CacheConfig `mapstructure:"cache"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	TTL     int  `mapstructure:"ttl"` // milliseconds
}

type SearchConfig struct {
	BatchSize             int     `mapstructure:"batch_size"`
	DefaultOriginLat      float64 `mapstructure:"default_origin_lat"`
	DefaultOriginLng      float64 `mapstructure:"default_origin_lng"`
	EarthRadiusKm         float64 `mapstructure:"earth_radius_km"`
	FallbackRadiusFloorKm float64 `mapstructure:"fallback_radius_floor_km"`
	PrimaryTake           int     `mapstructure:"primary_take"`
	FallbackTake          int     `mapstructure:"fallback_take"`
	StoreTimeout          int     `mapstructure:"store_timeout"` // milliseconds
}

// ToSearchConfig converts the loaded settings into the engine's config.
func (s SearchConfig) ToSearchConfig() search.Config {
	return search.Config{
		BatchSize:             s.BatchSize,
		DefaultOrigin:         search.Point{Lat: s.DefaultOriginLat, Lng: s.DefaultOriginLng},
		EarthRadiusKm:         s.EarthRadiusKm,
		FallbackRadiusFloorKm: s.FallbackRadiusFloorKm,
		PrimaryTake:           s.PrimaryTake,
		FallbackTake:          s.FallbackTake,
		StoreTimeout:          GetDuration(s.StoreTimeout),
	}
}

type HTTPConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// RegistryConfig points at the activity registry. Input schemas found there
// override the workers' built-in ones.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
