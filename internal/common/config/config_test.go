package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const memoryConfig = `
app:
  name: listing-search
camunda:
  broker_address: localhost:26500
store:
  backend: memory
  seed_file: ./seed.json
`

// ==========================
// LoadFromFile Tests
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, memoryConfig))
	require.NoError(t, err)

	assert.Equal(t, "listing-search", cfg.App.Name)
	assert.True(t, cfg.Camunda.Enabled)
	assert.True(t, cfg.HTTP.Enabled)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 12, cfg.Search.BatchSize)
	assert.Equal(t, 200, cfg.Search.PrimaryTake)
	assert.Equal(t, 100, cfg.Search.FallbackTake)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 60000, cfg.Store.Cache.TTL)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("TEST_PG_HOST", "db.internal")
	t.Setenv("TEST_PG_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, `
camunda:
  broker_address: localhost:26500
store:
  backend: postgres
database:
  postgres:
    host: ${TEST_PG_HOST}
    database: listings
    user: app
    password: ${TEST_PG_PASSWORD}
`))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "host=db.internal")
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "sslmode=disable")
}

func TestLoadFromFile_ListingsBatchEnv(t *testing.T) {
	t.Setenv("LISTINGS_BATCH", "24")

	cfg, err := LoadFromFile(writeConfig(t, memoryConfig))
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Search.BatchSize)
}

func TestLoadFromFile_ExplicitBatchWinsOverEnv(t *testing.T) {
	t.Setenv("LISTINGS_BATCH", "24")

	cfg, err := LoadFromFile(writeConfig(t, memoryConfig+`
search:
  batch_size: 6
`))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Search.BatchSize)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// ==========================
// Validation Tests
// ==========================

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "postgres backend needs a host",
			body: `
camunda:
  broker_address: localhost:26500
store:
  backend: postgres
`,
			wantErr: "database.postgres.host is required",
		},
		{
			name: "elasticsearch backend needs an address",
			body: `
camunda:
  broker_address: localhost:26500
store:
  backend: elasticsearch
`,
			wantErr: "database.elasticsearch.addresses or url is required",
		},
		{
			name: "unknown backend",
			body: `
camunda:
  broker_address: localhost:26500
store:
  backend: mongo
`,
			wantErr: `store.backend "mongo"`,
		},
		{
			name: "cache requires redis",
			body: `
camunda:
  broker_address: localhost:26500
store:
  backend: memory
  cache:
    enabled: true
`,
			wantErr: "database.redis.address is required",
		},
		{
			name: "broker required when camunda enabled",
			body: `
store:
  backend: memory
`,
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "nothing to run",
			body: `
camunda:
  enabled: false
http:
  enabled: false
store:
  backend: memory
`,
			wantErr: "at least one of camunda.enabled or http.enabled",
		},
		{
			name: "tracing needs an endpoint",
			body: `
camunda:
  broker_address: localhost:26500
store:
  backend: memory
tracing:
  enabled: true
`,
			wantErr: "tracing.jaeger_endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_HTTPOnly(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, `
camunda:
  enabled: false
store:
  backend: elasticsearch
database:
  elasticsearch:
    url: http://localhost:9200
`))
	require.NoError(t, err)

	assert.False(t, cfg.Camunda.Enabled)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Database.Elasticsearch.GetAddresses())
	assert.Equal(t, "listings", cfg.Database.Elasticsearch.Index)
}

// ==========================
// Conversion Tests
// ==========================

func TestSearchConfig_ToSearchConfig(t *testing.T) {
	sc := SearchConfig{
		BatchSize:             8,
		DefaultOriginLat:      10.3,
		DefaultOriginLng:      123.9,
		EarthRadiusKm:         6371,
		FallbackRadiusFloorKm: 25,
		PrimaryTake:           150,
		FallbackTake:          80,
		StoreTimeout:          2500,
	}

	got := sc.ToSearchConfig()

	assert.Equal(t, 8, got.BatchSize)
	assert.Equal(t, 10.3, got.DefaultOrigin.Lat)
	assert.Equal(t, 123.9, got.DefaultOrigin.Lng)
	assert.Equal(t, 25.0, got.FallbackRadiusFloorKm)
	assert.Equal(t, 150, got.PrimaryTake)
	assert.Equal(t, 80, got.FallbackTake)
	assert.Equal(t, 2500*time.Millisecond, got.StoreTimeout)
}

func TestWorkerConfigHelpers(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"search-listings": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "search-listings"))
	assert.True(t, IsWorkerEnabled(cfg, "normalize-listing-query"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "search-listings").MaxJobsActive)
	assert.Equal(t, 5, GetWorkerConfig(cfg, "normalize-listing-query").MaxJobsActive)
}
