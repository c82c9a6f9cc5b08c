// internal/search/config.go
package search

import "time"

// Config holds the deploy-time constants of the search engine. It is passed to
// NewService once and never mutated afterwards.
type Config struct {
	// BatchSize is the page size (LISTINGS_BATCH).
	BatchSize int
	// DefaultOrigin is used when the query carries no originLat/originLng.
	DefaultOrigin         Point
	EarthRadiusKm         float64
	FallbackRadiusFloorKm float64
	PrimaryTake           int
	FallbackTake          int
	// StoreTimeout bounds each store read. Zero disables it.
	StoreTimeout time.Duration
}

// DefaultConfig returns the production search constants.
func DefaultConfig() Config {
	return Config{
		BatchSize:             12,
		DefaultOrigin:         Point{Lat: 14.6042, Lng: 120.9822},
		EarthRadiusKm:         6371,
		FallbackRadiusFloorKm: 20,
		PrimaryTake:           200,
		FallbackTake:          100,
		StoreTimeout:          5 * time.Second,
	}
}

// withDefaults fills zero values from DefaultConfig. DefaultOrigin is left
// alone since (0, 0) is a valid coordinate.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.EarthRadiusKm <= 0 {
		c.EarthRadiusKm = d.EarthRadiusKm
	}
	if c.FallbackRadiusFloorKm <= 0 {
		c.FallbackRadiusFloorKm = d.FallbackRadiusFloorKm
	}
	if c.PrimaryTake <= 0 {
		c.PrimaryTake = d.PrimaryTake
	}
	if c.FallbackTake <= 0 {
		c.FallbackTake = d.FallbackTake
	}
	return c
}
