// internal/workers/search/normalize-listing-query/config.go
package normalizelistingquery

import "time"

// Normalization is pure; the timeout only bounds job completion.
type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
