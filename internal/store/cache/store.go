// internal/store/cache/store.go
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	apperrors "listing-search-workers/internal/common/errors"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/common/metrics"
	"listing-search-workers/internal/models"
	"listing-search-workers/internal/search"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "listings:find:"

// CachedStore is a read-through Redis cache in front of another store.
// Redis problems are logged and the inner store answers instead.
type CachedStore struct {
	inner  search.Store
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner search.Store, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		redis:  client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"store": "cache"}),
	}
}

// CacheKey derives the Redis key for a filter and its options.
func CacheKey(f search.Filter, opts search.FindOptions) string {
	payload, _ := json.Marshal(struct {
		Filter  search.Filter      `json:"filter"`
		Options search.FindOptions `json:"options"`
	}{f, opts})
	sum := sha256.Sum256(payload)
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (s *CachedStore) FindMany(ctx context.Context, f search.Filter, opts search.FindOptions) ([]models.Listing, error) {
	key := CacheKey(f, opts)

	cached, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var listings []models.Listing
		if jsonErr := json.Unmarshal(cached, &listings); jsonErr == nil {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			return listings, nil
		}
		s.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"key": key})
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	case errors.Is(err, redis.Nil):
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	default:
		metrics.CacheRequests.WithLabelValues("error").Inc()
		s.logger.Warn("cache read failed", map[string]interface{}{
			"key":       key,
			"errorCode": string(apperrors.NewCacheUnavailableError(err).Code),
			"error":     err.Error(),
		})
		return s.inner.FindMany(ctx, f, opts)
	}

	listings, err := s.inner.FindMany(ctx, f, opts)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(listings)
	if err != nil {
		return listings, nil
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return listings, nil
}
