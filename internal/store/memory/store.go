// internal/store/memory/store.go
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"listing-search-workers/internal/common/metrics"
	"listing-search-workers/internal/models"
	"listing-search-workers/internal/search"
)

const storeName = "memory"

// ListingStore keeps listings in a slice. Used for local runs and tests.
type ListingStore struct {
	mu       sync.RWMutex
	listings []models.Listing
}

func NewListingStore(listings ...models.Listing) *ListingStore {
	s := &ListingStore{}
	s.Add(listings...)
	return s
}

// LoadFile reads a JSON array of listings.
func LoadFile(path string) (*ListingStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var listings []models.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return NewListingStore(listings...), nil
}

func (s *ListingStore) Add(listings ...models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings, listings...)
}

func (s *ListingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

func (s *ListingStore) FindMany(ctx context.Context, f search.Filter, opts search.FindOptions) ([]models.Listing, error) {
	if err := ctx.Err(); err != nil {
		metrics.StoreRequests.WithLabelValues(storeName, "error").Inc()
		return nil, err
	}

	s.mu.RLock()
	matched := make([]models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if f.Matches(l) {
			matched = append(matched, l)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if opts.Take > 0 && len(matched) > opts.Take {
		matched = matched[:opts.Take]
	}

	out := make([]models.Listing, len(matched))
	for i, l := range matched {
		l.Reservations = nil
		if l.Rooms == nil {
			l.Rooms = []models.Room{}
		}
		if l.Images == nil {
			l.Images = []models.Image{}
		}
		out[i] = l
	}

	metrics.StoreRequests.WithLabelValues(storeName, "ok").Inc()
	return out, nil
}
