// internal/store/elastic/store.go
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "listing-search-workers/internal/common/errors"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/common/metrics"
	"listing-search-workers/internal/models"
	"listing-search-workers/internal/search"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const storeName = "elasticsearch"

const dateFormat = "2006-01-02"

// IndexMapping is the mapping EnsureIndex creates. Reservations are nested so
// the overlap test is evaluated per reservation.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "userId":        {"type": "keyword"},
      "title":         {"type": "text"},
      "description":   {"type": "text"},
      "category":      {"type": "keyword"},
      "roomType":      {"type": "keyword"},
      "status":        {"type": "keyword"},
      "price":         {"type": "integer"},
      "roomCount":     {"type": "integer"},
      "guestCount":    {"type": "integer"},
      "bathroomCount": {"type": "integer"},
      "latlng":        {"type": "double"},
      "amenities":     {"type": "keyword"},
      "femaleOnly":    {"type": "boolean"},
      "maleOnly":      {"type": "boolean"},
      "createdAt":     {"type": "date"},
      "reservations": {
        "type": "nested",
        "properties": {
          "startDate": {"type": "date"},
          "endDate":   {"type": "date"}
        }
      }
    }
  }
}`

// ListingStore reads listings from an Elasticsearch index whose documents
// are JSON-encoded models.Listing values.
type ListingStore struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewListingStore(client *elasticsearch.Client, index string, log logger.Logger) *ListingStore {
	return &ListingStore{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"store": storeName, "index": index}),
	}
}

type searchHit struct {
	Source models.Listing `json:"_source"`
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

func (s *ListingStore) FindMany(ctx context.Context, f search.Filter, opts search.FindOptions) ([]models.Listing, error) {
	listings, err := s.findMany(ctx, f, opts)
	if err != nil {
		metrics.StoreRequests.WithLabelValues(storeName, "error").Inc()
		return nil, err
	}
	metrics.StoreRequests.WithLabelValues(storeName, "ok").Inc()
	return listings, nil
}

func (s *ListingStore) findMany(ctx context.Context, f search.Filter, opts search.FindOptions) ([]models.Listing, error) {
	body, err := json.Marshal(BuildSearchBody(f, opts.Take))
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError("findListings", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}

	start := time.Now()
	res, err := req.Do(ctx, s.client)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewSearchTimeoutError("findListings", err)
		}
		return nil, apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewIndexNotFoundError(s.index)
	}
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError("findListings", fmt.Errorf("search failed: %s", res.String()))
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, apperrors.NewSearchQueryFailedError("findListings", fmt.Errorf("decode response: %w", err))
	}

	listings := make([]models.Listing, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		l := hit.Source
		// Reservations are only indexed for filtering.
		l.Reservations = nil
		if l.Rooms == nil {
			l.Rooms = []models.Room{}
		}
		if l.Images == nil {
			l.Images = []models.Image{}
		}
		listings = append(listings, l)
	}

	s.logger.Debug("listings fetched", map[string]interface{}{
		"hits":       len(listings),
		"took":       decoded.Took,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return listings, nil
}

// BuildSearchBody translates a filter into a bool query sorted by createdAt
// desc.
func BuildSearchBody(f search.Filter, take int) map[string]interface{} {
	filters := []interface{}{}

	term := func(field string, value interface{}) {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{field: value},
		})
	}
	rangeQ := func(field string, bounds map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{
			"range": map[string]interface{}{field: bounds},
		}
	}

	if f.Status != "" {
		term("status", f.Status)
	}
	if f.UserID != "" {
		term("userId", f.UserID)
	}

	price := map[string]interface{}{}
	if f.MinPrice != nil {
		price["gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filters = append(filters, rangeQ("price", price))
	}

	if f.MinRoomCount != nil {
		filters = append(filters, rangeQ("roomCount", map[string]interface{}{"gte": *f.MinRoomCount}))
	}
	if f.MinGuestCount != nil {
		filters = append(filters, rangeQ("guestCount", map[string]interface{}{"gte": *f.MinGuestCount}))
	}
	if f.MinBathroomCount != nil {
		filters = append(filters, rangeQ("bathroomCount", map[string]interface{}{"gte": *f.MinBathroomCount}))
	}
	if f.RoomType != "" {
		term("roomType", f.RoomType)
	}
	if f.FemaleOnly {
		term("femaleOnly", true)
	}
	if f.MaleOnly {
		term("maleOnly", true)
	}
	if len(f.Categories) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"category": f.Categories},
		})
	} else if f.Category != "" {
		term("category", f.Category)
	}

	boolQuery := map[string]interface{}{
		"filter": filters,
	}

	if f.Available != nil {
		start := f.Available.Start.Format(dateFormat)
		end := f.Available.End.Format(dateFormat)
		overlap := map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"bool": map[string]interface{}{"filter": []interface{}{
						rangeQ("reservations.endDate", map[string]interface{}{"gte": start}),
						rangeQ("reservations.startDate", map[string]interface{}{"lte": start}),
					}}},
					map[string]interface{}{"bool": map[string]interface{}{"filter": []interface{}{
						rangeQ("reservations.startDate", map[string]interface{}{"lte": end}),
						rangeQ("reservations.endDate", map[string]interface{}{"gte": end}),
					}}},
				},
				"minimum_should_match": 1,
			},
		}
		boolQuery["must_not"] = []interface{}{
			map[string]interface{}{
				"nested": map[string]interface{}{
					"path":  "reservations",
					"query": overlap,
				},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}},
		},
		"size": take,
	}
}

// EnsureIndex creates the index with IndexMapping when it does not exist.
func (s *ListingStore) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{s.index}}.Do(ctx, s.client)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{
		Index: s.index,
		Body:  strings.NewReader(IndexMapping),
	}.Do(ctx, s.client)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", s.index, res.String())
	}

	s.logger.Info("index created", nil)
	return nil
}
