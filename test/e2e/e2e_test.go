// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"listing-search-workers/internal/api"
	"listing-search-workers/internal/common/camunda"
	"listing-search-workers/internal/common/camunda/zeebetest"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/common/observability"
	"listing-search-workers/internal/search"
	"listing-search-workers/internal/store/cache"
	"listing-search-workers/internal/store/memory"
	"listing-search-workers/pkg/registry"

	normalizelistingquery "listing-search-workers/internal/workers/search/normalize-listing-query"
	searchlistings "listing-search-workers/internal/workers/search/search-listings"
)

const (
	seedFile     = "../../configs/listings.seed.json"
	registryFile = "../../configs/activity-registry.json"
)

// stack is the full in-process pipeline: seeded memory store behind the
// Redis cache, one search service, the HTTP router and both workers.
type stack struct {
	mr        *miniredis.Miniredis
	service   *search.Service
	router    *gin.Engine
	normalize *normalizelistingquery.Handler
	search    *searchlistings.Handler
}

func newStack(t *testing.T, cfg search.Config) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	store, err := memory.LoadFile(seedFile)
	require.NoError(t, err)
	require.Equal(t, 4, store.Len())

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	service := search.NewService(cache.NewCachedStore(store, rdb, time.Minute, log), cfg, log)

	reg, err := registry.LoadRegistry(registryFile)
	require.NoError(t, err)
	activity, ok := reg.FindByTaskType(searchlistings.TaskType)
	require.True(t, ok)

	searchCfg := searchlistings.LoadConfig()
	searchCfg.InputSchema = activity.InputSchema
	searchHandler, err := searchlistings.NewHandler(searchCfg, service, log)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	return &stack{
		mr:        mr,
		service:   service,
		router:    api.NewRouter(api.NewAPI(service, nil, "listing-search-workers", log)),
		normalize: normalizelistingquery.NewHandler(nil, log),
		search:    searchHandler,
	}
}

func (s *stack) httpSearch(t *testing.T, params url.Values) search.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/listings?"+params.Encode(), nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp search.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *stack) workerSearch(t *testing.T, rawParams map[string]interface{}) search.Response {
	t.Helper()
	client := zeebetest.NewJobClient()
	handle := camunda.Instrument(searchlistings.TaskType, s.search.Handle, nil)
	handle(client, zeebetest.NewJob(1, searchlistings.TaskType, map[string]interface{}{
		"rawParams": rawParams,
	}))

	require.Empty(t, client.Thrown())
	require.Empty(t, client.Failed())
	require.Len(t, client.Completed(), 1)

	var out struct {
		SearchResult search.Response `json:"searchResult"`
	}
	require.NoError(t, json.Unmarshal([]byte(client.Completed()[0].Variables), &out))
	return out.SearchResult
}

func ids(listings []search.ScoredListing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

// ==========================
// Search Flow Tests
// ==========================

func TestE2E_ExactMatchOverHTTPAndWorker(t *testing.T) {
	s := newStack(t, search.DefaultConfig())

	viaHTTP := s.httpSearch(t, url.Values{"roomType": {"Solo"}, "maxPrice": {"7000"}})
	viaWorker := s.workerSearch(t, map[string]interface{}{"roomType": "Solo", "maxPrice": 7000})

	assert.Equal(t, search.ResultExact, viaHTTP.Type)
	assert.Equal(t, []string{"lst-sampaloc-solo"}, ids(viaHTTP.Listings))
	assert.Equal(t, 100, viaHTTP.Listings[0].Score)
	assert.NotEmpty(t, viaHTTP.Listings[0].EmbeddingText)
	assert.Equal(t, ids(viaHTTP.Listings), ids(viaWorker.Listings))
	assert.Equal(t, viaHTTP.Type, viaWorker.Type)
}

func TestE2E_ActiveOnlyUnlessAllStatusesRequested(t *testing.T) {
	s := newStack(t, search.DefaultConfig())

	active := s.httpSearch(t, url.Values{})
	assert.Equal(t, search.ResultExact, active.Type)
	assert.Equal(t, []string{"lst-qc-bedspacer", "lst-ermita-shared", "lst-sampaloc-solo"}, ids(active.Listings))

	all := s.httpSearch(t, url.Values{"roomType": {"Solo"}, "includeAllStatuses": {"true"}})
	assert.Equal(t, []string{"lst-sampaloc-solo", "lst-makati-pending"}, ids(all.Listings))
}

func TestE2E_ReservedListingFallsBackToClosest(t *testing.T) {
	s := newStack(t, search.DefaultConfig())

	resp := s.httpSearch(t, url.Values{
		"roomType":  {"Shared"},
		"startDate": {"2025-07-01"},
		"endDate":   {"2025-07-31"},
	})

	assert.Equal(t, search.ResultClosest, resp.Type)
	assert.Equal(t, search.FallbackMessage, resp.Message)
	assert.Contains(t, ids(resp.Listings), "lst-ermita-shared")
}

func TestE2E_PriceBandWidenedInFallback(t *testing.T) {
	s := newStack(t, search.DefaultConfig())

	resp := s.workerSearch(t, map[string]interface{}{
		"minPrice": 7000,
		"maxPrice": 7500,
	})

	assert.Equal(t, search.ResultClosest, resp.Type)
	assert.Equal(t, []string{"lst-sampaloc-solo"}, ids(resp.Listings))
}

func TestE2E_CursorPagination(t *testing.T) {
	cfg := search.DefaultConfig()
	cfg.BatchSize = 2
	s := newStack(t, cfg)

	first := s.httpSearch(t, url.Values{})
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, []string{"lst-qc-bedspacer", "lst-ermita-shared"}, ids(first.Listings))

	second := s.httpSearch(t, url.Values{"cursor": {*first.NextCursor}})
	assert.Equal(t, []string{"lst-sampaloc-solo"}, ids(second.Listings))
	assert.Nil(t, second.NextCursor)

	stale := s.httpSearch(t, url.Values{"cursor": {"no-such-listing"}})
	assert.Empty(t, stale.Listings)
	assert.Nil(t, stale.NextCursor)
}

func TestE2E_RepeatedSearchServedFromCache(t *testing.T) {
	s := newStack(t, search.DefaultConfig())

	first := s.httpSearch(t, url.Values{"guestCount": {"2"}})
	keys := s.mr.Keys()
	require.NotEmpty(t, keys)

	second := s.httpSearch(t, url.Values{"guestCount": {"2"}})
	assert.Equal(t, ids(first.Listings), ids(second.Listings))
	assert.Equal(t, keys, s.mr.Keys())
}

// ==========================
// Worker Pipeline Tests
// ==========================

func TestE2E_NormalizeThenSearch(t *testing.T) {
	s := newStack(t, search.DefaultConfig())
	raw := map[string]interface{}{
		"roomType":     "Solo",
		"maxPrice":     "7000",
		"moveInDate":   "2025-07-01",
		"stayDuration": "1",
	}

	client := zeebetest.NewJobClient()
	s.normalize.Handle(client, zeebetest.NewJob(1, normalizelistingquery.TaskType, map[string]interface{}{
		"rawParams": raw,
	}))
	require.Len(t, client.Completed(), 1)

	var normalized struct {
		Query search.Query `json:"query"`
	}
	require.NoError(t, json.Unmarshal([]byte(client.Completed()[0].Variables), &normalized))
	require.NotNil(t, normalized.Query.MaxPrice)
	assert.Equal(t, 7000, *normalized.Query.MaxPrice)

	direct := s.service.Search(context.Background(), normalized.Query)
	viaWorker := s.workerSearch(t, raw)
	assert.Equal(t, ids(direct.Listings), ids(viaWorker.Listings))
	assert.Equal(t, direct.Type, viaWorker.Type)
}

func TestE2E_WorkerRejectsNestedParams(t *testing.T) {
	s := newStack(t, search.DefaultConfig())
	client := zeebetest.NewJobClient()

	s.search.Handle(client, zeebetest.NewJob(9, searchlistings.TaskType, map[string]interface{}{
		"rawParams": map[string]interface{}{"minPrice": map[string]interface{}{"gt": 1}},
	}))

	assert.Empty(t, client.Completed())
	require.Len(t, client.Thrown(), 1)
	assert.Equal(t, "INVALID_QUERY_PARAMS", client.Thrown()[0].ErrorCode)
}

func TestE2E_WorkerJobSpansCarryOutcome(t *testing.T) {
	s := newStack(t, search.DefaultConfig())
	spans := tracetest.NewSpanRecorder()
	obs, err := observability.New("listing-search-e2e", observability.Options{
		Registerer:     promclient.NewRegistry(),
		SpanProcessors: []sdktrace.SpanProcessor{spans},
	})
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	handle := camunda.Instrument(searchlistings.TaskType, s.search.Handle, obs)
	client := zeebetest.NewJobClient()
	handle(client, zeebetest.NewJob(1, searchlistings.TaskType, map[string]interface{}{
		"rawParams": map[string]interface{}{"roomType": "Solo"},
	}))
	handle(client, zeebetest.NewJob(2, searchlistings.TaskType, map[string]interface{}{
		"rawParams": map[string]interface{}{"minPrice": map[string]interface{}{"gt": 1}},
	}))

	var statuses []string
	for _, sp := range spans.Ended() {
		if sp.Name() != "job "+searchlistings.TaskType {
			continue
		}
		for _, kv := range sp.Attributes() {
			if kv.Key == "job.status" {
				statuses = append(statuses, kv.Value.AsString())
			}
		}
	}
	assert.Equal(t, []string{camunda.JobStatusCompleted, camunda.JobStatusErrorThrown}, statuses)
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkE2E_HTTPSearch(b *testing.B) {
	store, err := memory.LoadFile(seedFile)
	require.NoError(b, err)
	service := search.NewService(store, search.DefaultConfig(), logger.NewNoOpLogger())
	gin.SetMode(gin.TestMode)
	router := api.NewRouter(api.NewAPI(service, nil, "bench", logger.NewNoOpLogger()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/listings?roomType=Solo&amenities=wifi", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}
