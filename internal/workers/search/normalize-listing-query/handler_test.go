package normalizelistingquery

import (
	"context"
	"encoding/json"
	"testing"

	"listing-search-workers/internal/common/camunda/zeebetest"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func decodeQuery(t *testing.T, variables string) search.Query {
	t.Helper()
	var out Output
	require.NoError(t, json.Unmarshal([]byte(variables), &out))
	return out.Query
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]interface{}
		validate func(t *testing.T, q search.Query)
	}{
		{
			name: "numbers arrive as JSON numbers",
			raw: map[string]interface{}{
				"minPrice":   3000.0,
				"maxPrice":   "6000",
				"guestCount": 2.0,
				"distance":   5.0,
			},
			validate: func(t *testing.T, q search.Query) {
				require.NotNil(t, q.MinPrice)
				require.NotNil(t, q.MaxPrice)
				require.NotNil(t, q.GuestCount)
				require.NotNil(t, q.Distance)
				assert.Equal(t, 3000, *q.MinPrice)
				assert.Equal(t, 6000, *q.MaxPrice)
				assert.Equal(t, 2, *q.GuestCount)
				assert.Equal(t, 5, *q.Distance)
			},
		},
		{
			name: "booleans and arrays",
			raw: map[string]interface{}{
				"petsAllowed":      true,
				"cctv":             "true",
				"quietEnvironment": false,
				"amenities":        []interface{}{"wifi", "aircon"},
			},
			validate: func(t *testing.T, q search.Query) {
				assert.True(t, q.PetsAllowed)
				assert.True(t, q.CCTV)
				assert.False(t, q.QuietEnvironment)
				assert.Equal(t, []string{"wifi", "aircon"}, q.Amenities)
			},
		},
		{
			name: "move-in window derived",
			raw: map[string]interface{}{
				"moveInDate":   "2025-03",
				"stayDuration": "short-term",
			},
			validate: func(t *testing.T, q search.Query) {
				assert.Equal(t, "2025-03-01", q.AvailabilityStartDate)
				assert.Equal(t, "2025-06-01", q.AvailabilityEndDate)
			},
		},
		{
			name: "garbage becomes absent",
			raw: map[string]interface{}{
				"minPrice":  "abc",
				"originLat": "NaN",
			},
			validate: func(t *testing.T, q search.Query) {
				assert.Nil(t, q.MinPrice)
				assert.Nil(t, q.OriginLat)
			},
		},
		{
			name: "nil params",
			raw:  nil,
			validate: func(t *testing.T, q search.Query) {
				assert.Equal(t, search.Query{}, q)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t)
			out := h.Execute(context.Background(), &Input{RawParams: tt.raw})
			require.NotNil(t, out)
			tt.validate(t, out.Query)
		})
	}
}

// ==========================
// Job Handling Tests
// ==========================

func TestHandler_Handle_CompletesJob(t *testing.T) {
	h := createTestHandler(t)
	client := zeebetest.NewJobClient()

	job := zeebetest.NewJob(7, TaskType, map[string]interface{}{
		"rawParams": map[string]interface{}{
			"roomType":  "Solo",
			"originLat": 14.55,
			"originLng": 121.02,
		},
	})

	h.Handle(client, job)

	require.Len(t, client.Completed(), 1)
	assert.Empty(t, client.Thrown())
	assert.Empty(t, client.Failed())

	req := client.Completed()[0]
	assert.Equal(t, int64(7), req.JobKey)

	q := decodeQuery(t, req.Variables)
	assert.Equal(t, "Solo", q.RoomType)
	origin, ok := q.Origin()
	require.True(t, ok)
	assert.Equal(t, 14.55, origin.Lat)
	assert.Equal(t, 121.02, origin.Lng)
}

func TestHandler_Handle_ParseError(t *testing.T) {
	h := createTestHandler(t)
	client := zeebetest.NewJobClient()

	h.Handle(client, zeebetest.NewJob(8, TaskType, `{"rawParams": `))

	assert.Empty(t, client.Completed())
	require.Len(t, client.Thrown(), 1)
	assert.Equal(t, "PARSE_ERROR", client.Thrown()[0].ErrorCode)
	assert.Equal(t, int64(8), client.Thrown()[0].JobKey)
}

func TestHandler_Handle_WrongShape(t *testing.T) {
	h := createTestHandler(t)
	client := zeebetest.NewJobClient()

	// rawParams must be an object
	h.Handle(client, zeebetest.NewJob(9, TaskType, map[string]interface{}{"rawParams": "minPrice=1"}))

	require.Len(t, client.Thrown(), 1)
	assert.Equal(t, "PARSE_ERROR", client.Thrown()[0].ErrorCode)
}
