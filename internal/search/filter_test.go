package search

import (
	"math"
	"testing"
	"time"

	"listing-search-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// ==========================
// Strict Filter Tests
// ==========================

func TestStrictFilter_ActiveOnlyByDefault(t *testing.T) {
	f := StrictFilter(Normalize(RawParams{}))
	assert.Equal(t, models.ListingStatusActive, f.Status)

	f = StrictFilter(Normalize(RawParams{"includeAllStatuses": {"true"}}))
	assert.Empty(t, f.Status)
}

func TestStrictFilter_GenderElseIf(t *testing.T) {
	f := StrictFilter(Normalize(RawParams{"femaleOnly": {"true"}, "maleOnly": {"true"}}))
	assert.True(t, f.FemaleOnly)
	assert.False(t, f.MaleOnly)

	f = StrictFilter(Normalize(RawParams{"maleOnly": {"true"}}))
	assert.False(t, f.FemaleOnly)
	assert.True(t, f.MaleOnly)
}

func TestStrictFilter_CategoriesBeatCategory(t *testing.T) {
	f := StrictFilter(Normalize(RawParams{
		"categories": {"A", "B"},
		"category":   {"C"},
	}))
	assert.Equal(t, []string{"A", "B"}, f.Categories)
	assert.Empty(t, f.Category)

	assert.True(t, f.Matches(models.Listing{Status: "active", Category: "B"}))
	assert.False(t, f.Matches(models.Listing{Status: "active", Category: "C"}))
}

func TestStrictFilter_OnlyGuestCountIsStrict(t *testing.T) {
	f := StrictFilter(Normalize(RawParams{
		"roomCount":     {"3"},
		"guestCount":    {"2"},
		"bathroomCount": {"2"},
	}))
	require.NotNil(t, f.MinGuestCount)
	assert.Equal(t, 2, *f.MinGuestCount)
	assert.Nil(t, f.MinRoomCount)
	assert.Nil(t, f.MinBathroomCount)
}

func TestStrictFilter_Matches(t *testing.T) {
	q := Normalize(RawParams{
		"minPrice":   {"3000"},
		"maxPrice":   {"5000"},
		"guestCount": {"2"},
		"roomType":   {"Solo"},
		"userId":     {"owner-1"},
	})
	f := StrictFilter(q)

	base := models.Listing{
		Status:     "active",
		UserID:     "owner-1",
		Price:      4000,
		GuestCount: 2,
		RoomType:   "Solo",
	}
	assert.True(t, f.Matches(base))

	cases := map[string]func(l *models.Listing){
		"inactive":      func(l *models.Listing) { l.Status = "pending" },
		"other owner":   func(l *models.Listing) { l.UserID = "owner-2" },
		"below band":    func(l *models.Listing) { l.Price = 2999 },
		"above band":    func(l *models.Listing) { l.Price = 5001 },
		"too few guest": func(l *models.Listing) { l.GuestCount = 1 },
		"room type":     func(l *models.Listing) { l.RoomType = "Shared" },
	}
	for name, mutate := range cases {
		l := base
		mutate(&l)
		assert.False(t, f.Matches(l), name)
	}

	edge := base
	edge.Price = 5000
	assert.True(t, f.Matches(edge), "band is inclusive")
}

// ==========================
// Availability Tests
// ==========================

func TestDateRange_Overlaps(t *testing.T) {
	w := DateRange{Start: day("2025-06-01"), End: day("2025-09-01")}

	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{name: "covers window start", start: "2025-05-20", end: "2025-06-10", want: true},
		{name: "touches window start", start: "2025-05-01", end: "2025-06-01", want: true},
		{name: "covers window end", start: "2025-08-20", end: "2025-09-10", want: true},
		{name: "covers whole window", start: "2025-05-01", end: "2025-10-01", want: true},
		{name: "entirely before", start: "2025-01-01", end: "2025-05-31", want: false},
		{name: "entirely after", start: "2025-09-02", end: "2025-12-01", want: false},
		{name: "strictly inside", start: "2025-07-01", end: "2025-07-15", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := models.Reservation{StartDate: day(tt.start), EndDate: day(tt.end)}
			assert.Equal(t, tt.want, w.Overlaps(r))
		})
	}
}

func TestStrictFilter_Availability(t *testing.T) {
	f := StrictFilter(Normalize(RawParams{"moveInDate": {"2025-06"}, "stayDuration": {"short-term"}}))
	require.NotNil(t, f.Available)

	booked := models.Listing{
		Status: "active",
		Reservations: []models.Reservation{
			{StartDate: day("2025-05-15"), EndDate: day("2025-06-15")},
		},
	}
	free := models.Listing{
		Status: "active",
		Reservations: []models.Reservation{
			{StartDate: day("2025-01-01"), EndDate: day("2025-02-01")},
		},
	}
	assert.False(t, f.Matches(booked))
	assert.True(t, f.Matches(free))
}

// ==========================
// Relaxed Filter Tests
// ==========================

func TestRelaxedFilter_WidensPriceBand(t *testing.T) {
	f := RelaxedFilter(Normalize(RawParams{"minPrice": {"9000"}, "maxPrice": {"9500"}}))
	require.NotNil(t, f.MinPrice)
	require.NotNil(t, f.MaxPrice)
	assert.Equal(t, 7200, *f.MinPrice)
	assert.Equal(t, 11400, *f.MaxPrice)

	f = RelaxedFilter(Normalize(RawParams{"minPrice": {"3333"}, "maxPrice": {"3333"}}))
	assert.Equal(t, 2666, *f.MinPrice)
	assert.Equal(t, 4000, *f.MaxPrice)

	f = RelaxedFilter(Normalize(RawParams{"maxPrice": {"1000"}}))
	assert.Nil(t, f.MinPrice)
	assert.Equal(t, 1200, *f.MaxPrice)
}

func TestRelaxedFilter_LowersCountsWithFloor(t *testing.T) {
	f := RelaxedFilter(Normalize(RawParams{
		"roomCount":     {"3"},
		"guestCount":    {"1"},
		"bathroomCount": {"0"},
	}))
	assert.Equal(t, 2, *f.MinRoomCount)
	assert.Equal(t, 1, *f.MinGuestCount)
	assert.Equal(t, 1, *f.MinBathroomCount)
}

func TestRelaxedFilter_DropsStrictFacets(t *testing.T) {
	f := RelaxedFilter(Normalize(RawParams{
		"roomType":     {"Solo"},
		"femaleOnly":   {"true"},
		"moveInDate":   {"2025-06"},
		"stayDuration": {"long-term"},
		"category":     {"Student-Friendly"},
		"userId":       {"owner-1"},
	}))

	assert.Empty(t, f.RoomType)
	assert.False(t, f.FemaleOnly)
	assert.Nil(t, f.Available)
	assert.Equal(t, "Student-Friendly", f.Category)
	assert.Equal(t, "owner-1", f.UserID)
	assert.Equal(t, models.ListingStatusActive, f.Status)
}

func TestRelaxedFilter_SaturatesHugePrices(t *testing.T) {
	f := RelaxedFilter(Normalize(RawParams{
		"minPrice": {"6000"},
		"maxPrice": {"9000000000000000000"},
	}))
	require.NotNil(t, f.MaxPrice)
	assert.Equal(t, math.MaxInt, *f.MaxPrice)
	assert.Equal(t, 4800, *f.MinPrice)

	l := models.Listing{Status: models.ListingStatusActive, Price: 5000}
	assert.True(t, f.Matches(l))
}

func TestScalePrice(t *testing.T) {
	assert.Equal(t, 1200, scalePrice(1000, 1.2, math.Ceil))
	assert.Equal(t, math.MaxInt, scalePrice(math.MaxInt, 1.2, math.Ceil))
	assert.Equal(t, math.MinInt, scalePrice(math.MinInt, 1.2, math.Floor))
}
