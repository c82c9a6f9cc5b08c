// internal/search/filter.go
package search

import (
	"math"
	"time"

	"listing-search-workers/internal/models"
)

// DateRange is an inclusive [Start, End] interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether a reservation conflicts with the window. A
// reservation strictly inside the window does not count; the test only
// looks at the window's two edges.
func (w DateRange) Overlaps(r models.Reservation) bool {
	return (!r.EndDate.Before(w.Start) && !r.StartDate.After(w.Start)) ||
		(!r.StartDate.After(w.End) && !r.EndDate.Before(w.End))
}

// Filter is the store-agnostic candidate filter. Zero values mean "no
// constraint". Every store translates it into its own query language and
// Matches is the reference semantics they must agree with.
type Filter struct {
	Status string `json:"status,omitempty"`
	UserID string `json:"userId,omitempty"`

	MinPrice *int `json:"minPrice,omitempty"`
	MaxPrice *int `json:"maxPrice,omitempty"`

	MinRoomCount     *int `json:"minRoomCount,omitempty"`
	MinGuestCount    *int `json:"minGuestCount,omitempty"`
	MinBathroomCount *int `json:"minBathroomCount,omitempty"`

	RoomType   string `json:"roomType,omitempty"`
	FemaleOnly bool   `json:"femaleOnly,omitempty"`
	MaleOnly   bool   `json:"maleOnly,omitempty"`

	// Categories takes precedence over Category.
	Categories []string `json:"categories,omitempty"`
	Category   string   `json:"category,omitempty"`

	// Available excludes listings with a reservation overlapping the range.
	Available *DateRange `json:"available,omitempty"`
}

// StrictFilter builds the primary-stage filter.
func StrictFilter(q Query) Filter {
	f := baseFilter(q)
	f.MinPrice = q.MinPrice
	f.MaxPrice = q.MaxPrice
	f.MinGuestCount = q.GuestCount
	f.RoomType = q.RoomType

	if q.FemaleOnly {
		f.FemaleOnly = true
	} else if q.MaleOnly {
		f.MaleOnly = true
	}

	if w, ok := q.AvailabilityWindow(); ok {
		f.Available = &w
	}
	return f
}

// RelaxedFilter builds the fallback-stage filter: a price band widened by 20%
// on each side, count minimums lowered by one (never below one), and no room
// type, gender or availability constraint.
func RelaxedFilter(q Query) Filter {
	f := baseFilter(q)
	if q.MinPrice != nil {
		v := scalePrice(*q.MinPrice, 0.8, math.Floor)
		f.MinPrice = &v
	}
	if q.MaxPrice != nil {
		v := scalePrice(*q.MaxPrice, 1.2, math.Ceil)
		f.MaxPrice = &v
	}
	f.MinRoomCount = relaxCount(q.RoomCount)
	f.MinGuestCount = relaxCount(q.GuestCount)
	f.MinBathroomCount = relaxCount(q.BathroomCount)
	return f
}

// scalePrice multiplies a price bound by factor and rounds it, saturating at
// the int range instead of wrapping.
func scalePrice(v int, factor float64, round func(float64) float64) int {
	scaled := round(float64(v) * factor)
	switch {
	case scaled >= float64(math.MaxInt):
		return math.MaxInt
	case scaled <= float64(math.MinInt):
		return math.MinInt
	}
	return int(scaled)
}

func baseFilter(q Query) Filter {
	f := Filter{UserID: q.UserID}
	if !q.IncludeAllStatuses {
		f.Status = models.ListingStatusActive
	}
	if len(q.Categories) > 0 {
		f.Categories = q.Categories
	} else if q.Category != "" {
		f.Category = q.Category
	}
	return f
}

func relaxCount(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n - 1
	if v < 1 {
		v = 1
	}
	return &v
}

// Matches evaluates the filter against a single listing.
func (f Filter) Matches(l models.Listing) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.UserID != "" && l.UserID != f.UserID {
		return false
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	if f.MinRoomCount != nil && l.RoomCount < *f.MinRoomCount {
		return false
	}
	if f.MinGuestCount != nil && l.GuestCount < *f.MinGuestCount {
		return false
	}
	if f.MinBathroomCount != nil && l.BathroomCount < *f.MinBathroomCount {
		return false
	}
	if f.RoomType != "" && l.RoomType != f.RoomType {
		return false
	}
	if f.FemaleOnly && !l.FemaleOnly {
		return false
	}
	if f.MaleOnly && !l.MaleOnly {
		return false
	}
	if len(f.Categories) > 0 {
		if !contains(f.Categories, l.Category) {
			return false
		}
	} else if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.Available != nil {
		for _, r := range l.Reservations {
			if f.Available.Overlaps(r) {
				return false
			}
		}
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
