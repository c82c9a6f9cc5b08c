// internal/search/fallback.go
package search

import (
	"math"
	"sort"

	"listing-search-workers/internal/models"
)

const FallbackMessage = "No exact matches found. Showing the closest alternatives."

// Weights of the fallback score terms. They sum to 1.
const (
	weightPrice     = 0.30
	weightDistance  = 0.30
	weightRoomType  = 0.10
	weightAmenities = 0.15
	weightRules     = 0.15

	neutralScore = 50.0
)

// fallbackRadius is max(2 x distance, floor), or floor without a distance.
func (s *Service) fallbackRadius(q Query) float64 {
	floor := s.cfg.FallbackRadiusFloorKm
	if q.Distance == nil {
		return floor
	}
	return math.Max(2*float64(*q.Distance), floor)
}

// rankFallback geo-filters relaxed candidates within the widened radius and
// sorts them by the weighted score only.
func (s *Service) rankFallback(q Query, candidates []models.Listing) []ScoredListing {
	origin := s.origin(q)
	radius := s.fallbackRadius(q)

	ranked := make([]ScoredListing, 0, len(candidates))
	for _, l := range candidates {
		p, ok := PointFromLatLng(l.LatLng)
		if !ok {
			continue
		}
		d := Haversine(origin, p, s.cfg.EarthRadiusKm)
		if d > radius {
			continue
		}
		ranked = append(ranked, newScoredListing(l, fallbackScore(q, l, d, radius), d))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func fallbackScore(q Query, l models.Listing, distanceKm, radiusKm float64) int {
	total := 0.0

	// Price is only scored against a full band; otherwise it contributes 0.
	if q.MinPrice != nil && q.MaxPrice != nil {
		total += priceProximity(l.Price, *q.MinPrice, *q.MaxPrice) * weightPrice
	}

	if radiusKm > 0 {
		total += 100 * math.Max(0, 1-distanceKm/radiusKm) * weightDistance
	}

	roomType := neutralScore
	if q.RoomType != "" && l.RoomType == q.RoomType {
		roomType = 100
	}
	total += roomType * weightRoomType

	amenities := neutralScore
	if len(q.Amenities) > 0 {
		amenities = 100 * float64(amenityMatches(q.Amenities, l.Amenities)) / float64(len(q.Amenities))
	}
	total += amenities * weightAmenities

	rules := neutralScore
	if requested, matched := flagMatches(q, l); requested > 0 {
		rules = 100 * float64(matched) / float64(requested)
	}
	total += rules * weightRules

	return clampScore(int(math.Round(total)))
}

// priceProximity is 100 at the band's midpoint, falling linearly to 0 at one
// band-width away. A zero-width band scores 100 only on an exact price.
func priceProximity(price, min, max int) float64 {
	lo, hi := float64(min), float64(max)
	width := hi - lo
	mid := lo + width/2
	if width <= 0 {
		if float64(price) == mid {
			return 100
		}
		return 0
	}
	return 100 * math.Max(0, 1-math.Abs(float64(price)-mid)/width)
}
