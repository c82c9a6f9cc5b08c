// internal/search/primary.go
package search

import (
	"math"
	"sort"

	"listing-search-workers/internal/models"
)

// rankPrimary geo-filters strict candidates, scores them on secondary facets
// and sorts by score desc, price asc, distance asc.
func (s *Service) rankPrimary(q Query, candidates []models.Listing) []ScoredListing {
	origin := s.origin(q)
	flagsRequested := 0
	for _, want := range q.requestedFlags() {
		if want {
			flagsRequested++
		}
	}
	requested := len(q.Amenities) + flagsRequested

	ranked := make([]ScoredListing, 0, len(candidates))
	for _, l := range candidates {
		p, ok := PointFromLatLng(l.LatLng)
		if !ok {
			continue
		}
		d := Haversine(origin, p, s.cfg.EarthRadiusKm)
		if q.Distance != nil && d > float64(*q.Distance) {
			continue
		}

		score := 100
		if requested > 0 {
			_, flagsMatched := flagMatches(q, l)
			matched := amenityMatches(q.Amenities, l.Amenities) + flagsMatched
			score = clampScore(int(math.Round(50 + 50*float64(matched)/float64(requested))))
		}

		ranked = append(ranked, newScoredListing(l, score, d))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.DistanceKm < b.DistanceKm
	})
	return ranked
}

func hasPerfectScore(ranked []ScoredListing) bool {
	for _, r := range ranked {
		if r.Score == 100 {
			return true
		}
	}
	return false
}
