// internal/search/scoring.go
package search

import (
	"listing-search-workers/internal/models"
)

// listingFlags returns the listing's secondary facets in the same order as
// Query.requestedFlags.
func listingFlags(l models.Listing) []bool {
	return []bool{
		l.VisitorsAllowed, l.PetsAllowed, l.SmokingAllowed, l.Security24h, l.CCTV,
		l.FireSafety, l.NearTransport, l.StudyFriendly, l.QuietEnvironment, l.FlexibleLease,
	}
}

// flagMatches counts the flags the query asked for and how many of them the
// listing has.
func flagMatches(q Query, l models.Listing) (requested, matched int) {
	have := listingFlags(l)
	for i, want := range q.requestedFlags() {
		if !want {
			continue
		}
		requested++
		if have[i] {
			matched++
		}
	}
	return requested, matched
}

// amenityMatches counts requested amenities present on the listing.
func amenityMatches(requested, have []string) int {
	if len(requested) == 0 || len(have) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(have))
	for _, a := range have {
		set[a] = struct{}{}
	}
	n := 0
	for _, a := range requested {
		if _, ok := set[a]; ok {
			n++
		}
	}
	return n
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
