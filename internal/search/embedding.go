// internal/search/embedding.go
package search

import (
	"strings"

	"listing-search-workers/internal/models"
)

var flagPhrases = []struct {
	phrase string
	set    func(models.Listing) bool
}{
	{"female only", func(l models.Listing) bool { return l.FemaleOnly }},
	{"male only", func(l models.Listing) bool { return l.MaleOnly }},
	{"visitors allowed", func(l models.Listing) bool { return l.VisitorsAllowed }},
	{"pets allowed", func(l models.Listing) bool { return l.PetsAllowed }},
	{"smoking allowed", func(l models.Listing) bool { return l.SmokingAllowed }},
	{"24/7 security", func(l models.Listing) bool { return l.Security24h }},
	{"cctv", func(l models.Listing) bool { return l.CCTV }},
	{"fire safety", func(l models.Listing) bool { return l.FireSafety }},
	{"near public transport", func(l models.Listing) bool { return l.NearTransport }},
	{"study friendly", func(l models.Listing) bool { return l.StudyFriendly }},
	{"quiet environment", func(l models.Listing) bool { return l.QuietEnvironment }},
	{"flexible lease", func(l models.Listing) bool { return l.FlexibleLease }},
}

// EmbeddingText flattens a listing into lowercase text for downstream
// semantic search. Ranking never reads it.
func EmbeddingText(l models.Listing) string {
	parts := make([]string, 0, 5+len(l.Amenities)+len(flagPhrases))
	parts = append(parts, l.Title, l.Description)
	parts = append(parts, l.Amenities...)
	parts = append(parts, l.RoomType, l.Category)
	for _, fp := range flagPhrases {
		if fp.set(l) {
			parts = append(parts, fp.phrase)
		}
	}

	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return strings.ToLower(b.String())
}
