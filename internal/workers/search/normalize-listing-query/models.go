// internal/workers/search/normalize-listing-query/models.go
package normalizelistingquery

import "listing-search-workers/internal/search"

type Input struct {
	RawParams map[string]interface{} `json:"rawParams"`
}

type Output struct {
	Query search.Query `json:"query"`
}
