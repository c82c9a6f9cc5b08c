// internal/workers/search/search-listings/models.go
package searchlistings

import "listing-search-workers/internal/search"

type Input struct {
	RawParams map[string]interface{} `json:"rawParams"`
}

type Output struct {
	SearchResult *search.Response `json:"searchResult"`
}
