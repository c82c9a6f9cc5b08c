// internal/search/paginate.go
package search

// paginate returns the batch after cursor and the cursor for the next page.
// An empty cursor starts at the beginning. A cursor that is not in items
// yields an empty page and no next cursor.
func paginate(items []ScoredListing, cursor string, batch int) ([]ScoredListing, *string) {
	start := 0
	if cursor != "" {
		idx := -1
		for i := range items {
			if items[i].ID == cursor {
				idx = i
				break
			}
		}
		if idx < 0 {
			return []ScoredListing{}, nil
		}
		start = idx + 1
	}

	end := start + batch
	if end > len(items) {
		end = len(items)
	}

	page := make([]ScoredListing, end-start)
	copy(page, items[start:end])

	if end < len(items) && len(page) > 0 {
		next := page[len(page)-1].ID
		return page, &next
	}
	return page, nil
}
