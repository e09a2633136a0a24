package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a photo search.
type SearchParams struct {
	Query    string // User's search text
	BookID   string // Restrict to one book (empty = whole collection)
	Category string // Restrict to one category (exact match)

	// Pagination
	Limit  int
	Offset int

	// Options
	Highlight bool // Include match highlighting
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     20,
		Offset:    0,
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single matching photo.
type SearchHit struct {
	PhotoID      string            `json:"photo_id"`
	BookID       string            `json:"book_id"`
	PageID       string            `json:"page_id"`
	Score        float64           `json:"score"`
	BookName     string            `json:"book_name,omitempty"`
	Category     string            `json:"category,omitempty"`
	InnerCaption string            `json:"inner_caption,omitempty"`
	OuterCaption string            `json:"outer_caption,omitempty"`
	Highlights   map[string]string `json:"highlights,omitempty"`
}

// Search executes a caption search.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("inner_caption")
		searchRequest.Highlight.AddField("outer_caption")
	}

	// Request stored fields
	searchRequest.Fields = []string{
		"book_id", "page_id", "book_name", "category",
		"inner_caption", "outer_caption",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			PhotoID: hit.ID,
			Score:   hit.Score,
		}

		// Extract stored fields
		if v, ok := hit.Fields["book_id"].(string); ok {
			searchHit.BookID = v
		}
		if v, ok := hit.Fields["page_id"].(string); ok {
			searchHit.PageID = v
		}
		if v, ok := hit.Fields["book_name"].(string); ok {
			searchHit.BookName = v
		}
		if v, ok := hit.Fields["category"].(string); ok {
			searchHit.Category = v
		}
		if v, ok := hit.Fields["inner_caption"].(string); ok {
			searchHit.InnerCaption = v
		}
		if v, ok := hit.Fields["outer_caption"].(string); ok {
			searchHit.OuterCaption = v
		}

		// Extract highlights
		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery assembles the text query plus any filters.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	text := strings.TrimSpace(params.Query)
	if text == "" {
		queries = append(queries, bleve.NewMatchAllQuery())
	} else {
		// Match against captions and book name, with fuzziness for typos.
		matchQuery := bleve.NewMatchQuery(text)
		matchQuery.SetFuzziness(1)
		queries = append(queries, matchQuery)
	}

	if params.BookID != "" {
		bookQuery := query.NewTermQuery(params.BookID)
		bookQuery.SetField("book_id")
		queries = append(queries, bookQuery)
	}

	if params.Category != "" {
		categoryQuery := query.NewTermQuery(params.Category)
		categoryQuery.SetField("category")
		queries = append(queries, categoryQuery)
	}

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
