package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/amarpathagar/pathagar-server/internal/normalize"
)

// MaxMatches caps how many hits a catalog listing considers before the store
// applies status filters and paging.
const MaxMatches = 1000

// SearchParams configures a search query.
type SearchParams struct {
	Query    string // User's search query
	Category string // Optional exact category filter

	Limit  int
	Offset int

	Highlight bool
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single matching book.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Author     string            `json:"author,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	searchRequest.SortBy([]string{"-_score", "-created_at"})
	searchRequest.Fields = []string{"title", "author"}
	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("author")
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
			ID:    hit.ID,
			Score: hit.Score,
		}
		if t, ok := hit.Fields["title"].(string); ok {
			searchHit.Title = t
		}
		if a, ok := hit.Fields["author"].(string); ok {
			searchHit.Author = a
		}
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

// MatchingIDs returns the IDs of books matching q, best match first.
func (s *SearchIndex) MatchingIDs(ctx context.Context, q string) ([]string, error) {
	result, err := s.Search(ctx, SearchParams{Query: q, Limit: MaxMatches})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		textQueries := []query.Query{}

		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		authorMatch := bleve.NewMatchQuery(q)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)
		textQueries = append(textQueries, authorMatch)

		descMatch := bleve.NewMatchQuery(q)
		descMatch.SetField("description")
		descMatch.SetBoost(0.5)
		textQueries = append(textQueries, descMatch)

		// Typo tolerance on titles
		fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len([]rune(q)) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(q))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		// Librarians search by the label on the spine or the ISBN.
		codeQuery := bleve.NewTermQuery(normalize.PhysicalCode(q))
		codeQuery.SetField("physical_code")
		codeQuery.SetBoost(5.0)
		textQueries = append(textQueries, codeQuery)

		isbnQuery := bleve.NewTermQuery(q)
		isbnQuery.SetField("isbn")
		isbnQuery.SetBoost(5.0)
		textQueries = append(textQueries, isbnQuery)

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Category != "" {
		cq := bleve.NewTermQuery(normalize.Category(params.Category))
		cq.SetField("category")
		queries = append(queries, cq)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
