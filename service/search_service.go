package service

import (
	"context"
	"encoding/json"
	"fmt"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/tieubaoca/research-assistant/types"
)

// SearchResult represents a single search result from Google Custom Search API
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SearchService handles Google Custom Search operations
type SearchService struct {
	apiKey   string
	engineID string
	opts     []option.ClientOption
	limit    int64
}

// NewSearchService creates a new instance of SearchService.
// Extra client options are passed to the customsearch client as-is.
func NewSearchService(apiKey, engineID string, opts ...option.ClientOption) *SearchService {
	return &SearchService{
		apiKey:   apiKey,
		engineID: engineID,
		opts:     opts,
		limit:    5,
	}
}

// Search performs a Google Custom Search and returns structured results
func (s *SearchService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	opts := append([]option.ClientOption{}, s.opts...)
	if s.apiKey != "" {
		opts = append(opts, option.WithAPIKey(s.apiKey))
	}
	searchService, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}

	search := searchService.Cse.List().Context(ctx)
	search.Q(query)
	search.Cx(s.engineID)
	search.Num(s.limit)

	result, err := search.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(result.Items))
	for _, item := range result.Items {
		searchResults = append(searchResults, SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return searchResults, nil
}

// SearchJSON performs a search and returns results as a JSON string
func (s *SearchService) SearchJSON(ctx context.Context, query string) (string, error) {
	results, err := s.Search(ctx, query)
	if err != nil {
		return "", err
	}

	jsonResult, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(jsonResult), nil
}

// Tool exposes Search to the agent as web_search.
func (s *SearchService) Tool() types.ToolSpec {
	return types.ToolSpec{
		Name:        "web_search",
		Description: "Search the web for information that is not in the document.",
		Params:      map[string]string{"query": "The search query"},
		Handler: func(ctx context.Context, args []byte) (any, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid web_search arguments: %w", err)
			}
			return s.SearchJSON(ctx, in.Query)
		},
	}
}
