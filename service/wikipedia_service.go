package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tieubaoca/research-assistant/types"
)

const DefaultWikipediaURL = "https://en.wikipedia.org"

var ErrArticleNotFound = errors.New("no encyclopedia article found")

// WikipediaService looks up article summaries through the MediaWiki REST API.
type WikipediaService struct {
	baseURL string
	client  *http.Client
}

func NewWikipediaService(baseURL string, client *http.Client) *WikipediaService {
	if baseURL == "" {
		baseURL = DefaultWikipediaURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WikipediaService{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type wikipediaSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Summary returns the lead section of the article named title.
func (s *WikipediaService) Summary(ctx context.Context, title string) (string, error) {
	title = strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	if title == "" {
		return "", fmt.Errorf("%w: empty title", ErrArticleNotFound)
	}
	endpoint := s.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrArticleNotFound, title)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}

	var summary wikipediaSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return "", fmt.Errorf("failed to decode wikipedia response: %w", err)
	}
	out := fmt.Sprintf("Page: %s\nSummary: %s", summary.Title, summary.Extract)
	if link := summary.ContentURLs.Desktop.Page; link != "" {
		out += "\nURL: " + link
	}
	return out, nil
}

// Tool exposes Summary to the agent. A missing article is reported to the
// model as text rather than failing the run.
func (s *WikipediaService) Tool() types.ToolSpec {
	return types.ToolSpec{
		Name:        "wikipedia",
		Description: "Look up the encyclopedia summary of a topic.",
		Params:      map[string]string{"query": "Article title to look up"},
		Handler: func(ctx context.Context, args []byte) (any, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid wikipedia arguments: %w", err)
			}
			out, err := s.Summary(ctx, in.Query)
			if errors.Is(err, ErrArticleNotFound) {
				return "No good Wikipedia Search Result was found", nil
			}
			return out, err
		},
	}
}
