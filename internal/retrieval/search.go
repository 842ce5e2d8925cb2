package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// searchClient calls the Tavily search API over its JSON REST surface.
type searchClient struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	maxResults int
	depth      string
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (c *searchClient) search(ctx context.Context, query string) ([]searchResult, error) {
	payload, err := json.Marshal(searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		MaxResults:  c.maxResults,
		SearchDepth: c.depth,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.baseURL+"/search",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return result.Results, nil
}

func newSearchClient(baseURL, apiKey string, maxResults int, depth string, timeout time.Duration) *searchClient {
	return &searchClient{
		http:       &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxResults: maxResults,
		depth:      depth,
	}
}
