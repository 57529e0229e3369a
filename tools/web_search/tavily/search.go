package tavily

import (
	"context"
	"net/http"

	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/tools/web_search/models"
)

const DefaultEndpoint = "https://api.tavily.com/search"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *core.HTTPClient
}

type request struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer,omitempty"`
}

type response struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	_, results, err := s.query(ctx, q, k, false)
	return results, err
}

// Answer asks Tavily for its synthesized answer alongside the results.
func (s Search) Answer(ctx context.Context, q string, k int) (string, []models.Result, error) {
	return s.query(ctx, q, k, true)
}

func (s Search) query(ctx context.Context, q string, k int, withAnswer bool) (string, []models.Result, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req := request{APIKey: s.ApiKey, Query: q, SearchDepth: "basic", MaxResults: k, IncludeAnswer: withAnswer}
	var raw response
	if err := s.Client.DoJSON(ctx, http.MethodPost, endpoint, nil, req, &raw); err != nil {
		return "", nil, err
	}
	var out []models.Result
	for i, r := range raw.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return raw.Answer, out, nil
}
