package bing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/tools/web_search/models"
)

const DefaultEndpoint = "https://api.bing.microsoft.com/v7.0/search"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *core.HTTPClient
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u := fmt.Sprintf("%s?q=%s&count=%d", endpoint, url.QueryEscape(q), k)
	var raw struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	headers := map[string]string{"Ocp-Apim-Subscription-Key": s.ApiKey}
	if err := s.Client.DoJSON(ctx, http.MethodGet, u, headers, nil, &raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, v := range raw.WebPages.Value {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: v.Name, URL: v.URL, Snippet: v.Snippet})
	}
	return out, nil
}
