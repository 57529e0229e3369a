package web_search

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wayde1122/chat-box-code/tools/web_search/models"
)

// MockSearcher returns deterministic placeholder results. It stands in for
// a backend whose API key is missing.
type MockSearcher struct {
	Backend Provider
}

func (m MockSearcher) Discover(_ context.Context, q string, k int) ([]models.Result, error) {
	if k <= 0 {
		k = 3
	}
	n := min(k, 3)
	out := make([]models.Result, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Result{
			Title:   fmt.Sprintf("[mock] %s result %d", q, i),
			URL:     fmt.Sprintf("https://example.com/mock/%s/%d?q=%s", m.Backend, i, url.QueryEscape(q)),
			Snippet: fmt.Sprintf("[mock] Placeholder result %d for %q. Configure a %s API key for live results.", i, q, m.Backend),
		})
	}
	return out, nil
}
