package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/tools/web_search/models"
)

const DefaultEndpoint = "https://api.duckduckgo.com/"

// Search uses the keyless Instant Answer API. It returns the abstract and
// related topics rather than a ranked web index.
type Search struct {
	Endpoint string
	Client   *core.HTTPClient
}

type topic struct {
	Text     string  `json:"Text"`
	FirstURL string  `json:"FirstURL"`
	Topics   []topic `json:"Topics"`
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1", endpoint, url.QueryEscape(q))
	var raw struct {
		Heading       string  `json:"Heading"`
		AbstractText  string  `json:"AbstractText"`
		AbstractURL   string  `json:"AbstractURL"`
		RelatedTopics []topic `json:"RelatedTopics"`
	}
	if err := s.Client.DoJSON(ctx, http.MethodGet, u, nil, nil, &raw); err != nil {
		return nil, err
	}

	var out []models.Result
	if raw.AbstractText != "" && raw.AbstractURL != "" {
		title := raw.Heading
		if title == "" {
			title = q
		}
		out = append(out, models.Result{Title: title, URL: raw.AbstractURL, Snippet: raw.AbstractText})
	}
	var walk func(ts []topic)
	walk = func(ts []topic) {
		for _, t := range ts {
			if len(out) >= k {
				return
			}
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			if t.Text == "" || t.FirstURL == "" {
				continue
			}
			out = append(out, models.Result{Title: titleOf(t.Text), URL: t.FirstURL, Snippet: t.Text})
		}
	}
	walk(raw.RelatedTopics)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// titleOf takes the part before " - ", which is how related topics name
// themselves.
func titleOf(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	if len([]rune(text)) > 60 {
		return string([]rune(text)[:60]) + "..."
	}
	return text
}
