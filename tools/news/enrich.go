package news

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"golang.org/x/sync/errgroup"
)

const enrichWorkers = 4

// Enricher replaces feed descriptions with the readability excerpt of the
// article page for the first N articles.
type Enricher struct {
	client *core.HTTPClient
	limit  int
}

func NewEnricher(client *core.HTTPClient, limit int) *Enricher {
	return &Enricher{client: client, limit: limit}
}

// Enrich updates articles in place. Pages that fail to load or parse keep
// their feed description.
func (e *Enricher) Enrich(ctx context.Context, articles []Article) {
	n := min(e.limit, len(articles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWorkers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if excerpt := e.excerpt(ctx, articles[i].Link); excerpt != "" {
				articles[i].Description = excerpt
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Enricher) excerpt(ctx context.Context, link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	body, err := e.client.Do(ctx, http.MethodGet, link, map[string]string{"User-Agent": feedUserAgent}, nil)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}
	if s := strings.Join(strings.Fields(article.Excerpt), " "); s != "" {
		return s
	}
	return strings.Join(strings.Fields(article.TextContent), " ")
}
