package news

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"
	"github.com/wayde1122/chat-box-code/config"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/internal/helpers"
)

const (
	DefaultBaseURL    = "https://news.google.com/rss"
	descriptionLimit  = 150
	feedUserAgent     = "Mozilla/5.0 (compatible; NewsBot/1.0)"
	feedAcceptHeaders = "application/rss+xml, application/xml, text/xml"
)

// Article is one feed entry.
type Article struct {
	Title       string
	Link        string
	Source      string
	Published   *time.Time
	Description string
}

// GoogleNews reads Google News RSS feeds and renders them as markdown. It
// implements core.NewsFetcher.
type GoogleNews struct {
	baseURL     string
	maxArticles int
	language    string
	country     string
	client      *core.HTTPClient
	enricher    *Enricher
	logger      *log.Logger
}

type Option func(*GoogleNews)

// WithBaseURL points the fetcher at another feed host.
func WithBaseURL(u string) Option { return func(g *GoogleNews) { g.baseURL = strings.TrimRight(u, "/") } }

func WithEnricher(e *Enricher) Option { return func(g *GoogleNews) { g.enricher = e } }

func WithLogger(l *log.Logger) Option { return func(g *GoogleNews) { g.logger = l } }

func NewGoogleNews(cfg config.NewsConfig, opts ...Option) *GoogleNews {
	cfg = cfg.Normalize()
	client := core.NewHTTPClient(cfg.Timeout, 1, 0)
	g := &GoogleNews{
		baseURL:     DefaultBaseURL,
		maxArticles: cfg.MaxArticles,
		language:    cfg.Language,
		country:     cfg.Country,
		client:      client,
	}
	if cfg.EnrichArticles > 0 {
		g.enricher = NewEnricher(client, cfg.EnrichArticles)
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = log.New(log.Writer(), "[NEWS] ", log.LstdFlags)
	}
	return g
}

// Fetch serves headline requests from the top stories feed, picks a section
// feed when the topic maps to one and falls back to keyword search otherwise.
func (g *GoogleNews) Fetch(ctx context.Context, topic string) (string, error) {
	if IsHeadlines(topic) {
		return g.TopNews(ctx)
	}
	if section, ok := MatchTopic(topic); ok {
		g.logger.Printf("topic %q matched section %s", topic, section)
		return g.ByTopic(ctx, section)
	}
	return g.ByKeyword(ctx, topic)
}

func (g *GoogleNews) ByKeyword(ctx context.Context, keyword string) (string, error) {
	u := fmt.Sprintf("%s/search?q=%s&%s", g.baseURL, url.QueryEscape(keyword), g.locale())
	articles, err := g.articles(ctx, u)
	if err != nil {
		return "", fmt.Errorf("search news %q: %w", keyword, err)
	}
	return FormatMarkdown(articles, "Search: "+keyword), nil
}

func (g *GoogleNews) ByTopic(ctx context.Context, topic Topic) (string, error) {
	u := fmt.Sprintf("%s/headlines/section/topic/%s?%s", g.baseURL, topic, g.locale())
	articles, err := g.articles(ctx, u)
	if err != nil {
		return "", fmt.Errorf("fetch %s news: %w", topic, err)
	}
	return FormatMarkdown(articles, fmt.Sprintf("%s (%s)", topic.Name(), topic)), nil
}

func (g *GoogleNews) TopNews(ctx context.Context) (string, error) {
	articles, err := g.articles(ctx, g.baseURL+"?"+g.locale())
	if err != nil {
		return "", fmt.Errorf("fetch top news: %w", err)
	}
	return FormatMarkdown(articles, "Top Headlines"), nil
}

func (g *GoogleNews) locale() string {
	lang := g.language
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}
	return fmt.Sprintf("hl=%s&gl=%s&ceid=%s:%s", g.language, g.country, g.country, lang)
}

func (g *GoogleNews) articles(ctx context.Context, feedURL string) ([]Article, error) {
	body, err := g.client.Do(ctx, http.MethodGet, feedURL, map[string]string{
		"User-Agent": feedUserAgent,
		"Accept":     feedAcceptHeaders,
	}, nil)
	if err != nil {
		return nil, err
	}
	articles, err := ParseFeed(body, g.maxArticles)
	if err != nil {
		return nil, err
	}
	g.logger.Printf("%d article(s) from %s", len(articles), feedURL)
	if g.enricher != nil {
		g.enricher.Enrich(ctx, articles)
	}
	return articles, nil
}

// ParseFeed decodes an RSS document into at most limit articles. Entries
// without a title or link are skipped.
func ParseFeed(body []byte, limit int) ([]Article, error) {
	feed, err := (&rss.Parser{}).Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}
	var out []Article
	for _, it := range feed.Items {
		if limit > 0 && len(out) >= limit {
			break
		}
		title := helpers.PlainText(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" || link == "" {
			continue
		}
		a := Article{Title: title, Link: link, Published: it.PubDateParsed, Description: helpers.PlainText(it.Description)}
		if it.Source != nil && strings.TrimSpace(it.Source.Title) != "" {
			a.Source = strings.TrimSpace(it.Source.Title)
		} else {
			a.Source = sourceFromTitle(title)
		}
		out = append(out, a)
	}
	return out, nil
}

// sourceFromTitle reads the "Headline - Publisher" convention.
func sourceFromTitle(title string) string {
	if i := strings.LastIndex(title, " - "); i >= 0 {
		return strings.TrimSpace(title[i+3:])
	}
	return "Google News"
}

// FormatMarkdown renders articles as a numbered markdown list under a
// level-2 heading.
func FormatMarkdown(articles []Article, title string) string {
	if len(articles) == 0 {
		return fmt.Sprintf("## %s\n\nNo related news.\n", title)
	}
	lines := []string{fmt.Sprintf("## %s\n", title)}
	for i, a := range articles {
		line := fmt.Sprintf("%d. [%s](%s)", i+1, a.Title, a.Link)
		if a.Source != "" {
			line += " - " + a.Source
		}
		if a.Published != nil {
			line += fmt.Sprintf(" (%s)", a.Published.Format("2006-01-02"))
		}
		lines = append(lines, line)
		if a.Description != "" {
			lines = append(lines, "   > "+helpers.Truncate(a.Description, descriptionLimit, "..."))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
