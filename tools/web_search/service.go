package web_search

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/wayde1122/chat-box-code/config"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/internal/agent/telemetry"
	"github.com/wayde1122/chat-box-code/internal/helpers"
	"github.com/wayde1122/chat-box-code/tools/web_search/models"
)

// Service resolves a backend per call, consults the cache and normalises
// results into source items. It implements core.SearchProvider.
type Service struct {
	searchers  map[Provider]WebSearcher
	mock       map[Provider]bool
	fallback   Provider
	maxResults int
	cache      Cache
	logger     *log.Logger
	telemetry  *telemetry.Telemetry
}

type Option func(*Service)

func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

func WithLogger(l *log.Logger) Option { return func(s *Service) { s.logger = l } }

func WithTelemetry(t *telemetry.Telemetry) Option { return func(s *Service) { s.telemetry = t } }

// WithSearcher replaces the searcher of one backend.
func WithSearcher(p Provider, ws WebSearcher) Option {
	return func(s *Service) {
		s.searchers[p] = ws
		delete(s.mock, p)
	}
}

// NewService builds every backend from cfg. Backends that need a key and
// have none are served by MockSearcher.
func NewService(cfg config.SearchConfig, opts ...Option) *Service {
	cfg = cfg.Normalize()
	client := core.NewHTTPClient(cfg.Timeout, cfg.Retries, 0)
	keys := map[Provider]string{
		TavilyProvider: cfg.TavilyAPIKey,
		SerperProvider: cfg.SerperAPIKey,
		BingProvider:   cfg.BingAPIKey,
		BraveProvider:  cfg.BraveAPIKey,
	}
	s := &Service{
		searchers:  make(map[Provider]WebSearcher, len(Providers)),
		mock:       make(map[Provider]bool),
		fallback:   TavilyProvider,
		maxResults: cfg.MaxResults,
	}
	if p, err := ParseProvider(cfg.Backend); err == nil {
		s.fallback = p
	}
	for _, p := range Providers {
		key := strings.TrimSpace(keys[p])
		if p.NeedsKey() && key == "" {
			s.searchers[p] = MockSearcher{Backend: p}
			s.mock[p] = true
			continue
		}
		ws, _ := NewWebSearcher(p, key, client)
		s.searchers[p] = ws
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return s
}

// Resolve maps a requested backend name to a configured Provider. Unknown
// or empty names resolve to the default backend.
func (s *Service) Resolve(backend string) Provider {
	if p, err := ParseProvider(backend); err == nil {
		return p
	}
	return s.fallback
}

// Search implements core.SearchProvider.
func (s *Service) Search(ctx context.Context, query, backend string) ([]core.SourceItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []core.SourceItem{}, nil
	}
	p := s.Resolve(backend)

	if s.cache != nil && !s.mock[p] {
		cached, ok, err := s.cache.Get(ctx, p, query)
		if err != nil {
			s.logger.Printf("cache get %s: %v", p, err)
		} else if ok {
			return toSources(cached), nil
		}
	}

	results, err := s.searchers[p].Discover(ctx, query, s.maxResults)
	label := string(p)
	if s.mock[p] {
		label = "mock"
	}
	s.telemetry.RecordSourceEvent(label, len(results), err)
	if err != nil {
		s.logger.Printf("%s search %q failed: %v", p, query, err)
		return nil, fmt.Errorf("%s search: %w", p, err)
	}
	if s.mock[p] {
		s.logger.Printf("%s has no API key, returning mock results for %q", p, query)
	}

	if s.cache != nil && !s.mock[p] && len(results) > 0 {
		if err := s.cache.Set(ctx, p, query, results); err != nil {
			s.logger.Printf("cache set %s: %v", p, err)
		}
	}
	return toSources(results), nil
}

func toSources(results []models.Result) []core.SourceItem {
	out := make([]core.SourceItem, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		out = append(out, core.SourceItem{
			Title:   helpers.PlainText(r.Title),
			URL:     strings.TrimSpace(r.URL),
			Snippet: helpers.PlainText(r.Snippet),
		})
	}
	return out
}
