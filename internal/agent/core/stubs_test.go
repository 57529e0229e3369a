package core

import (
	"context"
	"strings"
	"sync"
	"time"
)

// stubLLM answers through fn and records every prompt it receives.
type stubLLM struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	systems []string
	fn      func(prompt, system string, call int) (string, error)
}

func (s *stubLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.prompts = append(s.prompts, prompt)
	s.systems = append(s.systems, system)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.fn(prompt, system, n)
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubLLM) callsWithSystem(system string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sys := range s.systems {
		if sys == system {
			n++
		}
	}
	return n
}

// scripted replays replies in order and repeats the last one.
func scripted(replies ...string) *stubLLM {
	return &stubLLM{fn: func(_, _ string, call int) (string, error) {
		if call > len(replies) {
			return replies[len(replies)-1], nil
		}
		return replies[call-1], nil
	}}
}

type stubSearch struct {
	mu      sync.Mutex
	queries []string
	delay   func(query string) time.Duration
	fn      func(query string) ([]SourceItem, error)
}

func (s *stubSearch) Search(ctx context.Context, query, backend string) ([]SourceItem, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.delay != nil {
		select {
		case <-time.After(s.delay(query)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.fn(query)
}

func twoSources(query string) ([]SourceItem, error) {
	slug := strings.ReplaceAll(query, " ", "-")
	return []SourceItem{
		{Title: query + " one", URL: "https://example.com/" + slug + "/1", Snippet: "first result"},
		{Title: query + " two", URL: "https://example.com/" + slug + "/2", Snippet: "second result"},
	}, nil
}

func aiPlanJSON() string {
	return `[
  {"id": 1, "title": "Definition", "intent": "what AI is", "query": "ai definition"},
  {"id": 2, "title": "History", "intent": "how AI evolved", "query": "ai history"},
  {"id": 3, "title": "Applications", "intent": "where AI is used", "query": "ai applications"},
  {"id": 4, "title": "Risks", "intent": "what can go wrong", "query": "ai risks"}
]`
}
