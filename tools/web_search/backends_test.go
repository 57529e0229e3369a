package web_search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/tools/web_search/bing"
	"github.com/wayde1122/chat-box-code/tools/web_search/brave"
	"github.com/wayde1122/chat-box-code/tools/web_search/duckduckgo"
	"github.com/wayde1122/chat-box-code/tools/web_search/models"
	"github.com/wayde1122/chat-box-code/tools/web_search/serper"
	"github.com/wayde1122/chat-box-code/tools/web_search/tavily"
)

func testClient() *core.HTTPClient { return core.NewHTTPClient(2*time.Second, 0, time.Millisecond) }

func TestBackendsDecodeResponses(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		check   func(t *testing.T, r *http.Request)
		newWS   func(endpoint string) WebSearcher
		wantURL string
	}{
		{
			name: "tavily",
			body: `{"answer":"a","results":[{"title":"T","url":"https://t.example/1","content":"tc","score":0.9}]}`,
			check: func(t *testing.T, r *http.Request) {
				var req map[string]any
				_ = json.NewDecoder(r.Body).Decode(&req)
				if r.Method != http.MethodPost || req["api_key"] != "k" || req["search_depth"] != "basic" || req["query"] != "golang" {
					t.Errorf("unexpected tavily request %v", req)
				}
			},
			newWS:   func(e string) WebSearcher { return tavily.Search{ApiKey: "k", Endpoint: e, Client: testClient()} },
			wantURL: "https://t.example/1",
		},
		{
			name: "serper",
			body: `{"organic":[{"title":"S","link":"https://s.example/1","snippet":"sc"}]}`,
			check: func(t *testing.T, r *http.Request) {
				if r.Header.Get("X-API-KEY") != "k" {
					t.Errorf("missing serper key header")
				}
			},
			newWS:   func(e string) WebSearcher { return serper.Search{ApiKey: "k", Endpoint: e, Client: testClient()} },
			wantURL: "https://s.example/1",
		},
		{
			name: "bing",
			body: `{"webPages":{"value":[{"name":"B","url":"https://b.example/1","snippet":"bc"}]}}`,
			check: func(t *testing.T, r *http.Request) {
				if r.Header.Get("Ocp-Apim-Subscription-Key") != "k" || r.URL.Query().Get("q") != "golang" {
					t.Errorf("unexpected bing request %s", r.URL)
				}
			},
			newWS:   func(e string) WebSearcher { return bing.Search{ApiKey: "k", Endpoint: e, Client: testClient()} },
			wantURL: "https://b.example/1",
		},
		{
			name: "brave",
			body: `{"web":{"results":[{"title":"Br","url":"https://br.example/1","description":"brc"}]}}`,
			check: func(t *testing.T, r *http.Request) {
				if r.Header.Get("X-Subscription-Token") != "k" {
					t.Errorf("missing brave token header")
				}
			},
			newWS:   func(e string) WebSearcher { return brave.Search{ApiKey: "k", Endpoint: e, Client: testClient()} },
			wantURL: "https://br.example/1",
		},
		{
			name: "duckduckgo",
			body: `{"Heading":"Go","AbstractText":"Go is a language","AbstractURL":"https://d.example/go",
				"RelatedTopics":[{"Text":"Gopher - mascot","FirstURL":"https://d.example/gopher"},{"Name":"More","Topics":[{"Text":"Nested","FirstURL":"https://d.example/n"}]}]}`,
			check: func(t *testing.T, r *http.Request) {
				if r.URL.Query().Get("format") != "json" || r.URL.Query().Get("no_html") != "1" {
					t.Errorf("unexpected duckduckgo query %s", r.URL.RawQuery)
				}
			},
			newWS:   func(e string) WebSearcher { return duckduckgo.Search{Endpoint: e, Client: testClient()} },
			wantURL: "https://d.example/go",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.check(t, r)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			results, err := tt.newWS(srv.URL).Discover(context.Background(), "golang", 5)
			if err != nil {
				t.Fatalf("Discover: %v", err)
			}
			if len(results) == 0 || results[0].URL != tt.wantURL {
				t.Fatalf("unexpected results %+v", results)
			}
		})
	}
}

func TestDuckDuckGoFlattensTopics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"RelatedTopics":[{"Text":"Gopher - mascot","FirstURL":"https://d.example/gopher"},
			{"Name":"More","Topics":[{"Text":"Nested","FirstURL":"https://d.example/n"}]}]}`))
	}))
	defer srv.Close()

	results, err := duckduckgo.Search{Endpoint: srv.URL, Client: testClient()}.Discover(context.Background(), "go", 5)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []models.Result{
		{Title: "Gopher", URL: "https://d.example/gopher", Snippet: "Gopher - mascot"},
		{Title: "Nested", URL: "https://d.example/n", Snippet: "Nested"},
	}
	if len(results) != len(want) || results[0] != want[0] || results[1] != want[1] {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestBackendHTTPErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := (serper.Search{ApiKey: "k", Endpoint: srv.URL, Client: testClient()}).Discover(context.Background(), "q", 3); err == nil {
		t.Fatalf("expected error")
	}
}
