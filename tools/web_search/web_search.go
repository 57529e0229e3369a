package web_search

import (
	"context"
	"errors"
	"strings"

	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/tools/web_search/bing"
	"github.com/wayde1122/chat-box-code/tools/web_search/brave"
	"github.com/wayde1122/chat-box-code/tools/web_search/duckduckgo"
	"github.com/wayde1122/chat-box-code/tools/web_search/models"
	"github.com/wayde1122/chat-box-code/tools/web_search/serper"
	"github.com/wayde1122/chat-box-code/tools/web_search/tavily"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	TavilyProvider     Provider = "tavily"
	SerperProvider     Provider = "serper"
	DuckDuckGoProvider Provider = "duckduckgo"
	BingProvider       Provider = "bing"
	BraveProvider      Provider = "brave"
)

// Providers lists every backend in resolution order.
var Providers = []Provider{TavilyProvider, SerperProvider, DuckDuckGoProvider, BingProvider, BraveProvider}

var ErrUnsupportedBackend = errors.New("unsupported search backend")

// ParseProvider maps a backend name to a Provider.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", ErrUnsupportedBackend
}

// NeedsKey reports whether the backend requires an API key.
func (p Provider) NeedsKey() bool { return p != DuckDuckGoProvider }

func NewWebSearcher(provider Provider, apiKey string, client *core.HTTPClient) (WebSearcher, error) {
	switch provider {
	case TavilyProvider:
		return tavily.Search{ApiKey: apiKey, Client: client}, nil
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, Client: client}, nil
	case DuckDuckGoProvider:
		return duckduckgo.Search{Client: client}, nil
	case BingProvider:
		return bing.Search{ApiKey: apiKey, Client: client}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, Client: client}, nil
	default:
		return nil, ErrUnsupportedBackend
	}
}
