package attraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/wayde1122/chat-box-code/config"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/tools/web_search/models"
	"github.com/wayde1122/chat-box-code/tools/web_search/tavily"
)

const (
	ToolName   = "get_attraction"
	maxResults = 5
)

// Answerer is a search backend that can return a synthesized answer.
type Answerer interface {
	Answer(ctx context.Context, q string, k int) (string, []models.Result, error)
}

// Tool is the get_attraction adapter. It asks Tavily for the attractions
// worth visiting in a city under the given weather.
type Tool struct {
	answerer Answerer
}

// New returns a tool backed by Tavily. Without an API key the tool still
// registers but every call reports that search is unavailable.
func New(cfg config.SearchConfig) *Tool {
	cfg = cfg.Normalize()
	if cfg.TavilyAPIKey == "" {
		return &Tool{}
	}
	return NewWithAnswerer(tavily.Search{
		ApiKey: cfg.TavilyAPIKey,
		Client: core.NewHTTPClient(cfg.Timeout, cfg.Retries, 0),
	})
}

func NewWithAnswerer(a Answerer) *Tool {
	return &Tool{answerer: a}
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "get_attraction(city: str, weather: str): attractions worth visiting in a city given the weather"
}

func (t *Tool) Call(ctx context.Context, args map[string]string) string {
	city := strings.TrimSpace(args["city"])
	weather := strings.TrimSpace(args["weather"])
	if city == "" {
		return "Error: get_attraction needs a city"
	}
	if weather == "" {
		weather = "any"
	}
	text, err := t.Recommend(ctx, city, weather)
	if err != nil {
		return fmt.Sprintf("Error: attraction search failed - %v", err)
	}
	return text
}

// Recommend prefers Tavily's answer and otherwise lists the raw results.
func (t *Tool) Recommend(ctx context.Context, city, weather string) (string, error) {
	if t.answerer == nil {
		return "", fmt.Errorf("tavily api key is not configured")
	}
	query := fmt.Sprintf("best tourist attractions to visit in '%s' during '%s' weather, with reasons", city, weather)
	answer, results, err := t.answerer.Answer(ctx, query, maxResults)
	if err != nil {
		return "", err
	}
	if s := strings.TrimSpace(answer); s != "" {
		return s, nil
	}
	if len(results) == 0 {
		return "Sorry, no attraction recommendations were found.", nil
	}
	lines := []string{fmt.Sprintf("Attractions worth visiting in '%s' during '%s' weather:", city, weather)}
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, r.Snippet))
	}
	return strings.Join(lines, "\n"), nil
}
