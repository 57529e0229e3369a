package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/wayde1122/chat-box-code/config"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/internal/agent/telemetry"
	"github.com/wayde1122/chat-box-code/internal/faq"
	"github.com/wayde1122/chat-box-code/internal/travel"
	"github.com/wayde1122/chat-box-code/provider"
	"github.com/wayde1122/chat-box-code/tools/attraction"
	"github.com/wayde1122/chat-box-code/tools/news"
	"github.com/wayde1122/chat-box-code/tools/weather"
	"github.com/wayde1122/chat-box-code/tools/web_search"
)

const redisPingTimeout = 5 * time.Second

// App holds every collaborator built from configuration.
type App struct {
	Deps     Deps
	Research *core.ResearchOrchestrator
	Digest   *core.DigestOrchestrator
	Agent    *core.ReActEngine
	Registry *prometheus.Registry
	redis    *redis.Client
}

// Close releases the redis connection, if any.
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

// Build wires the application. A missing LLM key is not an error: research,
// digest and agent chat stay nil, chat answers from the FAQ and travel
// briefs use the default itinerary.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	app := &App{Registry: prometheus.NewRegistry()}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tele := telemetry.NewTelemetry(cfg.Telemetry, app.Registry)

	searchOpts := []web_search.Option{web_search.WithTelemetry(tele)}
	if cfg.Storage.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		app.redis = rdb
		searchOpts = append(searchOpts, web_search.WithCache(web_search.NewRedisCache(rdb, cfg.Search.CacheTTL)))
	}
	search := web_search.NewService(cfg.Search, searchOpts...)

	table, err := faq.Load(cfg.FAQ.File)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	weatherTool := weather.New(cfg.Tools)
	attractionTool := attraction.New(cfg.Search)

	llm, err := provider.NewProvider(cfg.LLM, tele)
	switch {
	case errors.Is(err, provider.ErrNotConfigured):
		logger.Printf("llm not configured: research and digest are disabled, chat uses the FAQ")
		llm = nil
	case err != nil:
		_ = app.Close()
		return nil, err
	}

	app.Deps = Deps{
		FAQ:            table,
		Travel:         travel.NewPlanner(llm, weatherTool, attractionTool, search, travel.WithSearchBackend(cfg.Search.Backend)),
		ResolveBackend: func(b string) string { return string(search.Resolve(b)) },
		Gatherer:       app.Registry,
		Model:          cfg.LLM.Model,
	}
	if llm == nil {
		return app, nil
	}

	app.Research = core.NewResearchPipeline(cfg, llm, search, tele)
	app.Digest = core.NewDigestPipeline(llm, news.NewGoogleNews(cfg.News), tele)
	app.Agent, err = core.NewChatAgent(cfg, llm, []core.Tool{weatherTool, attractionTool}, tele)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Deps.Research = app.Research
	app.Deps.Digest = app.Digest
	app.Deps.Chat = app.Agent
	return app, nil
}
