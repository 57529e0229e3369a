package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Search    SearchConfig    `mapstructure:"search"`
	News      NewsConfig      `mapstructure:"news"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	FAQ       FAQConfig       `mapstructure:"faq"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	JWTSecret   string   `mapstructure:"jwt_secret"` // empty disables auth on /api
	CORSOrigins []string `mapstructure:"cors_origins"`
}

func (s ServerConfig) Normalize() ServerConfig {
	if strings.TrimSpace(s.Address) == "" {
		s.Address = ":3000"
	}
	if !strings.Contains(s.Address, ":") {
		s.Address = ":" + s.Address
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
	return s
}

// LLMConfig describes the completion endpoint and its call policy.
type LLMConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

func (l LLMConfig) Normalize() LLMConfig {
	if l.Model == "" {
		l.Model = "gpt-4o-mini"
	}
	if l.MaxTokens <= 0 {
		l.MaxTokens = 2000
	}
	if l.Timeout <= 0 {
		l.Timeout = 60 * time.Second
	}
	if l.RetryBackoff <= 0 {
		l.RetryBackoff = 500 * time.Millisecond
	}
	return l
}

func (l LLMConfig) Validate() error {
	if l.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries cannot be negative")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0,2]")
	}
	return nil
}

// Configured reports whether a completion endpoint can be called at all.
func (l LLMConfig) Configured() bool { return strings.TrimSpace(l.APIKey) != "" }

// AgentsConfig bounds the reasoning loop and the research pipeline
type AgentsConfig struct {
	MaxIterations     int    `mapstructure:"max_iterations"`
	MaxTasks          int    `mapstructure:"max_tasks"`
	MinTasks          int    `mapstructure:"min_tasks"`
	MaxSourcesPerTask int    `mapstructure:"max_sources_per_task"`
	SnippetLimit      int    `mapstructure:"snippet_limit"`
	TaskConcurrency   int    `mapstructure:"task_concurrency"`
	TaskRetries       int    `mapstructure:"task_retries"`
	ActionParser      string `mapstructure:"action_parser"` // regex | json
}

func (a AgentsConfig) Normalize() AgentsConfig {
	if a.MaxIterations <= 0 {
		a.MaxIterations = 5
	}
	if a.MaxTasks <= 0 {
		a.MaxTasks = 5
	}
	if a.MinTasks <= 0 {
		a.MinTasks = 3
	}
	if a.MaxSourcesPerTask <= 0 {
		a.MaxSourcesPerTask = 5
	}
	if a.SnippetLimit <= 0 {
		a.SnippetLimit = 500
	}
	if a.TaskConcurrency <= 0 {
		a.TaskConcurrency = 1
	}
	a.ActionParser = strings.ToLower(strings.TrimSpace(a.ActionParser))
	if a.ActionParser == "" {
		a.ActionParser = "regex"
	}
	return a
}

func (a AgentsConfig) Validate() error {
	if a.MinTasks > a.MaxTasks {
		return fmt.Errorf("agents.min_tasks (%d) cannot exceed agents.max_tasks (%d)", a.MinTasks, a.MaxTasks)
	}
	if a.TaskRetries < 0 {
		return fmt.Errorf("agents.task_retries cannot be negative")
	}
	switch a.ActionParser {
	case "regex", "json":
	default:
		return fmt.Errorf("agents.action_parser must be regex or json, got %q", a.ActionParser)
	}
	return nil
}

// SearchConfig contains web search settings
type SearchConfig struct {
	Backend      string        `mapstructure:"backend"`
	TavilyAPIKey string        `mapstructure:"tavily_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BingAPIKey   string        `mapstructure:"bing_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

func (s SearchConfig) Normalize() SearchConfig {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = "tavily"
	}
	if s.MaxResults <= 0 {
		s.MaxResults = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = 15 * time.Second
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = 30 * time.Minute
	}
	return s
}

func (s SearchConfig) Validate() error {
	if s.Retries < 0 {
		return fmt.Errorf("search.retries cannot be negative")
	}
	return nil
}

// NewsConfig contains Google News RSS settings
type NewsConfig struct {
	MaxArticles    int           `mapstructure:"max_articles"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Language       string        `mapstructure:"language"`
	Country        string        `mapstructure:"country"`
	EnrichArticles int           `mapstructure:"enrich_articles"`
}

func (n NewsConfig) Normalize() NewsConfig {
	if n.MaxArticles <= 0 {
		n.MaxArticles = 10
	}
	if n.Timeout <= 0 {
		n.Timeout = 15 * time.Second
	}
	if n.Language == "" {
		n.Language = "en-US"
	}
	if n.Country == "" {
		n.Country = "US"
	}
	if n.EnrichArticles < 0 {
		n.EnrichArticles = 0
	}
	return n
}

// ToolsConfig configures the ReAct tool adapters.
type ToolsConfig struct {
	WeatherBaseURL string        `mapstructure:"weather_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

func (t ToolsConfig) Normalize() ToolsConfig {
	if t.WeatherBaseURL == "" {
		t.WeatherBaseURL = "https://wttr.in"
	}
	t.WeatherBaseURL = strings.TrimRight(t.WeatherBaseURL, "/")
	if t.Timeout <= 0 {
		t.Timeout = 10 * time.Second
	}
	return t
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a redis host is configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

// Addr returns host:port, defaulting the port to 6379.
func (r RedisConfig) Addr() string {
	port := strings.TrimSpace(r.Port)
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

func (r RedisConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	if r.DB < 0 {
		return fmt.Errorf("storage.redis.db cannot be negative")
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

func (t TelemetryConfig) Normalize() TelemetryConfig {
	if t.MetricsPath == "" {
		t.MetricsPath = "/metrics"
	}
	if !strings.HasPrefix(t.MetricsPath, "/") {
		t.MetricsPath = "/" + t.MetricsPath
	}
	return t
}

// FAQConfig points at an optional FAQ table on disk.
type FAQConfig struct {
	File string `mapstructure:"file"`
}

// Normalize fills defaults on every section.
func (c *Config) Normalize() {
	c.Server = c.Server.Normalize()
	c.LLM = c.LLM.Normalize()
	c.Agents = c.Agents.Normalize()
	c.Search = c.Search.Normalize()
	c.News = c.News.Normalize()
	c.Tools = c.Tools.Normalize()
	c.Telemetry = c.Telemetry.Normalize()
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Agents.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	return c.Storage.Redis.Validate()
}

// Default returns a normalized config with no file or environment applied.
func Default() *Config {
	cfg := &Config{Telemetry: TelemetryConfig{Enabled: true}}
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxRetries = 2
	cfg.Search.Retries = 1
	cfg.Normalize()
	return cfg
}

// LoadConfig reads config.json (from path, or ./config and the working
// directory) and ASSISTANT_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.SetDefault("server.address", ":3000")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_backoff", "500ms")
	v.SetDefault("agents.max_iterations", 5)
	v.SetDefault("agents.max_tasks", 5)
	v.SetDefault("agents.min_tasks", 3)
	v.SetDefault("agents.task_concurrency", 1)
	v.SetDefault("agents.action_parser", "regex")
	v.SetDefault("search.backend", "tavily")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout", "15s")
	v.SetDefault("search.retries", 1)
	v.SetDefault("search.cache_ttl", "30m")
	v.SetDefault("news.max_articles", 10)
	v.SetDefault("news.timeout", "15s")
	v.SetDefault("tools.weather_base_url", "https://wttr.in")
	v.SetDefault("tools.timeout", "10s")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics_path", "/metrics")
	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{
		"server.jwt_secret", "llm.api_key", "llm.base_url", "search.tavily_api_key",
		"search.serper_api_key", "search.bing_api_key", "search.brave_api_key", "storage.redis.host",
		"storage.redis.port", "storage.redis.password", "faq.file",
	} {
		v.SetDefault(key, "")
	}

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exe))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
