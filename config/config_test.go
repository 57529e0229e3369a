package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Agents.MaxIterations != 5 {
		t.Fatalf("expected 5 iterations, got %d", cfg.Agents.MaxIterations)
	}
	if cfg.Agents.MinTasks != 3 || cfg.Agents.MaxTasks != 5 {
		t.Fatalf("unexpected task bounds %d..%d", cfg.Agents.MinTasks, cfg.Agents.MaxTasks)
	}
	if cfg.Search.Backend != "tavily" {
		t.Fatalf("expected tavily backend, got %q", cfg.Search.Backend)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Fatalf("expected 60s llm timeout, got %s", cfg.LLM.Timeout)
	}
	if cfg.Server.Address != ":3000" {
		t.Fatalf("expected :3000, got %q", cfg.Server.Address)
	}
	if cfg.Storage.Redis.Enabled() {
		t.Fatalf("redis should be disabled without a host")
	}
}

func TestLoadConfigReadsFileAndEnv(t *testing.T) {
	path := writeConfig(t, `{
		"llm": {"model": "deepseek-chat", "timeout": "5s"},
		"search": {"backend": "Serper"},
		"storage": {"redis": {"host": "cache"}}
	}`)
	t.Setenv("ASSISTANT_LLM_API_KEY", "sk-test")
	t.Setenv("ASSISTANT_AGENTS_MAX_ITERATIONS", "7")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.Model != "deepseek-chat" || cfg.LLM.Timeout != 5*time.Second {
		t.Fatalf("file values not applied: %+v", cfg.LLM)
	}
	if !cfg.LLM.Configured() {
		t.Fatalf("expected api key from environment")
	}
	if cfg.Agents.MaxIterations != 7 {
		t.Fatalf("expected env override 7, got %d", cfg.Agents.MaxIterations)
	}
	if cfg.Search.Backend != "serper" {
		t.Fatalf("expected lowercased backend, got %q", cfg.Search.Backend)
	}
	if got := cfg.Storage.Redis.Addr(); got != "cache:6379" {
		t.Fatalf("expected default redis port, got %q", got)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "min above max", mutate: func(c *Config) { c.Agents.MinTasks = 6 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.LLM.MaxRetries = -1 }, wantErr: true},
		{name: "unknown parser", mutate: func(c *Config) { c.Agents.ActionParser = "xml" }, wantErr: true},
		{name: "json parser", mutate: func(c *Config) { c.Agents.ActionParser = "json" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
