package core

import (
	"context"
	"errors"
	"strings"

	"github.com/wayde1122/chat-box-code/internal/helpers"
)

var (
	ErrEmptyTopic    = errors.New("topic is required")
	ErrEmptyQuestion = errors.New("question is required")
)

// LLMProvider is the completion endpoint: one prompt in, one text out.
type LLMProvider interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// SearchProvider runs a web search on the named backend.
type SearchProvider interface {
	Search(ctx context.Context, query, backend string) ([]SourceItem, error)
}

// Tool is an action the reasoning loop can take. Failures are reported in
// the returned text so the model can reason about them.
type Tool interface {
	Name() string
	// Description is the signature line shown to the model, e.g.
	// `get_weather(city: str, date?: str)`: current weather or forecast.
	Description() string
	Call(ctx context.Context, args map[string]string) string
}

// ToolFunc adapts a plain function to the Tool interface.
type ToolFunc struct {
	ToolName string
	Desc     string
	Fn       func(ctx context.Context, args map[string]string) string
}

func (t ToolFunc) Name() string { return t.ToolName }

func (t ToolFunc) Description() string { return t.Desc }

func (t ToolFunc) Call(ctx context.Context, args map[string]string) string { return t.Fn(ctx, args) }

// TaskStatus is the lifecycle of a SubTask.
type TaskStatus string

const (
	TaskPending     TaskStatus = "pending"
	TaskSearching   TaskStatus = "searching"
	TaskSummarizing TaskStatus = "summarizing"
	TaskCompleted   TaskStatus = "completed"
	TaskError       TaskStatus = "error"
)

func (s TaskStatus) rank() int {
	switch s {
	case TaskPending:
		return 0
	case TaskSearching:
		return 1
	case TaskSummarizing:
		return 2
	case TaskCompleted, TaskError:
		return 3
	}
	return -1
}

// Terminal reports whether no further transition is possible.
func (s TaskStatus) Terminal() bool { return s == TaskCompleted || s == TaskError }

// SourceItem is one search hit attached to a task.
type SourceItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SubTask is one unit of a research plan.
type SubTask struct {
	ID      int          `json:"id"`
	Title   string       `json:"title"`
	Intent  string       `json:"intent"`
	Query   string       `json:"query"`
	Status  TaskStatus   `json:"status"`
	Summary string       `json:"summary,omitempty"`
	Sources []SourceItem `json:"sources"`
}

// advance moves the task forward. Regressions and moves out of a terminal
// state are refused.
func (t *SubTask) advance(next TaskStatus) bool {
	if t.Status == "" {
		t.Status = TaskPending
	}
	if t.Status.Terminal() || next.rank() <= t.Status.rank() {
		return false
	}
	t.Status = next
	return true
}

// ReasoningStep is one Thought/Action/Observation round of the ReAct loop.
type ReasoningStep struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	Observation string `json:"observation,omitempty"`
}

// DedupSources drops repeated URLs, keeping the first occurrence and the
// original order. URLs are compared in canonical form when they parse.
func DedupSources(items []SourceItem) []SourceItem {
	if len(items) == 0 {
		return []SourceItem{}
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]SourceItem, 0, len(items))
	for _, it := range items {
		key := strings.TrimSpace(it.URL)
		if canon, err := helpers.CanonicalURL(key); err == nil {
			key = canon
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
