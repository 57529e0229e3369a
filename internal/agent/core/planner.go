package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/wayde1122/chat-box-code/internal/helpers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var plannerTracer = otel.Tracer("assistant/internal/agent/planner")

const plannerSystemPrompt = `You are a research planner. Break the user's topic into 3 to 5 focused sub-tasks that together cover it.

Return only a JSON array. Each element must be an object with exactly these fields:
- "id": integer, starting at 1
- "title": short name of the sub-task
- "intent": what this sub-task should find out
- "query": a web search query for it

Do not add commentary before or after the array.`

// Planner decomposes a topic into research sub-tasks.
type Planner struct {
	llm      LLMProvider
	logger   *log.Logger
	minTasks int
	maxTasks int
}

func NewPlanner(llm LLMProvider, minTasks, maxTasks int, logger *log.Logger) *Planner {
	if maxTasks <= 0 {
		maxTasks = 5
	}
	if minTasks <= 0 || minTasks > maxTasks {
		minTasks = min(3, maxTasks)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[PLANNER] ", log.LstdFlags)
	}
	return &Planner{llm: llm, logger: logger, minTasks: minTasks, maxTasks: maxTasks}
}

// Plan returns between minTasks and maxTasks pending tasks with ids 1..n.
// Unusable model output falls back to the default plan; only a failed
// model call is returned as an error.
func (p *Planner) Plan(ctx context.Context, topic string) ([]SubTask, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	ctx, span := plannerTracer.Start(ctx, "Planner.Plan")
	defer span.End()
	span.SetAttributes(attribute.String("topic", topic))

	prompt := fmt.Sprintf("Research topic: %s\n\nPlan the sub-tasks as a JSON array.", topic)
	raw, err := p.llm.Generate(ctx, prompt, plannerSystemPrompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("plan %q: %w", topic, err)
	}

	tasks := p.normalize(topic, parsePlan(raw))
	span.SetAttributes(attribute.Int("tasks", len(tasks)))
	p.logger.Printf("planned %d task(s) for %q", len(tasks), topic)
	return tasks, nil
}

// normalize validates, clamps, renumbers and tops up a parsed plan.
func (p *Planner) normalize(topic string, parsed []SubTask) []SubTask {
	if len(parsed) == 0 {
		p.logger.Printf("unusable plan for %q, using default plan", topic)
		return numbered(DefaultPlan(topic)[:min(p.maxTasks, 4)])
	}
	if len(parsed) > p.maxTasks {
		parsed = parsed[:p.maxTasks]
	}
	if len(parsed) < p.minTasks {
		seen := make(map[string]struct{}, len(parsed))
		for _, t := range parsed {
			seen[strings.ToLower(t.Title)] = struct{}{}
		}
		for _, d := range DefaultPlan(topic) {
			if len(parsed) >= p.minTasks {
				break
			}
			if _, dup := seen[strings.ToLower(d.Title)]; dup {
				continue
			}
			parsed = append(parsed, d)
		}
	}
	return numbered(parsed)
}

func numbered(tasks []SubTask) []SubTask {
	out := make([]SubTask, len(tasks))
	for i, t := range tasks {
		t.ID = i + 1
		t.Status = TaskPending
		t.Sources = []SourceItem{}
		t.Summary = ""
		out[i] = t
	}
	return out
}

// DefaultPlan is the four-task plan used when the model's plan is unusable.
func DefaultPlan(topic string) []SubTask {
	return []SubTask{
		{ID: 1, Title: "Basic concepts", Intent: fmt.Sprintf("Understand the definition and core concepts of %s", topic), Query: topic + " definition concepts"},
		{ID: 2, Title: "Current status", Intent: fmt.Sprintf("Learn the current state and development of %s", topic), Query: topic + " status development characteristics"},
		{ID: 3, Title: "Applications", Intent: fmt.Sprintf("Explore practical applications and cases of %s", topic), Query: topic + " applications cases practice"},
		{ID: 4, Title: "Future trends", Intent: fmt.Sprintf("Analyse future trends and directions of %s", topic), Query: topic + " trends future direction"},
	}
}

type planItem struct {
	ID     json.RawMessage `json:"id"`
	Title  json.RawMessage `json:"title"`
	Intent json.RawMessage `json:"intent"`
	Query  json.RawMessage `json:"query"`
}

// parsePlan tries the whole reply, then a ```json fence, then every
// bracketed array in the reply, and returns the structurally valid items
// of the first candidate that has any.
func parsePlan(raw string) []SubTask {
	raw = strings.TrimSpace(raw)
	candidates := []string{raw}
	if inner, ok := helpers.FencedBlock(raw, "json"); ok {
		candidates = append(candidates, inner)
	}
	candidates = append(candidates, helpers.BalancedJSON(raw, '[')...)

	for _, c := range candidates {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(c), &items); err != nil {
			continue
		}
		if valid := validItems(items); len(valid) > 0 {
			return valid
		}
	}
	return nil
}

func validItems(items []json.RawMessage) []SubTask {
	var out []SubTask
	for _, it := range items {
		var pi planItem
		if err := json.Unmarshal(it, &pi); err != nil {
			continue
		}
		if isNull(pi.ID) || isNull(pi.Title) || isNull(pi.Intent) || isNull(pi.Query) {
			continue
		}
		var (
			id                   float64
			title, intent, query string
		)
		if json.Unmarshal(pi.ID, &id) != nil ||
			json.Unmarshal(pi.Title, &title) != nil ||
			json.Unmarshal(pi.Intent, &intent) != nil ||
			json.Unmarshal(pi.Query, &query) != nil {
			continue
		}
		title, intent, query = strings.TrimSpace(title), strings.TrimSpace(intent), strings.TrimSpace(query)
		if title == "" || intent == "" || query == "" {
			continue
		}
		out = append(out, SubTask{ID: int(id), Title: title, Intent: intent, Query: query})
	}
	return out
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}
