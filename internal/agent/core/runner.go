package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wayde1122/chat-box-code/internal/agent/telemetry"
	"github.com/wayde1122/chat-box-code/internal/helpers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var runnerTracer = otel.Tracer("assistant/internal/agent/runner")

const (
	FailedSummary = "failed to summarize"

	summarizerSystemPrompt = `You are a research analyst. Summarise the search results for one research sub-task.

Write in markdown:
- start with a level-3 heading naming the sub-task
- give the key findings as short paragraphs or bullet points
- cite sources inline as [n] using the numbers of the results you were given
- say plainly when the results do not answer the intent

Only use information present in the results.`
)

// Summarizer condenses one task's sources into a markdown summary.
type Summarizer struct {
	llm          LLMProvider
	logger       *log.Logger
	maxSources   int
	snippetLimit int
}

func NewSummarizer(llm LLMProvider, maxSources, snippetLimit int, logger *log.Logger) *Summarizer {
	if maxSources <= 0 {
		maxSources = 5
	}
	if snippetLimit <= 0 {
		snippetLimit = 500
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RUNNER] ", log.LstdFlags)
	}
	return &Summarizer{llm: llm, logger: logger, maxSources: maxSources, snippetLimit: snippetLimit}
}

// Summarize never returns an empty summary without an error. With no
// sources it answers without calling the model.
func (s *Summarizer) Summarize(ctx context.Context, topic string, task SubTask, sources []SourceItem) (string, error) {
	if len(sources) == 0 {
		return fmt.Sprintf("### %s\n\nNo relevant search results found for this task.", task.Title), nil
	}
	if len(sources) > s.maxSources {
		sources = sources[:s.maxSources]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Research topic: %s\n\nSub-task: %s\nIntent: %s\nSearch query: %s\n\n# Search results\n", topic, task.Title, task.Intent, task.Query)
	for i, src := range sources {
		fmt.Fprintf(&b, "\n[%d] %s\nURL: %s\n%s\n", i+1, src.Title, src.URL, helpers.Truncate(src.Snippet, s.snippetLimit, "..."))
	}
	b.WriteString("\nSummarise these results for the sub-task.")

	out, err := s.llm.Generate(ctx, b.String(), summarizerSystemPrompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return fmt.Sprintf("### %s\n\nThe model returned an empty summary for this task.", task.Title), nil
	}
	return strings.TrimSpace(out), nil
}

// TaskRunnerOptions tunes a TaskRunner.
type TaskRunnerOptions struct {
	Retries   int
	Backoff   time.Duration
	Logger    *log.Logger
	Telemetry *telemetry.Telemetry
}

// TaskRunner executes one sub-task: search, dedup, summarize.
type TaskRunner struct {
	search     SearchProvider
	summarizer *Summarizer
	retries    int
	backoff    time.Duration
	logger     *log.Logger
	telemetry  *telemetry.Telemetry
}

func NewTaskRunner(search SearchProvider, summarizer *Summarizer, opts TaskRunnerOptions) *TaskRunner {
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[RUNNER] ", log.LstdFlags)
	}
	return &TaskRunner{
		search:     search,
		summarizer: summarizer,
		retries:    max(opts.Retries, 0),
		backoff:    opts.Backoff,
		logger:     opts.Logger,
		telemetry:  opts.Telemetry,
	}
}

// StatusHook is told about every transition before the work of that status
// starts. Returning an error aborts the task; it is meant for cancellation.
type StatusHook func(task SubTask) error

// Execute runs the task through searching and summarizing to completed or
// error. Search or summarize failures end the task in error with a
// placeholder summary and a nil error; the returned error is non-nil only
// when ctx is done or the hook aborts.
func (r *TaskRunner) Execute(ctx context.Context, topic string, task SubTask, backend string, hook StatusHook) (SubTask, error) {
	ctx, span := runnerTracer.Start(ctx, "TaskRunner.Execute")
	defer span.End()
	span.SetAttributes(attribute.Int("task.id", task.ID), attribute.String("task.query", task.Query))
	if task.Sources == nil {
		task.Sources = []SourceItem{}
	}

	notify := func(next TaskStatus) error {
		task.advance(next)
		if hook != nil {
			return hook(task)
		}
		return ctx.Err()
	}

	if err := notify(TaskSearching); err != nil {
		return task, err
	}
	var found []SourceItem
	err := Retry(ctx, r.retries, r.backoff, func(ctx context.Context) error {
		var serr error
		found, serr = r.search.Search(ctx, task.Query, backend)
		return serr
	})
	if err != nil {
		if ctx.Err() != nil {
			return task, ctx.Err()
		}
		r.logger.Printf("task %d search failed: %v", task.ID, err)
		span.RecordError(err)
		return r.fail(task, span), nil
	}
	task.Sources = DedupSources(found)

	if err := notify(TaskSummarizing); err != nil {
		return task, err
	}
	var summary string
	err = Retry(ctx, r.retries, r.backoff, func(ctx context.Context) error {
		var serr error
		summary, serr = r.summarizer.Summarize(ctx, topic, task, task.Sources)
		return serr
	})
	if err != nil {
		if ctx.Err() != nil {
			return task, ctx.Err()
		}
		r.logger.Printf("task %d summarize failed: %v", task.ID, err)
		span.RecordError(err)
		return r.fail(task, span), nil
	}

	task.Summary = summary
	task.advance(TaskCompleted)
	r.telemetry.RecordTaskOutcome(string(TaskCompleted))
	return task, nil
}

func (r *TaskRunner) fail(task SubTask, span trace.Span) SubTask {
	task.Summary = FailedSummary
	task.advance(TaskError)
	span.SetStatus(codes.Error, FailedSummary)
	r.telemetry.RecordTaskOutcome(string(TaskError))
	return task
}
