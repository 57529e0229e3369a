package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wayde1122/chat-box-code/internal/agent/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var orchestratorTracer = otel.Tracer("assistant/internal/agent/orchestrator")

// Progress bands of a research run.
const (
	pctPlanning     = 5
	pctExecuteStart = 10
	pctExecuteSpan  = 70
	pctReporting    = 85
	pctReportReady  = 95
)

// ResearchRequest is one research run's input.
type ResearchRequest struct {
	Topic         string `json:"topic"`
	SearchBackend string `json:"searchBackend,omitempty"`
}

// OrchestratorOptions tunes the research and digest orchestrators.
type OrchestratorOptions struct {
	// Concurrency is the number of tasks executed at once. Events are
	// still released in plan order.
	Concurrency int
	Logger      *log.Logger
	Telemetry   *telemetry.Telemetry
	NewRunID    func() string
}

func (o OrchestratorOptions) normalize() OrchestratorOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Logger == nil {
		o.Logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	if o.NewRunID == nil {
		o.NewRunID = uuid.NewString
	}
	return o
}

// ResearchOrchestrator sequences planning, task execution and report
// writing, and streams the run as events.
type ResearchOrchestrator struct {
	planner *Planner
	runner  *TaskRunner
	writer  *ReportWriter
	opts    OrchestratorOptions
}

func NewResearchOrchestrator(planner *Planner, runner *TaskRunner, writer *ReportWriter, opts OrchestratorOptions) *ResearchOrchestrator {
	return &ResearchOrchestrator{planner: planner, runner: runner, writer: writer, opts: opts.normalize()}
}

// Stream runs the pipeline in the background. The channel is closed after
// the terminal event, or early if ctx is canceled.
func (o *ResearchOrchestrator) Stream(ctx context.Context, req ResearchRequest) <-chan Event {
	return stream(ctx, func(ctx context.Context, out chan<- Event) error { return o.Run(ctx, req, out) })
}

// Run writes the run's events to out and returns after the terminal event.
// Exactly one of done or error is emitted unless ctx is canceled, in which
// case the stream simply stops.
func (o *ResearchOrchestrator) Run(ctx context.Context, req ResearchRequest, out chan<- Event) (err error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return ErrEmptyTopic
	}
	runID := o.opts.NewRunID()
	ctx, span := orchestratorTracer.Start(ctx, "ResearchOrchestrator.Run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID), attribute.String("topic", topic))

	record := telemetry.PipelineEvent{ID: runID, Pipeline: "research", Topic: topic, StartTime: time.Now()}
	defer func() {
		record.EndTime = time.Now()
		record.Success = err == nil
		record.Canceled = errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		if err != nil {
			record.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		o.opts.Telemetry.RecordPipelineEvent(record)
	}()

	em := newEmitter(out)
	logger := o.opts.Logger
	logger.Printf("run %s: research %q (backend=%s)", runID, topic, req.SearchBackend)

	if err := em.emit(ctx, EventStart, StartPayload{Topic: topic, SearchBackend: req.SearchBackend, RunID: runID}); err != nil {
		return err
	}
	if err := em.progress(ctx, StagePlanning, pctPlanning, "Planning research tasks", 0); err != nil {
		return err
	}
	tasks, err := o.planner.Plan(ctx, topic)
	if err != nil {
		em.fail(ctx, fmt.Sprintf("planning failed: %v", err))
		return err
	}
	// The plan payload must not see later status updates.
	if err := em.emit(ctx, EventPlan, append([]SubTask(nil), tasks...)); err != nil {
		return err
	}

	if o.opts.Concurrency > 1 && len(tasks) > 1 {
		err = o.executeConcurrent(ctx, em, topic, req.SearchBackend, tasks)
	} else {
		err = o.executeSequential(ctx, em, topic, req.SearchBackend, tasks)
	}
	if err != nil {
		return err
	}

	completed := len(completedTasks(tasks))
	record.TasksCompleted, record.TotalTasks = completed, len(tasks)
	logger.Printf("run %s: %d/%d task(s) completed", runID, completed, len(tasks))

	if err := em.progress(ctx, StageReporting, pctReporting, "Writing research report", 0); err != nil {
		return err
	}
	report, err := o.writer.Write(ctx, topic, tasks)
	if err != nil {
		em.fail(ctx, fmt.Sprintf("report generation failed: %v", err))
		return err
	}
	if err := em.progress(ctx, StageReporting, pctReportReady, "Report ready", 0); err != nil {
		return err
	}
	if err := em.emit(ctx, EventReport, report); err != nil {
		return err
	}
	return em.emit(ctx, EventDone, ResearchDonePayload{Topic: topic, TasksCompleted: completed, TotalTasks: len(tasks)})
}

// taskPercent returns the searching and summarizing percentages of task i
// of total within the execution band.
func taskPercent(i, total int) (searching, summarizing int) {
	base := pctExecuteStart + float64(i)/float64(total)*pctExecuteSpan
	half := float64(pctExecuteSpan) / 2 / float64(total)
	return int(math.Round(base)), int(math.Round(base + half))
}

func (o *ResearchOrchestrator) stageHook(ctx context.Context, em *emitter, i, total int) StatusHook {
	searching, summarizing := taskPercent(i, total)
	return func(t SubTask) error {
		switch t.Status {
		case TaskSearching:
			return em.progress(ctx, StageSearching, searching, "Searching: "+t.Title, t.ID)
		case TaskSummarizing:
			return em.progress(ctx, StageSummarizing, summarizing, "Summarizing: "+t.Title, t.ID)
		}
		return nil
	}
}

func (o *ResearchOrchestrator) complete(ctx context.Context, em *emitter, t SubTask) error {
	return em.emit(ctx, EventTaskComplete, TaskCompletePayload{TaskID: t.ID, Summary: t.Summary, Sources: t.Sources, Status: t.Status})
}

func (o *ResearchOrchestrator) executeSequential(ctx context.Context, em *emitter, topic, backend string, tasks []SubTask) error {
	for i := range tasks {
		done, err := o.runner.Execute(ctx, topic, tasks[i], backend, o.stageHook(ctx, em, i, len(tasks)))
		if err != nil {
			return err
		}
		tasks[i] = done
		if err := o.complete(ctx, em, done); err != nil {
			return err
		}
	}
	return nil
}

// executeConcurrent runs tasks in a bounded pool and releases each task's
// progress and task_complete events in plan order once it has finished.
func (o *ResearchOrchestrator) executeConcurrent(ctx context.Context, em *emitter, topic, backend string, tasks []SubTask) error {
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(poolCtx)
	g.SetLimit(o.opts.Concurrency)
	results := make([]SubTask, len(tasks))
	ready := make([]chan struct{}, len(tasks))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	// The spawner owns Wait so that no Go call can race with it.
	waited := make(chan error, 1)
	go func() {
		for i := range tasks {
			i := i
			g.Go(func() error {
				defer close(ready[i])
				done, err := o.runner.Execute(gctx, topic, tasks[i], backend, nil)
				results[i] = done
				return err
			})
		}
		waited <- g.Wait()
	}()

	var releaseErr error
	for i := range tasks {
		select {
		case <-ready[i]:
		case <-ctx.Done():
			releaseErr = ctx.Err()
		}
		if releaseErr != nil {
			break
		}
		if !results[i].Status.Terminal() {
			releaseErr = gctx.Err()
			if releaseErr == nil {
				releaseErr = errors.New("task ended without a final status")
			}
			break
		}
		tasks[i] = results[i]
		hook := o.stageHook(ctx, em, i, len(tasks))
		replay := tasks[i]
		for _, st := range []TaskStatus{TaskSearching, TaskSummarizing} {
			replay.Status = st
			if err := hook(replay); err != nil {
				releaseErr = err
				break
			}
		}
		if releaseErr != nil {
			break
		}
		if err := o.complete(ctx, em, tasks[i]); err != nil {
			releaseErr = err
			break
		}
	}
	if releaseErr != nil {
		// Outstanding workers see the canceled pool and drain on their own.
		cancel()
		return releaseErr
	}
	return <-waited
}
