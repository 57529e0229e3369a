package core

import (
	"context"
)

// EventName identifies a streamed pipeline event.
type EventName string

const (
	EventStart        EventName = "start"
	EventPlan         EventName = "plan"
	EventProgress     EventName = "progress"
	EventTaskComplete EventName = "task_complete"
	EventReport       EventName = "report"
	EventDigest       EventName = "digest"
	EventError        EventName = "error"
	EventDone         EventName = "done"
)

// Terminal reports whether no event may follow this one.
func (n EventName) Terminal() bool { return n == EventDone || n == EventError }

// Stage is the pipeline phase carried by progress events.
type Stage string

const (
	StagePlanning    Stage = "planning"
	StageSearching   Stage = "searching"
	StageSummarizing Stage = "summarizing"
	StageReporting   Stage = "reporting"
	StageFetching    Stage = "fetching"
	StageGenerating  Stage = "generating"
)

// Event is one message of the stream. It marshals to {"event":..,"data":..}.
type Event struct {
	Name EventName `json:"event"`
	Data any       `json:"data"`
}

type StartPayload struct {
	Topic         string `json:"topic"`
	SearchBackend string `json:"searchBackend,omitempty"`
	RunID         string `json:"runId"`
}

type ProgressPayload struct {
	Stage      Stage  `json:"stage"`
	Percentage int    `json:"percentage"`
	Task       string `json:"task"`
	TaskID     int    `json:"taskId,omitempty"`
}

type TaskCompletePayload struct {
	TaskID  int          `json:"taskId"`
	Summary string       `json:"summary"`
	Sources []SourceItem `json:"sources"`
	Status  TaskStatus   `json:"status"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// DonePayload closes a digest run.
type DonePayload struct {
	Topic string `json:"topic"`
}

// ResearchDonePayload closes a research run. Both counters are always
// present, zero included.
type ResearchDonePayload struct {
	Topic          string `json:"topic"`
	TasksCompleted int    `json:"tasksCompleted"`
	TotalTasks     int    `json:"totalTasks"`
}

// emitter writes events for one run. It keeps progress percentages
// non-decreasing and refuses anything after a terminal event.
type emitter struct {
	out     chan<- Event
	lastPct int
	closed  bool
}

func newEmitter(out chan<- Event) *emitter { return &emitter{out: out} }

func (e *emitter) emit(ctx context.Context, name EventName, data any) error {
	if e.closed {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case e.out <- Event{Name: name, Data: data}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if name.Terminal() {
		e.closed = true
	}
	return nil
}

func (e *emitter) progress(ctx context.Context, stage Stage, pct int, task string, taskID int) error {
	if pct < e.lastPct {
		pct = e.lastPct
	}
	if pct > 100 {
		pct = 100
	}
	e.lastPct = pct
	return e.emit(ctx, EventProgress, ProgressPayload{Stage: stage, Percentage: pct, Task: task, TaskID: taskID})
}

// fail emits the error event unless the run was canceled.
func (e *emitter) fail(ctx context.Context, msg string) {
	if e.closed || ctx.Err() != nil {
		return
	}
	_ = e.emit(ctx, EventError, ErrorPayload{Message: msg})
}

// stream runs fn on a goroutine and returns a channel that is closed when
// fn returns.
func stream(ctx context.Context, fn func(ctx context.Context, out chan<- Event) error) <-chan Event {
	ch := make(chan Event, 8)
	go func() {
		defer close(ch)
		_ = fn(ctx, ch)
	}()
	return ch
}
