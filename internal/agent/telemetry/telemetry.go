package telemetry

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wayde1122/chat-box-code/config"
)

// Telemetry records pipeline, LLM, search and tool metrics. A nil
// *Telemetry is valid and records nothing.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	pipelineRuns     *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	taskOutcomes     *prometheus.CounterVec
	llmCalls         *prometheus.CounterVec
	llmLatency       prometheus.Histogram
	searchCalls      *prometheus.CounterVec
	searchResults    *prometheus.CounterVec
	toolCalls        *prometheus.CounterVec
}

// PipelineEvent summarises one research or digest run
type PipelineEvent struct {
	ID             string
	Pipeline       string // research | digest | travel
	Topic          string
	StartTime      time.Time
	EndTime        time.Time
	Success        bool
	Canceled       bool
	Error          string
	TasksCompleted int
	TotalTasks     int
}

// NewTelemetry registers the collectors on reg. Passing nil uses a private
// registry, which keeps tests from colliding on the default one.
func NewTelemetry(cfg config.TelemetryConfig, reg prometheus.Registerer) *Telemetry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	t := &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant", Name: "pipeline_runs_total",
			Help: "Pipeline runs by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		pipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "assistant", Name: "pipeline_duration_seconds",
			Help:    "Wall time of pipeline runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"pipeline"}),
		taskOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant", Name: "research_tasks_total",
			Help: "Research sub-tasks by final status.",
		}, []string{"status"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant", Name: "llm_calls_total",
			Help: "Completion calls by outcome.",
		}, []string{"outcome"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "assistant", Name: "llm_call_seconds",
			Help:    "Latency of single completion attempts.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		}),
		searchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant", Name: "search_calls_total",
			Help: "Search calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		searchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant", Name: "search_results_total",
			Help: "Search results returned by backend.",
		}, []string{"backend"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant", Name: "tool_calls_total",
			Help: "ReAct tool dispatches by tool name.",
		}, []string{"tool"}),
	}
	reg.MustRegister(t.pipelineRuns, t.pipelineDuration, t.taskOutcomes, t.llmCalls,
		t.llmLatency, t.searchCalls, t.searchResults, t.toolCalls)
	return t
}

func (t *Telemetry) enabled() bool { return t != nil && t.config.Enabled }

// RecordPipelineEvent records a finished (or abandoned) pipeline run.
func (t *Telemetry) RecordPipelineEvent(ev PipelineEvent) {
	if !t.enabled() {
		return
	}
	outcome := "success"
	switch {
	case ev.Canceled:
		outcome = "canceled"
	case !ev.Success:
		outcome = "error"
	}
	t.pipelineRuns.WithLabelValues(ev.Pipeline, outcome).Inc()
	if !ev.EndTime.IsZero() && !ev.StartTime.IsZero() {
		t.pipelineDuration.WithLabelValues(ev.Pipeline).Observe(ev.EndTime.Sub(ev.StartTime).Seconds())
	}
	if !ev.Success && ev.Error != "" {
		t.logger.Printf("%s run %s failed: %s", ev.Pipeline, ev.ID, ev.Error)
	}
}

// RecordTaskOutcome counts a research task's final status.
func (t *Telemetry) RecordTaskOutcome(status string) {
	if !t.enabled() {
		return
	}
	t.taskOutcomes.WithLabelValues(status).Inc()
}

// RecordLLMCall records one completion attempt.
func (t *Telemetry) RecordLLMCall(d time.Duration, err error) {
	if !t.enabled() {
		return
	}
	t.llmCalls.WithLabelValues(outcomeOf(err)).Inc()
	t.llmLatency.Observe(d.Seconds())
}

// RecordSourceEvent records one search call.
func (t *Telemetry) RecordSourceEvent(backend string, results int, err error) {
	if !t.enabled() {
		return
	}
	t.searchCalls.WithLabelValues(backend, outcomeOf(err)).Inc()
	if results > 0 {
		t.searchResults.WithLabelValues(backend).Add(float64(results))
	}
}

// RecordToolCall counts a dispatched ReAct tool.
func (t *Telemetry) RecordToolCall(name string) {
	if !t.enabled() {
		return
	}
	t.toolCalls.WithLabelValues(name).Inc()
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
