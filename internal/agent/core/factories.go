package core

import (
	"github.com/wayde1122/chat-box-code/config"
	"github.com/wayde1122/chat-box-code/internal/agent/telemetry"
)

// NewResearchPipeline wires a research orchestrator from configuration.
func NewResearchPipeline(cfg *config.Config, llm LLMProvider, search SearchProvider, tele *telemetry.Telemetry) *ResearchOrchestrator {
	agents := cfg.Agents.Normalize()
	planner := NewPlanner(llm, agents.MinTasks, agents.MaxTasks, nil)
	summarizer := NewSummarizer(llm, agents.MaxSourcesPerTask, agents.SnippetLimit, nil)
	runner := NewTaskRunner(search, summarizer, TaskRunnerOptions{
		Retries:   agents.TaskRetries,
		Backoff:   cfg.LLM.RetryBackoff,
		Telemetry: tele,
	})
	return NewResearchOrchestrator(planner, runner, NewReportWriter(llm, nil), OrchestratorOptions{
		Concurrency: agents.TaskConcurrency,
		Telemetry:   tele,
	})
}

// NewDigestPipeline wires a digest orchestrator from configuration.
func NewDigestPipeline(llm LLMProvider, fetcher NewsFetcher, tele *telemetry.Telemetry) *DigestOrchestrator {
	return NewDigestOrchestrator(fetcher, NewDigestWriter(llm, nil, nil), OrchestratorOptions{Telemetry: tele})
}

// NewChatAgent wires the reasoning loop with the given tools.
func NewChatAgent(cfg *config.Config, llm LLMProvider, tools []Tool, tele *telemetry.Telemetry) (*ReActEngine, error) {
	agents := cfg.Agents.Normalize()
	parser, err := NewActionParser(agents.ActionParser)
	if err != nil {
		return nil, err
	}
	return NewReActEngine(llm, parser, tools, ReActOptions{MaxIterations: agents.MaxIterations, Telemetry: tele}), nil
}
