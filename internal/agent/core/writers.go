package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var writerTracer = otel.Tracer("assistant/internal/agent/writers")

const reportSystemPrompt = `You are a senior research writer. Merge the sub-task summaries you are given into one coherent research report in markdown.

Structure:
# <topic> Research Report
## Summary
## Findings (one section per theme, not per sub-task)
## Conclusion

Keep inline source markers such as [1] where the summaries use them. Do not invent facts that are not in the summaries.`

const digestSystemPrompt = `You are a news editor. Turn the raw headlines you are given into a concise daily digest in markdown.

Structure:
# <topic> News Digest (<date>)
## Highlights (3 to 5 bullets)
## Stories (group related headlines, one short paragraph each, keep the markdown links)
## What to watch

Only use the headlines provided. If they carry a warning that they are sample data, say so at the top.`

// ReportWriter merges completed task summaries into the final report.
type ReportWriter struct {
	llm    LLMProvider
	logger *log.Logger
}

func NewReportWriter(llm LLMProvider, logger *log.Logger) *ReportWriter {
	if logger == nil {
		logger = log.New(log.Writer(), "[REPORT] ", log.LstdFlags)
	}
	return &ReportWriter{llm: llm, logger: logger}
}

// Write produces the report. With no completed task it returns the degraded
// report without calling the model.
func (w *ReportWriter) Write(ctx context.Context, topic string, tasks []SubTask) (string, error) {
	ctx, span := writerTracer.Start(ctx, "ReportWriter.Write")
	defer span.End()

	completed := completedTasks(tasks)
	span.SetAttributes(attribute.Int("tasks.completed", len(completed)), attribute.Int("tasks.total", len(tasks)))
	if len(completed) == 0 {
		w.logger.Printf("no completed tasks for %q, returning degraded report", topic)
		return DegradedReport(topic), nil
	}

	prompt := fmt.Sprintf("# Research topic\n%s\n\n# Completed sub-tasks\n%d sub-task(s) completed.\n\n%s\n\nWrite the complete research report from the material above.",
		topic, len(completed), FormatTaskSummaries(completed))
	out, err := w.llm.Generate(ctx, prompt, reportSystemPrompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("write report: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return fmt.Sprintf("# %s Research Report\n\n## Summary\n\nReport generation failed. Please try again later.\n", topic), nil
	}
	return out, nil
}

func completedTasks(tasks []SubTask) []SubTask {
	var out []SubTask
	for _, t := range tasks {
		if t.Status == TaskCompleted && strings.TrimSpace(t.Summary) != "" {
			out = append(out, t)
		}
	}
	return out
}

// FormatTaskSummaries renders tasks as the report writer's input.
func FormatTaskSummaries(tasks []SubTask) string {
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, fmt.Sprintf("## Task %d: %s\nIntent: %s\nSources: %d\n\n### Summary\n%s",
			t.ID, t.Title, t.Intent, len(t.Sources), t.Summary))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// DegradedReport explains that no sub-task succeeded.
func DegradedReport(topic string) string {
	return fmt.Sprintf(`# %s Research Report

## Summary

No research sub-task completed successfully, so a full report could not be produced.

## Suggestions

1. Check the network connection
2. Try a different search engine
3. Rephrase the research topic

---
`, topic)
}

// DigestWriter turns fetched headlines into a news digest.
type DigestWriter struct {
	llm    LLMProvider
	logger *log.Logger
	now    func() time.Time
}

func NewDigestWriter(llm LLMProvider, logger *log.Logger, now func() time.Time) *DigestWriter {
	if logger == nil {
		logger = log.New(log.Writer(), "[DIGEST] ", log.LstdFlags)
	}
	if now == nil {
		now = time.Now
	}
	return &DigestWriter{llm: llm, logger: logger, now: now}
}

// Write produces the digest. Empty content short-circuits without a model
// call; empty model output falls back to a fixed document.
func (w *DigestWriter) Write(ctx context.Context, topic, content string) (string, error) {
	ctx, span := writerTracer.Start(ctx, "DigestWriter.Write")
	defer span.End()

	date := w.now().Format("2006-01-02")
	if strings.TrimSpace(content) == "" {
		return fmt.Sprintf("# %s News Digest (%s)\n\nNo news was found for this topic today.\n", topic, date), nil
	}
	prompt := fmt.Sprintf("Topic: %s\nDate: %s\n\n# Raw headlines\n%s\n\nWrite today's digest.", topic, date, content)
	out, err := w.llm.Generate(ctx, prompt, digestSystemPrompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("write digest: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		w.logger.Printf("empty digest for %q, using fallback", topic)
		return fmt.Sprintf("# %s News Digest (%s)\n\nDigest generation failed. The raw headlines follow.\n\n%s", topic, date, content), nil
	}
	return out, nil
}
