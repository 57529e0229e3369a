package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wayde1122/chat-box-code/internal/agent/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// NewsFetcher returns the raw headlines of a topic as markdown.
type NewsFetcher interface {
	Fetch(ctx context.Context, topic string) (string, error)
}

// MockNewsWarning prefixes sample headlines used when fetching fails.
const MockNewsWarning = "> Warning: live news could not be fetched; the headlines below are sample data."

// MockNews is the sample headline list for topic.
func MockNews(topic string) string {
	return fmt.Sprintf(`%s

1. [%[2]s: industry leaders announce new initiatives](https://example.com/news/1) - Sample Wire
   > Several organisations shared plans related to %[2]s this week.
2. [Analysts weigh the outlook for %[2]s](https://example.com/news/2) - Sample Daily
   > Commentators discuss risks and opportunities around %[2]s.
3. [Community reacts to recent %[2]s developments](https://example.com/news/3) - Sample Times
   > Public discussion continues as new details emerge.
`, MockNewsWarning, topic)
}

// DigestOrchestrator fetches headlines and streams a digest of them.
type DigestOrchestrator struct {
	fetcher NewsFetcher
	writer  *DigestWriter
	opts    OrchestratorOptions
}

func NewDigestOrchestrator(fetcher NewsFetcher, writer *DigestWriter, opts OrchestratorOptions) *DigestOrchestrator {
	return &DigestOrchestrator{fetcher: fetcher, writer: writer, opts: opts.normalize()}
}

func (o *DigestOrchestrator) Stream(ctx context.Context, topic string) <-chan Event {
	return stream(ctx, func(ctx context.Context, out chan<- Event) error { return o.Run(ctx, topic, out) })
}

// Run emits start, fetching and generating progress, digest and done. A
// failed fetch degrades to sample headlines; a failed digest ends in error.
func (o *DigestOrchestrator) Run(ctx context.Context, topic string, out chan<- Event) (err error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ErrEmptyTopic
	}
	runID := o.opts.NewRunID()
	ctx, span := orchestratorTracer.Start(ctx, "DigestOrchestrator.Run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID), attribute.String("topic", topic))

	record := telemetry.PipelineEvent{ID: runID, Pipeline: "digest", Topic: topic, StartTime: time.Now()}
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
	o.opts.Logger.Printf("run %s: digest %q", runID, topic)

	if err := em.emit(ctx, EventStart, StartPayload{Topic: topic, RunID: runID}); err != nil {
		return err
	}
	if err := em.progress(ctx, StageFetching, 5, "Preparing news sources", 0); err != nil {
		return err
	}
	if err := em.progress(ctx, StageFetching, 15, "Fetching news for "+topic, 0); err != nil {
		return err
	}
	content, ferr := o.fetcher.Fetch(ctx, topic)
	if ferr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.opts.Logger.Printf("run %s: news fetch failed, using sample headlines: %v", runID, ferr)
		content = MockNews(topic)
	}
	if err := em.progress(ctx, StageFetching, 50, "News fetched", 0); err != nil {
		return err
	}
	if err := em.progress(ctx, StageGenerating, 60, "Generating digest", 0); err != nil {
		return err
	}
	digest, err := o.writer.Write(ctx, topic, content)
	if err != nil {
		em.fail(ctx, fmt.Sprintf("digest generation failed: %v", err))
		return err
	}
	if err := em.progress(ctx, StageGenerating, 95, "Digest ready", 0); err != nil {
		return err
	}
	if err := em.emit(ctx, EventDigest, digest); err != nil {
		return err
	}
	return em.emit(ctx, EventDone, DonePayload{Topic: topic})
}
