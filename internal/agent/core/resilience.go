package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wayde1122/chat-box-code/internal/agent/telemetry"
)

// RetryPolicy bounds a single remote call.
type RetryPolicy struct {
	Timeout    time.Duration // per attempt; zero means no extra deadline
	MaxRetries int
	Backoff    time.Duration // doubled after every failed attempt
}

// ResilientLLM wraps a provider with a per-attempt timeout and bounded
// retries. Cancellation of the caller's context is never retried.
type ResilientLLM struct {
	inner     LLMProvider
	policy    RetryPolicy
	telemetry *telemetry.Telemetry
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewResilientLLM(inner LLMProvider, policy RetryPolicy, tele *telemetry.Telemetry) *ResilientLLM {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.Backoff <= 0 {
		policy.Backoff = 500 * time.Millisecond
	}
	return &ResilientLLM{inner: inner, policy: policy, telemetry: tele, sleep: sleepCtx}
}

func (r *ResilientLLM) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.policy.Backoff*time.Duration(1<<(attempt-1))); err != nil {
				return "", err
			}
		}
		out, err := r.once(ctx, prompt, systemPrompt)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("llm call failed after %d attempt(s): %w", r.policy.MaxRetries+1, lastErr)
}

func (r *ResilientLLM) once(ctx context.Context, prompt, systemPrompt string) (string, error) {
	callCtx := ctx
	if r.policy.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := r.inner.Generate(callCtx, prompt, systemPrompt)
	r.telemetry.RecordLLMCall(time.Since(start), err)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("attempt timed out after %s: %w", r.policy.Timeout, err)
	}
	return out, err
}

// Retry runs fn up to retries+1 times with exponential backoff. It is used
// for per-task search and summarize calls.
func Retry(ctx context.Context, retries int, backoff time.Duration, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if serr := sleepCtx(ctx, backoff*time.Duration(1<<(attempt-1))); serr != nil {
				return serr
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
