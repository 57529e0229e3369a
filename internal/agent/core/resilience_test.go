package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestResilientLLMRetriesTransientFailures(t *testing.T) {
	inner := &stubLLM{fn: func(_, _ string, call int) (string, error) {
		if call < 3 {
			return "", errors.New("503")
		}
		return "ok", nil
	}}
	r := NewResilientLLM(inner, RetryPolicy{MaxRetries: 2}, nil)
	r.sleep = noSleep

	out, err := r.Generate(context.Background(), "p", "s")
	if err != nil || out != "ok" {
		t.Fatalf("expected success on third attempt, got %q (%v)", out, err)
	}
	if inner.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.callCount())
	}
}

func TestResilientLLMGivesUp(t *testing.T) {
	boom := errors.New("still down")
	inner := &stubLLM{fn: func(_, _ string, _ int) (string, error) { return "", boom }}
	r := NewResilientLLM(inner, RetryPolicy{MaxRetries: 1}, nil)
	r.sleep = noSleep

	if _, err := r.Generate(context.Background(), "p", "s"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if inner.callCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", inner.callCount())
	}
}

type blockingLLM struct{}

func (blockingLLM) Generate(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestResilientLLMTimeout(t *testing.T) {
	r := NewResilientLLM(blockingLLM{}, RetryPolicy{Timeout: 10 * time.Millisecond}, nil)
	start := time.Now()
	_, err := r.Generate(context.Background(), "p", "s")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout was not enforced")
	}
}

func TestResilientLLMDoesNotRetryCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inner := &stubLLM{fn: func(_, _ string, _ int) (string, error) { return "unused", nil }}
	r := NewResilientLLM(inner, RetryPolicy{MaxRetries: 3}, nil)
	if _, err := r.Generate(ctx, "p", "s"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if inner.callCount() != 1 {
		t.Fatalf("expected a single attempt, got %d", inner.callCount())
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("X-Test") != "1" {
			t.Errorf("missing headers: %v", r.Header)
		}
		_, _ = w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, 1, time.Millisecond)
	var out struct {
		Value int `json:"value"`
	}
	if err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, map[string]string{"X-Test": "1"}, map[string]string{"q": "x"}, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Value != 42 || atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("unexpected result %+v after %d hits", out, hits)
	}
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(time.Second, 3, time.Millisecond).Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one attempt, got %d", hits)
	}
}

func TestEmitterKeepsProgressMonotonic(t *testing.T) {
	out := make(chan Event, 8)
	em := newEmitter(out)
	ctx := context.Background()
	_ = em.progress(ctx, StagePlanning, 40, "", 0)
	_ = em.progress(ctx, StageSearching, 20, "", 0)
	_ = em.progress(ctx, StageReporting, 140, "", 0)
	_ = em.emit(ctx, EventDone, DonePayload{})
	_ = em.emit(ctx, EventReport, "late")
	em.fail(ctx, "late")
	close(out)

	var got []int
	var last EventName
	n := 0
	for ev := range out {
		n++
		last = ev.Name
		if p, ok := ev.Data.(ProgressPayload); ok {
			got = append(got, p.Percentage)
		}
	}
	if len(got) != 3 || got[0] != 40 || got[1] != 40 || got[2] != 100 {
		t.Fatalf("unexpected percentages %v", got)
	}
	if n != 4 || last != EventDone {
		t.Fatalf("nothing may follow a terminal event")
	}
}
