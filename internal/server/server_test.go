package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wayde1122/chat-box-code/config"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/internal/faq"
	"github.com/wayde1122/chat-box-code/internal/travel"
)

type stubResearch struct {
	got    core.ResearchRequest
	events []core.Event
}

func (s *stubResearch) Stream(_ context.Context, req core.ResearchRequest) <-chan core.Event {
	s.got = req
	return feed(s.events)
}

type stubDigest struct {
	topic  string
	events []core.Event
}

func (s *stubDigest) Stream(_ context.Context, topic string) <-chan core.Event {
	s.topic = topic
	return feed(s.events)
}

func feed(events []core.Event) <-chan core.Event {
	ch := make(chan core.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

type stubAgent struct {
	res core.ReActResult
	err error
}

func (s stubAgent) Run(context.Context, string) (core.ReActResult, error) { return s.res, s.err }

type stubTravel struct {
	err error
}

func (s stubTravel) Plan(_ context.Context, req travel.Request) (*travel.Brief, error) {
	if s.err != nil {
		return nil, s.err
	}
	if _, err := req.Validate(); err != nil {
		return nil, err
	}
	return &travel.Brief{ID: "b1", Destination: req.Destination, Itinerary: "## Day 1"}, nil
}

func testConfig() *config.Config {
	return config.Default()
}

func do(t *testing.T, s *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %q", rec.Body.String())
	}
	return body["error"]
}

func TestResearchStreamsSSE(t *testing.T) {
	research := &stubResearch{events: []core.Event{
		{Name: core.EventStart, Data: core.StartPayload{Topic: "AI", SearchBackend: "serper", RunID: "r1"}},
		{Name: core.EventProgress, Data: core.ProgressPayload{Stage: core.StagePlanning, Percentage: 5, Task: "planning"}},
		{Name: core.EventDone, Data: core.ResearchDonePayload{Topic: "AI", TasksCompleted: 3, TotalTasks: 4}},
	}}
	s := New(testConfig(), Deps{
		Research:       research,
		ResolveBackend: func(b string) string { return "serper" },
	})

	rec := do(t, s, http.MethodPost, "/api/research/stream", `{"topic":"  AI ","searchBackend":"altavista"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Fatalf("unexpected cache control %q", cc)
	}
	if research.got.Topic != "AI" || research.got.SearchBackend != "serper" {
		t.Fatalf("unexpected request %+v", research.got)
	}

	frames := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n")
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d: %q", len(frames), rec.Body.String())
	}
	var names []string
	for _, f := range frames {
		if !strings.HasPrefix(f, "data: ") {
			t.Fatalf("frame without data prefix: %q", f)
		}
		var msg struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(f, "data: ")), &msg); err != nil {
			t.Fatalf("frame is not JSON: %v", err)
		}
		names = append(names, msg.Event)
	}
	if strings.Join(names, ",") != "start,progress,done" {
		t.Fatalf("unexpected events %v", names)
	}
	if !strings.Contains(frames[0], `"runId":"r1"`) || !strings.Contains(frames[2], `"totalTasks":4`) {
		t.Fatalf("payloads not serialized: %q", rec.Body.String())
	}
}

func TestStreamingEndpointsRejectBadRequests(t *testing.T) {
	s := New(testConfig(), Deps{Research: &stubResearch{}, Digest: &stubDigest{}})
	for _, path := range []string{"/api/research/stream", "/api/news/digest"} {
		path := path
		t.Run(path, func(t *testing.T) {
			tests := []struct {
				name   string
				method string
				body   string
				code   int
				msg    string
			}{
				{"get", http.MethodGet, "", http.StatusMethodNotAllowed, "use POST"},
				{"empty topic", http.MethodPost, `{"topic":"   "}`, http.StatusBadRequest, "topic is required"},
				{"missing topic", http.MethodPost, `{}`, http.StatusBadRequest, "topic is required"},
				{"bad json", http.MethodPost, `{"topic":`, http.StatusBadRequest, "invalid JSON body"},
			}
			for _, tt := range tests {
				rec := do(t, s, tt.method, path, tt.body)
				if rec.Code != tt.code || errorBody(t, rec) != tt.msg {
					t.Fatalf("%s: got %d %q", tt.name, rec.Code, rec.Body.String())
				}
			}
		})
	}
}

func TestStreamingWithoutModel(t *testing.T) {
	s := New(testConfig(), Deps{})
	rec := do(t, s, http.MethodPost, "/api/research/stream", `{"topic":"AI"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestDigestStreams(t *testing.T) {
	digest := &stubDigest{events: []core.Event{
		{Name: core.EventStart, Data: core.StartPayload{Topic: "tech"}},
		{Name: core.EventDigest, Data: "# Digest"},
		{Name: core.EventDone, Data: core.DonePayload{Topic: "tech"}},
	}}
	s := New(testConfig(), Deps{Digest: digest})
	rec := do(t, s, http.MethodPost, "/api/news/digest", `{"topic":"tech"}`)
	if rec.Code != http.StatusOK || digest.topic != "tech" {
		t.Fatalf("unexpected response %d for %q", rec.Code, digest.topic)
	}
	if !strings.Contains(rec.Body.String(), `data: {"event":"digest","data":"# Digest"}`+"\n\n") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestChat(t *testing.T) {
	table, err := faq.Load("")
	if err != nil {
		t.Fatalf("faq.Load: %v", err)
	}
	agentOK := stubAgent{res: core.ReActResult{
		Answer:    "Sunny, 22°C",
		Steps:     []core.ReasoningStep{{Thought: "check weather", Observation: "Sunny"}},
		UsedTools: true,
	}}
	tests := []struct {
		name      string
		agent     ChatAgent
		body      string
		wantModel string
		wantIn    string
		steps     int
	}{
		{"agent answers", agentOK, `{"question":"weather in Rome?"}`, "gpt-4o-mini", "Sunny, 22°C", 1},
		{"model echoed", agentOK, `{"question":"weather in Rome?","model":"custom"}`, "custom", "Sunny", 1},
		{"agent failure falls back", stubAgent{err: errors.New("llm down")}, `{"question":"how do I cancel a booking?"}`, faqModel, "Cancel", 0},
		{"no agent", nil, `{"question":"tell me a joke"}`, faqModel, faq.HelpText, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := New(testConfig(), Deps{Chat: tt.agent, FAQ: table, Model: "gpt-4o-mini"})
			rec := do(t, s, http.MethodPost, "/api/chat", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var resp chatResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Model != tt.wantModel || !strings.Contains(resp.Answer, tt.wantIn) || len(resp.Steps) != tt.steps {
				t.Fatalf("unexpected response %+v", resp)
			}
			if resp.Question == "" || resp.Answer == "" {
				t.Fatalf("question and answer must be set: %+v", resp)
			}
		})
	}

	s := New(testConfig(), Deps{FAQ: table})
	if rec := do(t, s, http.MethodPost, "/api/chat", `{"question":" "}`); rec.Code != http.StatusBadRequest || errorBody(t, rec) != "question is required" {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/api/chat", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/api/faq", "")
	var got faq.Table
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || len(got.Items) != len(table.Items) {
		t.Fatalf("unexpected faq table %s (%v)", rec.Body.String(), err)
	}
}

func TestTravelPlan(t *testing.T) {
	s := New(testConfig(), Deps{Travel: stubTravel{}})
	rec := do(t, s, http.MethodPost, "/api/travel/plan", `{"destination":"Lisbon","startDate":"2024-05-01","endDate":"2024-05-02"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"destination":"Lisbon"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodPost, "/api/travel/plan", `{"destination":"Lisbon","startDate":"tomorrow"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = do(t, New(testConfig(), Deps{Travel: stubTravel{err: errors.New("boom")}}), http.MethodPost, "/api/travel/plan", `{"destination":"Lisbon"}`)
	if rec.Code != http.StatusInternalServerError || errorBody(t, rec) != "boom" {
		t.Fatalf("expected 500, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestJWTGuard(t *testing.T) {
	cfg := testConfig()
	cfg.Server.JWTSecret = "s3cret"
	table, _ := faq.Load("")
	s := New(cfg, Deps{FAQ: table})

	good, err := SignToken("user-1", []byte("s3cret"), time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	wrongKey, _ := SignToken("user-1", []byte("other"), time.Hour)
	expired, _ := SignToken("user-1", []byte("s3cret"), -time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		code  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"valid", good, http.StatusOK},
		{"wrong key", wrongKey, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"alg none", none, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		var header []string
		if tt.token != "" {
			header = []string{"Authorization", "Bearer " + tt.token}
		}
		if rec := do(t, s, http.MethodGet, "/api/faq", "", header...); rec.Code != tt.code {
			t.Fatalf("%s: expected %d, got %d", tt.name, tt.code, rec.Code)
		}
	}
	if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz must not require auth, got %d", rec.Code)
	}
}

func TestBuildWithoutModel(t *testing.T) {
	app, err := Build(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()
	if app.Deps.Research != nil || app.Deps.Digest != nil || app.Deps.Chat != nil {
		t.Fatalf("model-backed features must be disabled without an api key")
	}
	if app.Deps.FAQ == nil || app.Deps.Travel == nil {
		t.Fatalf("faq and travel must always be wired")
	}
	if got := app.Deps.ResolveBackend("altavista"); got != "tavily" {
		t.Fatalf("unknown backends resolve to the default, got %q", got)
	}

	s := New(testConfig(), app.Deps)
	if rec := do(t, s, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("metrics endpoint not served: %d", rec.Code)
	}
	rec := do(t, s, http.MethodPost, "/api/chat", `{"question":"what can you do"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), faqModel) {
		t.Fatalf("chat should answer from the FAQ, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestBuildWithModel(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.APIKey = "sk-test"
	app, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()
	if app.Research == nil || app.Digest == nil || app.Agent == nil || app.Deps.Chat == nil {
		t.Fatalf("expected model-backed features to be wired")
	}
}
