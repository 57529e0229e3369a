package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wayde1122/chat-box-code/config"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/internal/faq"
	"github.com/wayde1122/chat-box-code/internal/travel"
	"go.opentelemetry.io/otel"
)

const shutdownTimeout = 10 * time.Second

var serverTracer = otel.Tracer("assistant/internal/server")

// ResearchStreamer runs the research pipeline as an event stream.
type ResearchStreamer interface {
	Stream(ctx context.Context, req core.ResearchRequest) <-chan core.Event
}

// DigestStreamer runs the news digest pipeline as an event stream.
type DigestStreamer interface {
	Stream(ctx context.Context, topic string) <-chan core.Event
}

// ChatAgent answers one conversational turn.
type ChatAgent interface {
	Run(ctx context.Context, input string) (core.ReActResult, error)
}

type TravelPlanner interface {
	Plan(ctx context.Context, req travel.Request) (*travel.Brief, error)
}

// Deps are the collaborators behind the HTTP surface. Research, Digest and
// Chat are nil when no language model is configured.
type Deps struct {
	Research ResearchStreamer
	Digest   DigestStreamer
	Chat     ChatAgent
	Travel   TravelPlanner
	FAQ      *faq.Table
	// ResolveBackend maps a requested search backend to the one that will serve it.
	ResolveBackend func(string) string
	// Gatherer backs the metrics endpoint; nil disables it.
	Gatherer prometheus.Gatherer
	Model    string
}

type Server struct {
	cfg    *config.Config
	deps   Deps
	echo   *echo.Echo
	logger *log.Logger
}

func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		echo:   echo.New(),
		logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
	s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) routes() {
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.cfg.Server.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.deps.Gatherer != nil && s.cfg.Telemetry.Enabled {
		e.GET(s.cfg.Telemetry.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	if secret := s.cfg.Server.JWTSecret; secret != "" {
		api.Use(jwtGuard([]byte(secret)))
	}
	(&ResearchHandler{Orch: s.deps.Research, ResolveBackend: s.deps.ResolveBackend, logger: s.logger}).Register(api)
	(&DigestHandler{Orch: s.deps.Digest, logger: s.logger}).Register(api)
	(&ChatHandler{Agent: s.deps.Chat, FAQ: s.deps.FAQ, Model: s.deps.Model, logger: s.logger}).Register(api)
	(&TravelHandler{Planner: s.deps.Travel}).Register(api)
}

// handleError renders every failure as {"error": msg}.
func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Server.Address
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Printf("shutting down")
	return s.echo.Shutdown(shutdownCtx)
}

func methodNotAllowed(c echo.Context) error {
	return echo.NewHTTPError(http.StatusMethodNotAllowed, "use POST")
}
