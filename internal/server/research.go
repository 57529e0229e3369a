package server

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"go.opentelemetry.io/otel/attribute"
)

// ResearchHandler streams deep-research runs.
type ResearchHandler struct {
	Orch           ResearchStreamer
	ResolveBackend func(string) string
	logger         *log.Logger
}

type researchRequest struct {
	Topic         string `json:"topic"`
	SearchBackend string `json:"searchBackend"`
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.POST("/research/stream", h.stream)
	g.GET("/research/stream", methodNotAllowed)
}

// stream
//
//	@Summary	Research stream
//	@Tags		research
//	@Accept		json
//	@Produce	text/event-stream
//	@Param		payload	body		researchRequest	true	"Topic and optional search backend"
//	@Success	200		{string}	string
//	@Failure	400		{object}	map[string]string
//	@Router		/api/research/stream [post]
func (h *ResearchHandler) stream(c echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, core.ErrEmptyTopic.Error())
	}
	if h.Orch == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "language model is not configured")
	}
	if h.ResolveBackend != nil {
		req.SearchBackend = h.ResolveBackend(req.SearchBackend)
	}

	ctx, span := serverTracer.Start(c.Request().Context(), "ResearchHandler.stream")
	defer span.End()
	span.SetAttributes(attribute.String("topic", req.Topic), attribute.String("search.backend", req.SearchBackend))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if h.logger != nil {
		h.logger.Printf("research %q on %s", req.Topic, req.SearchBackend)
	}
	return writeSSE(c, h.Orch.Stream(ctx, core.ResearchRequest{Topic: req.Topic, SearchBackend: req.SearchBackend}))
}
