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

// DigestHandler streams news digest runs.
type DigestHandler struct {
	Orch   DigestStreamer
	logger *log.Logger
}

type digestRequest struct {
	Topic string `json:"topic"`
}

func (h *DigestHandler) Register(g *echo.Group) {
	g.POST("/news/digest", h.stream)
	g.GET("/news/digest", methodNotAllowed)
}

func (h *DigestHandler) stream(c echo.Context) error {
	var req digestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, core.ErrEmptyTopic.Error())
	}
	if h.Orch == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "language model is not configured")
	}

	ctx, span := serverTracer.Start(c.Request().Context(), "DigestHandler.stream")
	defer span.End()
	span.SetAttributes(attribute.String("topic", topic))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if h.logger != nil {
		h.logger.Printf("digest %q", topic)
	}
	return writeSSE(c, h.Orch.Stream(ctx, topic))
}
