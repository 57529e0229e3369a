package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/internal/faq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const faqModel = "faq-matcher"

// ChatHandler answers questions with the reasoning agent and falls back to
// the FAQ table when the agent is missing or fails.
type ChatHandler struct {
	Agent  ChatAgent
	FAQ    *faq.Table
	Model  string
	logger *log.Logger
}

type chatRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"`
}

type chatResponse struct {
	Model     string               `json:"model"`
	Question  string               `json:"question"`
	Answer    string               `json:"answer"`
	Steps     []core.ReasoningStep `json:"steps,omitempty"`
	UsedTools bool                 `json:"usedTools,omitempty"`
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat", h.chat)
	g.GET("/chat", methodNotAllowed)
	g.GET("/faq", h.table)
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, core.ErrEmptyQuestion.Error())
	}

	if h.Agent != nil {
		ctx, span := serverTracer.Start(c.Request().Context(), "ChatHandler.chat")
		res, err := h.Agent.Run(ctx, question)
		span.SetAttributes(attribute.Bool("react.used_tools", res.UsedTools))
		if err == nil {
			span.End()
			model := req.Model
			if model == "" {
				model = h.Model
			}
			return c.JSON(http.StatusOK, chatResponse{
				Model:     model,
				Question:  question,
				Answer:    res.Answer,
				Steps:     res.Steps,
				UsedTools: res.UsedTools,
			})
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		if h.logger != nil {
			h.logger.Printf("chat agent failed, answering from FAQ: %v", err)
		}
	}
	return c.JSON(http.StatusOK, chatResponse{Model: faqModel, Question: question, Answer: h.FAQ.Answer(question)})
}

func (h *ChatHandler) table(c echo.Context) error {
	if h.FAQ == nil {
		return c.JSON(http.StatusOK, faq.Table{Categories: []faq.Category{}, Items: []faq.Item{}})
	}
	return c.JSON(http.StatusOK, h.FAQ)
}
