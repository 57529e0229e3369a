package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wayde1122/chat-box-code/internal/agent/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultMaxIterations = 5
	fallbackApology      = "Sorry, I could not complete this request."
)

var reactTracer = otel.Tracer("assistant/internal/agent/react")

// ReActOptions tunes a ReActEngine. Zero values pick defaults.
type ReActOptions struct {
	MaxIterations int
	Logger        *log.Logger
	Telemetry     *telemetry.Telemetry
	Now           func() time.Time
}

// ReActResult is the outcome of one conversational turn.
type ReActResult struct {
	Answer    string          `json:"answer"`
	Steps     []ReasoningStep `json:"steps"`
	UsedTools bool            `json:"usedTools"`
}

// ReActEngine alternates model calls and tool calls until the model
// finishes or the iteration budget runs out.
type ReActEngine struct {
	llm           LLMProvider
	parser        ActionParser
	tools         map[string]Tool
	order         []string
	maxIterations int
	logger        *log.Logger
	telemetry     *telemetry.Telemetry
	now           func() time.Time
}

func NewReActEngine(llm LLMProvider, parser ActionParser, tools []Tool, opts ReActOptions) *ReActEngine {
	if parser == nil {
		parser = RegexActionParser{}
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[REACT] ", log.LstdFlags)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &ReActEngine{
		llm:           llm,
		parser:        parser,
		tools:         make(map[string]Tool, len(tools)),
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
		telemetry:     opts.Telemetry,
		now:           opts.Now,
	}
	for _, t := range tools {
		if _, dup := e.tools[t.Name()]; !dup {
			e.order = append(e.order, t.Name())
		}
		e.tools[t.Name()] = t
	}
	return e
}

// Run answers one user request. The returned answer is never empty. An
// error is returned only when the model itself cannot be reached; the
// partial result is still returned alongside it.
func (e *ReActEngine) Run(ctx context.Context, input string) (ReActResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return ReActResult{}, ErrEmptyQuestion
	}
	ctx, span := reactTracer.Start(ctx, "ReActEngine.Run")
	defer span.End()

	system := e.systemPrompt()
	transcript := []string{"User request: " + input}
	res := ReActResult{Steps: []ReasoningStep{}}

	for i := 0; i < e.maxIterations; i++ {
		output, err := e.llm.Generate(ctx, strings.Join(transcript, "\n"), system)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			res.Answer = finalAnswer(res.Answer, res.Steps)
			return res, fmt.Errorf("react iteration %d: %w", i+1, err)
		}

		turn := e.parser.Parse(output)
		transcript = append(transcript, turn.Text)

		if errors.Is(turn.Err, ErrNoAction) {
			res.Answer = strings.TrimSpace(turn.Text)
			break
		}

		step := ReasoningStep{Thought: turn.Thought, Action: turn.Action}
		if turn.Finish {
			res.Answer = turn.Answer
			res.Steps = append(res.Steps, step)
			break
		}

		switch {
		case turn.Err != nil:
			step.Observation = "parse error: " + turn.Err.Error() + "."
		case e.tools[turn.Tool] != nil:
			res.UsedTools = true
			e.telemetry.RecordToolCall(turn.Tool)
			e.logger.Printf("iteration %d: calling %s %v", i+1, turn.Tool, turn.Args)
			step.Observation = e.tools[turn.Tool].Call(ctx, turn.Args)
		default:
			step.Observation = fmt.Sprintf("error: undefined tool '%s'", turn.Tool)
		}
		res.Steps = append(res.Steps, step)
		transcript = append(transcript, "Observation: "+step.Observation)
	}

	res.Answer = finalAnswer(res.Answer, res.Steps)
	span.SetAttributes(attribute.Int("react.steps", len(res.Steps)), attribute.Bool("react.used_tools", res.UsedTools))
	return res, nil
}

// finalAnswer falls back to the last observation, then the last thought,
// then a fixed apology.
func finalAnswer(answer string, steps []ReasoningStep) string {
	if strings.TrimSpace(answer) != "" {
		return answer
	}
	if n := len(steps); n > 0 {
		last := steps[n-1]
		if strings.TrimSpace(last.Observation) != "" {
			return last.Observation
		}
		if strings.TrimSpace(last.Thought) != "" {
			return last.Thought
		}
	}
	return fallbackApology
}

func (e *ReActEngine) systemPrompt() string {
	today := e.now()
	var tools strings.Builder
	for _, name := range e.order {
		fmt.Fprintf(&tools, "- %s\n", e.tools[name].Description())
	}
	return fmt.Sprintf(`You are a helpful travel assistant. Analyse the user's request and solve it step by step with the available tools.

# Current date
Today is %s (%s). Resolve relative dates such as "today", "tomorrow" or "the day after tomorrow" from this date.

# Available tools
%s
# Reply format
%s
`, today.Format("Monday, January 2, 2006"), today.Format("2006-01-02"), tools.String(), e.parser.Instructions())
}
