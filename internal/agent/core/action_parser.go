package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/wayde1122/chat-box-code/internal/helpers"
)

var (
	ErrNoAction         = errors.New("no action in model output")
	ErrUnparsableAction = errors.New("could not parse tool name or arguments")
)

// Turn is one parsed model reply.
type Turn struct {
	Text    string // reply after dropping over-generated turns; goes into the transcript
	Thought string
	Action  string // raw action text as recorded in the step
	Finish  bool
	Answer  string
	Tool    string
	Args    map[string]string
	Err     error // ErrNoAction or ErrUnparsableAction
}

// ActionParser turns a model reply into a Turn and tells the model which
// reply format it expects.
type ActionParser interface {
	Parse(output string) Turn
	Instructions() string
}

// NewActionParser returns the parser registered under name ("regex" or "json").
func NewActionParser(name string) (ActionParser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "regex":
		return RegexActionParser{}, nil
	case "json":
		return JSONActionParser{}, nil
	}
	return nil, fmt.Errorf("unknown action parser %q", name)
}

var (
	reNextMarker   = regexp.MustCompile(`\n\s*(?:Thought:|Action:|Observation:)`)
	reAction       = regexp.MustCompile(`(?s)Action:\s*(.*)`)
	reFinishQuoted = regexp.MustCompile(`(?s)finish\(answer="(.*)"\)`)
	reFinishAny    = regexp.MustCompile(`(?s)finish\((.*)\)`)
	reToolName     = regexp.MustCompile(`(\w+)\(`)
	reToolArgs     = regexp.MustCompile(`(?s)\((.*)\)`)
	reKeyValue     = regexp.MustCompile(`(\w+)="([^"]*)"`)
)

// RegexActionParser reads the plain-text "Thought: ... Action: tool(k="v")"
// format.
type RegexActionParser struct{}

func (RegexActionParser) Instructions() string {
	return `Reply with exactly one Thought/Action pair and nothing else:
Thought: <your reasoning and the next step>
Action: <one tool call, written as function_name(arg_name="arg_value")>

When you have enough information to answer, the Action must be finish(answer="<final answer>").`
}

func (RegexActionParser) Parse(output string) Turn {
	text := firstTurn(output)
	turn := Turn{Text: text, Thought: extractThought(text)}

	m := reAction.FindStringSubmatch(text)
	if m == nil {
		turn.Err = ErrNoAction
		return turn
	}
	turn.Action = strings.TrimSpace(m[1])

	if strings.HasPrefix(turn.Action, "finish") {
		turn.Finish = true
		if fm := reFinishQuoted.FindStringSubmatch(turn.Action); fm != nil {
			turn.Answer = fm[1]
		} else if fm := reFinishAny.FindStringSubmatch(turn.Action); fm != nil {
			turn.Answer = fm[1]
		} else {
			turn.Answer = text
		}
		return turn
	}

	name := reToolName.FindStringSubmatch(turn.Action)
	args := reToolArgs.FindStringSubmatch(turn.Action)
	if name == nil || args == nil {
		turn.Err = ErrUnparsableAction
		return turn
	}
	turn.Tool = name[1]
	turn.Args = map[string]string{}
	for _, kv := range reKeyValue.FindAllStringSubmatch(args[1], -1) {
		turn.Args[kv[1]] = kv[2]
	}
	return turn
}

// firstTurn keeps only the first Thought/Action pair when the model keeps
// writing further turns (or invents its own observations).
func firstTurn(output string) string {
	t := strings.Index(output, "Thought:")
	if t < 0 {
		return output
	}
	a := strings.Index(output[t:], "Action:")
	if a < 0 {
		return output
	}
	a += t + len("Action:")
	end := len(output)
	if loc := reNextMarker.FindStringIndex(output[a:]); loc != nil {
		end = a + loc[0]
	}
	return strings.TrimSpace(output[t:end])
}

func extractThought(text string) string {
	i := strings.Index(text, "Thought:")
	if i < 0 {
		return ""
	}
	rest := text[i+len("Thought:"):]
	if j := strings.Index(rest, "Action:"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// JSONActionParser expects a single JSON object:
//
//	{"thought": "...", "action": {"name": "get_weather", "args": {"city": "Paris"}}}
//
// The finish action carries the answer in args.answer.
type JSONActionParser struct{}

func (JSONActionParser) Instructions() string {
	return `Reply with exactly one JSON object and nothing else:
{"thought": "<your reasoning>", "action": {"name": "<tool name>", "args": {"<arg>": "<value>"}}}

When you have enough information to answer, use {"name": "finish", "args": {"answer": "<final answer>"}}.`
}

type jsonTurn struct {
	Thought string `json:"thought"`
	Action  *struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	} `json:"action"`
}

func (JSONActionParser) Parse(output string) Turn {
	body := strings.TrimSpace(output)
	if inner, ok := helpers.FencedBlock(body, ""); ok {
		body = inner
	}
	var parsed jsonTurn
	decoded := false
	for _, cand := range append([]string{body}, helpers.BalancedJSON(body, '{')...) {
		if err := json.Unmarshal([]byte(cand), &parsed); err == nil && parsed.Action != nil {
			body = cand
			decoded = true
			break
		}
	}
	if !decoded {
		return Turn{Text: output, Err: ErrNoAction}
	}

	turn := Turn{Text: body, Thought: strings.TrimSpace(parsed.Thought)}
	name := strings.TrimSpace(parsed.Action.Name)
	args := make(map[string]string, len(parsed.Action.Args))
	for k, v := range parsed.Action.Args {
		args[k] = fmt.Sprint(v)
	}
	turn.Action = formatCall(name, args)

	if name == "finish" {
		turn.Finish = true
		turn.Answer = args["answer"]
		if turn.Answer == "" {
			turn.Answer = output
		}
		return turn
	}
	if name == "" {
		turn.Err = ErrUnparsableAction
		return turn
	}
	turn.Tool = name
	turn.Args = args
	return turn
}

func formatCall(name string, args map[string]string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, args[k]))
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
