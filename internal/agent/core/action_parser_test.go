package core

import (
	"errors"
	"strings"
	"testing"
)

func TestRegexActionParser(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		finish   bool
		answer   string
		tool     string
		args     map[string]string
		err      error
		notInTxt string
	}{
		{
			name:   "finish quoted",
			output: "Thought: I know it.\nAction: finish(answer=\"Paris is sunny.\")",
			finish: true,
			answer: "Paris is sunny.",
		},
		{
			name:   "finish unquoted falls back to parenthesised content",
			output: "Thought: done\nAction: finish(Paris is sunny)",
			finish: true,
			answer: "Paris is sunny",
		},
		{
			name:   "tool call with arguments",
			output: "Thought: need weather\nAction: get_weather(city=\"Paris\", date=\"2024-05-01\")",
			tool:   "get_weather",
			args:   map[string]string{"city": "Paris", "date": "2024-05-01"},
		},
		{
			name:     "over-generated turns are dropped",
			output:   "Thought: a\nAction: get_weather(city=\"Rome\")\nObservation: invented\nThought: b\nAction: finish(answer=\"x\")",
			tool:     "get_weather",
			args:     map[string]string{"city": "Rome"},
			notInTxt: "invented",
		},
		{
			name:   "no action",
			output: "The answer is simply 42.",
			err:    ErrNoAction,
		},
		{
			name:   "unparsable action",
			output: "Thought: hmm\nAction: look around",
			err:    ErrUnparsableAction,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			turn := RegexActionParser{}.Parse(tt.output)
			if !errors.Is(turn.Err, tt.err) {
				t.Fatalf("expected err %v, got %v", tt.err, turn.Err)
			}
			if turn.Finish != tt.finish {
				t.Fatalf("expected finish=%v, got %v", tt.finish, turn.Finish)
			}
			if tt.finish && turn.Answer != tt.answer {
				t.Fatalf("expected answer %q, got %q", tt.answer, turn.Answer)
			}
			if turn.Tool != tt.tool {
				t.Fatalf("expected tool %q, got %q", tt.tool, turn.Tool)
			}
			for k, v := range tt.args {
				if turn.Args[k] != v {
					t.Fatalf("expected arg %s=%q, got %q", k, v, turn.Args[k])
				}
			}
			if tt.notInTxt != "" && strings.Contains(turn.Text, tt.notInTxt) {
				t.Fatalf("expected %q to be trimmed from %q", tt.notInTxt, turn.Text)
			}
		})
	}
}

func TestJSONActionParser(t *testing.T) {
	p := JSONActionParser{}

	turn := p.Parse("```json\n{\"thought\": \"look it up\", \"action\": {\"name\": \"get_weather\", \"args\": {\"city\": \"Oslo\", \"days\": 3}}}\n```")
	if turn.Err != nil || turn.Tool != "get_weather" {
		t.Fatalf("unexpected turn %+v", turn)
	}
	if turn.Args["city"] != "Oslo" || turn.Args["days"] != "3" {
		t.Fatalf("unexpected args %v", turn.Args)
	}
	if turn.Action != `get_weather(city="Oslo", days="3")` {
		t.Fatalf("unexpected action text %q", turn.Action)
	}

	turn = p.Parse(`Sure. {"thought": "done", "action": {"name": "finish", "args": {"answer": "Cold and clear."}}}`)
	if !turn.Finish || turn.Answer != "Cold and clear." {
		t.Fatalf("expected finish turn, got %+v", turn)
	}

	turn = p.Parse("plain prose")
	if !errors.Is(turn.Err, ErrNoAction) {
		t.Fatalf("expected ErrNoAction, got %v", turn.Err)
	}
}

func TestNewActionParser(t *testing.T) {
	if p, err := NewActionParser(""); err != nil {
		t.Fatalf("default parser: %v", err)
	} else if _, ok := p.(RegexActionParser); !ok {
		t.Fatalf("expected regex parser by default, got %T", p)
	}
	if p, err := NewActionParser("JSON"); err != nil {
		t.Fatalf("json parser: %v", err)
	} else if _, ok := p.(JSONActionParser); !ok {
		t.Fatalf("expected json parser, got %T", p)
	}
	if _, err := NewActionParser("xml"); err == nil {
		t.Fatalf("expected error for unknown parser")
	}
}
