package helpers

import "strings"

// FencedBlock returns the body of the first ``` fence whose info string is
// lang (any fence when lang is empty).
func FencedBlock(s, lang string) (string, bool) {
	start := 0
	for {
		i := strings.Index(s[start:], "```")
		if i < 0 {
			return "", false
		}
		i += start + 3
		nl := strings.IndexByte(s[i:], '\n')
		if nl < 0 {
			return "", false
		}
		info := strings.ToLower(strings.TrimSpace(s[i : i+nl]))
		body := i + nl + 1
		end := strings.Index(s[body:], "```")
		if end < 0 {
			return "", false
		}
		if lang == "" || info == strings.ToLower(lang) {
			return strings.TrimSpace(s[body : body+end]), true
		}
		start = body + end + 3
	}
}

// BalancedJSON returns every balanced JSON value in s that opens with open
// ('[' or '{'), in order of appearance. Brackets inside strings are ignored.
func BalancedJSON(s string, open byte) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != open {
			continue
		}
		if seg, ok := balancedFrom(s, i); ok {
			out = append(out, seg)
			i += len(seg) - 1
		}
	}
	return out
}

func balancedFrom(s string, start int) (string, bool) {
	var (
		stack    = []byte{s[start]}
		inString bool
		escape   bool
	)
	for i := start + 1; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			top := stack[len(stack)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
