package parser

import (
	"strings"

	"github.com/turtacn/helmkit/pkg/errors"
)

var closers = map[byte]byte{'(': ')', '[': ']', '{': '}'}

// splitTopLevel splits s on any byte of seps, ignoring separators nested in
// parentheses, brackets, braces or double quotes.
func splitTopLevel(s, seps string) ([]string, error) {
	var (
		parts   []string
		stack   []byte
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(', '[', '{':
			stack = append(stack, closers[c])
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return nil, unbalanced(s)
			}
			stack = stack[:len(stack)-1]
		default:
			if len(stack) == 0 && strings.IndexByte(seps, c) >= 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if len(stack) != 0 || inQuote {
		return nil, unbalanced(s)
	}
	return append(parts, s[start:]), nil
}

// matchClose returns the index of the closer matching the opener at s[open],
// or -1.
func matchClose(s string, open int) int {
	var stack []byte
	inQuote := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(', '[', '{':
			stack = append(stack, closers[c])
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// cutLastTopLevel splits s around the last top-level occurrence of sep.
func cutLastTopLevel(s string, sep byte) (before, after string, found bool) {
	parts, err := splitTopLevel(s, string(sep))
	if err != nil || len(parts) < 2 {
		return s, "", false
	}
	last := parts[len(parts)-1]
	return s[:len(s)-len(last)-1], last, true
}

// enclosed reports whether s is wholly wrapped by the given opener and its
// matching closer, and returns the inner text.
func enclosed(s string, open byte) (string, bool) {
	if len(s) < 2 || s[0] != open {
		return "", false
	}
	if matchClose(s, 0) != len(s)-1 {
		return "", false
	}
	return s[1 : len(s)-1], true
}

func unbalanced(s string) error {
	return errors.New(errors.ErrCodeParseFailed, "unbalanced brackets or quotes").WithDetailf("text=%q", s)
}

func parseError(msg, format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeParseFailed, msg).WithDetailf(format, args...)
}
