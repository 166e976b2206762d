// File: internal/action/command.go
//
// Package action parses and executes the planner command grammar and runs the
// autonomous perception-decide-act loop.
package action

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind enumerates the closed command set a planner may emit.
type Kind int

const (
	KindClick Kind = iota
	KindClickDown
	KindClickUp
	KindDrag
	KindTap
	KindTapDown
	KindTapUp
	KindScroll
	KindType
	KindDone
)

func (k Kind) String() string {
	switch k {
	case KindClick:
		return "click"
	case KindClickDown:
		return "click_down"
	case KindClickUp:
		return "click_up"
	case KindDrag:
		return "drag"
	case KindTap:
		return "tap"
	case KindTapDown:
		return "tap_down"
	case KindTapUp:
		return "tap_up"
	case KindScroll:
		return "scroll"
	case KindType:
		return "type"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Command is one parsed planner instruction. Exactly the fields relevant to
// its Kind are populated.
type Command struct {
	Kind Kind

	// X, Y are set for click, click_down and drag.
	X, Y int

	// Key is set for tap, tap_down and tap_up.
	Key string

	// Amount is set for scroll.
	Amount int

	// Text is set for type and done.
	Text string
}

// ParseError reports a planner response the grammar cannot accept.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("action: cannot parse %q: %s", e.Line, e.Reason)
}

var coordRe = regexp.MustCompile(`^\(\s*(-?\d+)\s*,\s*(-?\d+)\s*\)$`)

// Parse interprets one `tag:value` line. The line is split once on the first
// colon; everything after it is the payload.
func Parse(line string) (Command, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Command{}, &ParseError{Line: line, Reason: "empty command"}
	}
	tag, payload, found := strings.Cut(trimmed, ":")
	if !found {
		return Command{}, &ParseError{Line: line, Reason: "missing ':' separator"}
	}
	tag = strings.TrimSpace(tag)
	payload = strings.TrimSpace(payload)

	switch tag {
	case "click":
		return parseCoord(KindClick, line, payload)
	case "click_down":
		return parseCoord(KindClickDown, line, payload)
	case "drag":
		return parseCoord(KindDrag, line, payload)
	case "click_up":
		if payload != "nil" {
			return Command{}, &ParseError{Line: line, Reason: "click_up takes the literal payload nil"}
		}
		return Command{Kind: KindClickUp}, nil
	case "tap":
		return parseKey(KindTap, line, payload)
	case "tap_down":
		return parseKey(KindTapDown, line, payload)
	case "tap_up":
		return parseKey(KindTapUp, line, payload)
	case "scroll":
		n, err := strconv.Atoi(payload)
		if err != nil {
			return Command{}, &ParseError{Line: line, Reason: "scroll payload must be a signed integer"}
		}
		return Command{Kind: KindScroll, Amount: n}, nil
	case "type":
		text, ok := unquote(payload)
		if !ok {
			return Command{}, &ParseError{Line: line, Reason: "type payload must be quoted"}
		}
		return Command{Kind: KindType, Text: text}, nil
	case "done":
		// The completion message is optional and may be unquoted.
		if text, ok := unquote(payload); ok {
			return Command{Kind: KindDone, Text: text}, nil
		}
		return Command{Kind: KindDone, Text: payload}, nil
	default:
		return Command{}, &ParseError{Line: line, Reason: fmt.Sprintf("unknown command tag %q", tag)}
	}
}

func parseCoord(kind Kind, line, payload string) (Command, error) {
	m := coordRe.FindStringSubmatch(payload)
	if m == nil {
		return Command{}, &ParseError{Line: line, Reason: "payload must be a coordinate pair (x,y)"}
	}
	x, _ := strconv.Atoi(m[1])
	y, _ := strconv.Atoi(m[2])
	return Command{Kind: kind, X: x, Y: y}, nil
}

func parseKey(kind Kind, line, payload string) (Command, error) {
	key, ok := unquote(payload)
	if !ok {
		return Command{}, &ParseError{Line: line, Reason: "key payload must be quoted"}
	}
	if key == "" {
		return Command{}, &ParseError{Line: line, Reason: "key payload is empty"}
	}
	return Command{Kind: kind, Key: key}, nil
}

// unquote strips one layer of matching single or double quotes.
func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	first, last := s[0], s[len(s)-1]
	if first != last {
		return "", false
	}
	if first != '\'' && first != '"' {
		return "", false
	}
	return s[1 : len(s)-1], true
}
