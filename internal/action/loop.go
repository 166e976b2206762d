// File: internal/action/loop.go
package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
	"github.com/xkilldash9x/deskpilot-cli/internal/input"
	"github.com/xkilldash9x/deskpilot-cli/internal/planner"
	"github.com/xkilldash9x/deskpilot-cli/internal/session"
)

var (
	// ErrInterrupted reports a user abort via the interrupt key.
	ErrInterrupted = errors.New("action: task interrupted by user")

	// ErrSafetyBreak reports that the loop hit its iteration ceiling without
	// the planner emitting done.
	ErrSafetyBreak = errors.New("action: loop safety break triggered")
)

// ScreenReader produces the current screen state as parsed CSV element data.
type ScreenReader interface {
	ReadScreen(ctx context.Context) (string, error)
}

// ContextSource supplies historical context matching a task instruction.
type ContextSource interface {
	ContextFor(instruction string) (string, error)
}

// Loop runs the autonomous perception-decide-act cycle for one task.
type Loop struct {
	Instruction string
	Planner     planner.Planner
	Screen      ScreenReader
	Driver      input.Driver
	Session     *session.Context
	History     ContextSource
	Config      config.ActionConfig
	Logger      *zap.Logger

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

// Run executes the loop until the planner reports done, the user interrupts,
// an error occurs or the iteration ceiling is hit. On success it returns the
// planner's completion message.
func (l *Loop) Run(ctx context.Context) (string, error) {
	if l.sleep == nil {
		l.sleep = time.Sleep
	}
	log := l.Logger.With(zap.String("instruction", l.Instruction))

	if err := l.Session.BeginExecution(); err != nil {
		return "", fmt.Errorf("action: cannot start task: %w", err)
	}
	defer l.Session.EndExecution()

	historical, err := l.History.ContextFor(l.Instruction)
	if err != nil {
		return "", fmt.Errorf("action: gathering historical context: %w", err)
	}
	if historical == "" {
		log.Warn("No matching historical context found, proceeding with current screen only")
	}

	var transcript strings.Builder
	for iteration := 0; ; iteration++ {
		log.Debug("Action loop iteration", zap.Int("iteration", iteration))

		if err := ctx.Err(); err != nil {
			return "", err
		}
		if l.Session.Interrupted() {
			log.Info("Task interrupted")
			return "", ErrInterrupted
		}

		screenCSV, err := l.Screen.ReadScreen(ctx)
		if err != nil {
			return "", fmt.Errorf("action: reading screen state: %w", err)
		}

		raw, err := l.Planner.NextAction(ctx, planner.Request{
			SystemPrompt: planner.SystemPrompt,
			UserPrompt:   planner.BuildUserPrompt(l.Instruction, transcript.String(), screenCSV, historical),
		})
		if err != nil {
			return "", fmt.Errorf("action: planner request failed: %w", err)
		}
		transcript.WriteString(raw)

		thought, actionLine, err := splitResponse(raw)
		if err != nil {
			return "", err
		}
		if thought != "" {
			log.Info("Planner reasoning", zap.String("thought", thought))
		}
		log.Info("Executing planner command", zap.String("action", actionLine))

		cmd, err := Parse(actionLine)
		if err != nil {
			return "", err
		}

		done, message, err := Execute(cmd, l.Driver)
		if err != nil {
			return "", fmt.Errorf("action: executing %q: %w", actionLine, err)
		}
		if done {
			log.Info("Task complete", zap.String("message", message))
			return fmt.Sprintf("Task completed: %s", message), nil
		}

		// Give the UI a moment to settle before the next capture.
		l.sleep(l.Config.SettleDelay)

		if iteration+1 >= l.Config.MaxIterations {
			log.Error("Iteration ceiling reached without done", zap.Int("max_iterations", l.Config.MaxIterations))
			return "", ErrSafetyBreak
		}
	}
}

// splitResponse separates the reasoning block from the action command. A
// response without the closing tag is treated as a bare action. An empty
// action is a protocol violation.
func splitResponse(raw string) (thought, actionLine string, err error) {
	const openTag, closeTag = "<think>", "</think>"

	if idx := strings.Index(raw, closeTag); idx >= 0 {
		head := raw[:idx]
		if start := strings.Index(head, openTag); start >= 0 {
			thought = strings.TrimSpace(head[start+len(openTag):])
		}
		actionLine = strings.TrimSpace(raw[idx+len(closeTag):])
		if actionLine == "" {
			return "", "", &ParseError{Line: raw, Reason: "response contained reasoning but no action"}
		}
		return thought, actionLine, nil
	}

	actionLine = strings.TrimSpace(raw)
	if actionLine == "" {
		return "", "", &ParseError{Line: raw, Reason: "empty planner response"}
	}
	return "", actionLine, nil
}
