// File: internal/session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode is the process-wide session mode. Exactly one value exists at a time;
// every transition goes through the Context methods below.
type Mode int

const (
	ModeIdle Mode = iota
	ModeRecording
	ModeExecuting
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "Idle"
	case ModeRecording:
		return "Recording"
	case ModeExecuting:
		return "ExecutingAction"
	default:
		return "Unknown"
	}
}

// ErrNotIdle is returned when a transition into Recording or ExecutingAction
// is attempted from any mode other than Idle.
var ErrNotIdle = errors.New("session: not idle")

// ErrNotRecording is returned by recording-scoped operations invoked outside
// an active recording session.
var ErrNotRecording = errors.New("session: not recording")

// Point is a pointer location on the primary display.
type Point struct {
	X, Y int
}

// Recording holds the fields that only exist while mode is Recording. A value
// copy is handed out through Snapshot so callers never see mid-mutation state.
type Recording struct {
	// ID uniquely identifies one recording session across logs and status
	// reports; action folder names can be reused after deletion, IDs cannot.
	ID           string
	Active       bool
	Verified     bool
	BaseFolder   string
	ActionFolder string
	Pointer      *Point
}

// Context owns the session mode, the cooperative interruption flag and the
// recording-session fields behind a single mutex. All checks-then-sets are
// one critical section, so two callers can never both win a transition.
type Context struct {
	mu          sync.Mutex
	mode        Mode
	interrupted bool
	rec         Recording
	logger      *zap.Logger
}

// NewContext creates a session context in ModeIdle.
func NewContext(logger *zap.Logger) *Context {
	return &Context{logger: logger.Named("session")}
}

// Mode returns the current session mode.
func (c *Context) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// BeginRecording transitions Idle -> Recording and initializes the recording
// fields. It fails with ErrNotIdle from any other mode.
func (c *Context) BeginRecording(baseFolder, actionFolder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeIdle {
		return ErrNotIdle
	}
	c.mode = ModeRecording
	c.rec = Recording{
		ID:           uuid.NewString(),
		Active:       true,
		BaseFolder:   baseFolder,
		ActionFolder: actionFolder,
	}
	return nil
}

// MarkVerified flips the verification flag of the active recording session.
// Idempotent; fails when no recording is active.
func (c *Context) MarkVerified() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeRecording || !c.rec.Active {
		return ErrNotRecording
	}
	c.rec.Verified = true
	return nil
}

// EndRecording transitions back to Idle and tears the recording session down.
// It is idempotent and force-resets from unexpected modes: a stop must always
// leave the process in Idle, so an out-of-order call is logged, not refused.
// The base folder is returned so post-processing can run after teardown.
func (c *Context) EndRecording() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeRecording {
		c.logger.Warn("stop requested outside Recording mode, forcing Idle",
			zap.String("mode", c.mode.String()))
	}
	c.mode = ModeIdle
	folder := c.rec.BaseFolder
	c.rec.Active = false
	c.rec.Verified = false
	return folder
}

// BeginExecution transitions Idle -> ExecutingAction and clears the
// interruption flag. Fails with ErrNotIdle from any other mode.
func (c *Context) BeginExecution() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeIdle {
		return ErrNotIdle
	}
	c.mode = ModeExecuting
	c.interrupted = false
	return nil
}

// EndExecution unconditionally returns to Idle and clears the interruption
// flag. Every exit path of the execution loop funnels through here.
func (c *Context) EndExecution() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeIdle
	c.interrupted = false
}

// Interrupt sets the cooperative cancellation flag. It is meaningful only
// while executing and is idempotent; setting it in any other mode is a no-op.
func (c *Context) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeExecuting {
		return
	}
	c.interrupted = true
}

// Interrupted reports whether the cancellation flag is set. The execution
// loop polls this once per iteration before doing any work.
func (c *Context) Interrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interrupted
}

// Snapshot returns the current mode and a value copy of the recording fields.
func (c *Context) Snapshot() (Mode, Recording) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.rec
	if c.rec.Pointer != nil {
		p := *c.rec.Pointer
		rec.Pointer = &p
	}
	return c.mode, rec
}

// RecordingActiveAndVerified reports whether input events should currently
// produce captures.
func (c *Context) RecordingActiveAndVerified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode == ModeRecording && c.rec.Active && c.rec.Verified
}

// SetPointer records the latest sampled pointer location, last-write-wins.
// Samples arriving after the recording stopped are dropped.
func (c *Context) SetPointer(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.rec.Active {
		return
	}
	c.rec.Pointer = &Point{X: x, Y: y}
}

// Pointer returns a copy of the last sampled pointer location, or nil if no
// sample has been taken this session.
func (c *Context) Pointer() *Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec.Pointer == nil {
		return nil
	}
	p := *c.rec.Pointer
	return &p
}

// StartPointerSampler launches a goroutine polling locate at the given
// interval while the recording session stays active. The returned channel
// closes when the sampler exits.
func (c *Context) StartPointerSampler(interval time.Duration, locate func() (int, int, error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			c.mu.Lock()
			active := c.rec.Active
			c.mu.Unlock()
			if !active {
				return
			}
			x, y, err := locate()
			if err != nil {
				c.logger.Debug("pointer sample failed", zap.Error(err))
				continue
			}
			c.SetPointer(x, y)
		}
	}()
	return done
}
