// File: internal/listener/listener.go
//
// The global event listener is a single long-lived subscription to raw OS
// input events, started once at process start. Each event is dispatched
// according to the current session mode: ignored while Idle, fed to the
// capture scheduler while Recording, and checked against the interrupt key
// while an action loop is executing.
package listener

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/scheduler"
	"github.com/xkilldash9x/deskpilot-cli/internal/session"
)

// Kind identifies the class of a raw input event.
type Kind int

const (
	KindButtonPress Kind = iota
	KindButtonRelease
	KindKeyPress
	KindWheel
)

// Event is the listener's transport-agnostic view of one OS input event.
type Event struct {
	Kind Kind
	// Escape marks the designated interrupt key.
	Escape bool
}

// Source abstracts the OS hook so the dispatch logic is testable without a
// display server.
type Source interface {
	// Events returns the stream of raw input events. The channel closes when
	// the source shuts down.
	Events() (<-chan Event, error)
	// Close tears the subscription down.
	Close()
}

// Listener consumes one Source and routes events by session mode.
type Listener struct {
	src    Source
	sess   *session.Context
	sched  *scheduler.Scheduler
	logger *zap.Logger
	done   chan struct{}
}

// New wires a listener to the session context and capture scheduler.
func New(src Source, sess *session.Context, sched *scheduler.Scheduler, logger *zap.Logger) *Listener {
	return &Listener{
		src:    src,
		sess:   sess,
		sched:  sched,
		logger: logger.Named("listener"),
		done:   make(chan struct{}),
	}
}

// Start begins consuming events on a background goroutine. It is called once
// per process; the goroutine exits when the source channel closes.
func (l *Listener) Start() error {
	events, err := l.src.Events()
	if err != nil {
		return err
	}
	go func() {
		defer close(l.done)
		for ev := range events {
			l.dispatch(ev)
		}
		l.logger.Info("input event source closed")
	}()
	return nil
}

// Done is closed when the consume goroutine has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Close shuts the underlying source down.
func (l *Listener) Close() {
	l.src.Close()
}

// dispatch routes a single event. A panic while handling one event must not
// kill the listener goroutine: a dead listener would silently break
// interruption for the lifetime of the process.
func (l *Listener) dispatch(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("recovered from panic in event dispatch", zap.Any("panic", r))
		}
	}()

	switch l.sess.Mode() {
	case session.ModeIdle:
		// Nothing to do.
	case session.ModeRecording:
		l.dispatchRecording(ev)
	case session.ModeExecuting:
		if ev.Kind == KindKeyPress && ev.Escape {
			l.logger.Info("interrupt key detected, flagging action loop")
			l.sess.Interrupt()
		}
	}
}

func (l *Listener) dispatchRecording(ev Event) {
	switch ev.Kind {
	case KindButtonPress:
		l.sched.OnButtonPress()
	case KindButtonRelease:
		l.sched.OnButtonRelease()
	case KindWheel:
		l.sched.OnScroll()
	case KindKeyPress:
		if ev.Escape {
			// Escape never counts as typing during a recording.
			return
		}
		l.sched.OnKeyPress()
	}
}
