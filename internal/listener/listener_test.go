// File: internal/listener/listener_test.go
package listener

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
	"github.com/xkilldash9x/deskpilot-cli/internal/scheduler"
	"github.com/xkilldash9x/deskpilot-cli/internal/session"
)

// fakeSource feeds scripted events to the listener.
type fakeSource struct {
	ch chan Event
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan Event, 16)}
}

func (f *fakeSource) Events() (<-chan Event, error) { return f.ch, nil }
func (f *fakeSource) Close()                        { close(f.ch) }

func newHarness(t *testing.T) (*Listener, *fakeSource, *session.Context, *scheduler.Scheduler) {
	t.Helper()
	sess := session.NewContext(zap.NewNop())
	// Long delays keep tickets pending for the duration of each test; fired
	// timers are not goroutines, so goleak stays quiet either way.
	cfg := config.SchedulerConfig{
		CaptureDelay:    time.Minute,
		KeyCaptureDelay: time.Minute,
		BurstWindow:     2 * time.Second,
		BurstThreshold:  3,
	}
	sched := scheduler.New(cfg, sess, func(string, *session.Point) {}, zap.NewNop())
	src := newFakeSource()
	l := New(src, sess, sched, zap.NewNop())
	return l, src, sess, sched
}

func drain(t *testing.T, l *Listener, src *fakeSource) {
	t.Helper()
	src.Close()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("listener did not drain")
	}
}

func TestIdleEventsAreIgnored(t *testing.T) {
	defer goleak.VerifyNone(t)
	l, src, _, sched := newHarness(t)
	require.NoError(t, l.Start())

	src.ch <- Event{Kind: KindButtonPress}
	src.ch <- Event{Kind: KindKeyPress}
	drain(t, l, src)

	clicks, keys := sched.PendingCounts()
	assert.Zero(t, clicks)
	assert.Zero(t, keys)
}

func TestRecordingEventsFeedScheduler(t *testing.T) {
	defer goleak.VerifyNone(t)
	l, src, sess, sched := newHarness(t)
	require.NoError(t, sess.BeginRecording("/tmp/base", "action_0"))
	require.NoError(t, sess.MarkVerified())
	require.NoError(t, l.Start())

	src.ch <- Event{Kind: KindButtonPress}
	src.ch <- Event{Kind: KindKeyPress}
	drain(t, l, src)

	clicks, keys := sched.PendingCounts()
	assert.Equal(t, 1, clicks)
	assert.Equal(t, 1, keys)

	sess.EndRecording()
	sched.CancelAll()
}

func TestEscapeDuringRecordingIsNotTyping(t *testing.T) {
	defer goleak.VerifyNone(t)
	l, src, sess, sched := newHarness(t)
	require.NoError(t, sess.BeginRecording("/tmp/base", "action_0"))
	require.NoError(t, sess.MarkVerified())
	require.NoError(t, l.Start())

	src.ch <- Event{Kind: KindKeyPress, Escape: true}
	drain(t, l, src)

	_, keys := sched.PendingCounts()
	assert.Zero(t, keys)
	sess.EndRecording()
}

func TestEscapeWhileExecutingSetsInterrupt(t *testing.T) {
	defer goleak.VerifyNone(t)
	l, src, sess, _ := newHarness(t)
	require.NoError(t, sess.BeginExecution())
	require.NoError(t, l.Start())

	src.ch <- Event{Kind: KindKeyPress, Escape: true}
	drain(t, l, src)

	assert.True(t, sess.Interrupted())
	sess.EndExecution()
}

func TestNonEscapeKeysWhileExecutingAreIgnored(t *testing.T) {
	defer goleak.VerifyNone(t)
	l, src, sess, _ := newHarness(t)
	require.NoError(t, sess.BeginExecution())
	require.NoError(t, l.Start())

	src.ch <- Event{Kind: KindKeyPress}
	src.ch <- Event{Kind: KindButtonPress}
	drain(t, l, src)

	assert.False(t, sess.Interrupted())
	sess.EndExecution()
}
