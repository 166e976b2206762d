// File: internal/recorder/recorder_test.go
package recorder

import (
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
	"github.com/xkilldash9x/deskpilot-cli/internal/input"
	"github.com/xkilldash9x/deskpilot-cli/internal/planner"
	"github.com/xkilldash9x/deskpilot-cli/internal/session"
	"github.com/xkilldash9x/deskpilot-cli/internal/vision"
)

type fakeCapturer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *fakeCapturer) Capture() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img, nil
}

func (c *fakeCapturer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeParser struct {
	content string
	err     error
}

func (p *fakeParser) ParseScreen(context.Context, image.Image) (string, error) {
	return p.content, p.err
}

type nullDriver struct{}

func (nullDriver) MoveTo(int, int) error        { return nil }
func (nullDriver) Click(input.Button) error     { return nil }
func (nullDriver) ButtonDown(input.Button) error { return nil }
func (nullDriver) ButtonUp(input.Button) error  { return nil }
func (nullDriver) KeyTap(string) error          { return nil }
func (nullDriver) KeyDown(string) error         { return nil }
func (nullDriver) KeyUp(string) error           { return nil }
func (nullDriver) TypeText(string) error        { return nil }
func (nullDriver) Scroll(int) error             { return nil }
func (nullDriver) Location() (int, int, error)  { return 10, 20, nil }

func newTestService(t *testing.T) (*Service, *fakeCapturer, *fakeParser) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Session.BaseFolder = t.TempDir()
	cfg.Session.PointerSampleInterval = 5 * time.Millisecond
	cfg.Scheduler = config.SchedulerConfig{
		CaptureDelay:    time.Minute,
		KeyCaptureDelay: time.Minute,
		BurstWindow:     2 * time.Second,
		BurstThreshold:  3,
	}
	cfg.Server.Action = config.ActionConfig{MaxIterations: 10, SettleDelay: 0}

	capturer := &fakeCapturer{}
	parser := &fakeParser{content: "id,class,content\n1,Compo,Button"}

	svc, err := New(Options{
		Session:  session.NewContext(zap.NewNop()),
		Capturer: capturer,
		Parser:   parser,
		Frames:   vision.NewFrameStore(4),
		Driver:   nullDriver{},
		Config:   cfg,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return svc, capturer, parser
}

func TestStartRecordingCreatesLayoutAndIndex(t *testing.T) {
	svc, _, _ := newTestService(t)

	folder, err := svc.StartRecording()
	require.NoError(t, err)
	assert.Equal(t, "action_1", folder)

	for _, sub := range []string{"images", "encrypted_csv", "salt"} {
		info, err := os.Stat(filepath.Join(svc.BaseFolder(), sub))
		require.NoError(t, err, sub)
		assert.True(t, info.IsDir())
	}
	assert.DirExists(t, filepath.Join(svc.BaseFolder(), "encrypted_csv", "action_1"))

	f, err := os.Open(filepath.Join(svc.BaseFolder(), "main.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"default_0", "action_1"}, rows[1])

	require.NoError(t, svc.StopRecording(""))
}

func TestStartRecordingRefusedWhileActive(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.StartRecording()
	require.NoError(t, err)

	_, err = svc.StartRecording()
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrNotIdle)

	require.NoError(t, svc.StopRecording(""))
}

func TestStartRecordingSkipsExistingActionFolders(t *testing.T) {
	svc, _, _ := newTestService(t)
	require.NoError(t, os.MkdirAll(filepath.Join(svc.BaseFolder(), "encrypted_csv", "action_1"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(svc.BaseFolder(), "encrypted_csv", "action_2"), 0o755))

	folder, err := svc.StartRecording()
	require.NoError(t, err)
	assert.Equal(t, "action_3", folder)

	require.NoError(t, svc.StopRecording(""))
}

func TestVerifyRecordingTakesInitCapture(t *testing.T) {
	svc, capturer, _ := newTestService(t)

	_, err := svc.StartRecording()
	require.NoError(t, err)
	require.NoError(t, svc.VerifyRecording())

	imagesDir := filepath.Join(svc.BaseFolder(), "images")
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(imagesDir)
		if err != nil {
			return false
		}
		for _, e := range entries {
			if strings.Contains(e.Name(), "_Init_") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "expected an Init capture")

	// A second verify must not produce another capture.
	calls := capturer.Calls()
	require.NoError(t, svc.VerifyRecording())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, capturer.Calls())

	require.NoError(t, svc.StopRecording(""))
}

func TestVerifyWithoutRecordingFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.Error(t, svc.VerifyRecording())
}

func TestStopRecordingIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.StopRecording(""), "stopping an idle session is a no-op")

	_, err := svc.StartRecording()
	require.NoError(t, err)
	require.NoError(t, svc.StopRecording(""))
	require.NoError(t, svc.StopRecording(""))
	assert.Equal(t, session.ModeIdle.String(), svc.Status().Mode)
}

func TestStopRecordingProcessesRawCaptures(t *testing.T) {
	svc, _, _ := newTestService(t)

	folder, err := svc.StartRecording()
	require.NoError(t, err)
	require.NoError(t, svc.VerifyRecording())

	imagesDir := filepath.Join(svc.BaseFolder(), "images")
	require.Eventually(t, func() bool {
		entries, _ := os.ReadDir(imagesDir)
		return len(entries) > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.StopRecording("secret"))

	actionDir := filepath.Join(svc.BaseFolder(), "encrypted_csv", folder)
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(actionDir)
		if err != nil || len(entries) == 0 {
			return false
		}
		return strings.HasPrefix(entries[0].Name(), "parsed_content_")
	}, 2*time.Second, 10*time.Millisecond, "expected parsed CSV output")

	require.Eventually(t, func() bool {
		entries, _ := os.ReadDir(imagesDir)
		return len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond, "raw captures must be deleted after processing")

	entries, err := os.ReadDir(actionDir)
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(actionDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "action,mouse_x,mouse_y,action_number")
	assert.Contains(t, string(content), "Init")
}

func TestRenameCurrentAction(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.ErrorIs(t, svc.RenameCurrentAction("anything"), session.ErrNotRecording)

	folder, err := svc.StartRecording()
	require.NoError(t, err)
	require.NoError(t, svc.RenameCurrentAction("open the settings panel"))
	assert.Error(t, svc.RenameCurrentAction("default_5"))

	f, err := os.Open(filepath.Join(svc.BaseFolder(), "main.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"open the settings panel", folder}, rows[1])

	require.NoError(t, svc.StopRecording(""))
}

func TestStatusReflectsSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	st := svc.Status()
	assert.Equal(t, session.ModeIdle.String(), st.Mode)
	assert.False(t, st.Active)

	folder, err := svc.StartRecording()
	require.NoError(t, err)

	st = svc.Status()
	assert.True(t, st.Active)
	assert.False(t, st.Verified)
	assert.Equal(t, folder, st.ActionFolder)

	require.NoError(t, svc.VerifyRecording())
	assert.True(t, svc.Status().Verified)

	require.NoError(t, svc.StopRecording(""))
}

// scriptedPlanner immediately reports done.
type scriptedPlanner struct{ response string }

func (p *scriptedPlanner) NextAction(context.Context, planner.Request) (string, error) {
	return p.response, nil
}

func TestStartActionRunsLoop(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.planner = &scriptedPlanner{response: "<think>nothing to do</think>done:'already satisfied'"}

	// The loop requires an index to match against.
	_, err := svc.index.Append("action_1")
	require.NoError(t, err)

	result, err := svc.StartAction(context.Background(), "check the dashboard")
	require.NoError(t, err)
	assert.Equal(t, "Task completed: already satisfied", result)
	assert.Equal(t, session.ModeIdle.String(), svc.Status().Mode)
}

func TestStartActionRequiresPlanner(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.StartAction(context.Background(), "anything")
	require.Error(t, err)
}
