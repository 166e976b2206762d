// File: internal/recorder/recorder.go
//
// Package recorder wires the session state machine, capture scheduler,
// vision pipeline and history index into the recording control surface.
package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/action"
	"github.com/xkilldash9x/deskpilot-cli/internal/config"
	"github.com/xkilldash9x/deskpilot-cli/internal/history"
	"github.com/xkilldash9x/deskpilot-cli/internal/input"
	"github.com/xkilldash9x/deskpilot-cli/internal/planner"
	"github.com/xkilldash9x/deskpilot-cli/internal/scheduler"
	"github.com/xkilldash9x/deskpilot-cli/internal/session"
	"github.com/xkilldash9x/deskpilot-cli/internal/vision"
)

// maxActionProbe bounds the search for a free action_N folder.
const maxActionProbe = 10000

// Service is the recording and task control surface exposed to the CLI and
// the HTTP API.
type Service struct {
	sess     *session.Context
	sched    *scheduler.Scheduler
	capturer vision.Capturer
	parser   vision.Parser
	frames   *vision.FrameStore
	index    *history.Index
	driver   input.Driver
	planner  planner.Planner
	cfg      *config.Config
	logger   *zap.Logger

	base string

	// processing tracks background post-processing runs.
	processing sync.WaitGroup

	// now is swappable for tests.
	now func() time.Time
}

// Options carries the service's collaborators.
type Options struct {
	Session  *session.Context
	Capturer vision.Capturer
	Parser   vision.Parser
	Frames   *vision.FrameStore
	Driver   input.Driver
	Planner  planner.Planner
	Config   *config.Config
	Logger   *zap.Logger
}

// New builds the service and its capture scheduler. The base folder is
// resolved once at construction.
func New(opts Options) (*Service, error) {
	base, err := opts.Config.Session.ResolveBaseFolder()
	if err != nil {
		return nil, fmt.Errorf("recorder: resolving base folder: %w", err)
	}

	s := &Service{
		sess:     opts.Session,
		capturer: opts.Capturer,
		parser:   opts.Parser,
		frames:   opts.Frames,
		index:    history.NewIndex(base, opts.Logger),
		driver:   opts.Driver,
		planner:  opts.Planner,
		cfg:      opts.Config,
		logger:   opts.Logger.Named("recorder"),
		base:     base,
		now:      time.Now,
	}
	s.sched = scheduler.New(opts.Config.Scheduler, opts.Session, s.captureSink, opts.Logger)
	return s, nil
}

// Scheduler exposes the capture scheduler for the input listener.
func (s *Service) Scheduler() *scheduler.Scheduler { return s.sched }

// BaseFolder returns the resolved recording root.
func (s *Service) BaseFolder() string { return s.base }

// captureSink takes the debounced capture for one coalesced input event.
func (s *Service) captureSink(label string, pointer *session.Point) {
	_, rec := s.sess.Snapshot()
	if !rec.Active || !rec.Verified {
		return
	}
	s.capture(rec, label, pointer)
}

func (s *Service) capture(rec session.Recording, label string, pointer *session.Point) {
	img, err := s.capturer.Capture()
	if err != nil {
		s.logger.Error("Screen capture failed", zap.String("label", label), zap.Error(err))
		return
	}

	var mx, my *int
	if pointer != nil {
		mx, my = &pointer.X, &pointer.Y
	}
	name := vision.CaptureName(s.now(), label, rec.ActionFolder, mx, my)

	imagesDir := filepath.Join(rec.BaseFolder, "images")
	if _, err := vision.SaveCapture(imagesDir, img, name, s.frames); err != nil {
		s.logger.Error("Saving capture failed", zap.String("file", name), zap.Error(err))
		return
	}
	s.logger.Info("Captured",
		zap.String("file", name),
		zap.String("label", label))
}

// StartRecording transitions the session into recording mode, prepares the
// on-disk layout, allocates the next action folder and indexes it. The
// recording stays unverified until VerifyRecording.
func (s *Service) StartRecording() (string, error) {
	if err := s.ensureLayout(); err != nil {
		return "", err
	}

	actionFolder, err := s.nextActionFolder()
	if err != nil {
		return "", err
	}

	if err := s.sess.BeginRecording(s.base, actionFolder); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Join(s.base, "encrypted_csv", actionFolder), 0o755); err != nil {
		s.sess.EndRecording()
		return "", fmt.Errorf("recorder: creating action folder: %w", err)
	}

	if _, err := s.index.Append(actionFolder); err != nil {
		s.sess.EndRecording()
		return "", err
	}

	interval := s.cfg.Session.PointerSampleInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	s.sess.StartPointerSampler(interval, s.driver.Location)

	_, rec := s.sess.Snapshot()
	s.logger.Info("Recording started",
		zap.String("recording_id", rec.ID),
		zap.String("action_folder", actionFolder))
	return actionFolder, nil
}

// VerifyRecording arms capture and takes the initial screenshot. Calling it
// again on a verified recording is a no-op.
func (s *Service) VerifyRecording() error {
	_, rec := s.sess.Snapshot()
	alreadyVerified := rec.Verified

	if err := s.sess.MarkVerified(); err != nil {
		return err
	}
	if alreadyVerified {
		return nil
	}

	// Baseline capture of the screen before any interaction.
	go func() {
		_, rec := s.sess.Snapshot()
		if !rec.Active || !rec.Verified {
			return
		}
		s.capture(rec, scheduler.LabelInit, nil)
	}()

	s.logger.Info("Recording verified, capture armed")
	return nil
}

// StopRecording ends the recording regardless of current state, drops any
// pending capture tickets and post-processes the captured frames in the
// background. Idempotent; stopping an idle session does nothing.
func (s *Service) StopRecording(password string) error {
	_, rec := s.sess.Snapshot()
	wasActive := rec.Active

	s.sched.CancelAll()
	s.sess.EndRecording()

	if !wasActive {
		return nil
	}

	s.logger.Info("Recording stopped, processing in background",
		zap.String("action_folder", rec.ActionFolder))
	s.processing.Add(1)
	go func() {
		defer s.processing.Done()
		if err := s.processRecording(rec, password); err != nil {
			s.logger.Error("Post-processing failed", zap.Error(err))
		}
	}()
	return nil
}

// WaitProcessing blocks until all background post-processing has finished.
func (s *Service) WaitProcessing() { s.processing.Wait() }

// RenameCurrentAction retags the active recording's index entry.
func (s *Service) RenameCurrentAction(name string) error {
	_, rec := s.sess.Snapshot()
	if !rec.Active {
		return session.ErrNotRecording
	}
	return s.index.Rename(rec.ActionFolder, name)
}

// LatestFrame returns the most recent capture as base64 PNG, or a placeholder
// when nothing has been captured.
func (s *Service) LatestFrame() string { return s.frames.Latest() }

// Status is a point-in-time view of the recording machinery.
type Status struct {
	Mode          string `json:"mode"`
	RecordingID   string `json:"recording_id,omitempty"`
	Active        bool   `json:"active"`
	Verified      bool   `json:"verified"`
	ActionFolder  string `json:"action_folder,omitempty"`
	PendingClicks int    `json:"pending_clicks"`
	PendingKeys   int    `json:"pending_keys"`
	RapidTyping   bool   `json:"rapid_typing"`
}

func (s *Service) Status() Status {
	mode, rec := s.sess.Snapshot()
	clicks, keys := s.sched.PendingCounts()
	return Status{
		Mode:          mode.String(),
		RecordingID:   rec.ID,
		Active:        rec.Active,
		Verified:      rec.Verified,
		ActionFolder:  rec.ActionFolder,
		PendingClicks: clicks,
		PendingKeys:   keys,
		RapidTyping:   s.sched.RapidTyping(),
	}
}

// StartAction runs one autonomous task to completion and returns its result
// message.
func (s *Service) StartAction(ctx context.Context, instruction string) (string, error) {
	if s.planner == nil {
		return "", fmt.Errorf("recorder: no planner configured")
	}
	loop := &action.Loop{
		Instruction: instruction,
		Planner:     s.planner,
		Screen:      &vision.Reader{Capturer: s.capturer, Parser: s.parser},
		Driver:      s.driver,
		Session:     s.sess,
		History:     s.index,
		Config:      s.cfg.Server.Action,
		Logger:      s.logger,
	}
	return loop.Run(ctx)
}

// ensureLayout creates the base folder tree.
func (s *Service) ensureLayout() error {
	for _, sub := range []string{"images", "encrypted_csv", "salt"} {
		if err := os.MkdirAll(filepath.Join(s.base, sub), 0o755); err != nil {
			return fmt.Errorf("recorder: creating %s directory: %w", sub, err)
		}
	}
	return nil
}

// nextActionFolder finds the lowest free action_N name.
func (s *Service) nextActionFolder() (string, error) {
	encryptedDir := filepath.Join(s.base, "encrypted_csv")
	for n := 1; n <= maxActionProbe; n++ {
		candidate := fmt.Sprintf("action_%d", n)
		if _, err := os.Stat(filepath.Join(encryptedDir, candidate)); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("recorder: no free action folder below action_%d", maxActionProbe)
}
