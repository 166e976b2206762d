// File: cmd/wire.go
package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
	"github.com/xkilldash9x/deskpilot-cli/internal/input"
	"github.com/xkilldash9x/deskpilot-cli/internal/listener"
	"github.com/xkilldash9x/deskpilot-cli/internal/planner"
	"github.com/xkilldash9x/deskpilot-cli/internal/recorder"
	"github.com/xkilldash9x/deskpilot-cli/internal/session"
	"github.com/xkilldash9x/deskpilot-cli/internal/vision"
)

// services bundles the wired application graph for one command run.
type services struct {
	sess     *session.Context
	recorder *recorder.Service
	listener *listener.Listener
	logger   *zap.Logger
}

// buildServices wires the session, vision pipeline, recorder and input
// listener. needPlanner makes a missing planner credential fatal; recording
// never needs one.
func buildServices(cfg *config.Config, logger *zap.Logger, needPlanner bool) (*services, error) {
	sess := session.NewContext(logger)

	var plan planner.Planner
	p, err := buildPlanner(cfg, logger)
	switch {
	case err == nil:
		plan = p
	case needPlanner:
		return nil, err
	default:
		logger.Debug("Planner unavailable, task execution disabled", zap.Error(err))
	}

	svc, err := recorder.New(recorder.Options{
		Session:  sess,
		Capturer: vision.NewScreenCapturer(),
		Parser:   vision.NewHTTPParser(cfg.Vision, logger),
		Frames:   vision.NewFrameStore(cfg.Vision.ThumbnailWidth),
		Driver:   input.NewRobotDriver(),
		Planner:  plan,
		Config:   cfg,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		sess:     sess,
		recorder: svc,
		listener: listener.New(listener.NewHookSource(), sess, svc.Scheduler(), logger),
		logger:   logger,
	}, nil
}

// buildPlanner resolves the provider credential from config or the
// conventional environment variables.
func buildPlanner(cfg *config.Config, logger *zap.Logger) (planner.Planner, error) {
	pcfg := cfg.Planner
	if pcfg.APIKey == "" {
		switch pcfg.Provider {
		case planner.ProviderGemini:
			pcfg.APIKey = os.Getenv("GEMINI_API_KEY")
		case planner.ProviderOpenAI:
			pcfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if pcfg.APIKey == "" {
		return nil, fmt.Errorf("no API key for planner provider %q; set planner.api_key or the provider's environment variable", pcfg.Provider)
	}
	return planner.New(pcfg, logger)
}
