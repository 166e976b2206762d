// File: cmd/serve.go
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/deskpilot-cli/internal/observability"
	"github.com/xkilldash9x/deskpilot-cli/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recording and task control API for the host shell.",
	Long: `Runs the input listener and the HTTP control API together. The shell drives
recording sessions and task execution through the API and receives live frame
updates over the websocket endpoint.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	// Task execution over the API is best effort; serving recordings must not
	// depend on a planner credential being present.
	svcs, err := buildServices(cfg, logger, false)
	if err != nil {
		return err
	}

	if err := svcs.listener.Start(); err != nil {
		return fmt.Errorf("starting input listener: %w", err)
	}
	defer svcs.listener.Close()

	srv := server.New(svcs.recorder, cfg.Server, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Control API listening", zap.String("addr", cfg.Server.Listen))
		return srv.Start(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-svcs.listener.Done():
			return fmt.Errorf("input listener terminated unexpectedly")
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	// Leave any active recording in a clean state before exit.
	svcs.recorder.StopRecording("")
	svcs.recorder.WaitProcessing()
	return nil
}
