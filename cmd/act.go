// File: cmd/act.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/deskpilot-cli/internal/observability"
)

var actCmd = &cobra.Command{
	Use:   "act <instruction>",
	Short: "Run one autonomous task against the desktop.",
	Long: `Runs the perception-decide-act loop for a single natural language task.
The planner decides each input command from the parsed screen state and any
matching recorded context. Press Escape to interrupt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAct,
}

func init() {
	rootCmd.AddCommand(actCmd)
}

func runAct(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()
	instruction := strings.Join(args, " ")

	svcs, err := buildServices(cfg, logger, true)
	if err != nil {
		return err
	}

	// The listener carries the Escape interrupt while the task runs.
	if err := svcs.listener.Start(); err != nil {
		return fmt.Errorf("starting input listener: %w", err)
	}
	defer svcs.listener.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := svcs.recorder.StartAction(ctx, instruction)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, result)
	return nil
}
