// File: cmd/record.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/observability"
)

var (
	recordName     string
	recordPassword string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a desktop session as labeled screenshots until interrupted.",
	Long: `Starts a recording session: global mouse and keyboard activity is coalesced
into labeled screenshots under the configured base folder. The recording is
verified immediately and runs until Ctrl+C, at which point the captures are
post-processed into parsed CSV context.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordName, "name", "n", "", "task name for the recording (replaces the auto-assigned default)")
	recordCmd.Flags().StringVarP(&recordPassword, "password", "p", "", "password for at-rest encryption of the processed output")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	svcs, err := buildServices(cfg, logger, false)
	if err != nil {
		return err
	}

	if err := svcs.listener.Start(); err != nil {
		return fmt.Errorf("starting input listener: %w", err)
	}
	defer svcs.listener.Close()

	folder, err := svcs.recorder.StartRecording()
	if err != nil {
		return err
	}
	if err := svcs.recorder.VerifyRecording(); err != nil {
		svcs.recorder.StopRecording(recordPassword)
		return err
	}

	if recordName != "" {
		if err := svcs.recorder.RenameCurrentAction(recordName); err != nil {
			logger.Warn("Cannot apply recording name", zap.Error(err))
		}
	}

	fmt.Printf("Recording into %s. Press Ctrl+C to stop.\n", folder)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Stopping recording", zap.String("action_folder", folder))
	if err := svcs.recorder.StopRecording(recordPassword); err != nil {
		return err
	}
	fmt.Println("Recording stopped; processing captures...")
	svcs.recorder.WaitProcessing()
	fmt.Println("Done.")
	return nil
}
