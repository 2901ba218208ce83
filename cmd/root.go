package cmd

import (
	"fmt"
	"os"

	"chunk-mender/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	netherFlag  bool
	endFlag     bool
	yesFlag     bool
	workersFlag int
)

// RootCmd repairs a world from its backups.
var RootCmd = &cobra.Command{
	Use:   "chunk-mender WORLDDIR [BACKUPDIR...]",
	Short: "Repair damaged chunks of a world from its backups",
	Long: `chunk-mender scans a world for chunks that fail to decode, replaces them
with intact copies from the given backups (first backup wins), restores chunks
that only exist in a backup, and deletes what cannot be recovered after asking.

Backups are directories or object storage locations (s3://bucket/prefix).
Nothing is written until the scan is complete and any deletion is confirmed.
-n/-e may also be given as -N/-E. A world directory named "check" must be
written as ./check, otherwise it runs the check command.

Examples:
  # Repair the overworld from two backups, newest first
  chunk-mender ~/saves/survival /backups/monday /backups/sunday

  # Repair the nether from a backup in S3 without prompting
  chunk-mender -n -y survival s3://world-backups/survival/2024-06-01`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRepair,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Use the application's standard logger for error reporting
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	addSelectorFlags(RootCmd, "Repair")
	RootCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Delete unrecoverable chunks without asking")
	RootCmd.Flags().IntVar(&workersFlag, "workers", 0, "Chunks decoded in parallel (default from REPAIR_WORKERS)")

	RootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, c.UsageString())
	})
}
