package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chunk-mender/core/config"
	"chunk-mender/core/logger"
	"chunk-mender/core/reconcile"
	"chunk-mender/feature/world"

	"github.com/spf13/cobra"
)

// errDamaged is returned by check when the world has malformed chunks.
var errDamaged = errors.New("world has malformed chunks")

// checkCmd scans a world without changing it.
var checkCmd = &cobra.Command{
	Use:   "check WORLDDIR",
	Short: "Scan a world for malformed chunks without changing it",
	Long: `Decode every chunk of the selected dimension and report the ones that fail.
The world is opened read-only. The command fails when damage is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	addSelectorFlags(checkCmd, "Check")

	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	dim, err := world.OpenDimension(args[0], selectorFromFlags(), world.OpenOptions{
		SavesDir: cfg.Repair.SavesDir,
		ReadOnly: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open world %s: %w", args[0], err)
	}
	defer dim.Close()

	engine := reconcile.NewEngine(l, reconcile.NewLogSink(l), reconcile.Options{Workers: cfg.Repair.Workers})
	cls, summary, err := engine.Check(ctx, dim)
	if err != nil {
		return err
	}

	printCheckReport(l, cls, summary)
	if cls.DamagedCount() > 0 {
		return errDamaged
	}
	return nil
}
