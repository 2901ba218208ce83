package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chunk-mender/core/config"
	"chunk-mender/core/logger"
	"chunk-mender/core/reconcile"
	"chunk-mender/core/repair"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runRepair(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	sel := selectorFromFlags()
	opener := newOpener(cfg, l)

	// Every store is opened before anything is scanned so a bad path or
	// missing dimension fails without touching the world.
	primary, err := opener.openPrimary(args[0], sel)
	if err != nil {
		return err
	}
	backups, err := opener.openBackups(ctx, args[1:], sel)
	if err != nil {
		_ = primary.Close()
		return err
	}

	jr := openJournal(cfg, primary.Name(), sel.String(), l)
	defer jr.close(l)
	l = logger.WithSession(l, jr.session(), primary.Name())

	sink := reconcile.MultiSink{reconcile.NewLogSink(l), jr.sink()}
	engine := reconcile.NewEngine(l, sink, reconcile.Options{Workers: cfg.Repair.Workers})

	confirmer := &repair.ReaderConfirmer{
		In:     cmd.InOrStdin(),
		Out:    cmd.OutOrStdout(),
		Banner: renderBanner,
	}
	orchestrator := repair.New(engine, confirmer, sink, l, repair.Options{AssumeYes: cfg.Repair.AssumeYes})

	l.Info("Repairing world",
		zap.String("dimension", sel.String()),
		zap.Int("backups", len(backups)),
		zap.Int("workers", cfg.Repair.Workers),
	)

	result, err := orchestrator.Run(ctx, primary, backups)
	if err != nil {
		return err
	}
	printRepairReport(l, result)
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workers") && workersFlag > 0 {
		cfg.Repair.Workers = workersFlag
	}
	if yesFlag {
		cfg.Repair.AssumeYes = true
	}
}
