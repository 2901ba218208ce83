package cmd

import (
	"chunk-mender/core/reconcile"
	"chunk-mender/core/repair"

	"go.uber.org/zap"
)

// printRepairReport logs the outcome of a repair run.
func printRepairReport(l *zap.Logger, result *repair.Result) {
	s := result.Summary

	l.Info("Repair report",
		zap.String("state", result.State.String()),
		zap.Int("primary_chunks", s.PrimaryChunks),
		zap.Int("malformed", s.Malformed),
		zap.Int("repaired", s.Repaired),
		zap.Int("restored", s.Restored),
		zap.Int("damaged_in_backup", s.DamagedInBackup),
		zap.Int("unrecoverable", s.Unrecoverable),
		zap.Int("deleted", len(result.Deleted)),
		zap.Int("backups_scanned", s.BackupsScanned),
	)

	changed := 0
	for _, r := range result.Regions {
		if r.Changed() {
			changed++
		}
	}
	if len(result.Regions) > 0 {
		l.Info("Region repair", zap.Int("regions", len(result.Regions)), zap.Int("changed", changed))
	}
}

// printCheckReport logs the outcome of a read-only scan.
func printCheckReport(l *zap.Logger, cls *reconcile.Classification, s reconcile.Summary) {
	l.Info("Check report",
		zap.Int("chunks", s.PrimaryChunks),
		zap.Int("valid", cls.ValidCount()),
		zap.Int("malformed", cls.DamagedCount()),
	)

	damaged := cls.Damaged()
	maxShow := min(len(damaged), bannerLimit)
	for _, coord := range damaged[:maxShow] {
		l.Info("Damaged chunk", zap.Int32("x", coord.X), zap.Int32("z", coord.Z))
	}
	if len(damaged) > maxShow {
		l.Info("Additional damaged chunks not shown", zap.Int("count", len(damaged)-maxShow))
	}
}
