package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Engine classifies the chunks of a primary store and recovers damaged or
// missing chunks from an ordered list of backups.
//
// Loads run concurrently; every mutation of the primary (purge, copy) is
// applied from the calling goroutine after the loads that justify it.
type Engine struct {
	logger *zap.Logger
	sink   EventSink
	opts   Options
}

// NewEngine creates an engine. A nil sink discards events.
func NewEngine(logger *zap.Logger, sink EventSink, opts Options) *Engine {
	if sink == nil {
		sink = MultiSink(nil)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{
		logger: logger,
		sink:   sink,
		opts:   opts,
	}
}

// Reconcile runs the full pass: primary scan, damaged-chunk purge, then every
// backup in order. Backups are closed as soon as their scan completes; on
// error, any backups not yet scanned are closed too. The primary is never
// closed here.
func (e *Engine) Reconcile(ctx context.Context, primary Store, backups []Store) (*Classification, Summary, error) {
	var summary Summary
	next := 0
	defer func() {
		for _, b := range backups[next:] {
			e.closeBackup(b)
		}
	}()

	cls := NewClassification()
	if err := e.ScanPrimary(ctx, primary, cls, &summary); err != nil {
		return nil, summary, err
	}

	if err := e.PurgeDamaged(ctx, primary, cls); err != nil {
		return nil, summary, err
	}

	for next < len(backups) {
		backup := backups[next]
		next++
		if err := e.ScanBackup(ctx, primary, backup, cls, &summary); err != nil {
			return nil, summary, err
		}
	}

	summary.Unrecoverable = cls.DamagedCount()
	return cls, summary, nil
}

// Check scans store read-only and returns its classification.
func (e *Engine) Check(ctx context.Context, store Store) (*Classification, Summary, error) {
	var summary Summary
	cls := NewClassification()
	if err := e.ScanPrimary(ctx, store, cls, &summary); err != nil {
		return nil, summary, err
	}
	summary.Unrecoverable = cls.DamagedCount()
	return cls, summary, nil
}

// ScanPrimary loads every chunk of primary and records it as valid or damaged.
func (e *Engine) ScanPrimary(ctx context.Context, primary Store, cls *Classification, summary *Summary) error {
	e.logChunkCount(ctx, "Main level", primary)

	outcomes, total, err := loadPlan(ctx, primary, e.opts.Workers, nil)
	if err != nil {
		return err
	}
	summary.PrimaryChunks = total

	for _, o := range outcomes {
		if o.load.OK() {
			cls.MarkValid(o.coord)
			continue
		}
		if cls.MarkDamaged(o.coord) {
			summary.Malformed++
			e.sink.Record(ctx, newEvent(EventMalformed, o.coord, primary.Name(), o.load.Reason))
		}
	}

	e.logger.Info("Main level scanned",
		zap.String("world", primary.Name()),
		zap.Int("valid", cls.ValidCount()),
		zap.Int("damaged", cls.DamagedCount()),
	)
	return nil
}

// PurgeDamaged deletes every damaged chunk from primary so backup copies never
// land on top of corrupt residual data.
func (e *Engine) PurgeDamaged(ctx context.Context, primary Store, cls *Classification) error {
	for _, coord := range cls.Damaged() {
		if err := primary.DeleteChunksInBox(ctx, coord.Box()); err != nil {
			return fmt.Errorf("failed to purge damaged chunk %s: %w", coord, err)
		}
	}
	return nil
}

// ScanBackup recovers chunks from backup into primary. Coordinates already
// valid are skipped, so earlier backups win. The backup is closed before
// returning, whatever the outcome.
func (e *Engine) ScanBackup(ctx context.Context, primary, backup Store, cls *Classification, summary *Summary) error {
	defer e.closeBackup(backup)

	e.logChunkCount(ctx, "Backup level", backup)

	outcomes, _, err := loadPlan(ctx, backup, e.opts.Workers, cls.IsValid)
	if err != nil {
		return err
	}

	for _, o := range outcomes {
		if cls.IsValid(o.coord) {
			continue
		}

		if !o.load.OK() {
			summary.DamagedInBackup++
			e.sink.Record(ctx, newEvent(EventDamagedInBackup, o.coord, backup.Name(), o.load.Reason))
			continue
		}

		box := o.coord.Box()
		if err := primary.CopyBlocksFrom(ctx, backup, box, box.Origin); err != nil {
			return fmt.Errorf("failed to copy chunk %s from %s: %w", o.coord, backup.Name(), err)
		}

		if cls.MarkValid(o.coord) {
			summary.Repaired++
			e.sink.Record(ctx, newEvent(EventRepaired, o.coord, backup.Name(), nil))
		} else {
			summary.Restored++
			e.sink.Record(ctx, newEvent(EventRestored, o.coord, backup.Name(), nil))
		}
	}

	summary.BackupsScanned++
	return nil
}

func (e *Engine) logChunkCount(ctx context.Context, what string, s Store) {
	count, err := s.ChunkCount(ctx)
	if err != nil {
		e.logger.Warn("Failed to count chunks", zap.String("world", s.Name()), zap.Error(err))
		return
	}
	e.logger.Info(what+" loaded", zap.String("world", s.Name()), zap.Int("chunks", count))
}

func (e *Engine) closeBackup(b Store) {
	if err := b.Close(); err != nil {
		e.logger.Warn("Failed to close backup level", zap.String("world", b.Name()), zap.Error(err))
	}
}
