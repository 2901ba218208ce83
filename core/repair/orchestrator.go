package repair

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"chunk-mender/core/chunk"
	"chunk-mender/core/reconcile"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Options controls the orchestrator.
type Options struct {
	// AssumeYes approves deleting unrecoverable chunks without asking.
	AssumeYes bool
}

// Result describes a finished session.
type Result struct {
	// State is the terminal state (Done or Aborted).
	State State `json:"state"`

	// Summary holds the reconciliation counts.
	Summary reconcile.Summary `json:"summary"`

	// Valid is the final size of the valid set.
	Valid int `json:"valid"`

	// Unrecoverable lists damaged chunks left after the backup scan.
	Unrecoverable []chunk.Coord `json:"unrecoverable,omitempty"`

	// Deleted lists the unrecoverable chunks deleted after confirmation.
	Deleted []chunk.Coord `json:"deleted,omitempty"`

	// Regions holds one report per repaired region file.
	Regions []reconcile.RegionRepair `json:"regions,omitempty"`
}

// Orchestrator runs one repair session over a primary store and its backups.
type Orchestrator struct {
	engine    *reconcile.Engine
	confirmer Confirmer
	sink      reconcile.EventSink
	logger    *zap.Logger
	opts      Options
	state     State
}

// New creates an orchestrator. sink receives the events the orchestrator emits
// itself (unrecoverable, deleted); the engine has its own sink.
func New(engine *reconcile.Engine, confirmer Confirmer, sink reconcile.EventSink, logger *zap.Logger, opts Options) *Orchestrator {
	if sink == nil {
		sink = reconcile.MultiSink(nil)
	}
	return &Orchestrator{
		engine:    engine,
		confirmer: confirmer,
		sink:      sink,
		logger:    logger,
		opts:      opts,
		state:     Scanning,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes the session. It takes ownership of primary and backups: every
// backup is closed after its scan and the primary is closed before Run returns,
// whether the session completes, aborts or fails.
func (o *Orchestrator) Run(ctx context.Context, primary reconcile.Store, backups []reconcile.Store) (*Result, error) {
	o.state = Scanning
	o.logger.Info("Scanning", zap.String("world", primary.Name()), zap.Int("backups", len(backups)))

	cls, summary, err := o.engine.Reconcile(ctx, primary, backups)
	if err != nil {
		o.closePrimary(primary)
		return nil, fmt.Errorf("failed to reconcile %s: %w", primary.Name(), err)
	}

	result := &Result{Summary: summary}

	if cls.DamagedCount() > 0 {
		o.state = AwaitingConfirmation
		result.Unrecoverable = cls.Damaged()

		approved, err := o.confirm(ctx, primary, result.Unrecoverable)
		if err != nil {
			o.state = Aborted
			result.State = Aborted
			o.closePrimary(primary)
			return result, fmt.Errorf("confirmation failed: %w", err)
		}
		if !approved {
			o.state = Aborted
			result.State = Aborted
			result.Valid = cls.ValidCount()
			o.logger.Warn("Aborted. No changes were saved.", zap.Int("unrecoverable", len(result.Unrecoverable)))
			o.closePrimary(primary)
			return result, nil
		}

		for _, coord := range result.Unrecoverable {
			if err := primary.DeleteChunksInBox(ctx, coord.Box()); err != nil {
				o.closePrimary(primary)
				return nil, fmt.Errorf("failed to delete chunk %s: %w", coord, err)
			}
			o.sink.Record(ctx, reconcile.Event{
				Kind:   reconcile.EventDeleted,
				Coord:  coord,
				Box:    coord.Box(),
				Source: primary.Name(),
			})
		}
		result.Deleted = result.Unrecoverable
		cls.ClearDamaged()
		o.logger.Info("Damaged chunks deleted", zap.Int("count", len(result.Deleted)))
	}

	result.Valid = cls.ValidCount()

	if err := o.persist(ctx, primary, result); err != nil {
		o.closePrimary(primary)
		return nil, err
	}

	if err := primary.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", primary.Name(), err)
	}

	o.state = Done
	result.State = Done
	o.logger.Info("Repair complete",
		zap.String("world", primary.Name()),
		zap.Int("valid", result.Valid),
		zap.Int("repaired", summary.Repaired),
		zap.Int("restored", summary.Restored),
		zap.Int("deleted", len(result.Deleted)),
	)
	return result, nil
}

func (o *Orchestrator) confirm(ctx context.Context, primary reconcile.Store, damaged []chunk.Coord) (bool, error) {
	for _, coord := range damaged {
		o.sink.Record(ctx, reconcile.Event{
			Kind:   reconcile.EventUnrecoverable,
			Coord:  coord,
			Box:    coord.Box(),
			Source: primary.Name(),
		})
	}

	if o.opts.AssumeYes {
		o.logger.Info("Auto-confirmed deletion of unrecoverable chunks", zap.Int("count", len(damaged)))
		return true, nil
	}
	if o.confirmer == nil {
		return false, nil
	}
	return o.confirmer.Confirm(ctx, damaged)
}

// persist runs save, region repair, save.
func (o *Orchestrator) persist(ctx context.Context, primary reconcile.Store, result *Result) error {
	o.state = Persisting

	o.logger.Info("Relighting...")
	if err := primary.GenerateLights(ctx); err != nil {
		return fmt.Errorf("failed to generate lights: %w", err)
	}

	o.logger.Info("Saving level...")
	if err := primary.SaveInPlace(ctx); err != nil {
		return fmt.Errorf("failed to save %s: %w", primary.Name(), err)
	}

	if primary.SupportsRegionRepair() {
		o.state = Repairing
		o.logger.Info("Repairing regions...")

		reports, err := o.repairRegions(ctx, primary)
		if err != nil {
			return err
		}
		result.Regions = reports
		o.state = Persisting
	}

	o.logger.Info("Saving level again...")
	if err := primary.SaveInPlace(ctx); err != nil {
		return fmt.Errorf("failed to save %s after region repair: %w", primary.Name(), err)
	}
	return nil
}

func (o *Orchestrator) repairRegions(ctx context.Context, primary reconcile.Store) ([]reconcile.RegionRepair, error) {
	if err := primary.PreloadRegions(ctx); err != nil {
		return nil, fmt.Errorf("failed to preload regions: %w", err)
	}

	files := primary.RegionFiles()
	positions := slices.SortedFunc(maps.Keys(files), func(a, b chunk.RegionPos) int {
		if n := cmp.Compare(a.Z, b.Z); n != 0 {
			return n
		}
		return cmp.Compare(a.X, b.X)
	})

	reports := make([]reconcile.RegionRepair, 0, len(positions))
	for _, pos := range positions {
		rf := files[pos]
		report, err := rf.Repair(ctx)
		if err != nil {
			return reports, fmt.Errorf("failed to repair region %s: %w", rf.Path(), err)
		}
		reports = append(reports, report)

		if report.Changed() || report.Reclaimed > 0 {
			o.logger.Info("Region repaired",
				zap.String("file", rf.Path()),
				zap.Int("kept", report.Kept),
				zap.Int("dropped", report.Dropped),
				zap.Int("relocated", report.Relocated),
				zap.String("reclaimed", humanize.Bytes(uint64(report.Reclaimed))),
			)
		}
	}
	return reports, nil
}

func (o *Orchestrator) closePrimary(primary reconcile.Store) {
	if err := primary.Close(); err != nil {
		o.logger.Warn("Failed to close level", zap.String("world", primary.Name()), zap.Error(err))
	}
}
