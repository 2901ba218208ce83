package journal

import (
	"context"
	"fmt"
	"sync/atomic"

	"chunk-mender/core/database"
	"chunk-mender/core/reconcile"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates the journal table and verifies its columns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Event{}); err != nil {
		return fmt.Errorf("failed to migrate journal: %w", err)
	}
	missing, err := database.MissingColumns(db, Event{}.TableName(), eventColumns...)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("journal table is missing columns %v", missing)
	}
	return nil
}

// Recorder writes the events of one session.
type Recorder struct {
	db        *gorm.DB
	logger    *zap.Logger
	session   string
	world     string
	dimension string
	failures  atomic.Int64
}

// NewRecorder starts a new session for world and dimension.
func NewRecorder(db *gorm.DB, world, dimension string, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:        db,
		logger:    logger,
		session:   uuid.NewString(),
		world:     world,
		dimension: dimension,
	}
}

// Session returns the session identifier.
func (r *Recorder) Session() string {
	return r.session
}

// Failures returns the number of events that could not be written.
func (r *Recorder) Failures() int64 {
	return r.failures.Load()
}

// Record stores ev. Failures are logged.
func (r *Recorder) Record(ctx context.Context, ev reconcile.Event) {
	row := Event{
		SessionID: r.session,
		World:     r.world,
		Dimension: r.dimension,
		Kind:      string(ev.Kind),
		X:         ev.Coord.X,
		Z:         ev.Coord.Z,
		Source:    ev.Source,
	}
	if ev.Reason != nil {
		row.Reason = ev.Reason.Error()
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if r.failures.Add(1) == 1 {
			r.logger.Warn("Failed to write repair journal", zap.String("session", r.session), zap.Error(err))
		}
	}
}

// History returns the events recorded for session in insertion order.
func History(ctx context.Context, db *gorm.DB, session string) ([]Event, error) {
	var events []Event
	err := db.WithContext(ctx).
		Where("session_id = ?", session).
		Order("id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return events, nil
}

var _ reconcile.EventSink = (*Recorder)(nil)
