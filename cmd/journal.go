package cmd

import (
	"context"
	"errors"

	"chunk-mender/core/config"
	"chunk-mender/core/database"
	"chunk-mender/core/reconcile"
	"chunk-mender/feature/journal"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sessionJournal is the optional journal of one run. The zero value is a
// disabled journal.
type sessionJournal struct {
	db       *gorm.DB
	recorder *journal.Recorder
}

// openJournal connects the configured journal. Failures disable it.
func openJournal(cfg *config.Config, worldName, dimension string, l *zap.Logger) *sessionJournal {
	db, err := database.Connect(cfg.Database)
	if errors.Is(err, database.ErrDisabled) {
		return &sessionJournal{}
	}
	if err != nil {
		l.Warn("Repair journal unavailable, continuing without it", zap.Error(err))
		return &sessionJournal{}
	}
	if err := journal.Migrate(db); err != nil {
		l.Warn("Repair journal unavailable, continuing without it", zap.Error(err))
		_ = database.Close(db)
		return &sessionJournal{}
	}

	rec := journal.NewRecorder(db, worldName, dimension, l)
	l.Info("Recording repair journal", zap.String("driver", cfg.Database.Driver), zap.String("session", rec.Session()))
	return &sessionJournal{db: db, recorder: rec}
}

func (j *sessionJournal) sink() reconcile.EventSink {
	if j.recorder == nil {
		return nil
	}
	return j.recorder
}

func (j *sessionJournal) session() string {
	if j.recorder == nil {
		return ""
	}
	return j.recorder.Session()
}

// close logs how much of the session reached the journal and disconnects.
func (j *sessionJournal) close(l *zap.Logger) {
	if j.db == nil {
		return
	}
	defer func() { _ = database.Close(j.db) }()

	events, err := journal.History(context.Background(), j.db, j.recorder.Session())
	if err != nil {
		l.Warn("Could not read back repair journal", zap.String("session", j.recorder.Session()), zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.String("session", j.recorder.Session()),
		zap.Int("events", len(events)),
	}
	if failed := j.recorder.Failures(); failed > 0 {
		l.Warn("Repair journal is incomplete", append(fields, zap.Int64("failed_writes", failed))...)
		return
	}
	l.Info("Repair journal written", fields...)
}
