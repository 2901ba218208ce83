package journal

import "time"

// Event is one persisted reconciliation event.
type Event struct {
	ID        uint      `gorm:"primaryKey;column:id"`
	SessionID string    `gorm:"column:session_id;type:varchar(36);index"`
	World     string    `gorm:"column:world;type:varchar(512)"`
	Dimension string    `gorm:"column:dimension;type:varchar(16)"`
	Kind      string    `gorm:"column:kind;type:varchar(32);index"`
	X         int32     `gorm:"column:x"`
	Z         int32     `gorm:"column:z"`
	Source    string    `gorm:"column:source;type:varchar(512)"`
	Reason    string    `gorm:"column:reason;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Event) TableName() string {
	return "repair_events"
}

var eventColumns = []string{"id", "session_id", "world", "dimension", "kind", "x", "z", "source", "reason", "created_at"}
