package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrHistoryImmutable is returned by the hooks below when anything tries to
// rewrite the audit trail.
var ErrHistoryImmutable = errors.New("status history entries are append-only")

// Actor identifies the staff member performing a change.
type Actor struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type StatusHistoryEntry struct {
	ID            uint          `gorm:"primarykey" json:"id"`
	ReportID      uint          `gorm:"not null;index" json:"report_id"`
	FromStatus    *ReportStatus `gorm:"type:varchar(30)" json:"from_status"` // nil for the creation entry
	ToStatus      ReportStatus  `gorm:"type:varchar(30);not null" json:"to_status"`
	ChangedByID   uint          `gorm:"not null" json:"changed_by_id"`
	ChangedByName string        `gorm:"type:varchar(100)" json:"changed_by_name"`
	Note          string        `gorm:"type:text" json:"note,omitempty"`
	OccurredAt    time.Time     `gorm:"not null;index" json:"occurred_at"`
}

func (StatusHistoryEntry) TableName() string {
	return "report_status_history"
}

func (StatusHistoryEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrHistoryImmutable
}

func (StatusHistoryEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrHistoryImmutable
}

// StageChange is the lightweight log written for kanban moves.
type StageChange struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	ReportID    uint        `gorm:"not null;index" json:"report_id"`
	FromStage   ReportStage `gorm:"type:varchar(30);not null" json:"from_stage"`
	ToStage     ReportStage `gorm:"type:varchar(30);not null" json:"to_stage"`
	ChangedByID uint        `gorm:"not null" json:"changed_by_id"`
	OccurredAt  time.Time   `gorm:"not null" json:"occurred_at"`
}

func (StageChange) TableName() string {
	return "report_stage_changes"
}
