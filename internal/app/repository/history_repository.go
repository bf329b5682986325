package repository

import (
	"errors"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"gorm.io/gorm"
)

// HistoryRepository is the only access path to the status audit trail.
// It exposes no update or delete.
type HistoryRepository interface {
	WithTx(tx *gorm.DB) HistoryRepository
	Append(entry *model.StatusHistoryEntry) error
	FindByReportID(reportID uint) ([]model.StatusHistoryEntry, error)
	Last(reportID uint) (*model.StatusHistoryEntry, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) WithTx(tx *gorm.DB) HistoryRepository {
	return &historyRepository{db: tx}
}

func (r *historyRepository) Append(entry *model.StatusHistoryEntry) error {
	logger.Debug("Appending status history entry", map[string]interface{}{
		"report_id":   entry.ReportID,
		"from_status": entry.FromStatus,
		"to_status":   entry.ToStatus,
	})

	if entry.ID != 0 {
		return model.ErrHistoryImmutable
	}
	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to append status history entry", err, map[string]interface{}{
			"report_id": entry.ReportID,
		})
		return err
	}
	return nil
}

func (r *historyRepository) FindByReportID(reportID uint) ([]model.StatusHistoryEntry, error) {
	var entries []model.StatusHistoryEntry
	if err := r.db.Where("report_id = ?", reportID).
		Order("occurred_at ASC").Order("id ASC").
		Find(&entries).Error; err != nil {
		logger.Error("Failed to find status history", err, map[string]interface{}{
			"report_id": reportID,
		})
		return nil, err
	}
	return entries, nil
}

// Last returns the newest entry, or nil when the report has no history.
func (r *historyRepository) Last(reportID uint) (*model.StatusHistoryEntry, error) {
	var entry model.StatusHistoryEntry
	err := r.db.Where("report_id = ?", reportID).
		Order("occurred_at DESC").Order("id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
