package repository

import (
	"time"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"gorm.io/gorm"
)

type ScheduleRepository interface {
	WithTx(tx *gorm.DB) ScheduleRepository
	FindByReportID(reportID uint) ([]model.ScheduleEntry, error)
	FindByReportAndKey(reportID uint, key model.ScheduleKey) (*model.ScheduleEntry, error)
	MarkComplete(entry *model.ScheduleEntry, at time.Time) (bool, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) WithTx(tx *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: tx}
}

func (r *scheduleRepository) FindByReportID(reportID uint) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	if err := r.db.Where("report_id = ?", reportID).Order("id ASC").Find(&entries).Error; err != nil {
		logger.Error("Failed to find schedules by report ID", err, map[string]interface{}{
			"report_id": reportID,
		})
		return nil, err
	}

	logger.Debug("Schedules found by report ID in database", map[string]interface{}{
		"report_id": reportID,
		"count":     len(entries),
	})
	return entries, nil
}

func (r *scheduleRepository) FindByReportAndKey(reportID uint, key model.ScheduleKey) (*model.ScheduleEntry, error) {
	var entry model.ScheduleEntry
	err := r.db.Where("report_id = ? AND schedule_key = ?", reportID, key).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkComplete flips an incomplete entry to complete. It reports false when the
// entry was already complete, leaving completed_at untouched.
func (r *scheduleRepository) MarkComplete(entry *model.ScheduleEntry, at time.Time) (bool, error) {
	logger.Debug("Completing schedule in database", map[string]interface{}{
		"schedule_id":  entry.ID,
		"report_id":    entry.ReportID,
		"schedule_key": entry.ScheduleKey,
	})

	result := r.db.Model(&model.ScheduleEntry{}).
		Where("id = ? AND is_complete = ?", entry.ID, false).
		Updates(map[string]interface{}{
			"is_complete":  true,
			"completed_at": at,
		})
	if result.Error != nil {
		logger.Error("Failed to complete schedule in database", result.Error, map[string]interface{}{
			"schedule_id": entry.ID,
		})
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	entry.IsComplete = true
	entry.CompletedAt = &at
	return true, nil
}
