package repository

import (
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"gorm.io/gorm"
)

type StageChangeRepository interface {
	WithTx(tx *gorm.DB) StageChangeRepository
	Append(change *model.StageChange) error
	FindByReportID(reportID uint) ([]model.StageChange, error)
}

type stageChangeRepository struct {
	db *gorm.DB
}

func NewStageChangeRepository(db *gorm.DB) StageChangeRepository {
	return &stageChangeRepository{db: db}
}

func (r *stageChangeRepository) WithTx(tx *gorm.DB) StageChangeRepository {
	return &stageChangeRepository{db: tx}
}

func (r *stageChangeRepository) Append(change *model.StageChange) error {
	if err := r.db.Create(change).Error; err != nil {
		logger.Error("Failed to append stage change", err, map[string]interface{}{
			"report_id": change.ReportID,
		})
		return err
	}

	logger.Debug("Stage change appended", map[string]interface{}{
		"report_id":  change.ReportID,
		"from_stage": change.FromStage,
		"to_stage":   change.ToStage,
	})
	return nil
}

func (r *stageChangeRepository) FindByReportID(reportID uint) ([]model.StageChange, error) {
	var changes []model.StageChange
	if err := r.db.Where("report_id = ?", reportID).
		Order("occurred_at ASC").Order("id ASC").
		Find(&changes).Error; err != nil {
		logger.Error("Failed to find stage changes", err, map[string]interface{}{
			"report_id": reportID,
		})
		return nil, err
	}
	return changes, nil
}
