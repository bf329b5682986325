package repository

import (
	"errors"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleWrite is returned when a guarded update finds a newer version of the row.
var ErrStaleWrite = errors.New("report was modified concurrently")

// ReportFilter narrows report listings. Zero values mean no filter.
type ReportFilter struct {
	TaxYear    *int
	Status     model.ReportStatus
	Stage      model.ReportStage
	AssignedTo *uint
	Page       int
	PageSize   int
}

type ReportRepository interface {
	WithTx(tx *gorm.DB) ReportRepository
	Create(report *model.AnnualReport) error
	FindByID(id uint) (*model.AnnualReport, error)
	FindByIDForUpdate(id uint) (*model.AnnualReport, error)
	ExistsForClientYear(clientID uint, taxYear int) (bool, error)
	List(filter ReportFilter) ([]model.AnnualReport, int64, error)
	FindByTaxYear(taxYear int) ([]model.AnnualReport, error)
	FindOpen(taxYear *int) ([]model.AnnualReport, error)
	UpdateGuarded(report *model.AnnualReport, fields map[string]interface{}) error
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) WithTx(tx *gorm.DB) ReportRepository {
	return &reportRepository{db: tx}
}

func (r *reportRepository) preloadSchedules(db *gorm.DB) *gorm.DB {
	return db.Preload("Schedules", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

func (r *reportRepository) Create(report *model.AnnualReport) error {
	logger.Debug("Creating annual report in database", map[string]interface{}{
		"client_id": report.ClientID,
		"tax_year":  report.TaxYear,
	})

	if err := r.db.Create(report).Error; err != nil {
		logger.Error("Failed to create annual report in database", err, map[string]interface{}{
			"client_id": report.ClientID,
			"tax_year":  report.TaxYear,
		})
		return err
	}

	logger.Debug("Annual report created in database", map[string]interface{}{
		"report_id": report.ID,
		"schedules": len(report.Schedules),
	})
	return nil
}

func (r *reportRepository) FindByID(id uint) (*model.AnnualReport, error) {
	logger.Debug("Finding annual report by ID in database", map[string]interface{}{
		"report_id": id,
	})

	var report model.AnnualReport
	if err := r.preloadSchedules(r.db).First(&report, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find annual report by ID in database", err, map[string]interface{}{
				"report_id": id,
			})
		}
		return nil, err
	}
	return &report, nil
}

// FindByIDForUpdate row-locks the report for the rest of the surrounding transaction.
func (r *reportRepository) FindByIDForUpdate(id uint) (*model.AnnualReport, error) {
	logger.Debug("Locking annual report in database", map[string]interface{}{
		"report_id": id,
	})

	var report model.AnnualReport
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&report, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to lock annual report in database", err, map[string]interface{}{
				"report_id": id,
			})
		}
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) ExistsForClientYear(clientID uint, taxYear int) (bool, error) {
	var count int64
	err := r.db.Model(&model.AnnualReport{}).
		Where("client_id = ? AND tax_year = ?", clientID, taxYear).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to check annual report existence", err, map[string]interface{}{
			"client_id": clientID,
			"tax_year":  taxYear,
		})
		return false, err
	}
	return count > 0, nil
}

func (r *reportRepository) List(filter ReportFilter) ([]model.AnnualReport, int64, error) {
	logger.Debug("Listing annual reports in database", map[string]interface{}{
		"tax_year":  filter.TaxYear,
		"status":    filter.Status,
		"stage":     filter.Stage,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})

	query := r.db.Model(&model.AnnualReport{})
	if filter.TaxYear != nil {
		query = query.Where("tax_year = ?", *filter.TaxYear)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count annual reports", err)
		return nil, 0, err
	}

	var reports []model.AnnualReport
	offset := (filter.Page - 1) * filter.PageSize
	if err := r.preloadSchedules(query).
		Order("tax_year DESC").Order("id ASC").
		Offset(offset).Limit(filter.PageSize).
		Find(&reports).Error; err != nil {
		logger.Error("Failed to list annual reports", err)
		return nil, 0, err
	}

	logger.Debug("Annual reports listed from database", map[string]interface{}{
		"count": len(reports),
		"total": total,
	})
	return reports, total, nil
}

// FindByTaxYear returns the whole season cohort without associations.
func (r *reportRepository) FindByTaxYear(taxYear int) ([]model.AnnualReport, error) {
	var reports []model.AnnualReport
	if err := r.db.Where("tax_year = ?", taxYear).Order("id ASC").Find(&reports).Error; err != nil {
		logger.Error("Failed to find annual reports by tax year", err, map[string]interface{}{
			"tax_year": taxYear,
		})
		return nil, err
	}

	logger.Debug("Season cohort loaded from database", map[string]interface{}{
		"tax_year": taxYear,
		"count":    len(reports),
	})
	return reports, nil
}

// FindOpen returns every report that is not closed, optionally limited to one tax year.
func (r *reportRepository) FindOpen(taxYear *int) ([]model.AnnualReport, error) {
	query := r.db.Where("status <> ?", model.StatusClosed)
	if taxYear != nil {
		query = query.Where("tax_year = ?", *taxYear)
	}

	var reports []model.AnnualReport
	if err := query.Order("id ASC").Find(&reports).Error; err != nil {
		logger.Error("Failed to find open annual reports", err, map[string]interface{}{
			"tax_year": taxYear,
		})
		return nil, err
	}
	return reports, nil
}

// UpdateGuarded writes fields only if the stored version still matches report.Version,
// then bumps the version on both the row and the struct.
func (r *reportRepository) UpdateGuarded(report *model.AnnualReport, fields map[string]interface{}) error {
	logger.Debug("Updating annual report in database", map[string]interface{}{
		"report_id": report.ID,
		"version":   report.Version,
		"fields":    len(fields),
	})

	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	result := r.db.Model(&model.AnnualReport{}).
		Where("id = ? AND version = ?", report.ID, report.Version).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update annual report in database", result.Error, map[string]interface{}{
			"report_id": report.ID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		logger.Warn("Stale annual report write rejected", map[string]interface{}{
			"report_id": report.ID,
			"version":   report.Version,
		})
		return ErrStaleWrite
	}

	report.Version++
	return nil
}
