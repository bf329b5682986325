package service

import (
	"errors"
	"time"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	minTaxYear      = 1990
	maxTaxYear      = 2100
)

type CreateReportInput struct {
	ClientID           uint
	TaxYear            int
	ClientType         model.ClientType
	DeadlineType       model.DeadlineType
	FilingDeadline     *time.Time
	CustomDeadlineNote string
	Flags              model.DisclosureFlags
	Notes              string
	AssignedTo         *uint
}

// UpdateReportInput carries a partial update of the free-form report details.
// Nil fields are left unchanged.
type UpdateReportInput struct {
	Notes              *string
	AssignedTo         *uint
	Unassign           bool
	DeadlineType       *model.DeadlineType
	FilingDeadline     *time.Time
	ClearDeadline      bool
	CustomDeadlineNote *string
}

type ListReportsInput struct {
	TaxYear    *int
	Status     model.ReportStatus
	Stage      model.ReportStage
	AssignedTo *uint
	Page       int
	PageSize   int
}

type ReportPage struct {
	Items    []model.AnnualReport `json:"items"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Total    int64                `json:"total"`
}

type ReportService interface {
	CreateReport(input CreateReportInput, actor model.Actor) (*model.AnnualReport, error)
	GetReport(id uint) (*model.AnnualReport, error)
	ListReports(input ListReportsInput) (*ReportPage, error)
	UpdateReport(id uint, input UpdateReportInput, actor model.Actor) (*model.AnnualReport, error)
}

type reportService struct {
	reportRepo  repository.ReportRepository
	historyRepo repository.HistoryRepository
	clientRepo  repository.ClientRepository
	calendar    *SeasonCalendar
	feed        *ChangeFeed
	db          *gorm.DB
}

func NewReportService(
	reportRepo repository.ReportRepository,
	historyRepo repository.HistoryRepository,
	clientRepo repository.ClientRepository,
	calendar *SeasonCalendar,
	feed *ChangeFeed,
	db *gorm.DB,
) ReportService {
	return &reportService{
		reportRepo:  reportRepo,
		historyRepo: historyRepo,
		clientRepo:  clientRepo,
		calendar:    calendar,
		feed:        feed,
		db:          db,
	}
}

// resolveDeadline applies the default deadline rule. A custom deadline without
// a date must explain itself in the note.
func (s *reportService) resolveDeadline(deadlineType model.DeadlineType, deadline *time.Time, note string, taxYear int) (*datatypes.Date, error) {
	if deadline != nil {
		d := datatypes.Date(civilDate(*deadline))
		return &d, nil
	}
	if deadlineType == model.DeadlineCustom {
		if note == "" {
			return nil, &MissingFieldError{Fields: []string{"custom_deadline_note"}}
		}
		return nil, nil
	}
	def, ok := s.calendar.DefaultDeadline(deadlineType, taxYear)
	if !ok {
		return nil, ErrInvalidReportInput
	}
	d := datatypes.Date(def)
	return &d, nil
}

func (s *reportService) CreateReport(input CreateReportInput, actor model.Actor) (*model.AnnualReport, error) {
	logger.Info("Creating annual report", map[string]interface{}{
		"client_id":   input.ClientID,
		"tax_year":    input.TaxYear,
		"client_type": input.ClientType,
		"actor_id":    actor.ID,
	})

	if input.DeadlineType == "" {
		input.DeadlineType = model.DeadlineStandard
	}
	if input.ClientID == 0 || !input.ClientType.Valid() || !input.DeadlineType.Valid() ||
		input.TaxYear < minTaxYear || input.TaxYear > maxTaxYear {
		logger.Warn("Rejected annual report input", map[string]interface{}{
			"client_id":     input.ClientID,
			"tax_year":      input.TaxYear,
			"client_type":   input.ClientType,
			"deadline_type": input.DeadlineType,
		})
		return nil, ErrInvalidReportInput
	}

	deadline, err := s.resolveDeadline(input.DeadlineType, input.FilingDeadline, input.CustomDeadlineNote, input.TaxYear)
	if err != nil {
		return nil, err
	}

	if _, err := s.clientRepo.FindByID(input.ClientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	report := &model.AnnualReport{
		ClientID:           input.ClientID,
		TaxYear:            input.TaxYear,
		ClientType:         input.ClientType,
		FormType:           input.ClientType.FormType(),
		Status:             model.StatusNotStarted,
		Stage:              model.StageMaterialCollection,
		DeadlineType:       input.DeadlineType,
		FilingDeadline:     deadline,
		CustomDeadlineNote: input.CustomDeadlineNote,
		Notes:              input.Notes,
		AssignedTo:         input.AssignedTo,
		CreatedBy:          actor.ID,
		Version:            1,
	}
	report.SetFlags(input.Flags)
	for _, key := range model.RequiredSchedules(input.Flags) {
		report.Schedules = append(report.Schedules, model.ScheduleEntry{
			ScheduleKey: key,
			IsRequired:  true,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		reports := s.reportRepo.WithTx(tx)

		exists, err := reports.ExistsForClientYear(input.ClientID, input.TaxYear)
		if err != nil {
			return err
		}
		if exists {
			return ErrReportAlreadyExists
		}

		if err := reports.Create(report); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrReportAlreadyExists
			}
			return err
		}

		return s.historyRepo.WithTx(tx).Append(&model.StatusHistoryEntry{
			ReportID:      report.ID,
			ToStatus:      model.StatusNotStarted,
			ChangedByID:   actor.ID,
			ChangedByName: actor.Name,
			Note:          "Report created",
			OccurredAt:    s.calendar.Now(),
		})
	})
	if err != nil {
		if errors.Is(err, ErrReportAlreadyExists) {
			logger.Warn("Annual report already exists", map[string]interface{}{
				"client_id": input.ClientID,
				"tax_year":  input.TaxYear,
			})
		} else {
			logger.Error("Failed to create annual report", err, map[string]interface{}{
				"client_id": input.ClientID,
				"tax_year":  input.TaxYear,
			})
		}
		return nil, err
	}

	logger.Info("Annual report created", map[string]interface{}{
		"report_id": report.ID,
		"schedules": len(report.Schedules),
	})

	s.feed.invalidate(report.TaxYear)
	s.feed.publish(report.TaxYear, EventReportCreated, report)

	return s.GetReport(report.ID)
}

func (s *reportService) GetReport(id uint) (*model.AnnualReport, error) {
	report, err := s.reportRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

func (s *reportService) ListReports(input ListReportsInput) (*ReportPage, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PageSize < 1 {
		input.PageSize = defaultPageSize
	}
	if input.PageSize > maxPageSize {
		input.PageSize = maxPageSize
	}
	if input.Status != "" && !input.Status.Valid() {
		return nil, ErrInvalidReportInput
	}
	if input.Stage != "" && !input.Stage.Valid() {
		return nil, ErrInvalidReportInput
	}

	items, total, err := s.reportRepo.List(repository.ReportFilter{
		TaxYear:    input.TaxYear,
		Status:     input.Status,
		Stage:      input.Stage,
		AssignedTo: input.AssignedTo,
		Page:       input.Page,
		PageSize:   input.PageSize,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.AnnualReport{}
	}

	return &ReportPage{
		Items:    items,
		Page:     input.Page,
		PageSize: input.PageSize,
		Total:    total,
	}, nil
}

func (s *reportService) UpdateReport(id uint, input UpdateReportInput, actor model.Actor) (*model.AnnualReport, error) {
	logger.Info("Updating annual report details", map[string]interface{}{
		"report_id": id,
		"actor_id":  actor.ID,
	})

	err := s.db.Transaction(func(tx *gorm.DB) error {
		reports := s.reportRepo.WithTx(tx)

		report, err := reports.FindByIDForUpdate(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReportNotFound
			}
			return err
		}
		if report.Status.IsTerminal() {
			return ErrReportClosed
		}

		fields := map[string]interface{}{}
		if input.Notes != nil {
			fields["notes"] = *input.Notes
		}
		if input.Unassign {
			fields["assigned_to"] = nil
		} else if input.AssignedTo != nil {
			fields["assigned_to"] = *input.AssignedTo
		}

		deadlineType := report.DeadlineType
		note := report.CustomDeadlineNote
		deadlineTouched := false
		if input.DeadlineType != nil {
			if !input.DeadlineType.Valid() {
				return ErrInvalidReportInput
			}
			deadlineType = *input.DeadlineType
			deadlineTouched = true
		}
		if input.CustomDeadlineNote != nil {
			note = *input.CustomDeadlineNote
			deadlineTouched = true
		}
		if input.FilingDeadline != nil || input.ClearDeadline {
			deadlineTouched = true
		}

		if deadlineTouched {
			var current *time.Time
			switch {
			case input.FilingDeadline != nil:
				current = input.FilingDeadline
			case input.ClearDeadline:
				current = nil
			case input.DeadlineType == nil:
				if d, ok := report.DeadlineDate(); ok {
					current = &d
				}
			}
			deadline, err := s.resolveDeadline(deadlineType, current, note, report.TaxYear)
			if err != nil {
				return err
			}
			fields["deadline_type"] = deadlineType
			fields["custom_deadline_note"] = note
			if deadline != nil {
				fields["filing_deadline"] = *deadline
			} else {
				fields["filing_deadline"] = gorm.Expr("NULL")
			}
		}

		if len(fields) == 0 {
			return nil
		}
		if err := reports.UpdateGuarded(report, fields); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return ErrInvalidTransition
			}
			return err
		}
		return nil
	})
	if err != nil {
		logger.Warn("Annual report update rejected", map[string]interface{}{
			"report_id": id,
			"error":     err.Error(),
		})
		return nil, err
	}

	report, err := s.GetReport(id)
	if err != nil {
		return nil, err
	}
	s.feed.invalidate(report.TaxYear)
	return report, nil
}
