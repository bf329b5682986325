package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransitionInput is the payload of a status change. Outcome fields are only
// read for the destinations that use them.
type TransitionInput struct {
	Target           model.ReportStatus
	ExpectedStatus   *model.ReportStatus
	Note             string
	SubmittedAt      *time.Time
	ITAReference     *string
	AssessmentAmount decimal.NullDecimal
	RefundDue        decimal.NullDecimal
	TaxDue           decimal.NullDecimal
}

// ScheduleChecklist is the schedule set of a report with its completion percentage.
type ScheduleChecklist struct {
	ReportID uint                  `json:"report_id"`
	Entries  []model.ScheduleEntry `json:"entries"`
	Progress int                   `json:"progress"`
}

type StatusChangedEvent struct {
	ReportID   uint               `json:"report_id"`
	TaxYear    int                `json:"tax_year"`
	FromStatus model.ReportStatus `json:"from_status"`
	ToStatus   model.ReportStatus `json:"to_status"`
	ChangedBy  model.Actor        `json:"changed_by"`
}

type StageChangedEvent struct {
	ReportID  uint              `json:"report_id"`
	TaxYear   int               `json:"tax_year"`
	FromStage model.ReportStage `json:"from_stage"`
	ToStage   model.ReportStage `json:"to_stage"`
}

type WorkflowService interface {
	TransitionStatus(reportID uint, input TransitionInput, actor model.Actor) (*model.AnnualReport, error)
	TransitionStage(reportID uint, direction model.StageDirection, actor model.Actor) (*model.AnnualReport, error)
	CompleteSchedule(reportID uint, key model.ScheduleKey, actor model.Actor) (*model.ScheduleEntry, error)
	ListSchedules(reportID uint) (*ScheduleChecklist, error)
	GetHistory(reportID uint) ([]model.StatusHistoryEntry, error)
	GetStageHistory(reportID uint) ([]model.StageChange, error)
}

type workflowService struct {
	reportRepo   repository.ReportRepository
	historyRepo  repository.HistoryRepository
	scheduleRepo repository.ScheduleRepository
	stageRepo    repository.StageChangeRepository
	calendar     *SeasonCalendar
	feed         *ChangeFeed
	db           *gorm.DB
}

func NewWorkflowService(
	reportRepo repository.ReportRepository,
	historyRepo repository.HistoryRepository,
	scheduleRepo repository.ScheduleRepository,
	stageRepo repository.StageChangeRepository,
	calendar *SeasonCalendar,
	feed *ChangeFeed,
	db *gorm.DB,
) WorkflowService {
	return &workflowService{
		reportRepo:   reportRepo,
		historyRepo:  historyRepo,
		scheduleRepo: scheduleRepo,
		stageRepo:    stageRepo,
		calendar:     calendar,
		feed:         feed,
		db:           db,
	}
}

// lockReport loads and row-locks a report inside tx, rejecting closed reports.
func (s *workflowService) lockReport(tx *gorm.DB, reportID uint) (*model.AnnualReport, error) {
	report, err := s.reportRepo.WithTx(tx).FindByIDForUpdate(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if report.Status.IsTerminal() {
		return nil, ErrReportClosed
	}
	return report, nil
}

// outcomeFields validates the destination's field requirements and returns the
// columns to write alongside the status.
func (s *workflowService) outcomeFields(input TransitionInput) (map[string]interface{}, error) {
	fields := map[string]interface{}{"status": input.Target}

	switch input.Target {
	case model.StatusSubmitted:
		submittedAt := s.calendar.Now()
		if input.SubmittedAt != nil {
			submittedAt = input.SubmittedAt.UTC()
		}
		fields["submitted_at"] = submittedAt
		if input.ITAReference != nil && *input.ITAReference != "" {
			fields["ita_reference"] = *input.ITAReference
		}

	case model.StatusAssessmentIssued:
		amounts := map[string]decimal.NullDecimal{
			"assessment_amount": input.AssessmentAmount,
			"refund_due":        input.RefundDue,
			"tax_due":           input.TaxDue,
		}
		for column, amount := range amounts {
			if !amount.Valid {
				continue
			}
			if amount.Decimal.IsNegative() {
				return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidReportInput, column)
			}
			fields[column] = amount
		}
		if len(fields) == 1 {
			return nil, &MissingFieldError{
				Status: model.StatusAssessmentIssued,
				Fields: []string{"assessment_amount", "refund_due", "tax_due"},
			}
		}
	}
	return fields, nil
}

func (s *workflowService) TransitionStatus(reportID uint, input TransitionInput, actor model.Actor) (*model.AnnualReport, error) {
	logger.Info("Transitioning report status", map[string]interface{}{
		"report_id": reportID,
		"to_status": input.Target,
		"actor_id":  actor.ID,
	})

	var event StatusChangedEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		report, err := s.lockReport(tx, reportID)
		if err != nil {
			return err
		}

		from := report.Status
		if input.ExpectedStatus != nil && *input.ExpectedStatus != from {
			return newTransitionError(from, input.Target, true)
		}
		if !model.CanTransition(from, input.Target) {
			return newTransitionError(from, input.Target, false)
		}

		fields, err := s.outcomeFields(input)
		if err != nil {
			return err
		}

		if err := s.reportRepo.WithTx(tx).UpdateGuarded(report, fields); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return newTransitionError(from, input.Target, true)
			}
			return err
		}

		history := s.historyRepo.WithTx(tx)
		occurredAt := s.calendar.Now()
		last, err := history.Last(reportID)
		if err != nil {
			return err
		}
		if last != nil && last.OccurredAt.After(occurredAt) {
			occurredAt = last.OccurredAt
		}

		if err := history.Append(&model.StatusHistoryEntry{
			ReportID:      reportID,
			FromStatus:    &from,
			ToStatus:      input.Target,
			ChangedByID:   actor.ID,
			ChangedByName: actor.Name,
			Note:          input.Note,
			OccurredAt:    occurredAt,
		}); err != nil {
			return err
		}

		event = StatusChangedEvent{
			ReportID:   reportID,
			TaxYear:    report.TaxYear,
			FromStatus: from,
			ToStatus:   input.Target,
			ChangedBy:  actor,
		}
		return nil
	})
	if err != nil {
		logger.Warn("Report status transition rejected", map[string]interface{}{
			"report_id": reportID,
			"to_status": input.Target,
			"error":     err.Error(),
		})
		return nil, err
	}

	logger.Info("Report status transitioned", map[string]interface{}{
		"report_id":   reportID,
		"from_status": event.FromStatus,
		"to_status":   event.ToStatus,
	})

	s.feed.invalidate(event.TaxYear)
	s.feed.publish(event.TaxYear, EventReportStatusChanged, event)

	return s.getReport(reportID)
}

func (s *workflowService) TransitionStage(reportID uint, direction model.StageDirection, actor model.Actor) (*model.AnnualReport, error) {
	logger.Info("Moving report stage", map[string]interface{}{
		"report_id": reportID,
		"direction": direction,
		"actor_id":  actor.ID,
	})

	var event StageChangedEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		report, err := s.lockReport(tx, reportID)
		if err != nil {
			return err
		}
		if !direction.Valid() {
			return fmt.Errorf("%w: unknown direction %q", ErrInvalidReportInput, direction)
		}
		if !report.Stage.Valid() {
			return fmt.Errorf("%w: report has unknown stage %q", ErrInvalidTransition, report.Stage)
		}

		next, ok := report.Stage.Step(direction)
		if !ok {
			return &StageBoundaryError{Stage: report.Stage, Direction: direction}
		}

		from := report.Stage
		if err := s.reportRepo.WithTx(tx).UpdateGuarded(report, map[string]interface{}{"stage": next}); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return fmt.Errorf("%w: report changed concurrently", ErrInvalidTransition)
			}
			return err
		}

		if err := s.stageRepo.WithTx(tx).Append(&model.StageChange{
			ReportID:    reportID,
			FromStage:   from,
			ToStage:     next,
			ChangedByID: actor.ID,
			OccurredAt:  s.calendar.Now(),
		}); err != nil {
			return err
		}

		event = StageChangedEvent{ReportID: reportID, TaxYear: report.TaxYear, FromStage: from, ToStage: next}
		return nil
	})
	if err != nil {
		logger.Warn("Report stage move rejected", map[string]interface{}{
			"report_id": reportID,
			"direction": direction,
			"error":     err.Error(),
		})
		return nil, err
	}

	s.feed.publish(event.TaxYear, EventReportStageChanged, event)
	return s.getReport(reportID)
}

// CompleteSchedule marks a schedule complete. Completing an already complete
// schedule succeeds and keeps the original completion time.
func (s *workflowService) CompleteSchedule(reportID uint, key model.ScheduleKey, actor model.Actor) (*model.ScheduleEntry, error) {
	logger.Info("Completing report schedule", map[string]interface{}{
		"report_id":    reportID,
		"schedule_key": key,
		"actor_id":     actor.ID,
	})

	var (
		entry   *model.ScheduleEntry
		taxYear int
		changed bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		report, err := s.lockReport(tx, reportID)
		if err != nil {
			return err
		}
		taxYear = report.TaxYear

		if !key.Valid() {
			return ErrScheduleNotFound
		}
		schedules := s.scheduleRepo.WithTx(tx)
		entry, err = schedules.FindByReportAndKey(reportID, key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrScheduleNotFound
			}
			return err
		}
		if entry.IsComplete {
			return nil
		}

		changed, err = schedules.MarkComplete(entry, s.calendar.Now())
		if err != nil {
			return err
		}
		if !changed {
			entry, err = schedules.FindByReportAndKey(reportID, key)
		}
		return err
	})
	if err != nil {
		logger.Warn("Schedule completion rejected", map[string]interface{}{
			"report_id":    reportID,
			"schedule_key": key,
			"error":        err.Error(),
		})
		return nil, err
	}

	if changed {
		s.feed.publish(taxYear, EventScheduleCompleted, entry)
	}
	return entry, nil
}

func (s *workflowService) ListSchedules(reportID uint) (*ScheduleChecklist, error) {
	if _, err := s.getReport(reportID); err != nil {
		return nil, err
	}

	entries, err := s.scheduleRepo.FindByReportID(reportID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.ScheduleEntry{}
	}
	return &ScheduleChecklist{
		ReportID: reportID,
		Entries:  entries,
		Progress: model.ScheduleProgress(entries),
	}, nil
}

func (s *workflowService) GetHistory(reportID uint) ([]model.StatusHistoryEntry, error) {
	if _, err := s.getReport(reportID); err != nil {
		return nil, err
	}

	entries, err := s.historyRepo.FindByReportID(reportID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.StatusHistoryEntry{}
	}
	return entries, nil
}

func (s *workflowService) GetStageHistory(reportID uint) ([]model.StageChange, error) {
	if _, err := s.getReport(reportID); err != nil {
		return nil, err
	}

	changes, err := s.stageRepo.FindByReportID(reportID)
	if err != nil {
		return nil, err
	}
	if changes == nil {
		changes = []model.StageChange{}
	}
	return changes, nil
}

func (s *workflowService) getReport(reportID uint) (*model.AnnualReport, error) {
	report, err := s.reportRepo.FindByID(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}
