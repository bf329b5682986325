package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/internal/export"
	"github.com/ikkim/annualreport-backend/pkg/logger"
)

// SeasonSummary holds cohort statistics for one tax year.
type SeasonSummary struct {
	TaxYear          int       `json:"tax_year"`
	Total            int       `json:"total"`
	NotStarted       int       `json:"not_started"`
	CollectingDocs   int       `json:"collecting_docs"`
	DocsComplete     int       `json:"docs_complete"`
	InPreparation    int       `json:"in_preparation"`
	PendingClient    int       `json:"pending_client"`
	Submitted        int       `json:"submitted"`
	Accepted         int       `json:"accepted"`
	AssessmentIssued int       `json:"assessment_issued"`
	ObjectionFiled   int       `json:"objection_filed"`
	Closed           int       `json:"closed"`
	CompletionRate   int       `json:"completion_rate"`
	OverdueCount     int       `json:"overdue_count"`
	GeneratedAt      time.Time `json:"generated_at"`
}

func (s *SeasonSummary) counter(status model.ReportStatus) *int {
	switch status {
	case model.StatusNotStarted:
		return &s.NotStarted
	case model.StatusCollectingDocs:
		return &s.CollectingDocs
	case model.StatusDocsComplete:
		return &s.DocsComplete
	case model.StatusInPreparation:
		return &s.InPreparation
	case model.StatusPendingClient:
		return &s.PendingClient
	case model.StatusSubmitted:
		return &s.Submitted
	case model.StatusAccepted:
		return &s.Accepted
	case model.StatusAssessmentIssued:
		return &s.AssessmentIssued
	case model.StatusObjectionFiled:
		return &s.ObjectionFiled
	case model.StatusClosed:
		return &s.Closed
	}
	return nil
}

// Count returns the number of reports in the given status.
func (s *SeasonSummary) Count(status model.ReportStatus) int {
	if c := s.counter(status); c != nil {
		return *c
	}
	return 0
}

// summarize computes the season statistics. A report is overdue when its
// deadline is strictly before today and it has not been filed.
func summarize(taxYear int, reports []model.AnnualReport, today time.Time) *SeasonSummary {
	summary := &SeasonSummary{TaxYear: taxYear, Total: len(reports)}

	filed := 0
	for i := range reports {
		r := &reports[i]
		if c := summary.counter(r.Status); c != nil {
			*c++
		}
		if r.Status.IsFiled() {
			filed++
			continue
		}
		if deadline, ok := r.DeadlineDate(); ok && deadline.Before(today) {
			summary.OverdueCount++
		}
	}

	if summary.Total > 0 {
		summary.CompletionRate = int(math.Round(100 * float64(filed) / float64(summary.Total)))
	}
	return summary
}

type KanbanCard struct {
	ID           uint               `json:"id"`
	ClientID     uint               `json:"client_id"`
	ClientName   string             `json:"client_name"`
	TaxYear      int                `json:"tax_year"`
	Status       model.ReportStatus `json:"status"`
	DaysUntilDue *int               `json:"days_until_due"`
}

type KanbanColumn struct {
	Stage model.ReportStage `json:"stage"`
	Label string            `json:"label"`
	Cards []KanbanCard      `json:"cards"`
}

// SeasonExport is a rendered workbook. URL is set when the file was uploaded
// to object storage, otherwise Content carries the bytes.
type SeasonExport struct {
	FileName string `json:"file_name"`
	URL      string `json:"url,omitempty"`
	Content  []byte `json:"-"`
}

// ExportStore uploads exports and hands out temporary download links.
type ExportStore interface {
	Upload(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
}

type SeasonService interface {
	GetSeasonSummary(ctx context.Context, taxYear int) (*SeasonSummary, error)
	RefreshSeasonSummary(ctx context.Context, taxYear int) (*SeasonSummary, error)
	GetKanbanView(taxYear *int) ([]KanbanColumn, error)
	ExportSeason(ctx context.Context, taxYear int) (*SeasonExport, error)
}

type seasonService struct {
	reportRepo repository.ReportRepository
	clientRepo repository.ClientRepository
	calendar   *SeasonCalendar
	cache      SummaryCache
	cacheTTL   time.Duration
	feed       *ChangeFeed
	exports    ExportStore
}

// NewSeasonService builds the aggregator. cache and exports may be nil.
func NewSeasonService(
	reportRepo repository.ReportRepository,
	clientRepo repository.ClientRepository,
	calendar *SeasonCalendar,
	cache SummaryCache,
	cacheTTL time.Duration,
	feed *ChangeFeed,
	exports ExportStore,
) SeasonService {
	return &seasonService{
		reportRepo: reportRepo,
		clientRepo: clientRepo,
		calendar:   calendar,
		cache:      cache,
		cacheTTL:   cacheTTL,
		feed:       feed,
		exports:    exports,
	}
}

func (s *seasonService) compute(taxYear int) (*SeasonSummary, []model.AnnualReport, error) {
	reports, err := s.reportRepo.FindByTaxYear(taxYear)
	if err != nil {
		logger.Error("Failed to load season cohort", err, map[string]interface{}{
			"tax_year": taxYear,
		})
		return nil, nil, fmt.Errorf("%w: %v", ErrAggregationUnavailable, err)
	}

	summary := summarize(taxYear, reports, s.calendar.Today())
	summary.GeneratedAt = s.calendar.Now()
	return summary, reports, nil
}

func (s *seasonService) store(ctx context.Context, summary *SeasonSummary) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, summaryCacheKey(summary.TaxYear), summary, s.cacheTTL); err != nil {
		logger.Warn("Failed to cache season summary", map[string]interface{}{
			"tax_year": summary.TaxYear,
			"error":    err.Error(),
		})
	}
}

func (s *seasonService) GetSeasonSummary(ctx context.Context, taxYear int) (*SeasonSummary, error) {
	if s.cache != nil {
		var cached SeasonSummary
		hit, err := s.cache.GetJSON(ctx, summaryCacheKey(taxYear), &cached)
		if err != nil {
			logger.Warn("Season summary cache unavailable", map[string]interface{}{
				"tax_year": taxYear,
				"error":    err.Error(),
			})
		} else if hit {
			logger.Debug("Season summary served from cache", map[string]interface{}{
				"tax_year": taxYear,
			})
			return &cached, nil
		}
	}

	summary, _, err := s.compute(taxYear)
	if err != nil {
		return nil, err
	}
	s.store(ctx, summary)
	return summary, nil
}

// RefreshSeasonSummary recomputes the summary, replaces the cached copy and
// pushes it to the board.
func (s *seasonService) RefreshSeasonSummary(ctx context.Context, taxYear int) (*SeasonSummary, error) {
	summary, _, err := s.compute(taxYear)
	if err != nil {
		return nil, err
	}
	s.store(ctx, summary)
	s.feed.publish(taxYear, EventSeasonSummary, summary)

	logger.Info("Season summary refreshed", map[string]interface{}{
		"tax_year":        taxYear,
		"total":           summary.Total,
		"overdue_count":   summary.OverdueCount,
		"completion_rate": summary.CompletionRate,
	})
	return summary, nil
}

// GetKanbanView groups open reports by stage. Closed reports are left off the
// board and rows with an unrecognised stage are skipped.
func (s *seasonService) GetKanbanView(taxYear *int) ([]KanbanColumn, error) {
	reports, err := s.reportRepo.FindOpen(taxYear)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationUnavailable, err)
	}

	clientIDs := make([]uint, 0, len(reports))
	seen := make(map[uint]struct{}, len(reports))
	for _, r := range reports {
		if _, ok := seen[r.ClientID]; !ok {
			seen[r.ClientID] = struct{}{}
			clientIDs = append(clientIDs, r.ClientID)
		}
	}
	names, err := s.clientRepo.FindNamesByIDs(clientIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationUnavailable, err)
	}

	columns := make([]KanbanColumn, len(model.StageOrder))
	for i, stage := range model.StageOrder {
		columns[i] = KanbanColumn{Stage: stage, Label: stage.Label(), Cards: []KanbanCard{}}
	}

	dropped := 0
	for i := range reports {
		r := &reports[i]
		idx := r.Stage.Index()
		if idx < 0 {
			dropped++
			continue
		}

		card := KanbanCard{
			ID:         r.ID,
			ClientID:   r.ClientID,
			ClientName: names[r.ClientID],
			TaxYear:    r.TaxYear,
			Status:     r.Status,
		}
		if deadline, ok := r.DeadlineDate(); ok {
			days := s.calendar.DaysUntil(deadline)
			card.DaysUntilDue = &days
		}
		columns[idx].Cards = append(columns[idx].Cards, card)
	}

	if dropped > 0 {
		logger.Warn("Skipped reports with unknown stage on kanban board", map[string]interface{}{
			"count": dropped,
		})
	}
	return columns, nil
}

func (s *seasonService) ExportSeason(ctx context.Context, taxYear int) (*SeasonExport, error) {
	summary, reports, err := s.compute(taxYear)
	if err != nil {
		return nil, err
	}

	clientIDs := make([]uint, 0, len(reports))
	for _, r := range reports {
		clientIDs = append(clientIDs, r.ClientID)
	}
	names, err := s.clientRepo.FindNamesByIDs(clientIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationUnavailable, err)
	}

	rows := make([]export.ReportRow, 0, len(reports))
	for i := range reports {
		r := &reports[i]
		row := export.ReportRow{
			ID:         r.ID,
			ClientID:   r.ClientID,
			ClientName: names[r.ClientID],
			ClientType: string(r.ClientType),
			FormType:   r.FormType,
			Status:     r.Status.Label(),
			Stage:      r.Stage.Label(),
			Schedules:  len(model.RequiredSchedules(r.Flags())),
		}
		if deadline, ok := r.DeadlineDate(); ok {
			row.FilingDeadline = &deadline
		}
		if r.SubmittedAt != nil {
			row.SubmittedAt = r.SubmittedAt
		}
		if r.ITAReference != nil {
			row.ITAReference = *r.ITAReference
		}
		rows = append(rows, row)
	}

	counts := make([]export.StatusCount, 0, len(model.AllStatuses))
	for _, status := range model.AllStatuses {
		counts = append(counts, export.StatusCount{Label: status.Label(), Count: summary.Count(status)})
	}

	content, err := export.WriteSeason(export.Season{
		TaxYear:        taxYear,
		Total:          summary.Total,
		CompletionRate: summary.CompletionRate,
		OverdueCount:   summary.OverdueCount,
		StatusCounts:   counts,
		Reports:        rows,
		GeneratedAt:    summary.GeneratedAt,
	})
	if err != nil {
		logger.Error("Failed to render season workbook", err, map[string]interface{}{
			"tax_year": taxYear,
		})
		return nil, err
	}

	result := &SeasonExport{FileName: fmt.Sprintf("season-%d.xlsx", taxYear), Content: content}
	if s.exports == nil {
		return result, nil
	}

	key := fmt.Sprintf("exports/%d/%s.xlsx", taxYear, uuid.New().String())
	if err := s.exports.Upload(ctx, key, export.ContentType, content); err != nil {
		logger.Error("Failed to upload season export", err, map[string]interface{}{
			"tax_year": taxYear,
			"key":      key,
		})
		return nil, err
	}
	url, err := s.exports.PresignGet(ctx, key)
	if err != nil {
		return nil, err
	}

	logger.Info("Season export uploaded", map[string]interface{}{
		"tax_year": taxYear,
		"key":      key,
		"reports":  len(rows),
	})
	result.URL = url
	result.Content = nil
	return result, nil
}
