package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/annualreport-backend/pkg/logger"
)

// Board events pushed to dashboard clients.
const (
	EventReportCreated       = "report.created"
	EventReportStatusChanged = "report.status_changed"
	EventReportStageChanged  = "report.stage_changed"
	EventScheduleCompleted   = "schedule.completed"
	EventSeasonSummary       = "season.summary"
)

// SummaryCache stores computed season summaries.
type SummaryCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// BoardPublisher fans events out to clients watching a tax year.
type BoardPublisher interface {
	Publish(taxYear int, event string, payload interface{})
}

const cacheTimeout = 2 * time.Second

func summaryCacheKey(taxYear int) string {
	return fmt.Sprintf("season:summary:%d", taxYear)
}

// ChangeFeed runs the side effects that follow a committed change:
// dropping cached summaries and notifying the board. Both collaborators are optional.
type ChangeFeed struct {
	cache SummaryCache
	board BoardPublisher
}

func NewChangeFeed(cache SummaryCache, board BoardPublisher) *ChangeFeed {
	return &ChangeFeed{cache: cache, board: board}
}

func (f *ChangeFeed) invalidate(taxYear int) {
	if f == nil || f.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()

	if err := f.cache.Delete(ctx, summaryCacheKey(taxYear)); err != nil {
		logger.Warn("Failed to invalidate season summary cache", map[string]interface{}{
			"tax_year": taxYear,
			"error":    err.Error(),
		})
	}
}

func (f *ChangeFeed) publish(taxYear int, event string, payload interface{}) {
	if f == nil || f.board == nil {
		return
	}
	f.board.Publish(taxYear, event, payload)
}
