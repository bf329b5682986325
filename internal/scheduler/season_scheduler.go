package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/annualreport-backend/internal/app/service"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const refreshTimeout = 2 * time.Minute

// SeasonScheduler recomputes the season summaries of the tracked tax years on
// a cron schedule.
type SeasonScheduler struct {
	cron          *cron.Cron
	spec          string
	trackedYears  []int
	seasonService service.SeasonService
}

func NewSeasonScheduler(seasonService service.SeasonService, spec string, trackedYears []int, loc *time.Location) *SeasonScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &SeasonScheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		spec:          spec,
		trackedYears:  trackedYears,
		seasonService: seasonService,
	}
}

func (s *SeasonScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.RefreshAll)
	if err != nil {
		logger.Error("Failed to add cron job for season refresh", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Season scheduler started", map[string]interface{}{
		"spec":          s.spec,
		"tracked_years": s.trackedYears,
	})
	return nil
}

// RefreshAll recomputes every tracked year. A failing year does not stop the others.
func (s *SeasonScheduler) RefreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	for _, year := range s.trackedYears {
		summary, err := s.seasonService.RefreshSeasonSummary(ctx, year)
		if err != nil {
			logger.Error("Scheduled season refresh failed", err, map[string]interface{}{
				"tax_year": year,
			})
			continue
		}
		if summary.OverdueCount > 0 {
			logger.Warn("Season has overdue reports", map[string]interface{}{
				"tax_year":      year,
				"overdue_count": summary.OverdueCount,
			})
		}
	}
}

func (s *SeasonScheduler) Stop() {
	logger.Info("Stopping season scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Season scheduler stopped")
}
