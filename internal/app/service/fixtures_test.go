package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/annualreport-backend/config"
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type boardEvent struct {
	taxYear int
	name    string
	payload interface{}
}

type recordingBoard struct {
	mu     sync.Mutex
	events []boardEvent
}

func (b *recordingBoard) Publish(taxYear int, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, boardEvent{taxYear: taxYear, name: event, payload: payload})
}

func (b *recordingBoard) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.events))
	for i, e := range b.events {
		names[i] = e.name
	}
	return names
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

var errCacheDown = errors.New("cache down")

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return false, errCacheDown
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errCacheDown
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errCacheDown
	}
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// 2024 standard filings were due 2025-04-30, two days before this instant.
var fixtureNow = time.Date(2025, time.May, 2, 9, 0, 0, 0, time.UTC)

type workflowFixture struct {
	db       *gorm.DB
	clock    *fakeClock
	board    *recordingBoard
	cache    *memoryCache
	calendar *SeasonCalendar
	clients  repository.ClientRepository
	reports  ReportService
	workflow WorkflowService
	season   SeasonService
	clientID uint
	actor    model.Actor
}

func setupWorkflowTest(t *testing.T) *workflowFixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	clock := &fakeClock{now: fixtureNow}
	calendar, err := NewSeasonCalendar(config.SeasonConfig{
		TimeZone:         "UTC",
		StandardDeadline: "04-30",
		ExtendedDeadline: "09-30",
	}, clock.Now)
	require.NoError(t, err)

	board := &recordingBoard{}
	cache := newMemoryCache()
	feed := NewChangeFeed(cache, board)

	reportRepo := repository.NewReportRepository(testDB)
	historyRepo := repository.NewHistoryRepository(testDB)
	clientRepo := repository.NewClientRepository(testDB)

	client := &model.Client{Name: "Dana Levi", TaxID: "300000001"}
	require.NoError(t, clientRepo.Create(client))

	return &workflowFixture{
		db:       testDB,
		clock:    clock,
		board:    board,
		cache:    cache,
		calendar: calendar,
		clients:  clientRepo,
		reports:  NewReportService(reportRepo, historyRepo, clientRepo, calendar, feed, testDB),
		workflow: NewWorkflowService(
			reportRepo,
			historyRepo,
			repository.NewScheduleRepository(testDB),
			repository.NewStageChangeRepository(testDB),
			calendar,
			feed,
			testDB,
		),
		season:   NewSeasonService(reportRepo, clientRepo, calendar, cache, time.Minute, feed, nil),
		clientID: client.ID,
		actor:    model.Actor{ID: 1, Name: "Advisor One"},
	}
}

func (f *workflowFixture) newClient(t *testing.T, name, taxID string) uint {
	t.Helper()
	client := &model.Client{Name: name, TaxID: taxID}
	require.NoError(t, f.clients.Create(client))
	return client.ID
}

func (f *workflowFixture) createReport(t *testing.T, clientID uint, taxYear int, flags model.DisclosureFlags) *model.AnnualReport {
	t.Helper()
	report, err := f.reports.CreateReport(CreateReportInput{
		ClientID:     clientID,
		TaxYear:      taxYear,
		ClientType:   model.ClientIndividual,
		DeadlineType: model.DeadlineStandard,
		Flags:        flags,
	}, f.actor)
	require.NoError(t, err)
	return report
}

// advance walks the report through the given statuses with plain payloads.
func (f *workflowFixture) advance(t *testing.T, reportID uint, statuses ...model.ReportStatus) *model.AnnualReport {
	t.Helper()
	var report *model.AnnualReport
	for _, status := range statuses {
		input := TransitionInput{Target: status}
		if status == model.StatusAssessmentIssued {
			input.TaxDue = decimalAmount("100.00")
		}
		var err error
		report, err = f.workflow.TransitionStatus(reportID, input, f.actor)
		require.NoError(t, err, "transition to %s", status)
	}
	return report
}

// forceStatus rewrites the stored status directly, bypassing the engine.
func (f *workflowFixture) forceStatus(t *testing.T, reportID uint, status model.ReportStatus) {
	t.Helper()
	require.NoError(t, f.db.Model(&model.AnnualReport{}).Where("id = ?", reportID).Update("status", status).Error)
}

var pathToClosed = []model.ReportStatus{
	model.StatusCollectingDocs,
	model.StatusDocsComplete,
	model.StatusInPreparation,
	model.StatusPendingClient,
	model.StatusSubmitted,
	model.StatusAccepted,
	model.StatusClosed,
}

func decimalAmount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func newReportRepo(f *workflowFixture) repository.ReportRepository {
	return repository.NewReportRepository(f.db)
}
