package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/annualreport-backend/config"
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/internal/app/service"
	"github.com/ikkim/annualreport-backend/internal/db"
	"github.com/ikkim/annualreport-backend/internal/middleware"
	ws "github.com/ikkim/annualreport-backend/internal/websocket"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixtureNow = time.Date(2025, time.May, 2, 9, 0, 0, 0, time.UTC)

type apiFixture struct {
	db       *gorm.DB
	router   *gin.Engine
	hub      *ws.Hub
	staff    *model.User
	clientID uint
}

// setupAPITest mounts every workflow handler on a test engine. Requests are
// authenticated as a single advisor without going through JWT.
func setupAPITest(t *testing.T) *apiFixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	staff := &model.User{
		Email:        "advisor@example.com",
		PasswordHash: "hash",
		Name:         "Noa Advisor",
		Role:         model.RoleAdvisor,
	}
	require.NoError(t, testDB.Create(staff).Error)

	client := &model.Client{Name: "Dana Levi", TaxID: "300000001"}
	require.NoError(t, testDB.Create(client).Error)

	calendar, err := service.NewSeasonCalendar(config.SeasonConfig{
		TimeZone:         "UTC",
		StandardDeadline: "04-30",
		ExtendedDeadline: "09-30",
	}, func() time.Time { return fixtureNow })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := ws.NewHub()
	go hub.Run(ctx)

	feed := service.NewChangeFeed(nil, hub)
	clientRepo := repository.NewClientRepository(testDB)
	reportRepo := repository.NewReportRepository(testDB)
	historyRepo := repository.NewHistoryRepository(testDB)

	clientCtrl := NewClientController(service.NewClientService(clientRepo))
	reportCtrl := NewReportController(service.NewReportService(reportRepo, historyRepo, clientRepo, calendar, feed, testDB))
	workflowCtrl := NewWorkflowController(service.NewWorkflowService(
		reportRepo,
		historyRepo,
		repository.NewScheduleRepository(testDB),
		repository.NewStageChangeRepository(testDB),
		calendar,
		feed,
		testDB,
	))
	seasonCtrl := NewSeasonController(service.NewSeasonService(reportRepo, clientRepo, calendar, nil, time.Minute, feed, nil))
	boardCtrl := NewBoardController(hub, []string{"http://localhost:3000"})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, staff.ID)
		c.Set(middleware.UserNameKey, staff.Name)
		c.Set(middleware.UserRoleKey, staff.Role)
		c.Next()
	})

	router.POST("/clients", clientCtrl.CreateClient)
	router.GET("/clients", clientCtrl.ListClients)
	router.GET("/clients/:id", clientCtrl.GetClient)
	router.POST("/reports", reportCtrl.CreateReport)
	router.GET("/reports", reportCtrl.ListReports)
	router.GET("/reports/:id", reportCtrl.GetReport)
	router.PATCH("/reports/:id", reportCtrl.UpdateReport)
	router.POST("/reports/:id/status", workflowCtrl.TransitionStatus)
	router.POST("/reports/:id/stage", workflowCtrl.TransitionStage)
	router.GET("/reports/:id/schedules", workflowCtrl.ListSchedules)
	router.POST("/reports/:id/schedules/:key/complete", workflowCtrl.CompleteSchedule)
	router.GET("/reports/:id/history", workflowCtrl.GetHistory)
	router.GET("/reports/:id/stage-history", workflowCtrl.GetStageHistory)
	router.GET("/seasons/:tax_year/summary", seasonCtrl.GetSummary)
	router.GET("/seasons/:tax_year/export", seasonCtrl.Export)
	router.GET("/kanban", seasonCtrl.GetKanban)
	router.GET("/board/ws", boardCtrl.Connect)

	return &apiFixture{
		db:       testDB,
		router:   router,
		hub:      hub,
		staff:    staff,
		clientID: client.ID,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// createReport opens a 2024 individual report with rental income and returns its id.
func (f *apiFixture) createReport(t *testing.T) uint {
	t.Helper()

	w := f.do(t, http.MethodPost, "/reports", gin.H{
		"client_id":         f.clientID,
		"tax_year":          2024,
		"client_type":       "individual",
		"has_rental_income": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	report := decodeBody(t, w)["report"].(map[string]interface{})
	return uint(report["id"].(float64))
}

func (f *apiFixture) setStatus(t *testing.T, id uint, status model.ReportStatus) {
	t.Helper()
	require.NoError(t, f.db.Model(&model.AnnualReport{}).Where("id = ?", id).Update("status", status).Error)
}
