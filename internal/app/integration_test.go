package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/annualreport-backend/config"
	"github.com/ikkim/annualreport-backend/internal/app/controller"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/internal/app/service"
	"github.com/ikkim/annualreport-backend/internal/db"
	"github.com/ikkim/annualreport-backend/internal/middleware"
	"github.com/ikkim/annualreport-backend/internal/router"
	ws "github.com/ikkim/annualreport-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "password123"
)

type TestServer struct {
	Router *gin.Engine
	token  string
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		JWT: config.JWTConfig{
			Secret:             "test-secret",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Season: config.SeasonConfig{TimeZone: "UTC", StandardDeadline: "04-30", ExtendedDeadline: "09-30"},
		Admin:  config.AdminConfig{Email: adminEmail, Password: adminPassword, Name: "Practice Admin"},
	}
	require.NoError(t, db.SeedAdmin(testDB, cfg.Admin))

	now := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	calendar, err := service.NewSeasonCalendar(cfg.Season, func() time.Time { return now })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := ws.NewHub()
	go hub.Run(ctx)
	feed := service.NewChangeFeed(nil, hub)

	userRepo := repository.NewUserRepository(testDB)
	clientRepo := repository.NewClientRepository(testDB)
	reportRepo := repository.NewReportRepository(testDB)
	historyRepo := repository.NewHistoryRepository(testDB)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)
	workflowService := service.NewWorkflowService(
		reportRepo,
		historyRepo,
		repository.NewScheduleRepository(testDB),
		repository.NewStageChangeRepository(testDB),
		calendar,
		feed,
		testDB,
	)

	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewClientController(service.NewClientService(clientRepo)),
		controller.NewReportController(service.NewReportService(reportRepo, historyRepo, clientRepo, calendar, feed, testDB)),
		controller.NewWorkflowController(workflowService),
		controller.NewSeasonController(service.NewSeasonService(reportRepo, clientRepo, calendar, nil, time.Minute, feed, nil)),
		controller.NewBoardController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(cfg.JWT.Secret),
		cfg,
	)

	server := &TestServer{Router: r.Setup()}

	w := server.request(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	server.token = login.Tokens.AccessToken

	return server
}

func (s *TestServer) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestIntegration_HealthIsPublic(t *testing.T) {
	server := setupIntegrationTest(t)
	server.token = ""

	w := server.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = server.request(t, http.MethodGet, "/api/v1/reports", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIntegration_SeasonWorkflow(t *testing.T) {
	server := setupIntegrationTest(t)

	// 1. Register the client
	w := server.request(t, http.MethodPost, "/api/v1/clients", map[string]string{
		"name":   "Dana Levi",
		"tax_id": "300000001",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var clientResp struct {
		Client struct {
			ID uint `json:"id"`
		} `json:"client"`
	}
	decode(t, w, &clientResp)

	// 2. Open the 2024 report with rental income
	w = server.request(t, http.MethodPost, "/api/v1/reports", map[string]interface{}{
		"client_id":         clientResp.Client.ID,
		"tax_year":          2024,
		"client_type":       "individual",
		"has_rental_income": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reportResp struct {
		Report struct {
			ID        uint `json:"id"`
			Schedules []struct {
				ScheduleKey string `json:"schedule_key"`
			} `json:"schedules"`
		} `json:"report"`
	}
	decode(t, w, &reportResp)
	reportID := reportResp.Report.ID
	require.Len(t, reportResp.Report.Schedules, 1)
	assert.Equal(t, "schedule_b", reportResp.Report.Schedules[0].ScheduleKey)

	// 3. Walk the report to submission
	statusPath := fmt.Sprintf("/api/v1/reports/%d/status", reportID)
	for _, status := range []string{"collecting_docs", "docs_complete", "in_preparation", "pending_client"} {
		w = server.request(t, http.MethodPost, statusPath, map[string]string{"status": status})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = server.request(t, http.MethodPost, fmt.Sprintf("/api/v1/reports/%d/schedules/schedule_b/complete", reportID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = server.request(t, http.MethodPost, statusPath, map[string]string{"status": "submitted", "ita_reference": "ITA-123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 4. History records every step with the admin as actor
	w = server.request(t, http.MethodGet, fmt.Sprintf("/api/v1/reports/%d/history", reportID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var historyResp struct {
		Count   int `json:"count"`
		History []struct {
			ToStatus      string `json:"to_status"`
			ChangedByName string `json:"changed_by_name"`
		} `json:"history"`
	}
	decode(t, w, &historyResp)
	assert.Equal(t, 6, historyResp.Count)
	for _, entry := range historyResp.History {
		assert.Equal(t, "Practice Admin", entry.ChangedByName)
	}

	// 5. The season summary counts the filing
	w = server.request(t, http.MethodGet, "/api/v1/seasons/2024/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.SeasonSummary
	decode(t, w, &summary)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Submitted)
	assert.Equal(t, 100, summary.CompletionRate)
	assert.Equal(t, 0, summary.OverdueCount)

	// 6. Kanban still shows the open report
	w = server.request(t, http.MethodGet, "/api/v1/kanban?tax_year=2024", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var kanban struct {
		Columns []service.KanbanColumn `json:"columns"`
	}
	decode(t, w, &kanban)
	require.Len(t, kanban.Columns, 5)
	require.Len(t, kanban.Columns[0].Cards, 1)
	require.NotNil(t, kanban.Columns[0].Cards[0].DaysUntilDue)
	assert.Equal(t, 60, *kanban.Columns[0].Cards[0].DaysUntilDue)
}

func TestIntegration_AdvisorCannotCreateStaff(t *testing.T) {
	server := setupIntegrationTest(t)

	w := server.request(t, http.MethodPost, "/api/v1/users", map[string]string{
		"email":    "advisor@example.com",
		"password": "password123",
		"name":     "Advisor",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = server.request(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "advisor@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	decode(t, w, &login)
	server.token = login.Tokens.AccessToken

	w = server.request(t, http.MethodPost, "/api/v1/users", map[string]string{
		"email":    "other@example.com",
		"password": "password123",
		"name":     "Other",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
