package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportController_CreateReport_Success(t *testing.T) {
	f := setupAPITest(t)

	w := f.do(t, http.MethodPost, "/reports", gin.H{
		"client_id":         f.clientID,
		"tax_year":          2024,
		"client_type":       "individual",
		"has_rental_income": true,
		"has_capital_gains": true,
		"notes":             "first year with us",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	report := decodeBody(t, w)["report"].(map[string]interface{})
	assert.Equal(t, "not_started", report["status"])
	assert.Equal(t, "material_collection", report["stage"])
	assert.Equal(t, "1301", report["form_type"])
	assert.Contains(t, report["filing_deadline"], "2025-04-30")
	assert.Len(t, report["schedules"], 2)
	assert.Equal(t, float64(f.staff.ID), report["created_by"])
}

func TestReportController_CreateReport_Rejections(t *testing.T) {
	f := setupAPITest(t)
	f.createReport(t)

	tests := []struct {
		name       string
		body       gin.H
		wantStatus int
		wantCode   string
	}{
		{
			name:       "duplicate client and year",
			body:       gin.H{"client_id": f.clientID, "tax_year": 2024, "client_type": "individual"},
			wantStatus: http.StatusConflict,
			wantCode:   "REPORT_ALREADY_EXISTS",
		},
		{
			name:       "missing client type",
			body:       gin.H{"client_id": f.clientID, "tax_year": 2023},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_INPUT",
		},
		{
			name:       "malformed deadline",
			body:       gin.H{"client_id": f.clientID, "tax_year": 2023, "client_type": "individual", "filing_deadline": "30/04/2024"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_INPUT",
		},
		{
			name:       "unknown client",
			body:       gin.H{"client_id": 9999, "tax_year": 2023, "client_type": "individual"},
			wantStatus: http.StatusNotFound,
			wantCode:   "CLIENT_NOT_FOUND",
		},
		{
			name:       "custom deadline without note",
			body:       gin.H{"client_id": f.clientID, "tax_year": 2023, "client_type": "individual", "deadline_type": "custom"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "REPORT_MISSING_FIELD",
		},
		{
			name:       "unknown client type",
			body:       gin.H{"client_id": f.clientID, "tax_year": 2023, "client_type": "trust"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/reports", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeBody(t, w)["error"])
		})
	}
}

func TestReportController_GetReport(t *testing.T) {
	f := setupAPITest(t)
	id := f.createReport(t)

	w := f.do(t, http.MethodGet, fmt.Sprintf("/reports/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, []interface{}{"collecting_docs"}, body["allowed_statuses"])

	w = f.do(t, http.MethodGet, "/reports/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_INVALID_ID", decodeBody(t, w)["error"])

	w = f.do(t, http.MethodGet, "/reports/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "REPORT_NOT_FOUND", decodeBody(t, w)["error"])
}

func TestReportController_ListReports(t *testing.T) {
	f := setupAPITest(t)
	id := f.createReport(t)

	other := &model.Client{Name: "Acme Ltd", TaxID: "510000001"}
	require.NoError(t, f.db.Create(other).Error)
	w := f.do(t, http.MethodPost, "/reports", gin.H{"client_id": other.ID, "tax_year": 2024, "client_type": "corporation"})
	require.Equal(t, http.StatusCreated, w.Code)
	f.setStatus(t, id, model.StatusCollectingDocs)

	w = f.do(t, http.MethodGet, "/reports?tax_year=2024&status=collecting_docs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["total"])

	w = f.do(t, http.MethodGet, "/reports?tax_year=2024", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["total"])

	w = f.do(t, http.MethodGet, "/reports?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportController_UpdateReport(t *testing.T) {
	f := setupAPITest(t)
	id := f.createReport(t)
	path := fmt.Sprintf("/reports/%d", id)

	w := f.do(t, http.MethodPatch, path, gin.H{
		"notes":          "waiting on form 106",
		"deadline_type":  "extended",
		"assigned_to":    f.staff.ID,
		"ignored_by_api": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decodeBody(t, w)["report"].(map[string]interface{})
	assert.Equal(t, "waiting on form 106", report["notes"])
	assert.Equal(t, "extended", report["deadline_type"])
	assert.Contains(t, report["filing_deadline"], "2025-09-30")

	f.setStatus(t, id, model.StatusClosed)
	w = f.do(t, http.MethodPatch, path, gin.H{"notes": "too late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "REPORT_CLOSED", decodeBody(t, w)["error"])
}
