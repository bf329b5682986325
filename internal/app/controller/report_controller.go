package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/service"
	apperrors "github.com/ikkim/annualreport-backend/internal/errors"
	"github.com/ikkim/annualreport-backend/internal/middleware"
)

type ReportController struct {
	reportService service.ReportService
}

func NewReportController(reportService service.ReportService) *ReportController {
	return &ReportController{reportService: reportService}
}

type CreateReportRequest struct {
	ClientID           uint               `json:"client_id" binding:"required"`
	TaxYear            int                `json:"tax_year" binding:"required"`
	ClientType         model.ClientType   `json:"client_type" binding:"required"`
	DeadlineType       model.DeadlineType `json:"deadline_type"`
	FilingDeadline     *string            `json:"filing_deadline"` // YYYY-MM-DD
	CustomDeadlineNote string             `json:"custom_deadline_note"`
	Notes              string             `json:"notes"`
	AssignedTo         *uint              `json:"assigned_to"`
	model.DisclosureFlags
}

type UpdateReportRequest struct {
	Notes              *string             `json:"notes"`
	AssignedTo         *uint               `json:"assigned_to"`
	Unassign           bool                `json:"unassign"`
	DeadlineType       *model.DeadlineType `json:"deadline_type"`
	FilingDeadline     *string             `json:"filing_deadline"`
	ClearDeadline      bool                `json:"clear_deadline"`
	CustomDeadlineNote *string             `json:"custom_deadline_note"`
}

// CreateReport opens the report for a client and tax year
// POST /api/v1/reports
func (ctrl *ReportController) CreateReport(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create report request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "client_id, tax_year and client_type are required")
		return
	}

	deadline, err := parseDate(req.FilingDeadline)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "filing_deadline must be YYYY-MM-DD")
		return
	}

	report, err := ctrl.reportService.CreateReport(service.CreateReportInput{
		ClientID:           req.ClientID,
		TaxYear:            req.TaxYear,
		ClientType:         req.ClientType,
		DeadlineType:       req.DeadlineType,
		FilingDeadline:     deadline,
		CustomDeadlineNote: req.CustomDeadlineNote,
		Flags:              req.DisclosureFlags,
		Notes:              req.Notes,
		AssignedTo:         req.AssignedTo,
	}, actor)
	if err != nil {
		respondServiceError(c, log, err, "create report")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// ListReports GET /api/v1/reports?tax_year=&status=&stage=&assigned_to=&page=&page_size=
func (ctrl *ReportController) ListReports(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	input := service.ListReportsInput{
		Status:   model.ReportStatus(c.Query("status")),
		Stage:    model.ReportStage(c.Query("stage")),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	if year := queryInt(c, "tax_year"); year > 0 {
		input.TaxYear = &year
	}
	if assignee := queryInt(c, "assigned_to"); assignee > 0 {
		id := uint(assignee)
		input.AssignedTo = &id
	}

	page, err := ctrl.reportService.ListReports(input)
	if err != nil {
		respondServiceError(c, log, err, "list reports")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetReport GET /api/v1/reports/:id
func (ctrl *ReportController) GetReport(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := ctrl.reportService.GetReport(id)
	if err != nil {
		respondServiceError(c, log, err, "get report")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":           report,
		"allowed_statuses": model.NextStatuses(report.Status),
	})
}

// UpdateReport edits notes, assignee and deadline
// PATCH /api/v1/reports/:id
func (ctrl *ReportController) UpdateReport(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid report update")
		return
	}
	deadline, err := parseDate(req.FilingDeadline)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "filing_deadline must be YYYY-MM-DD")
		return
	}

	report, err := ctrl.reportService.UpdateReport(id, service.UpdateReportInput{
		Notes:              req.Notes,
		AssignedTo:         req.AssignedTo,
		Unassign:           req.Unassign,
		DeadlineType:       req.DeadlineType,
		FilingDeadline:     deadline,
		ClearDeadline:      req.ClearDeadline,
		CustomDeadlineNote: req.CustomDeadlineNote,
	}, actor)
	if err != nil {
		respondServiceError(c, log, err, "update report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
