package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/service"
	apperrors "github.com/ikkim/annualreport-backend/internal/errors"
	"github.com/ikkim/annualreport-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

type WorkflowController struct {
	workflowService service.WorkflowService
}

func NewWorkflowController(workflowService service.WorkflowService) *WorkflowController {
	return &WorkflowController{workflowService: workflowService}
}

// TransitionStatusRequest carries the target status and any outcome fields.
// Fields the target does not use are ignored.
type TransitionStatusRequest struct {
	Status           model.ReportStatus  `json:"status" binding:"required"`
	ExpectedStatus   *model.ReportStatus `json:"expected_status"`
	Note             string              `json:"note"`
	SubmittedAt      *time.Time          `json:"submitted_at"`
	ITAReference     *string             `json:"ita_reference"`
	AssessmentAmount decimal.NullDecimal `json:"assessment_amount"`
	RefundDue        decimal.NullDecimal `json:"refund_due"`
	TaxDue           decimal.NullDecimal `json:"tax_due"`
}

type TransitionStageRequest struct {
	Direction model.StageDirection `json:"direction" binding:"required"`
}

// TransitionStatus POST /api/v1/reports/:id/status
func (ctrl *WorkflowController) TransitionStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid status transition request", map[string]interface{}{
			"report_id": id,
			"error":     err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "status is required")
		return
	}

	report, err := ctrl.workflowService.TransitionStatus(id, service.TransitionInput{
		Target:           req.Status,
		ExpectedStatus:   req.ExpectedStatus,
		Note:             req.Note,
		SubmittedAt:      req.SubmittedAt,
		ITAReference:     req.ITAReference,
		AssessmentAmount: req.AssessmentAmount,
		RefundDue:        req.RefundDue,
		TaxDue:           req.TaxDue,
	}, actor)
	if err != nil {
		respondServiceError(c, log, err, "transition status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":           report,
		"allowed_statuses": model.NextStatuses(report.Status),
	})
}

// TransitionStage POST /api/v1/reports/:id/stage
func (ctrl *WorkflowController) TransitionStage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req TransitionStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "direction must be forward or back")
		return
	}

	report, err := ctrl.workflowService.TransitionStage(id, req.Direction, actor)
	if err != nil {
		respondServiceError(c, log, err, "transition stage")
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ListSchedules GET /api/v1/reports/:id/schedules
func (ctrl *WorkflowController) ListSchedules(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	checklist, err := ctrl.workflowService.ListSchedules(id)
	if err != nil {
		respondServiceError(c, log, err, "list schedules")
		return
	}
	c.JSON(http.StatusOK, checklist)
}

// CompleteSchedule POST /api/v1/reports/:id/schedules/:key/complete
func (ctrl *WorkflowController) CompleteSchedule(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := ctrl.workflowService.CompleteSchedule(id, model.ScheduleKey(c.Param("key")), actor)
	if err != nil {
		respondServiceError(c, log, err, "complete schedule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": entry})
}

// GetHistory GET /api/v1/reports/:id/history
func (ctrl *WorkflowController) GetHistory(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	history, err := ctrl.workflowService.GetHistory(id)
	if err != nil {
		respondServiceError(c, log, err, "get report history")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}

// GetStageHistory GET /api/v1/reports/:id/stage-history
func (ctrl *WorkflowController) GetStageHistory(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	changes, err := ctrl.workflowService.GetStageHistory(id)
	if err != nil {
		respondServiceError(c, log, err, "get stage history")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stage_history": changes,
		"count":         len(changes),
	})
}
