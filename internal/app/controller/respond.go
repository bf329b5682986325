package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/app/service"
	apperrors "github.com/ikkim/annualreport-backend/internal/errors"
	"github.com/ikkim/annualreport-backend/internal/middleware"
	"github.com/ikkim/annualreport-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

// respondServiceError maps workflow errors onto HTTP responses. Anything it
// does not recognise is classified by apperrors.ParseError as a 500.
func respondServiceError(c *gin.Context, log *logger.Logger, err error, context string) {
	var (
		transitionErr *service.TransitionError
		missingErr    *service.MissingFieldError
		boundaryErr   *service.StageBoundaryError
	)

	switch {
	case errors.Is(err, service.ErrReportClosed):
		apperrors.Conflict(c, apperrors.ReportClosed, "Report is closed and can no longer change")

	case errors.As(err, &transitionErr):
		apperrors.RespondWithDetails(c, http.StatusConflict, apperrors.ReportInvalidTransition, transitionErr.Error(), gin.H{
			"from":    transitionErr.From,
			"to":      transitionErr.To,
			"allowed": transitionErr.Allowed,
			"stale":   transitionErr.Stale,
		})

	case errors.As(err, &missingErr):
		apperrors.RespondWithDetails(c, http.StatusUnprocessableEntity, apperrors.ReportMissingField, missingErr.Error(), gin.H{
			"status": missingErr.Status,
			"fields": missingErr.Fields,
		})

	case errors.As(err, &boundaryErr):
		apperrors.RespondWithDetails(c, http.StatusConflict, apperrors.StageBoundary, boundaryErr.Error(), gin.H{
			"stage":     boundaryErr.Stage,
			"direction": boundaryErr.Direction,
		})

	case errors.Is(err, service.ErrInvalidTransition):
		apperrors.Conflict(c, apperrors.ReportInvalidTransition, err.Error())
	case errors.Is(err, service.ErrReportNotFound):
		apperrors.NotFound(c, apperrors.ReportNotFound, "Report not found")
	case errors.Is(err, service.ErrScheduleNotFound):
		apperrors.NotFound(c, apperrors.ScheduleNotFound, "Schedule is not attached to this report")
	case errors.Is(err, service.ErrClientNotFound):
		apperrors.NotFound(c, apperrors.ClientNotFound, "Client not found")
	case errors.Is(err, service.ErrReportAlreadyExists):
		apperrors.Conflict(c, apperrors.ReportAlreadyExists, "A report for this client and tax year already exists")
	case errors.Is(err, service.ErrClientAlreadyExists):
		apperrors.Conflict(c, apperrors.ClientAlreadyExists, "A client with this tax id already exists")
	case errors.Is(err, service.ErrInvalidReportInput), errors.Is(err, service.ErrInvalidClientInput):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
	case errors.Is(err, service.ErrAggregationUnavailable):
		apperrors.ServiceUnavailable(c, apperrors.AggregationUnavailable, "Season statistics are temporarily unavailable")

	default:
		log.Error("Request failed", err, map[string]interface{}{
			"context": context,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
		return
	}

	log.Warn("Request rejected", map[string]interface{}{
		"context": context,
		"error":   err.Error(),
	})
}

// requireActor reads the authenticated staff member or answers 401.
func requireActor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return model.Actor{}, false
	}
	return actor, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func parseTaxYearParam(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("tax_year"))
	if err != nil || year <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid tax year")
		return 0, false
	}
	return year, true
}

// queryInt returns the integer query parameter, or 0 when absent or malformed.
func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
