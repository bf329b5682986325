package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/annualreport-backend/internal/app/model"
)

var (
	ErrReportNotFound         = errors.New("report not found")
	ErrReportAlreadyExists    = errors.New("report already exists for this client and tax year")
	ErrInvalidReportInput     = errors.New("invalid report input")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrReportClosed           = errors.New("report is closed")
	ErrMissingRequiredField   = errors.New("missing required field")
	ErrScheduleNotFound       = errors.New("schedule not found")
	ErrStageBoundary          = errors.New("stage boundary reached")
	ErrAggregationUnavailable = errors.New("season aggregation unavailable")
	ErrClientNotFound         = errors.New("client not found")
	ErrClientAlreadyExists    = errors.New("client with this tax id already exists")
)

// TransitionError describes a rejected status change and the statuses that
// would have been accepted from the report's current state.
type TransitionError struct {
	From    model.ReportStatus
	To      model.ReportStatus
	Allowed []model.ReportStatus
	Stale   bool // the caller's view of the report was out of date
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	list := strings.Join(allowed, ", ")
	if list == "" {
		list = "none"
	}
	if e.Stale {
		return fmt.Sprintf("report status is now %s; allowed next statuses: %s", e.From, list)
	}
	return fmt.Sprintf("cannot move report from %s to %s; allowed next statuses: %s", e.From, e.To, list)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func newTransitionError(from, to model.ReportStatus, stale bool) *TransitionError {
	return &TransitionError{From: from, To: to, Allowed: model.NextStatuses(from), Stale: stale}
}

// MissingFieldError lists the fields a destination status (or the deadline
// rule, when Status is empty) needs but did not get.
type MissingFieldError struct {
	Status model.ReportStatus
	Fields []string
}

func (e *MissingFieldError) Error() string {
	fields := strings.Join(e.Fields, ", ")
	if e.Status == "" {
		return fmt.Sprintf("missing required field: %s", fields)
	}
	return fmt.Sprintf("status %s requires %s", e.Status, fields)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingRequiredField
}

// StageBoundaryError is returned when a stage move would leave the board.
type StageBoundaryError struct {
	Stage     model.ReportStage
	Direction model.StageDirection
}

func (e *StageBoundaryError) Error() string {
	if e.Direction == model.DirectionBack {
		return fmt.Sprintf("report is already at the first stage (%s)", e.Stage)
	}
	return fmt.Sprintf("report is already at the last stage (%s)", e.Stage)
}

func (e *StageBoundaryError) Unwrap() error {
	return ErrStageBoundary
}
