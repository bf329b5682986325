package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a classified error ready for the response body.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns raw storage errors into a code and a message safe to show.
// context names the operation, e.g. "create report".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// Unique constraint violation (23505)
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower)
	}

	// Foreign key constraint violation (23503)
	if errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(errStrLower, "foreign key constraint") {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: "Referenced record does not exist",
		}
	}

	// Not null (23502) and check (23514) violations
	if strings.Contains(errStrLower, "violates not-null constraint") || strings.Contains(errStrLower, "not null constraint failed") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}
	if errors.Is(err, gorm.ErrCheckConstraintViolated) || strings.Contains(errStrLower, "check constraint") {
		return ErrorInfo{Code: ValidationInvalidInput, Message: "Input is not valid"}
	}

	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalDatabaseError,
			Message: "Storage is unavailable. Please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "idx_annual_reports_client_year") ||
		strings.Contains(errLower, "annual_reports.client_id"):
		return ErrorInfo{Code: ReportAlreadyExists, Message: "A report for this client and tax year already exists"}
	case strings.Contains(errLower, "tax_id"):
		return ErrorInfo{Code: ClientAlreadyExists, Message: "A client with this tax id already exists"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "Email is already in use"}
	}
	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "Record already exists",
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "schedule"):
		return "Schedule not found"
	case strings.Contains(contextLower, "report"):
		return "Report not found"
	case strings.Contains(contextLower, "client"):
		return "Client not found"
	case strings.Contains(contextLower, "user"):
		return "User not found"
	}
	return "Requested record not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"):
		return "Failed to create. Please try again later"
	case strings.Contains(contextLower, "update"), strings.Contains(contextLower, "transition"):
		return "Failed to update. Please try again later"
	case strings.Contains(contextLower, "export"):
		return "Failed to build the export. Please try again later"
	}
	return "Something went wrong. Please try again later"
}

// ParseAndRespond classifies err and writes it with the given status.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
