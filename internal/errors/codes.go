package errors

// Error codes returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to their own messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email or password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Reports (REPORT_) ====================
	ReportNotFound          = "REPORT_NOT_FOUND"
	ReportAlreadyExists     = "REPORT_ALREADY_EXISTS"     // one report per client and tax year
	ReportInvalidTransition = "REPORT_INVALID_TRANSITION" // details carry the allowed statuses
	ReportClosed            = "REPORT_CLOSED"
	ReportMissingField      = "REPORT_MISSING_FIELD" // details carry the missing fields
	ClientNotFound          = "CLIENT_NOT_FOUND"
	ClientAlreadyExists     = "CLIENT_ALREADY_EXISTS"

	// ==================== Workflow (SCHEDULE_, STAGE_) ====================
	ScheduleNotFound = "SCHEDULE_NOT_FOUND"
	StageBoundary    = "STAGE_BOUNDARY"

	// ==================== Season (AGGREGATION_) ====================
	AggregationUnavailable = "AGGREGATION_UNAVAILABLE"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
