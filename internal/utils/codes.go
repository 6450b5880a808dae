package contextutils

// ErrorCode is the stable machine-readable code returned in API error bodies
type ErrorCode string

const (
	ErrorCodeDatabaseConnection  ErrorCode = "DATABASE_CONNECTION_ERROR"
	ErrorCodeDatabaseQuery       ErrorCode = "DATABASE_QUERY_ERROR"
	ErrorCodeDatabaseTransaction ErrorCode = "DATABASE_TRANSACTION_ERROR"
	ErrorCodeRecordNotFound      ErrorCode = "RECORD_NOT_FOUND"
	ErrorCodeRecordExists        ErrorCode = "RECORD_ALREADY_EXISTS"

	ErrorCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrorCodeMissingRequired  ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrorCodeInvalidFormat    ErrorCode = "INVALID_FORMAT"
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrorCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrorCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"

	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout            ErrorCode = "REQUEST_TIMEOUT"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrorCodeConflict           ErrorCode = "CONFLICT"

	// ErrorCodeInvalidTransition is returned when the report lifecycle forbids the change
	ErrorCodeInvalidTransition ErrorCode = "INVALID_STATE_TRANSITION"
	// ErrorCodeStorage covers upload writes and image processing
	ErrorCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrorCodeDelivery is an email transport failure
	ErrorCodeDelivery ErrorCode = "DELIVERY_ERROR"
	// ErrorCodeDeliverySkipped means nothing was sent: email is off or the recipient has no address
	ErrorCodeDeliverySkipped ErrorCode = "DELIVERY_SKIPPED"
	// ErrorCodeDocumentRender means neither PDF path produced a document
	ErrorCodeDocumentRender ErrorCode = "DOCUMENT_RENDER_FAILED"
)

// SeverityLevel drives the log level and span severity of an error
type SeverityLevel string

const (
	SeverityInfo  SeverityLevel = "info"
	SeverityWarn  SeverityLevel = "warn"
	SeverityError SeverityLevel = "error"
	SeverityFatal SeverityLevel = "fatal"
)

func sentinel(code ErrorCode, severity SeverityLevel, message string) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message}
}

// Sentinels for errors.Is checks. Matching compares codes only.
var (
	ErrDatabaseConnection = sentinel(ErrorCodeDatabaseConnection, SeverityError, "Database connection failed")
	ErrDatabaseQuery      = sentinel(ErrorCodeDatabaseQuery, SeverityError, "Database query failed")
	ErrRecordNotFound     = sentinel(ErrorCodeRecordNotFound, SeverityInfo, "Record not found")
	ErrRecordExists       = sentinel(ErrorCodeRecordExists, SeverityInfo, "Record already exists")

	ErrInvalidInput     = sentinel(ErrorCodeInvalidInput, SeverityWarn, "Invalid input")
	ErrMissingRequired  = sentinel(ErrorCodeMissingRequired, SeverityWarn, "Missing required field")
	ErrInvalidFormat    = sentinel(ErrorCodeInvalidFormat, SeverityWarn, "Invalid format")
	ErrValidationFailed = sentinel(ErrorCodeValidationFailed, SeverityWarn, "Validation failed")

	ErrUnauthorized       = sentinel(ErrorCodeUnauthorized, SeverityWarn, "Unauthorized")
	ErrForbidden          = sentinel(ErrorCodeForbidden, SeverityWarn, "Forbidden")
	ErrInvalidCredentials = sentinel(ErrorCodeInvalidCredentials, SeverityWarn, "Invalid credentials")

	ErrServiceUnavailable = sentinel(ErrorCodeServiceUnavailable, SeverityError, "Service unavailable")
	ErrInternalError      = sentinel(ErrorCodeInternalError, SeverityError, "Internal server error")
	ErrConflict           = sentinel(ErrorCodeConflict, SeverityWarn, "Operation conflicts with current state")

	ErrInvalidTransition = sentinel(ErrorCodeInvalidTransition, SeverityWarn, "Report status does not allow this operation")
	ErrStorage           = sentinel(ErrorCodeStorage, SeverityError, "File storage failed")
	ErrDelivery          = sentinel(ErrorCodeDelivery, SeverityWarn, "Notification delivery failed")
	ErrDeliverySkipped   = sentinel(ErrorCodeDeliverySkipped, SeverityInfo, "Notification not sent")
	ErrDocumentRender    = sentinel(ErrorCodeDocumentRender, SeverityError, "Document could not be produced")
)
