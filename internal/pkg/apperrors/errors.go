package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")
	ErrHasDependents         = errors.New("resource has dependent records")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account is disabled")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")
	ErrOutOfScope       = errors.New("resource belongs to another institution")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrBadRequest       = errors.New("bad request")

	// State machine errors
	ErrInvalidTransition = errors.New("invalid status transition")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Institution errors
var (
	ErrInstitutionNotFound      = errors.New("institution not found")
	ErrInstitutionAlreadyExists = errors.New("institution with this code already exists")
	ErrBranchNotFound           = errors.New("branch not found")
	ErrBranchAlreadyExists      = errors.New("branch with this code already exists")
	ErrBatchNotFound            = errors.New("batch not found")
	ErrBatchAlreadyExists       = errors.New("batch with this name already exists")
)

// Student and staff errors
var (
	ErrStudentNotFound         = errors.New("student not found")
	ErrRollNumberAlreadyExists = errors.New("roll number already exists in this institution")
	ErrStaffNotFound           = errors.New("staff member not found")
	ErrMentorNotFound          = errors.New("mentor not found")
	ErrMentorAtCapacity        = errors.New("mentor has reached the maximum number of mentees")
	ErrNoMentorsAvailable      = errors.New("no active mentors available")
	ErrAssignmentNotFound      = errors.New("mentor assignment not found")
)

// Internship errors
var (
	ErrApplicationNotFound     = errors.New("internship application not found")
	ErrActiveInternshipExists  = errors.New("student already has an approved internship")
	ErrMonthlyReportNotFound   = errors.New("monthly report not found")
	ErrMonthlyReportExists     = errors.New("a report for this month already exists")
	ErrReportOutsideInternship = errors.New("report month is outside the internship period")
	ErrApplicationNotApproved  = errors.New("internship application is not approved")
	ErrGrievanceNotFound       = errors.New("grievance not found")
	ErrEscalationLimitReached  = errors.New("grievance is already at the highest escalation level")
	ErrDocumentNotFound        = errors.New("document not found")
	ErrDocumentAlreadyVerified = errors.New("document has already been verified")
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrAuditLogNotFound        = errors.New("audit log not found")
	ErrJobNotFound             = errors.New("job not found")
	ErrReportNotFound          = errors.New("generated report not found")
	ErrReportNotReady          = errors.New("report is not ready for download")
	ErrReportTemplateNotFound  = errors.New("report template not found")
	ErrUnsupportedReportFormat = errors.New("unsupported report format")
	ErrUnsupportedImportFormat = errors.New("unsupported import file format")
	ErrFileTooLarge            = errors.New("uploaded file is too large")
	ErrStorageObjectNotFound   = errors.New("stored object not found")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError wraps ErrValidationFailed with field level details
func NewValidationError(message string, details map[string]interface{}) error {
	return (&CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}).WithDetails(details)
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
