package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/logger"
)

type errorMapping struct {
	err     error
	status  int
	code    dto.ErrorCode
	message string
}

// errorMappings is checked in order, so specific sentinels come before the
// generic ones they might wrap.
var errorMappings = []errorMapping{
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Token revoked"},
	{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is disabled"},

	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrOutOfScope, http.StatusForbidden, dto.ErrorCodeForbidden, "Resource belongs to another institution"},

	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrInvalidEmail, http.StatusBadRequest, dto.ErrorCodeInvalidEmail, "Invalid email"},
	{apperrors.ErrInvalidPassword, http.StatusBadRequest, dto.ErrorCodeInvalidPassword, "Invalid password"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
	{apperrors.ErrUnsupportedReportFormat, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Unsupported report format"},
	{apperrors.ErrUnsupportedImportFormat, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Unsupported import file format"},
	{apperrors.ErrReportOutsideInternship, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Report month is outside the internship period"},
	{apperrors.ErrFileTooLarge, http.StatusRequestEntityTooLarge, dto.ErrorCodeBadRequest, "Uploaded file is too large"},

	{apperrors.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Invalid status transition"},
	{apperrors.ErrEscalationLimitReached, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Grievance is already at the highest level"},
	{apperrors.ErrApplicationNotApproved, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Internship application is not approved"},
	{apperrors.ErrActiveInternshipExists, http.StatusConflict, dto.ErrorCodeConflict, "Student already has an approved internship"},
	{apperrors.ErrMentorAtCapacity, http.StatusConflict, dto.ErrorCodeConflict, "Mentor is at capacity"},
	{apperrors.ErrNoMentorsAvailable, http.StatusConflict, dto.ErrorCodeConflict, "No active mentors available"},
	{apperrors.ErrDocumentAlreadyVerified, http.StatusConflict, dto.ErrorCodeConflict, "Document has already been verified"},
	{apperrors.ErrReportNotReady, http.StatusConflict, dto.ErrorCodeConflict, "Report is not ready"},
	{apperrors.ErrHasDependents, http.StatusConflict, dto.ErrorCodeConflict, "Resource has dependent records"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},

	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrRollNumberAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Roll number already exists"},
	{apperrors.ErrInstitutionAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Institution code already exists"},
	{apperrors.ErrBranchAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Branch code already exists"},
	{apperrors.ErrBatchAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Batch already exists"},
	{apperrors.ErrMonthlyReportExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "A report for this month already exists"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},

	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrInstitutionNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Institution not found"},
	{apperrors.ErrBranchNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Branch not found"},
	{apperrors.ErrBatchNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Batch not found"},
	{apperrors.ErrStudentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Student not found"},
	{apperrors.ErrStaffNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Staff member not found"},
	{apperrors.ErrMentorNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Mentor not found"},
	{apperrors.ErrAssignmentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Mentor assignment not found"},
	{apperrors.ErrApplicationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Internship application not found"},
	{apperrors.ErrMonthlyReportNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Monthly report not found"},
	{apperrors.ErrGrievanceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Grievance not found"},
	{apperrors.ErrDocumentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Document not found"},
	{apperrors.ErrNotificationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Notification not found"},
	{apperrors.ErrAuditLogNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Audit log not found"},
	{apperrors.ErrJobNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Job not found"},
	{apperrors.ErrReportNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Report not found"},
	{apperrors.ErrReportTemplateNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Report template not found"},
	{apperrors.ErrStorageObjectNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "File not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorDetailFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Unhandled error")
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}

// ErrorDetailFor maps err to an HTTP status and error body
func ErrorDetailFor(err error) (int, *dto.ErrorDetail) {
	var custom *apperrors.CustomError
	hasCustom := errors.As(err, &custom)

	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		message := m.message
		if hasCustom && custom.Message != "" {
			message = custom.Message
		}
		detail := dto.NewErrorDetail(m.code, message)
		if hasCustom && len(custom.Details) > 0 {
			detail = detail.WithDetails(custom.Details)
		}
		return m.status, detail
	}

	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
}
