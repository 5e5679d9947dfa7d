package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/services"
	"github.com/placeintern/backend/internal/middleware"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// AuditController exposes the audit trail
type AuditController struct {
	auditService *services.AuditService
}

// NewAuditController creates a new AuditController
func NewAuditController(auditService *services.AuditService) *AuditController {
	return &AuditController{auditService: auditService}
}

// parseTimeQuery accepts either a date or an RFC 3339 timestamp. A bare "to" date covers the whole day.
func parseTimeQuery(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// ListAuditLogs lists audit entries
// @Summary List audit logs
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param userId query int false "Acting user"
// @Param action query string false "Action" Enums(CREATE, UPDATE, DELETE, LOGIN, LOGOUT, REPORT_GENERATE, GRIEVANCE_ESCALATE)
// @Param entityType query string false "Entity type"
// @Param from query string false "From date (YYYY-MM-DD or RFC 3339)"
// @Param to query string false "To date (YYYY-MM-DD or RFC 3339)"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.AuditLog}} "Audit logs"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /system-admin/audit-logs [get]
// @Router /state/audit-logs [get]
func (c *AuditController) ListAuditLogs(ctx *gin.Context) {
	filter := models.AuditLogFilter{
		Action:     ctx.Query("action"),
		EntityType: ctx.Query("entityType"),
	}
	userID, ok := optionalInt64Query(ctx, "userId")
	if !ok {
		return
	}
	filter.UserID = userID

	from, err := parseTimeQuery(ctx.Query("from"), false)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid from date")))
		return
	}
	to, err := parseTimeQuery(ctx.Query("to"), true)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid to date")))
		return
	}
	filter.From, filter.To = from, to

	page, size := helpers.ParsePaginationParams(ctx)
	logs, total, err := c.auditService.List(ctx, filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, logs, total, page, size)
}
