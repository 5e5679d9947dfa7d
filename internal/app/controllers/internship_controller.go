package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/services"
	"github.com/placeintern/backend/internal/middleware"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// InternshipController handles internship applications and monthly reports
type InternshipController struct {
	internshipService *services.InternshipService
}

// NewInternshipController creates a new InternshipController
func NewInternshipController(internshipService *services.InternshipService) *InternshipController {
	return &InternshipController{internshipService: internshipService}
}

func invalidStatus(ctx *gin.Context) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid status")))
}

// CreateApplication submits an internship application
// @Summary Apply for an internship
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ApplicationRequest true "Application"
// @Success 201 {object} dto.APIResponse{data=models.InternshipApplication} "Application submitted"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format or dates"
// @Router /student/applications [post]
func (c *InternshipController) CreateApplication(ctx *gin.Context) {
	var req dto.ApplicationRequest
	if !bindJSON(ctx, &req) {
		return
	}

	app, err := c.internshipService.CreateApplication(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(app, "Application submitted"))
}

// ListApplications lists applications within the caller's scope
// @Summary List applications
// @Description Students see their own applications, faculty their mentees' and principals their institution's
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status" Enums(APPLIED, UNDER_REVIEW, APPROVED, REJECTED, WITHDRAWN, COMPLETED)
// @Param studentId query int false "Student"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.InternshipApplication}} "Applications"
// @Router /student/applications [get]
// @Router /faculty/applications [get]
// @Router /principal/applications [get]
func (c *InternshipController) ListApplications(ctx *gin.Context) {
	var filter models.ApplicationFilter
	if raw := ctx.Query("status"); raw != "" {
		status := models.ApplicationStatus(raw)
		if !status.IsValid() {
			invalidStatus(ctx)
			return
		}
		filter.Status = &status
	}
	var ok bool
	if filter.StudentID, ok = optionalInt64Query(ctx, "studentId"); !ok {
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	items, total, err := c.internshipService.ListApplications(ctx, middleware.ActorFrom(ctx), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, total, page, size)
}

// GetApplication returns one application
// @Summary Get application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.InternshipApplication} "Application"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /student/applications/{id} [get]
func (c *InternshipController) GetApplication(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	app, err := c.internshipService.GetApplication(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, ""))
}

// UpdateApplication edits an application that has not been reviewed yet
// @Summary Update application
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body dto.ApplicationRequest true "Application"
// @Success 200 {object} dto.APIResponse{data=models.InternshipApplication} "Application updated"
// @Failure 409 {object} dto.ErrorResponse "Application is already under review"
// @Router /student/applications/{id} [put]
func (c *InternshipController) UpdateApplication(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ApplicationRequest
	if !bindJSON(ctx, &req) {
		return
	}

	app, err := c.internshipService.UpdateApplication(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, "Application updated"))
}

// WithdrawApplication withdraws an application
// @Summary Withdraw application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.InternshipApplication} "Application withdrawn"
// @Failure 409 {object} dto.ErrorResponse "Application can no longer be withdrawn"
// @Router /student/applications/{id}/withdraw [post]
func (c *InternshipController) WithdrawApplication(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	app, err := c.internshipService.WithdrawApplication(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, "Application withdrawn"))
}

// ReviewApplication moves an application through review
// @Summary Review application
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body dto.ReviewRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=models.InternshipApplication} "Application reviewed"
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition or student already has an approved internship"
// @Router /faculty/applications/{id}/review [put]
// @Router /principal/applications/{id}/review [put]
func (c *InternshipController) ReviewApplication(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !bindJSON(ctx, &req) {
		return
	}

	app, err := c.internshipService.ReviewApplication(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, "Application reviewed"))
}

// SubmitReport submits a monthly report for an approved internship
// @Summary Submit monthly report
// @Tags monthly-reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.MonthlyReportRequest true "Report"
// @Success 201 {object} dto.APIResponse{data=models.MonthlyReport} "Report submitted"
// @Failure 400 {object} dto.ErrorResponse "Month lies outside the internship"
// @Failure 409 {object} dto.ErrorResponse "Report for this month already exists"
// @Router /student/monthly-reports [post]
func (c *InternshipController) SubmitReport(ctx *gin.Context) {
	var req dto.MonthlyReportRequest
	if !bindJSON(ctx, &req) {
		return
	}

	report, err := c.internshipService.SubmitReport(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(report, "Report submitted"))
}

// ResubmitReport resubmits a rejected monthly report
// @Summary Resubmit monthly report
// @Tags monthly-reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param request body dto.ResubmitReportRequest true "Report"
// @Success 200 {object} dto.APIResponse{data=models.MonthlyReport} "Report resubmitted"
// @Failure 409 {object} dto.ErrorResponse "Report was not rejected"
// @Router /student/monthly-reports/{id}/resubmit [put]
func (c *InternshipController) ResubmitReport(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ResubmitReportRequest
	if !bindJSON(ctx, &req) {
		return
	}

	report, err := c.internshipService.ResubmitReport(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report, "Report resubmitted"))
}

// ListReports lists monthly reports within the caller's scope
// @Summary List monthly reports
// @Tags monthly-reports
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status" Enums(SUBMITTED, APPROVED, REJECTED)
// @Param studentId query int false "Student"
// @Param applicationId query int false "Application"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.MonthlyReport}} "Reports"
// @Router /student/monthly-reports [get]
// @Router /faculty/monthly-reports [get]
// @Router /principal/monthly-reports [get]
func (c *InternshipController) ListReports(ctx *gin.Context) {
	var filter models.MonthlyReportFilter
	if raw := ctx.Query("status"); raw != "" {
		status := models.ReportStatus(raw)
		switch status {
		case models.ReportSubmitted, models.ReportApproved, models.ReportRejected:
		default:
			invalidStatus(ctx)
			return
		}
		filter.Status = &status
	}
	var ok bool
	if filter.StudentID, ok = optionalInt64Query(ctx, "studentId"); !ok {
		return
	}
	if filter.ApplicationID, ok = optionalInt64Query(ctx, "applicationId"); !ok {
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	items, total, err := c.internshipService.ListReports(ctx, middleware.ActorFrom(ctx), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, total, page, size)
}

// GetReport returns one monthly report
// @Summary Get monthly report
// @Tags monthly-reports
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Success 200 {object} dto.APIResponse{data=models.MonthlyReport} "Report"
// @Failure 404 {object} dto.ErrorResponse "Report not found"
// @Router /student/monthly-reports/{id} [get]
func (c *InternshipController) GetReport(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	report, err := c.internshipService.GetReport(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report, ""))
}

// ReviewReport approves or rejects a monthly report
// @Summary Review monthly report
// @Tags monthly-reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param request body dto.ReportReviewRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=models.MonthlyReport} "Report reviewed"
// @Failure 400 {object} dto.ErrorResponse "Remarks are required when rejecting"
// @Failure 409 {object} dto.ErrorResponse "Report is not awaiting review"
// @Router /faculty/monthly-reports/{id}/review [put]
// @Router /principal/monthly-reports/{id}/review [put]
func (c *InternshipController) ReviewReport(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ReportReviewRequest
	if !bindJSON(ctx, &req) {
		return
	}

	report, err := c.internshipService.ReviewReport(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report, "Report reviewed"))
}
