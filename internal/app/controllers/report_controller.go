package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/services"
	"github.com/placeintern/backend/internal/middleware"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// ReportController handles the custom report builder
type ReportController struct {
	reportService *services.ReportService
}

// NewReportController creates a new ReportController
func NewReportController(reportService *services.ReportService) *ReportController {
	return &ReportController{reportService: reportService}
}

// Catalog lists report types with their columns and filters
// @Summary Report catalog
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]reportbuilder.ReportType} "Report types"
// @Router /shared/reports/catalog [get]
func (c *ReportController) Catalog(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.reportService.Catalog(), ""))
}

// Request queues a report for generation
// @Summary Generate report
// @Description Validates the request against the caller's scope and queues it. Poll the report or wait for the notification.
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ReportRequest true "Report definition or template"
// @Success 202 {object} dto.APIResponse{data=dto.ReportAccepted} "Report queued"
// @Failure 400 {object} dto.ErrorResponse "Unknown report type, column, filter or format"
// @Failure 403 {object} dto.ErrorResponse "Filter outside the caller's institution"
// @Router /shared/reports [post]
func (c *ReportController) Request(ctx *gin.Context) {
	var req dto.ReportRequest
	if !bindJSON(ctx, &req) {
		return
	}

	accepted, err := c.reportService.Request(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, dto.NewSuccessResponse(accepted, "Report queued"))
}

// List lists the caller's reports
// @Summary List own reports
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.GeneratedReport}} "Reports"
// @Router /shared/reports [get]
func (c *ReportController) List(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	items, total, err := c.reportService.List(ctx, middleware.ActorFrom(ctx), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, total, page, size)
}

// Get returns a report and its generation status
// @Summary Get report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} dto.APIResponse{data=models.GeneratedReport} "Report"
// @Failure 404 {object} dto.ErrorResponse "Report not found"
// @Router /shared/reports/{id} [get]
func (c *ReportController) Get(ctx *gin.Context) {
	report, err := c.reportService.Get(ctx, middleware.ActorFrom(ctx), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report, ""))
}

// Download streams a completed report
// @Summary Download report
// @Tags reports
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {file} file "Report file"
// @Failure 404 {object} dto.ErrorResponse "Report not found"
// @Failure 409 {object} dto.ErrorResponse "Report is not ready"
// @Router /shared/reports/{id}/download [get]
func (c *ReportController) Download(ctx *gin.Context) {
	report, rc, err := c.reportService.Open(ctx, middleware.ActorFrom(ctx), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	fileName := report.ID + "." + string(report.Format)
	if report.FileName != nil {
		fileName = *report.FileName
	}
	streamAttachment(ctx, rc, fileName, report.Format.ContentType(), -1)
}

// CreateTemplate saves a report definition
// @Summary Create report template
// @Tags report-templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ReportTemplateRequest true "Template"
// @Success 201 {object} dto.APIResponse{data=models.ReportTemplate} "Template created"
// @Router /shared/report-templates [post]
func (c *ReportController) CreateTemplate(ctx *gin.Context) {
	var req dto.ReportTemplateRequest
	if !bindJSON(ctx, &req) {
		return
	}

	tpl, err := c.reportService.CreateTemplate(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(tpl, "Template created"))
}

// ListTemplates lists the caller's templates and the public ones
// @Summary List report templates
// @Tags report-templates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.ReportTemplate} "Templates"
// @Router /shared/report-templates [get]
func (c *ReportController) ListTemplates(ctx *gin.Context) {
	items, err := c.reportService.ListTemplates(ctx, middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(items, ""))
}

// GetTemplate returns one template
// @Summary Get report template
// @Tags report-templates
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 200 {object} dto.APIResponse{data=models.ReportTemplate} "Template"
// @Failure 404 {object} dto.ErrorResponse "Template not found"
// @Router /shared/report-templates/{id} [get]
func (c *ReportController) GetTemplate(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	tpl, err := c.reportService.GetTemplate(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(tpl, ""))
}

// UpdateTemplate updates one of the caller's templates
// @Summary Update report template
// @Tags report-templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Param request body dto.ReportTemplateRequest true "Template"
// @Success 200 {object} dto.APIResponse{data=models.ReportTemplate} "Template updated"
// @Failure 403 {object} dto.ErrorResponse "Template belongs to another user"
// @Router /shared/report-templates/{id} [put]
func (c *ReportController) UpdateTemplate(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ReportTemplateRequest
	if !bindJSON(ctx, &req) {
		return
	}

	tpl, err := c.reportService.UpdateTemplate(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(tpl, "Template updated"))
}

// DeleteTemplate removes one of the caller's templates
// @Summary Delete report template
// @Tags report-templates
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 200 {object} dto.APIResponse "Template deleted"
// @Failure 403 {object} dto.ErrorResponse "Template belongs to another user"
// @Router /shared/report-templates/{id} [delete]
func (c *ReportController) DeleteTemplate(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.reportService.DeleteTemplate(ctx, middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Template deleted"))
}
