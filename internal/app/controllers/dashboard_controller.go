package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/services"
	"github.com/placeintern/backend/internal/middleware"
)

// DashboardController serves the role dashboards
type DashboardController struct {
	dashboardService *services.DashboardService
}

// NewDashboardController creates a new DashboardController
func NewDashboardController(dashboardService *services.DashboardService) *DashboardController {
	return &DashboardController{dashboardService: dashboardService}
}

// Principal returns the institution dashboard
// @Summary Principal dashboard
// @Tags dashboards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=repositories.InstitutionCounts} "Institution counts"
// @Router /principal/dashboard [get]
func (c *DashboardController) Principal(ctx *gin.Context) {
	counts, err := c.dashboardService.Principal(ctx, middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(counts, ""))
}

// Faculty returns the mentor dashboard
// @Summary Faculty dashboard
// @Tags dashboards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=repositories.FacultyCounts} "Mentor workload"
// @Router /faculty/dashboard [get]
func (c *DashboardController) Faculty(ctx *gin.Context) {
	counts, err := c.dashboardService.Faculty(ctx, middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(counts, ""))
}

// Student returns the student dashboard
// @Summary Student dashboard
// @Tags dashboards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.StudentDashboard} "Internship progress"
// @Router /student/dashboard [get]
func (c *DashboardController) Student(ctx *gin.Context) {
	dash, err := c.dashboardService.Student(ctx, middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dash, ""))
}

// StateOverview returns counts for every active institution
// @Summary State overview
// @Tags dashboards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.StateOverviewResponse{institutions=[]repositories.InstitutionCounts}} "Overview"
// @Router /state/overview [get]
func (c *DashboardController) StateOverview(ctx *gin.Context) {
	rows, totals, err := c.dashboardService.StateOverview(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.StateOverviewResponse{Institutions: rows, Totals: totals}, ""))
}

// Institution returns the detailed counts of one institution
// @Summary Institution drill-down
// @Tags dashboards
// @Produce json
// @Security BearerAuth
// @Param id path int true "Institution ID"
// @Success 200 {object} dto.APIResponse{data=repositories.InstitutionCounts} "Institution counts"
// @Failure 404 {object} dto.ErrorResponse "Institution not found"
// @Router /state/institutions/{id} [get]
func (c *DashboardController) Institution(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	counts, err := c.dashboardService.Institution(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(counts, ""))
}
