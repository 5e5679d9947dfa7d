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

// GrievanceController handles grievance filing and the escalation workflow
type GrievanceController struct {
	grievanceService *services.GrievanceService
}

// NewGrievanceController creates a new GrievanceController
func NewGrievanceController(grievanceService *services.GrievanceService) *GrievanceController {
	return &GrievanceController{grievanceService: grievanceService}
}

// File files a grievance with the student's mentor
// @Summary File grievance
// @Description The grievance starts at faculty level with the student's active mentor
// @Tags grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.GrievanceRequest true "Grievance"
// @Success 201 {object} dto.APIResponse{data=models.Grievance} "Grievance filed"
// @Failure 409 {object} dto.ErrorResponse "Student has no mentor"
// @Router /student/grievances [post]
func (c *GrievanceController) File(ctx *gin.Context) {
	var req dto.GrievanceRequest
	if !bindJSON(ctx, &req) {
		return
	}

	g, err := c.grievanceService.File(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(g, "Grievance filed"))
}

// List lists grievances at the caller's level
// @Summary List grievances
// @Tags grievances
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status" Enums(SUBMITTED, IN_REVIEW, ESCALATED, RESOLVED, CLOSED)
// @Param open query bool false "Only open grievances"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Grievance}} "Grievances"
// @Router /student/grievances [get]
// @Router /faculty/grievances [get]
// @Router /principal/grievances [get]
// @Router /state/grievances [get]
func (c *GrievanceController) List(ctx *gin.Context) {
	filter := models.GrievanceFilter{OpenOnly: ctx.Query("open") == "true"}
	if raw := ctx.Query("status"); raw != "" {
		status := models.GrievanceStatus(raw)
		switch status {
		case models.GrievanceSubmitted, models.GrievanceInReview, models.GrievanceEscalated,
			models.GrievanceResolved, models.GrievanceClosed:
		default:
			invalidStatus(ctx)
			return
		}
		filter.Status = &status
	}
	var ok bool
	if filter.InstitutionID, ok = optionalInt64Query(ctx, "institutionId"); !ok {
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	items, total, err := c.grievanceService.List(ctx, middleware.ActorFrom(ctx), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, total, page, size)
}

// Get returns a grievance with its history
// @Summary Get grievance
// @Tags grievances
// @Produce json
// @Security BearerAuth
// @Param id path int true "Grievance ID"
// @Success 200 {object} dto.APIResponse{data=models.Grievance} "Grievance"
// @Failure 404 {object} dto.ErrorResponse "Grievance not found"
// @Router /student/grievances/{id} [get]
func (c *GrievanceController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	g, err := c.grievanceService.Get(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(g, ""))
}

// bindAction reads optional remarks; an empty body is allowed
func bindAction(ctx *gin.Context) (*dto.GrievanceActionRequest, bool) {
	req := &dto.GrievanceActionRequest{}
	if ctx.Request.ContentLength > 0 && !bindJSON(ctx, req) {
		return nil, false
	}
	return req, true
}

// Review starts working on a grievance
// @Summary Take grievance into review
// @Tags grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Grievance ID"
// @Param request body dto.GrievanceActionRequest false "Remarks"
// @Success 200 {object} dto.APIResponse{data=models.Grievance} "Grievance in review"
// @Failure 403 {object} dto.ErrorResponse "Grievance is handled at another level"
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /faculty/grievances/{id}/review [post]
// @Router /principal/grievances/{id}/review [post]
// @Router /state/grievances/{id}/review [post]
func (c *GrievanceController) Review(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	req, ok := bindAction(ctx)
	if !ok {
		return
	}

	g, err := c.grievanceService.Review(ctx, middleware.ActorFrom(ctx), id, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(g, "Grievance in review"))
}

// Escalate moves a grievance to the next level
// @Summary Escalate grievance
// @Description Faculty escalate to the principal, principals to the state directorate
// @Tags grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Grievance ID"
// @Param request body dto.GrievanceActionRequest false "Remarks"
// @Success 200 {object} dto.APIResponse{data=models.Grievance} "Grievance escalated"
// @Failure 409 {object} dto.ErrorResponse "Grievance is already at the highest level"
// @Router /faculty/grievances/{id}/escalate [post]
// @Router /principal/grievances/{id}/escalate [post]
func (c *GrievanceController) Escalate(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	req, ok := bindAction(ctx)
	if !ok {
		return
	}

	g, err := c.grievanceService.Escalate(ctx, middleware.ActorFrom(ctx), id, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(g, "Grievance escalated"))
}

// Resolve records the resolution of a grievance
// @Summary Resolve grievance
// @Tags grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Grievance ID"
// @Param request body dto.ResolveGrievanceRequest true "Resolution"
// @Success 200 {object} dto.APIResponse{data=models.Grievance} "Grievance resolved"
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /faculty/grievances/{id}/resolve [post]
// @Router /principal/grievances/{id}/resolve [post]
// @Router /state/grievances/{id}/resolve [post]
func (c *GrievanceController) Resolve(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ResolveGrievanceRequest
	if !bindJSON(ctx, &req) {
		return
	}

	g, err := c.grievanceService.Resolve(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(g, "Grievance resolved"))
}

// Close closes a resolved grievance
// @Summary Close grievance
// @Tags grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Grievance ID"
// @Param request body dto.GrievanceActionRequest false "Remarks"
// @Success 200 {object} dto.APIResponse{data=models.Grievance} "Grievance closed"
// @Failure 409 {object} dto.ErrorResponse "Grievance is not resolved"
// @Router /student/grievances/{id}/close [post]
func (c *GrievanceController) Close(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	req, ok := bindAction(ctx)
	if !ok {
		return
	}

	g, err := c.grievanceService.Close(ctx, middleware.ActorFrom(ctx), id, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(g, "Grievance closed"))
}
