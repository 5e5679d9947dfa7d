package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/repositories"
	"github.com/placeintern/backend/internal/app/services"
	"github.com/placeintern/backend/internal/middleware"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// StaffController manages faculty supervisors
type StaffController struct {
	staffService *services.StaffService
}

// NewStaffController creates a new StaffController
func NewStaffController(staffService *services.StaffService) *StaffController {
	return &StaffController{staffService: staffService}
}

// Create adds a faculty supervisor
// @Summary Create staff
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateStaffRequest true "Staff"
// @Success 201 {object} dto.APIResponse{data=dto.CreatedStaffResponse} "Staff created"
// @Failure 409 {object} dto.ErrorResponse "Email already exists"
// @Router /principal/staff [post]
func (c *StaffController) Create(ctx *gin.Context) {
	var req dto.CreateStaffRequest
	if !bindJSON(ctx, &req) {
		return
	}

	staff, password, err := c.staffService.Create(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.CreatedStaffResponse{
		Staff:             staff,
		TemporaryPassword: password,
	}, "Staff created"))
}

// List lists faculty supervisors
// @Summary List staff
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param branchId query int false "Branch"
// @Param active query bool false "Only active staff"
// @Param search query string false "Name or email"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Staff}} "Staff"
// @Router /principal/staff [get]
func (c *StaffController) List(ctx *gin.Context) {
	filter := repositories.StaffFilter{
		ActiveOnly: ctx.Query("active") == "true",
		Search:     ctx.Query("search"),
	}
	var ok bool
	if filter.BranchID, ok = optionalInt64Query(ctx, "branchId"); !ok {
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	staff, total, err := c.staffService.List(ctx, middleware.ActorFrom(ctx), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, staff, total, page, size)
}

// Get returns one staff member
// @Summary Get staff
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param id path int true "Staff ID"
// @Success 200 {object} dto.APIResponse{data=models.Staff} "Staff"
// @Failure 404 {object} dto.ErrorResponse "Staff not found"
// @Router /principal/staff/{id} [get]
func (c *StaffController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	staff, err := c.staffService.Get(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(staff, ""))
}

// Update updates a staff member
// @Summary Update staff
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Staff ID"
// @Param request body dto.UpdateStaffRequest true "Staff"
// @Success 200 {object} dto.APIResponse{data=models.Staff} "Staff updated"
// @Failure 404 {object} dto.ErrorResponse "Staff not found"
// @Router /principal/staff/{id} [put]
func (c *StaffController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateStaffRequest
	if !bindJSON(ctx, &req) {
		return
	}

	staff, err := c.staffService.Update(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(staff, "Staff updated"))
}

// Deactivate disables a staff member and the login account
// @Summary Deactivate staff
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param id path int true "Staff ID"
// @Success 200 {object} dto.APIResponse "Staff deactivated"
// @Failure 404 {object} dto.ErrorResponse "Staff not found"
// @Router /principal/staff/{id} [delete]
func (c *StaffController) Deactivate(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.staffService.Deactivate(ctx, middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Staff deactivated"))
}
