package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/services"
	"github.com/placeintern/backend/internal/middleware"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// InstitutionController manages polytechnics and their branches and batches
type InstitutionController struct {
	institutionService *services.InstitutionService
}

// NewInstitutionController creates a new InstitutionController
func NewInstitutionController(institutionService *services.InstitutionService) *InstitutionController {
	return &InstitutionController{institutionService: institutionService}
}

// CreateInstitution adds a polytechnic
// @Summary Create institution
// @Tags institutions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InstitutionRequest true "Institution"
// @Success 201 {object} dto.APIResponse{data=models.Institution} "Institution created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 409 {object} dto.ErrorResponse "Institution code already exists"
// @Router /system-admin/institutions [post]
func (c *InstitutionController) CreateInstitution(ctx *gin.Context) {
	var req dto.InstitutionRequest
	if !bindJSON(ctx, &req) {
		return
	}

	inst, err := c.institutionService.CreateInstitution(ctx, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(inst, "Institution created"))
}

// ListInstitutions lists polytechnics
// @Summary List institutions
// @Tags institutions
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, code or district"
// @Param active query bool false "Only active institutions"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Institution}} "Institutions"
// @Router /system-admin/institutions [get]
func (c *InstitutionController) ListInstitutions(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	items, total, err := c.institutionService.ListInstitutions(ctx, ctx.Query("search"), ctx.Query("active") == "true", page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, total, page, size)
}

// GetInstitution returns one polytechnic
// @Summary Get institution
// @Tags institutions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Institution ID"
// @Success 200 {object} dto.APIResponse{data=models.Institution} "Institution"
// @Failure 404 {object} dto.ErrorResponse "Institution not found"
// @Router /system-admin/institutions/{id} [get]
func (c *InstitutionController) GetInstitution(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	inst, err := c.institutionService.GetInstitution(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(inst, ""))
}

// UpdateInstitution updates a polytechnic
// @Summary Update institution
// @Tags institutions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Institution ID"
// @Param request body dto.InstitutionRequest true "Institution"
// @Success 200 {object} dto.APIResponse{data=models.Institution} "Institution updated"
// @Failure 404 {object} dto.ErrorResponse "Institution not found"
// @Router /system-admin/institutions/{id} [put]
func (c *InstitutionController) UpdateInstitution(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.InstitutionRequest
	if !bindJSON(ctx, &req) {
		return
	}

	inst, err := c.institutionService.UpdateInstitution(ctx, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(inst, "Institution updated"))
}

// DeleteInstitution removes a polytechnic, or deactivates it when records still reference it
// @Summary Delete institution
// @Tags institutions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Institution ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteInstitutionResponse} "Institution deleted or deactivated"
// @Failure 404 {object} dto.ErrorResponse "Institution not found"
// @Router /system-admin/institutions/{id} [delete]
func (c *InstitutionController) DeleteInstitution(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	resp, err := c.institutionService.DeleteInstitution(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// CreateBranch adds a branch to the caller's institution
// @Summary Create branch
// @Tags branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BranchRequest true "Branch"
// @Success 201 {object} dto.APIResponse{data=models.Branch} "Branch created"
// @Failure 409 {object} dto.ErrorResponse "Branch code already exists"
// @Router /principal/branches [post]
func (c *InstitutionController) CreateBranch(ctx *gin.Context) {
	var req dto.BranchRequest
	if !bindJSON(ctx, &req) {
		return
	}

	branch, err := c.institutionService.CreateBranch(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(branch, "Branch created"))
}

// ListBranches lists the branches of the caller's institution
// @Summary List branches
// @Tags branches
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Branch} "Branches"
// @Router /principal/branches [get]
func (c *InstitutionController) ListBranches(ctx *gin.Context) {
	branches, err := c.institutionService.ListBranches(ctx, middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(branches, ""))
}

// UpdateBranch updates a branch
// @Summary Update branch
// @Tags branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Param request body dto.BranchRequest true "Branch"
// @Success 200 {object} dto.APIResponse{data=models.Branch} "Branch updated"
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Router /principal/branches/{id} [put]
func (c *InstitutionController) UpdateBranch(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.BranchRequest
	if !bindJSON(ctx, &req) {
		return
	}

	branch, err := c.institutionService.UpdateBranch(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(branch, "Branch updated"))
}

// DeleteBranch removes a branch
// @Summary Delete branch
// @Tags branches
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Success 200 {object} dto.APIResponse "Branch deleted"
// @Failure 404 {object} dto.ErrorResponse "Branch not found"
// @Failure 409 {object} dto.ErrorResponse "Branch is in use"
// @Router /principal/branches/{id} [delete]
func (c *InstitutionController) DeleteBranch(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.institutionService.DeleteBranch(ctx, middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Branch deleted"))
}

// CreateBatch adds a batch to the caller's institution
// @Summary Create batch
// @Tags batches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BatchRequest true "Batch"
// @Success 201 {object} dto.APIResponse{data=models.Batch} "Batch created"
// @Router /principal/batches [post]
func (c *InstitutionController) CreateBatch(ctx *gin.Context) {
	var req dto.BatchRequest
	if !bindJSON(ctx, &req) {
		return
	}

	batch, err := c.institutionService.CreateBatch(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(batch, "Batch created"))
}

// ListBatches lists the batches of the caller's institution
// @Summary List batches
// @Tags batches
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Batch} "Batches"
// @Router /principal/batches [get]
func (c *InstitutionController) ListBatches(ctx *gin.Context) {
	batches, err := c.institutionService.ListBatches(ctx, middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(batches, ""))
}

// UpdateBatch updates a batch
// @Summary Update batch
// @Tags batches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Batch ID"
// @Param request body dto.BatchRequest true "Batch"
// @Success 200 {object} dto.APIResponse{data=models.Batch} "Batch updated"
// @Failure 404 {object} dto.ErrorResponse "Batch not found"
// @Router /principal/batches/{id} [put]
func (c *InstitutionController) UpdateBatch(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.BatchRequest
	if !bindJSON(ctx, &req) {
		return
	}

	batch, err := c.institutionService.UpdateBatch(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(batch, "Batch updated"))
}

// DeleteBatch removes a batch
// @Summary Delete batch
// @Tags batches
// @Produce json
// @Security BearerAuth
// @Param id path int true "Batch ID"
// @Success 200 {object} dto.APIResponse "Batch deleted"
// @Failure 404 {object} dto.ErrorResponse "Batch not found"
// @Router /principal/batches/{id} [delete]
func (c *InstitutionController) DeleteBatch(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.institutionService.DeleteBatch(ctx, middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Batch deleted"))
}
