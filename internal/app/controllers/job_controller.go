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

// JobController lets system administrators inspect the background job queue
type JobController struct {
	jobService *services.JobService
}

// NewJobController creates a new JobController
func NewJobController(jobService *services.JobService) *JobController {
	return &JobController{jobService: jobService}
}

// Stats returns job counts
// @Summary Job queue statistics
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.JobStatsResponse} "Counts per queue and status"
// @Router /system-admin/jobs/stats [get]
func (c *JobController) Stats(ctx *gin.Context) {
	stats, err := c.jobService.Stats(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}

// List lists jobs
// @Summary List jobs
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Param queue query string false "Queue" Enums(email, reports)
// @Param status query string false "Status" Enums(PENDING, ACTIVE, COMPLETED, FAILED) default(FAILED)
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Job}} "Jobs"
// @Router /system-admin/jobs [get]
func (c *JobController) List(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	jobs, total, err := c.jobService.List(ctx, ctx.Query("queue"), models.JobStatus(ctx.Query("status")), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, jobs, total, page, size)
}

// Get returns one job
// @Summary Get job
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job ID"
// @Success 200 {object} dto.APIResponse{data=models.Job} "Job"
// @Failure 404 {object} dto.ErrorResponse "Job not found"
// @Router /system-admin/jobs/{id} [get]
func (c *JobController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	job, err := c.jobService.Get(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(job, ""))
}

// Retry puts a failed job back on its queue
// @Summary Retry job
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job ID"
// @Success 200 {object} dto.APIResponse{data=dto.JobRequeueResponse} "Job requeued"
// @Failure 404 {object} dto.ErrorResponse "Job not found"
// @Failure 409 {object} dto.ErrorResponse "Job is not failed"
// @Router /system-admin/jobs/{id}/retry [post]
func (c *JobController) Retry(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	job, err := c.jobService.Retry(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.JobRequeueResponse{ID: job.ID, Status: string(job.Status)}, "Job requeued"))
}
