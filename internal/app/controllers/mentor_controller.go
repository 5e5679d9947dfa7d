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

// MentorController manages mentor assignments
type MentorController struct {
	mentorService *services.MentorService
}

// NewMentorController creates a new MentorController
func NewMentorController(mentorService *services.MentorService) *MentorController {
	return &MentorController{mentorService: mentorService}
}

// Assign assigns or reassigns a student's mentor
// @Summary Assign mentor
// @Description Deactivates the student's current assignment for the academic year and creates a new one
// @Tags mentors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AssignMentorRequest true "Assignment"
// @Success 201 {object} dto.APIResponse{data=models.MentorAssignment} "Mentor assigned"
// @Failure 404 {object} dto.ErrorResponse "Student or mentor not found"
// @Failure 409 {object} dto.ErrorResponse "Mentor is at capacity"
// @Router /principal/mentor-assignments [post]
func (c *MentorController) Assign(ctx *gin.Context) {
	var req dto.AssignMentorRequest
	if !bindJSON(ctx, &req) {
		return
	}

	assignment, err := c.mentorService.Assign(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(assignment, "Mentor assigned"))
}

// List lists mentor assignments
// @Summary List mentor assignments
// @Tags mentors
// @Produce json
// @Security BearerAuth
// @Param mentorId query int false "Mentor staff ID"
// @Param studentId query int false "Student ID"
// @Param academicYear query string false "Academic year"
// @Param active query bool false "Only active assignments"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.MentorAssignment}} "Assignments"
// @Router /principal/mentor-assignments [get]
func (c *MentorController) List(ctx *gin.Context) {
	filter := repositories.AssignmentFilter{
		AcademicYear: ctx.Query("academicYear"),
		ActiveOnly:   ctx.Query("active") == "true",
	}
	var ok bool
	if filter.MentorID, ok = optionalInt64Query(ctx, "mentorId"); !ok {
		return
	}
	if filter.StudentID, ok = optionalInt64Query(ctx, "studentId"); !ok {
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	items, total, err := c.mentorService.List(ctx, middleware.ActorFrom(ctx), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, total, page, size)
}

// Remove ends an active assignment
// @Summary Remove mentor assignment
// @Tags mentors
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} dto.APIResponse "Assignment removed"
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /principal/mentor-assignments/{id} [delete]
func (c *MentorController) Remove(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.mentorService.Remove(ctx, middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Assignment removed"))
}

// AutoAssign distributes unassigned students over mentors with spare capacity
// @Summary Auto-assign mentors
// @Description Places every unassigned active student of the caller's institution with the least loaded mentor that still has capacity
// @Tags mentors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AutoAssignRequest true "Scope"
// @Success 200 {object} dto.APIResponse{data=dto.AutoAssignResult} "Assignment summary"
// @Router /principal/mentor-assignments/auto-assign [post]
func (c *MentorController) AutoAssign(ctx *gin.Context) {
	var req dto.AutoAssignRequest
	if !bindJSON(ctx, &req) {
		return
	}

	actor := middleware.ActorFrom(ctx)
	institutionID, err := actor.Institution()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	result, err := c.mentorService.AutoAssign(ctx, actor, institutionID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Auto-assignment finished"))
}

// Mentees lists the caller's active mentees
// @Summary List own mentees
// @Tags faculty
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.MentorAssignment}} "Mentees"
// @Router /faculty/mentees [get]
func (c *MentorController) Mentees(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	items, total, err := c.mentorService.Mentees(ctx, middleware.ActorFrom(ctx), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, total, page, size)
}

// CurrentMentor returns the calling student's active mentor
// @Summary Own mentor
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.MentorAssignment} "Assignment"
// @Failure 404 {object} dto.ErrorResponse "No mentor assigned"
// @Router /student/mentor [get]
func (c *MentorController) CurrentMentor(ctx *gin.Context) {
	assignment, err := c.mentorService.CurrentMentor(ctx, middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignment, ""))
}
