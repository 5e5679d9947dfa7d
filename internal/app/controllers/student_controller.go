package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/services"
	"github.com/placeintern/backend/internal/middleware"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// StudentController manages student enrolment
type StudentController struct {
	studentService *services.StudentService
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService *services.StudentService) *StudentController {
	return &StudentController{studentService: studentService}
}

// Create enrols a student
// @Summary Create student
// @Description Enrols a student in the caller's institution and creates the login account with a temporary password
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateStudentRequest true "Student"
// @Success 201 {object} dto.APIResponse{data=dto.CreatedStudentResponse} "Student created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 409 {object} dto.ErrorResponse "Email or roll number already exists"
// @Router /principal/students [post]
func (c *StudentController) Create(ctx *gin.Context) {
	var req dto.CreateStudentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	student, password, err := c.studentService.Create(ctx, middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.CreatedStudentResponse{
		Student:           student,
		TemporaryPassword: password,
	}, "Student created"))
}

// List lists students
// @Summary List students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param branchId query int false "Branch"
// @Param batchId query int false "Batch"
// @Param academicYear query string false "Academic year" example(2024-25)
// @Param semester query int false "Semester"
// @Param unassigned query bool false "Only students without an active mentor"
// @Param search query string false "Name, email or roll number"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Student}} "Students"
// @Router /principal/students [get]
func (c *StudentController) List(ctx *gin.Context) {
	filter := models.StudentFilter{
		AcademicYear: ctx.Query("academicYear"),
		Unassigned:   ctx.Query("unassigned") == "true",
		Search:       ctx.Query("search"),
	}
	var ok bool
	if filter.BranchID, ok = optionalInt64Query(ctx, "branchId"); !ok {
		return
	}
	if filter.BatchID, ok = optionalInt64Query(ctx, "batchId"); !ok {
		return
	}
	if raw := ctx.Query("semester"); raw != "" {
		semester, err := strconv.Atoi(raw)
		if err != nil || semester < 1 || semester > 8 {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid semester")))
			return
		}
		filter.Semester = &semester
	}

	page, size := helpers.ParsePaginationParams(ctx)
	students, total, err := c.studentService.List(ctx, middleware.ActorFrom(ctx), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, students, total, page, size)
}

// Get returns one student
// @Summary Get student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student"
// @Failure 403 {object} dto.ErrorResponse "Student is outside the caller's scope"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /principal/students/{id} [get]
// @Router /faculty/mentees/{id} [get]
func (c *StudentController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	student, err := c.studentService.Get(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, ""))
}

// Update updates enrolment fields
// @Summary Update student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param request body dto.UpdateStudentRequest true "Student"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student updated"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /principal/students/{id} [put]
func (c *StudentController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateStudentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	student, err := c.studentService.Update(ctx, middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, "Student updated"))
}

// Deactivate disables a student and the login account
// @Summary Deactivate student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse "Student deactivated"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /principal/students/{id} [delete]
func (c *StudentController) Deactivate(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.studentService.Deactivate(ctx, middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Student deactivated"))
}

// Import enrols students from a spreadsheet
// @Summary Bulk import students
// @Description Accepts an .xlsx or .csv file with the columns email, firstName, lastName, rollNumber, branchCode, semester and optionally phone, batch and academicYear. Valid rows are created, invalid rows are reported.
// @Tags students
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Spreadsheet"
// @Param academicYear formData string true "Default academic year" example(2024-25)
// @Success 200 {object} dto.APIResponse{data=dto.ImportResult} "Import summary"
// @Failure 400 {object} dto.ErrorResponse "Missing or unreadable file"
// @Router /principal/students/import [post]
func (c *StudentController) Import(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "File is required").WithDetails(err.Error())))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer file.Close()

	result, err := c.studentService.Import(ctx, middleware.ActorFrom(ctx), fileHeader.Filename, file, ctx.PostForm("academicYear"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Import finished"))
}

// Profile returns the calling student's enrolment
// @Summary Own student profile
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student"
// @Router /student/profile [get]
func (c *StudentController) Profile(ctx *gin.Context) {
	student, err := c.studentService.Me(ctx, middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, ""))
}
