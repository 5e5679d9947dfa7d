package dto

import "github.com/placeintern/backend/internal/app/models"

// CreateStudentRequest enrols a student and creates the login account
type CreateStudentRequest struct {
	Email        string  `json:"email" binding:"required,email"`
	FirstName    string  `json:"firstName" binding:"required,max=100"`
	LastName     string  `json:"lastName" binding:"required,max=100"`
	Phone        *string `json:"phone" binding:"omitempty,max=20"`
	RollNumber   string  `json:"rollNumber" binding:"required,max=30" example:"2203451"`
	BranchID     int64   `json:"branchId" binding:"required,min=1"`
	BatchID      *int64  `json:"batchId" binding:"omitempty,min=1"`
	Semester     int     `json:"semester" binding:"required,min=1,max=8" example:"6"`
	AcademicYear string  `json:"academicYear" binding:"required,academic_year" example:"2024-25"`
}

// UpdateStudentRequest updates enrolment fields
type UpdateStudentRequest struct {
	FirstName    string  `json:"firstName" binding:"required,max=100"`
	LastName     string  `json:"lastName" binding:"required,max=100"`
	Phone        *string `json:"phone" binding:"omitempty,max=20"`
	BranchID     int64   `json:"branchId" binding:"required,min=1"`
	BatchID      *int64  `json:"batchId" binding:"omitempty,min=1"`
	Semester     int     `json:"semester" binding:"required,min=1,max=8"`
	AcademicYear string  `json:"academicYear" binding:"required,academic_year"`
}

// ImportRowError describes one rejected row of a bulk import
type ImportRowError struct {
	Row        int    `json:"row" example:"4"`
	RollNumber string `json:"rollNumber,omitempty"`
	Message    string `json:"message"`
}

// ImportResult summarises a bulk student import
type ImportResult struct {
	TotalRows int              `json:"totalRows"`
	Created   int              `json:"created"`
	Failed    int              `json:"failed"`
	Errors    []ImportRowError `json:"errors"`
}

// CreateStaffRequest adds a faculty supervisor
type CreateStaffRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	FirstName   string  `json:"firstName" binding:"required,max=100"`
	LastName    string  `json:"lastName" binding:"required,max=100"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	BranchID    *int64  `json:"branchId" binding:"omitempty,min=1"`
	Designation string  `json:"designation" binding:"required,max=100" example:"Lecturer"`
	MaxMentees  int     `json:"maxMentees" binding:"min=0,max=500" example:"20"`
}

// UpdateStaffRequest updates a faculty supervisor
type UpdateStaffRequest struct {
	FirstName   string  `json:"firstName" binding:"required,max=100"`
	LastName    string  `json:"lastName" binding:"required,max=100"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	BranchID    *int64  `json:"branchId" binding:"omitempty,min=1"`
	Designation string  `json:"designation" binding:"required,max=100"`
	MaxMentees  int     `json:"maxMentees" binding:"min=0,max=500"`
}

// CreatedStudentResponse returns the enrolled student and the temporary password of the new account
type CreatedStudentResponse struct {
	Student           *models.Student `json:"student"`
	TemporaryPassword string          `json:"temporaryPassword"`
}

// CreatedStaffResponse returns the new staff member and the temporary password of the account
type CreatedStaffResponse struct {
	Staff             *models.Staff `json:"staff"`
	TemporaryPassword string        `json:"temporaryPassword"`
}
