package dto

// InstitutionRequest creates or updates an institution
type InstitutionRequest struct {
	Name         string  `json:"name" binding:"required,max=200" example:"Government Polytechnic College, Ludhiana"`
	Code         string  `json:"code" binding:"required,max=20" example:"GPC-LDH"`
	District     string  `json:"district" binding:"required,max=100" example:"Ludhiana"`
	Address      *string `json:"address"`
	ContactEmail *string `json:"contactEmail" binding:"omitempty,email"`
	IsActive     *bool   `json:"isActive"`
}

// BranchRequest creates or updates a branch
type BranchRequest struct {
	Name string `json:"name" binding:"required,max=150" example:"Civil Engineering"`
	Code string `json:"code" binding:"required,max=20" example:"CE"`
}

// BatchRequest creates or updates a batch
type BatchRequest struct {
	Name         string  `json:"name" binding:"required,max=100" example:"CE 2022-25"`
	AcademicYear string  `json:"academicYear" binding:"required,academic_year" example:"2024-25"`
	Semester     int     `json:"semester" binding:"required,min=1,max=8" example:"6"`
	StartDate    *string `json:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate      *string `json:"endDate" binding:"omitempty,datetime=2006-01-02"`
}

// DeleteInstitutionResponse tells whether the institution was removed or only deactivated
type DeleteInstitutionResponse struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}
