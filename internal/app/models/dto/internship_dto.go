package dto

// ApplicationRequest creates or updates an internship application
type ApplicationRequest struct {
	CompanyName    string   `json:"companyName" binding:"required,max=200" example:"Hero Cycles Ltd."`
	CompanyAddress string   `json:"companyAddress" binding:"required,max=500"`
	IndustrySector string   `json:"industrySector" binding:"required,max=100" example:"Manufacturing"`
	RoleTitle      string   `json:"roleTitle" binding:"required,max=150" example:"Production Trainee"`
	StartDate      string   `json:"startDate" binding:"required,datetime=2006-01-02" example:"2025-01-06"`
	EndDate        string   `json:"endDate" binding:"required,datetime=2006-01-02" example:"2025-06-30"`
	Stipend        *float64 `json:"stipend" binding:"omitempty,min=0"`
}

// ReviewRequest approves or rejects an application or report
type ReviewRequest struct {
	Status  string  `json:"status" binding:"required,oneof=UNDER_REVIEW APPROVED REJECTED COMPLETED" example:"APPROVED"`
	Remarks *string `json:"remarks" binding:"omitempty,max=1000"`
}

// MonthlyReportRequest submits a monthly report
type MonthlyReportRequest struct {
	ApplicationID int64  `json:"applicationId" binding:"required,min=1"`
	ReportMonth   int    `json:"reportMonth" binding:"required,report_month" example:"3"`
	ReportYear    int    `json:"reportYear" binding:"required,min=2000,max=2100" example:"2025"`
	Summary       string `json:"summary" binding:"required,min=20,max=5000"`
	HoursWorked   int    `json:"hoursWorked" binding:"min=0,max=744" example:"160"`
}

// ResubmitReportRequest resubmits a rejected report
type ResubmitReportRequest struct {
	Summary     string `json:"summary" binding:"required,min=20,max=5000"`
	HoursWorked int    `json:"hoursWorked" binding:"min=0,max=744"`
}

// ReportReviewRequest approves or rejects a monthly report
type ReportReviewRequest struct {
	Status  string  `json:"status" binding:"required,oneof=APPROVED REJECTED" example:"APPROVED"`
	Remarks *string `json:"remarks" binding:"omitempty,max=1000"`
}
