package models

import (
	"fmt"
	"time"
)

// ApplicationStatus is the lifecycle state of an internship application
type ApplicationStatus string

const (
	ApplicationApplied     ApplicationStatus = "APPLIED"
	ApplicationUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationApproved    ApplicationStatus = "APPROVED"
	ApplicationRejected    ApplicationStatus = "REJECTED"
	ApplicationWithdrawn   ApplicationStatus = "WITHDRAWN"
	ApplicationCompleted   ApplicationStatus = "COMPLETED"
)

var applicationTransitions = transitions[ApplicationStatus]{
	ApplicationApplied:     {ApplicationUnderReview, ApplicationApproved, ApplicationRejected, ApplicationWithdrawn},
	ApplicationUnderReview: {ApplicationApproved, ApplicationRejected, ApplicationWithdrawn},
	ApplicationApproved:    {ApplicationCompleted, ApplicationWithdrawn},
}

// CanTransitionTo reports whether the application may move to next
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	return applicationTransitions.allowed(s, next)
}

// IsValid reports whether s is a known application status
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationApplied, ApplicationUnderReview, ApplicationApproved,
		ApplicationRejected, ApplicationWithdrawn, ApplicationCompleted:
		return true
	}
	return false
}

// InternshipApplication is a student's request to intern at a company
type InternshipApplication struct {
	ID             int64             `json:"id" db:"id"`
	StudentID      int64             `json:"studentId" db:"student_id"`
	CompanyName    string            `json:"companyName" db:"company_name" example:"Sonalika Tractors"`
	CompanyAddress string            `json:"companyAddress" db:"company_address"`
	IndustrySector string            `json:"industrySector" db:"industry_sector" example:"Manufacturing"`
	RoleTitle      string            `json:"roleTitle" db:"role_title" example:"Trainee Engineer"`
	StartDate      time.Time         `json:"startDate" db:"start_date"`
	EndDate        time.Time         `json:"endDate" db:"end_date"`
	Stipend        *float64          `json:"stipend,omitempty" db:"stipend"`
	Status         ApplicationStatus `json:"status" db:"status"`
	Remarks        *string           `json:"remarks,omitempty" db:"remarks"`
	ReviewedBy     *int64            `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt     *time.Time        `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time         `json:"updatedAt" db:"updated_at"`
	Student        *Student          `json:"student,omitempty"`
}

// CoversMonth reports whether any day of the given month falls inside the internship window
func (a *InternshipApplication) CoversMonth(month, year int) bool {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	start := truncateDay(a.StartDate)
	end := truncateDay(a.EndDate)
	return !last.Before(start) && !first.After(end)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ApplicationFilter narrows application listings
type ApplicationFilter struct {
	InstitutionID *int64
	StudentID     *int64
	MentorID      *int64
	Status        *ApplicationStatus
}

// ReportStatus is the review state of a monthly report
type ReportStatus string

const (
	ReportSubmitted ReportStatus = "SUBMITTED"
	ReportApproved  ReportStatus = "APPROVED"
	ReportRejected  ReportStatus = "REJECTED"
)

var reportTransitions = transitions[ReportStatus]{
	ReportSubmitted: {ReportApproved, ReportRejected},
	ReportRejected:  {ReportSubmitted},
}

// CanTransitionTo reports whether the monthly report may move to next
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	return reportTransitions.allowed(s, next)
}

// MonthlyReport is the progress report a student files for each internship month
type MonthlyReport struct {
	ID              int64        `json:"id" db:"id"`
	ApplicationID   int64        `json:"applicationId" db:"application_id"`
	StudentID       int64        `json:"studentId" db:"student_id"`
	ReportMonth     int          `json:"reportMonth" db:"report_month" example:"3"`
	ReportYear      int          `json:"reportYear" db:"report_year" example:"2026"`
	Summary         string       `json:"summary" db:"summary"`
	HoursWorked     int          `json:"hoursWorked" db:"hours_worked" example:"160"`
	Status          ReportStatus `json:"status" db:"status"`
	ReviewerRemarks *string      `json:"reviewerRemarks,omitempty" db:"reviewer_remarks"`
	ReviewedBy      *int64       `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt      *time.Time   `json:"reviewedAt,omitempty" db:"reviewed_at"`
	SubmittedAt     time.Time    `json:"submittedAt" db:"submitted_at"`
}

// Period renders the report month as "March 2026"
func (r *MonthlyReport) Period() string {
	return fmt.Sprintf("%s %d", time.Month(r.ReportMonth), r.ReportYear)
}

// MonthlyReportFilter narrows report listings
type MonthlyReportFilter struct {
	InstitutionID *int64
	StudentID     *int64
	MentorID      *int64
	ApplicationID *int64
	Status        *ReportStatus
}
