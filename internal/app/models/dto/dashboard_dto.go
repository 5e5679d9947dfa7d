package dto

import "github.com/placeintern/backend/internal/app/models"

// StudentDashboard summarises a student's internship progress
type StudentDashboard struct {
	Internship       *models.InternshipApplication `json:"internship,omitempty"`
	ApplicationCount int64                         `json:"applicationCount"`
	ReportsByStatus  map[string]int64              `json:"reportsByStatus"`
	Mentor           *MentorSummary                `json:"mentor,omitempty"`
	OpenGrievances   int64                         `json:"openGrievances"`
}

// MentorSummary is the mentor shown to a student
type MentorSummary struct {
	StaffID      int64  `json:"staffId"`
	Name         string `json:"name" example:"Harpreet Singh"`
	Email        string `json:"email"`
	Designation  string `json:"designation" example:"Lecturer"`
	AcademicYear string `json:"academicYear" example:"2024-25"`
}

// StateTotals adds up the per-institution counts of the state overview
type StateTotals struct {
	Institutions        int   `json:"institutions"`
	Students            int64 `json:"students"`
	AssignedStudents    int64 `json:"assignedStudents"`
	ApprovedInternships int64 `json:"approvedInternships"`
	OpenGrievances      int64 `json:"openGrievances"`
}

// JobRequeueResponse is returned after a failed job was put back on its queue
type JobRequeueResponse struct {
	ID     int64  `json:"id" example:"42"`
	Status string `json:"status" example:"PENDING"`
}

// StateOverviewResponse is the state directorate's view over every active institution
type StateOverviewResponse struct {
	Institutions any         `json:"institutions"`
	Totals       StateTotals `json:"totals"`
}
