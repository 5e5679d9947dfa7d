package models

import "time"

// MentorAssignment links a student to a supervising faculty member for an academic year
type MentorAssignment struct {
	ID               int64      `json:"id" db:"id"`
	StudentID        int64      `json:"studentId" db:"student_id"`
	MentorID         int64      `json:"mentorId" db:"mentor_id"`
	AcademicYear     string     `json:"academicYear" db:"academic_year" example:"2025-26"`
	AssignedBy       int64      `json:"assignedBy" db:"assigned_by"`
	AssignmentReason *string    `json:"assignmentReason,omitempty" db:"assignment_reason"`
	IsActive         bool       `json:"isActive" db:"is_active"`
	AssignedAt       time.Time  `json:"assignedAt" db:"assigned_at"`
	DeactivatedAt    *time.Time `json:"deactivatedAt,omitempty" db:"deactivated_at"`
	Student          *Student   `json:"student,omitempty"`
	Mentor           *Staff     `json:"mentor,omitempty"`
}

// MentorLoad is the number of active mentees a mentor carries
type MentorLoad struct {
	Mentor Staff
	Load   int
}
