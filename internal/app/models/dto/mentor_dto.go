package dto

// AssignMentorRequest assigns or reassigns one student
type AssignMentorRequest struct {
	StudentID    int64   `json:"studentId" binding:"required,min=1"`
	MentorID     int64   `json:"mentorId" binding:"required,min=1"`
	AcademicYear string  `json:"academicYear" binding:"required,academic_year" example:"2024-25"`
	Reason       *string `json:"reason" binding:"omitempty,max=500"`
}

// AutoAssignRequest distributes unassigned students across mentors
type AutoAssignRequest struct {
	AcademicYear string  `json:"academicYear" binding:"required,academic_year" example:"2024-25"`
	BranchID     *int64  `json:"branchId" binding:"omitempty,min=1"`
	MentorIDs    []int64 `json:"mentorIds" binding:"omitempty,dive,min=1"`
}

// MentorLoadChange is one mentor's load before and after auto-assignment
type MentorLoadChange struct {
	MentorID   int64  `json:"mentorId"`
	Name       string `json:"name"`
	Before     int    `json:"before"`
	After      int    `json:"after"`
	MaxMentees int    `json:"maxMentees"`
}

// AutoAssignResult is the outcome of an auto-assignment run
type AutoAssignResult struct {
	Assigned   int                `json:"assigned"`
	Skipped    int                `json:"skipped"`
	Unassigned []int64            `json:"unassigned"`
	PerMentor  []MentorLoadChange `json:"perMentor"`
}
