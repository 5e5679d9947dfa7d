package models

// Student defines the student model based on the 'students' table
type Student struct {
	ID            int64   `json:"id" db:"id"`
	UserID        int64   `json:"userId" db:"user_id"`
	InstitutionID int64   `json:"institutionId" db:"institution_id"`
	BranchID      int64   `json:"branchId" db:"branch_id"`
	BatchID       *int64  `json:"batchId,omitempty" db:"batch_id"`
	RollNumber    string  `json:"rollNumber" db:"roll_number" example:"230101"`
	Semester      int     `json:"semester" db:"semester" example:"6"`
	AcademicYear  string  `json:"academicYear" db:"academic_year" example:"2025-26"`
	IsActive      bool    `json:"isActive" db:"is_active"`
	User          *User   `json:"user,omitempty"`
	Branch        *Branch `json:"branch,omitempty"`
	Mentor        *Staff  `json:"mentor,omitempty"`
}

// StudentFilter narrows student listings
type StudentFilter struct {
	InstitutionID *int64
	BranchID      *int64
	BatchID       *int64
	AcademicYear  string
	Semester      *int
	Unassigned    bool
	Search        string
}

// Staff defines a faculty member based on the 'staff' table
type Staff struct {
	ID            int64  `json:"id" db:"id"`
	UserID        int64  `json:"userId" db:"user_id"`
	InstitutionID int64  `json:"institutionId" db:"institution_id"`
	BranchID      *int64 `json:"branchId,omitempty" db:"branch_id"`
	Designation   string `json:"designation" db:"designation" example:"Lecturer"`
	MaxMentees    int    `json:"maxMentees" db:"max_mentees" example:"20"`
	IsActive      bool   `json:"isActive" db:"is_active"`
	User          *User  `json:"user,omitempty"`
}

// HasCapacity reports whether another mentee fits given the current load.
// A zero MaxMentees means no limit.
func (s *Staff) HasCapacity(load int) bool {
	return s.MaxMentees <= 0 || load < s.MaxMentees
}
