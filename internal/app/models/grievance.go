package models

import "time"

// GrievanceStatus is the lifecycle state of a grievance
type GrievanceStatus string

const (
	GrievanceSubmitted GrievanceStatus = "SUBMITTED"
	GrievanceInReview  GrievanceStatus = "IN_REVIEW"
	GrievanceEscalated GrievanceStatus = "ESCALATED"
	GrievanceResolved  GrievanceStatus = "RESOLVED"
	GrievanceClosed    GrievanceStatus = "CLOSED"
)

var grievanceTransitions = transitions[GrievanceStatus]{
	GrievanceSubmitted: {GrievanceInReview, GrievanceEscalated},
	GrievanceInReview:  {GrievanceEscalated, GrievanceResolved},
	GrievanceEscalated: {GrievanceInReview, GrievanceResolved},
	GrievanceResolved:  {GrievanceClosed},
}

// CanTransitionTo reports whether the grievance may move to next
func (s GrievanceStatus) CanTransitionTo(next GrievanceStatus) bool {
	return grievanceTransitions.allowed(s, next)
}

// IsOpen reports whether the grievance still awaits a resolution
func (s GrievanceStatus) IsOpen() bool {
	return s == GrievanceSubmitted || s == GrievanceInReview || s == GrievanceEscalated
}

// EscalationLevel is the tier currently handling a grievance
type EscalationLevel string

const (
	LevelFaculty          EscalationLevel = "FACULTY"
	LevelPrincipal        EscalationLevel = "PRINCIPAL"
	LevelStateDirectorate EscalationLevel = "STATE_DIRECTORATE"
)

var escalationChain = []EscalationLevel{LevelFaculty, LevelPrincipal, LevelStateDirectorate}

// Next returns the level above l; ok is false at the top of the chain
func (l EscalationLevel) Next() (EscalationLevel, bool) {
	for i, level := range escalationChain {
		if level == l && i+1 < len(escalationChain) {
			return escalationChain[i+1], true
		}
	}
	return l, false
}

// HandledBy returns the role that works grievances at this level
func (l EscalationLevel) HandledBy() RoleType {
	switch l {
	case LevelPrincipal:
		return RolePrincipal
	case LevelStateDirectorate:
		return RoleStateDirectorate
	default:
		return RoleFacultySupervisor
	}
}

// LevelForRole is the escalation level a reviewer role works at
func LevelForRole(role RoleType) (EscalationLevel, bool) {
	switch role {
	case RoleFacultySupervisor:
		return LevelFaculty, true
	case RolePrincipal:
		return LevelPrincipal, true
	case RoleStateDirectorate:
		return LevelStateDirectorate, true
	}
	return "", false
}

// GrievanceCategory classifies a complaint
type GrievanceCategory string

const (
	GrievanceCategoryWorkplace GrievanceCategory = "WORKPLACE"
	GrievanceCategoryStipend   GrievanceCategory = "STIPEND"
	GrievanceCategoryMentor    GrievanceCategory = "MENTOR"
	GrievanceCategorySafety    GrievanceCategory = "SAFETY"
	GrievanceCategoryAcademic  GrievanceCategory = "ACADEMIC"
	GrievanceCategoryOther     GrievanceCategory = "OTHER"
)

// Grievance is a complaint filed by a student
type Grievance struct {
	ID              int64             `json:"id" db:"id"`
	StudentID       int64             `json:"studentId" db:"student_id"`
	InstitutionID   int64             `json:"institutionId" db:"institution_id"`
	Category        GrievanceCategory `json:"category" db:"category"`
	Subject         string            `json:"subject" db:"subject"`
	Description     string            `json:"description" db:"description"`
	Status          GrievanceStatus   `json:"status" db:"status"`
	EscalationLevel EscalationLevel   `json:"escalationLevel" db:"escalation_level"`
	AssignedTo      *int64            `json:"assignedTo,omitempty" db:"assigned_to"`
	Resolution      *string           `json:"resolution,omitempty" db:"resolution"`
	CreatedAt       time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time         `json:"updatedAt" db:"updated_at"`
	ResolvedAt      *time.Time        `json:"resolvedAt,omitempty" db:"resolved_at"`
	ClosedAt        *time.Time        `json:"closedAt,omitempty" db:"closed_at"`
	History         []GrievanceEvent  `json:"history,omitempty"`
}

// GrievanceEvent records one transition of a grievance
type GrievanceEvent struct {
	ID          int64           `json:"id" db:"id"`
	GrievanceID int64           `json:"grievanceId" db:"grievance_id"`
	FromStatus  GrievanceStatus `json:"fromStatus" db:"from_status"`
	ToStatus    GrievanceStatus `json:"toStatus" db:"to_status"`
	FromLevel   EscalationLevel `json:"fromLevel" db:"from_level"`
	ToLevel     EscalationLevel `json:"toLevel" db:"to_level"`
	ActorID     int64           `json:"actorId" db:"actor_id"`
	Remarks     *string         `json:"remarks,omitempty" db:"remarks"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// GrievanceFilter narrows grievance listings
type GrievanceFilter struct {
	InstitutionID *int64
	StudentID     *int64
	AssignedTo    *int64
	// MentorUserID keeps grievances of students this user currently mentors
	MentorUserID *int64
	Level        *EscalationLevel
	// WithOrphaned adds faculty-level grievances of students without a live mentor to the Level match
	WithOrphaned bool
	Status       *GrievanceStatus
	OpenOnly     bool
}
