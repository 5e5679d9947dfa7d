package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID        int64
	Role          models.RoleType
	InstitutionID *int64
}

// IsCrossInstitution reports whether the actor may see every institution
func (a Actor) IsCrossInstitution() bool {
	return a.Role == models.RoleStateDirectorate || a.Role == models.RoleSystemAdmin
}

// Institution returns the actor's institution or a permission error
func (a Actor) Institution() (int64, error) {
	if a.InstitutionID == nil {
		return 0, apperrors.NewForbiddenError("no institution is linked to this account")
	}
	return *a.InstitutionID, nil
}

// CheckInstitution fails unless the actor may act on institutionID
func (a Actor) CheckInstitution(institutionID int64) error {
	if a.IsCrossInstitution() {
		return nil
	}
	if a.InstitutionID == nil || *a.InstitutionID != institutionID {
		return apperrors.ErrOutOfScope
	}
	return nil
}

// StudentLookup finds the student record of an account
type StudentLookup interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Student, error)
}

// StaffLookup finds the staff record of an account
type StaffLookup interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Staff, error)
}

// MentorChecker tells whether a staff member actively mentors a student
type MentorChecker interface {
	IsActiveMentor(ctx context.Context, mentorID, studentID int64) (bool, error)
}

// AuthorizationService answers record level access questions
type AuthorizationService struct {
	students    StudentLookup
	staff       StaffLookup
	assignments MentorChecker
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(students StudentLookup, staff StaffLookup, assignments MentorChecker) *AuthorizationService {
	return &AuthorizationService{students: students, staff: staff, assignments: assignments}
}

// StudentOf returns the student record of a STUDENT actor
func (s *AuthorizationService) StudentOf(ctx context.Context, actor Actor) (*models.Student, error) {
	if actor.Role != models.RoleStudent {
		return nil, apperrors.NewForbiddenError("only students can perform this action")
	}
	student, err := s.students.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrStudentNotFound) {
			return nil, apperrors.NewForbiddenError("no student record is linked to this account")
		}
		return nil, fmt.Errorf("failed to load student record: %w", err)
	}
	return student, nil
}

// StaffOf returns the staff record of a FACULTY_SUPERVISOR actor
func (s *AuthorizationService) StaffOf(ctx context.Context, actor Actor) (*models.Staff, error) {
	if actor.Role != models.RoleFacultySupervisor {
		return nil, apperrors.NewForbiddenError("only faculty supervisors can perform this action")
	}
	staff, err := s.staff.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrStaffNotFound) {
			return nil, apperrors.NewForbiddenError("no staff record is linked to this account")
		}
		return nil, fmt.Errorf("failed to load staff record: %w", err)
	}
	return staff, nil
}

// CanAccessStudent fails unless actor may see records of student: the student
// themself, their active mentor, the institution's principal, state
// directorate and system admins.
func (s *AuthorizationService) CanAccessStudent(ctx context.Context, actor Actor, student *models.Student) error {
	switch actor.Role {
	case models.RoleStateDirectorate, models.RoleSystemAdmin:
		return nil
	case models.RolePrincipal:
		return actor.CheckInstitution(student.InstitutionID)
	case models.RoleStudent:
		if student.UserID == actor.UserID {
			return nil
		}
		return apperrors.NewForbiddenError("students can only access their own records")
	case models.RoleFacultySupervisor:
		staff, err := s.StaffOf(ctx, actor)
		if err != nil {
			return err
		}
		ok, err := s.assignments.IsActiveMentor(ctx, staff.ID, student.ID)
		if err != nil {
			return fmt.Errorf("failed to check mentorship: %w", err)
		}
		if !ok {
			return apperrors.NewForbiddenError("student is not one of your mentees")
		}
		return nil
	default:
		return apperrors.ErrPermissionDenied
	}
}
