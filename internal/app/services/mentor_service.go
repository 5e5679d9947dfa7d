package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/repositories"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

const autoAssignReason = "auto-assigned by load balancing"

// MenteeSource loads students for assignment
type MenteeSource interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	ListUnassigned(ctx context.Context, institutionID int64, academicYear string, branchID *int64) ([]models.Student, error)
}

// MentorSource loads faculty supervisors with their current load
type MentorSource interface {
	GetByID(ctx context.Context, id int64) (*models.Staff, error)
	ListMentorLoads(ctx context.Context, institutionID int64, academicYear string, branchID *int64, mentorIDs []int64) ([]models.MentorLoad, error)
}

// AssignmentStore persists mentor assignments
type AssignmentStore interface {
	Assign(ctx context.Context, a *models.MentorAssignment) error
	AssignBatch(ctx context.Context, assignments []models.MentorAssignment) error
	GetByID(ctx context.Context, id int64) (*models.MentorAssignment, error)
	GetActiveForStudent(ctx context.Context, studentID int64) (*models.MentorAssignment, error)
	List(ctx context.Context, filter repositories.AssignmentFilter, page, size int) ([]models.MentorAssignment, int64, error)
	Deactivate(ctx context.Context, id int64) error
}

// MentorService assigns faculty supervisors to students
type MentorService struct {
	students    MenteeSource
	mentors     MentorSource
	assignments AssignmentStore
	authz       *appauth.AuthorizationService
	notifier    Notifier
	audit       Auditor
	logger      zerolog.Logger
}

// NewMentorService creates a new MentorService
func NewMentorService(
	students MenteeSource,
	mentors MentorSource,
	assignments AssignmentStore,
	authz *appauth.AuthorizationService,
	notifier Notifier,
	audit Auditor,
	logger zerolog.Logger,
) *MentorService {
	return &MentorService{
		students:    students,
		mentors:     mentors,
		assignments: assignments,
		authz:       authz,
		notifier:    notifier,
		audit:       audit,
		logger:      logger,
	}
}

// Assign assigns or reassigns one student. The student's previous active
// assignment for the year is ended in the same transaction.
func (s *MentorService) Assign(ctx context.Context, actor appauth.Actor, req *dto.AssignMentorRequest) (*models.MentorAssignment, error) {
	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if err := actor.CheckInstitution(student.InstitutionID); err != nil {
		return nil, err
	}
	if !student.IsActive {
		return nil, apperrors.NewBadRequestError("student is not active")
	}

	loads, err := s.mentors.ListMentorLoads(ctx, student.InstitutionID, req.AcademicYear, nil, []int64{req.MentorID})
	if err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		return nil, apperrors.ErrMentorNotFound
	}
	mentor := loads[0]

	current, err := s.assignments.GetActiveForStudent(ctx, student.ID)
	switch {
	case err == nil:
		if current.MentorID == mentor.Mentor.ID && current.AcademicYear == req.AcademicYear {
			return current, nil
		}
	case !errors.Is(err, apperrors.ErrAssignmentNotFound):
		return nil, err
	}

	if !mentor.Mentor.HasCapacity(mentor.Load) {
		return nil, apperrors.ErrMentorAtCapacity
	}

	a := &models.MentorAssignment{
		StudentID:        student.ID,
		MentorID:         mentor.Mentor.ID,
		AcademicYear:     req.AcademicYear,
		AssignedBy:       actor.UserID,
		AssignmentReason: req.Reason,
	}
	if err := s.assignments.Assign(ctx, a); err != nil {
		return nil, err
	}
	a.Student = student
	a.Mentor = &mentor.Mentor

	s.announceMentor(ctx, student, &mentor.Mentor, req.AcademicYear)
	s.announceMentees(ctx, &mentor.Mentor, 1, req.AcademicYear)
	return a, nil
}

// Remove ends an active assignment
func (s *MentorService) Remove(ctx context.Context, actor appauth.Actor, id int64) error {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := actor.CheckInstitution(a.Student.InstitutionID); err != nil {
		return err
	}
	return s.assignments.Deactivate(ctx, id)
}

// List returns a page of assignments within the actor's scope
func (s *MentorService) List(ctx context.Context, actor appauth.Actor, filter repositories.AssignmentFilter, page, size int) ([]models.MentorAssignment, int64, error) {
	if !actor.IsCrossInstitution() {
		institutionID, err := actor.Institution()
		if err != nil {
			return nil, 0, err
		}
		filter.InstitutionID = &institutionID
	}
	return s.assignments.List(ctx, filter, page, size)
}

// Mentees returns the active mentees of a faculty supervisor
func (s *MentorService) Mentees(ctx context.Context, actor appauth.Actor, page, size int) ([]models.MentorAssignment, int64, error) {
	staff, err := s.authz.StaffOf(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	return s.assignments.List(ctx, repositories.AssignmentFilter{MentorID: &staff.ID, ActiveOnly: true}, page, size)
}

// CurrentMentor returns the active assignment of the calling student
func (s *MentorService) CurrentMentor(ctx context.Context, actor appauth.Actor) (*models.MentorAssignment, error) {
	student, err := s.authz.StudentOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.assignments.GetActiveForStudent(ctx, student.ID)
}

// AutoAssign distributes the unassigned active students of an institution over its
// active faculty supervisors and persists every placement in one transaction
func (s *MentorService) AutoAssign(ctx context.Context, actor appauth.Actor, institutionID int64, req *dto.AutoAssignRequest) (*dto.AutoAssignResult, error) {
	if err := actor.CheckInstitution(institutionID); err != nil {
		return nil, err
	}

	mentors, err := s.mentors.ListMentorLoads(ctx, institutionID, req.AcademicYear, req.BranchID, req.MentorIDs)
	if err != nil {
		return nil, err
	}
	if len(mentors) == 0 {
		return nil, apperrors.ErrNoMentorsAvailable
	}

	students, err := s.students.ListUnassigned(ctx, institutionID, req.AcademicYear, req.BranchID)
	if err != nil {
		return nil, err
	}

	allocation := AllocateMentors(students, mentors)

	batch := make([]models.MentorAssignment, len(allocation.Placements))
	for i, p := range allocation.Placements {
		batch[i] = models.MentorAssignment{
			StudentID:        p.StudentID,
			MentorID:         p.MentorID,
			AcademicYear:     req.AcademicYear,
			AssignedBy:       actor.UserID,
			AssignmentReason: helpers.Ptr(autoAssignReason),
		}
	}
	if err := s.assignments.AssignBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to persist assignments: %w", err)
	}

	result := &dto.AutoAssignResult{
		Assigned:   len(allocation.Placements),
		Skipped:    len(allocation.Unassigned),
		Unassigned: allocation.Unassigned,
		PerMentor:  make([]dto.MentorLoadChange, len(allocation.Mentors)),
	}
	for i, m := range allocation.Mentors {
		name := ""
		if m.Mentor.User != nil {
			name = m.Mentor.User.FullName()
		}
		result.PerMentor[i] = dto.MentorLoadChange{
			MentorID:   m.Mentor.ID,
			Name:       name,
			Before:     m.Before,
			After:      m.After,
			MaxMentees: m.Mentor.MaxMentees,
		}
	}

	s.notifyAllocation(ctx, students, allocation, req.AcademicYear)

	s.audit.Record(ctx, actor, models.AuditActionMentorAutoAssign, "mentor_assignments", strconv.FormatInt(institutionID, 10), map[string]any{
		"institutionId": institutionID,
		"academicYear":  req.AcademicYear,
		"branchId":      req.BranchID,
		"assigned":      result.Assigned,
		"unassigned":    len(result.Unassigned),
		"mentors":       len(mentors),
	})
	s.logger.Info().
		Int64("institutionId", institutionID).
		Str("academicYear", req.AcademicYear).
		Int("assigned", result.Assigned).
		Int("unassigned", len(result.Unassigned)).
		Msg("Mentor auto-assignment finished")

	return result, nil
}

func (s *MentorService) notifyAllocation(ctx context.Context, students []models.Student, allocation Allocation, academicYear string) {
	byID := make(map[int64]*models.Student, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}
	mentorByID := make(map[int64]*models.Staff, len(allocation.Mentors))
	for i := range allocation.Mentors {
		mentorByID[allocation.Mentors[i].Mentor.ID] = &allocation.Mentors[i].Mentor
	}

	for _, p := range allocation.Placements {
		if student, ok := byID[p.StudentID]; ok {
			s.announceMentor(ctx, student, mentorByID[p.MentorID], academicYear)
		}
	}
	for i := range allocation.Mentors {
		m := &allocation.Mentors[i]
		if added := m.After - m.Before; added > 0 {
			s.announceMentees(ctx, &m.Mentor, added, academicYear)
		}
	}
}

func (s *MentorService) announceMentor(ctx context.Context, student *models.Student, mentor *models.Staff, academicYear string) {
	if student == nil || student.User == nil || mentor == nil {
		return
	}
	name := ""
	if mentor.User != nil {
		name = mentor.User.FullName()
	}
	s.notifier.NotifyUser(ctx, student.User, Notice{
		Title:         "Mentor assigned",
		Body:          fmt.Sprintf("%s is your faculty mentor for %s.", name, academicYear),
		Category:      models.NotificationMentor,
		Link:          "/student/mentor",
		EmailTemplate: email.TemplateMentorAssigned,
		EmailData: map[string]any{
			"audience":     "student",
			"mentorName":   name,
			"academicYear": academicYear,
			"link":         "/student/mentor",
		},
	})
}

func (s *MentorService) announceMentees(ctx context.Context, mentor *models.Staff, count int, academicYear string) {
	if mentor == nil || mentor.User == nil {
		return
	}
	s.notifier.NotifyUser(ctx, mentor.User, Notice{
		Title:         "New mentees assigned",
		Body:          fmt.Sprintf("%d student(s) were assigned to you for %s.", count, academicYear),
		Category:      models.NotificationMentor,
		Link:          "/faculty/mentees",
		EmailTemplate: email.TemplateMentorAssigned,
		EmailData: map[string]any{
			"audience":     "mentor",
			"count":        count,
			"academicYear": academicYear,
			"link":         "/faculty/mentees",
		},
	})
}
