package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// GrievanceStore persists grievances and their history
type GrievanceStore interface {
	Create(ctx context.Context, g *models.Grievance, actorID int64) error
	GetByID(ctx context.Context, id int64) (*models.Grievance, error)
	History(ctx context.Context, grievanceID int64) ([]models.GrievanceEvent, error)
	List(ctx context.Context, filter models.GrievanceFilter, page, size int) ([]models.Grievance, int64, error)
	ApplyTransition(ctx context.Context, g *models.Grievance, event *models.GrievanceEvent) error
}

// GrievanceService runs the grievance workflow across the escalation chain
type GrievanceService struct {
	grievances GrievanceStore
	students   interface {
		GetByID(ctx context.Context, id int64) (*models.Student, error)
	}
	assignments interface {
		GetActiveForStudent(ctx context.Context, studentID int64) (*models.MentorAssignment, error)
	}
	authz    *appauth.AuthorizationService
	notifier Notifier
	audit    Auditor
	logger   zerolog.Logger
	now      func() time.Time
}

// NewGrievanceService creates a new GrievanceService
func NewGrievanceService(
	grievances GrievanceStore,
	students interface {
		GetByID(ctx context.Context, id int64) (*models.Student, error)
	},
	assignments interface {
		GetActiveForStudent(ctx context.Context, studentID int64) (*models.MentorAssignment, error)
	},
	authz *appauth.AuthorizationService,
	notifier Notifier,
	audit Auditor,
	logger zerolog.Logger,
) *GrievanceService {
	return &GrievanceService{
		grievances:  grievances,
		students:    students,
		assignments: assignments,
		authz:       authz,
		notifier:    notifier,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

// File records a new grievance for the calling student. It is routed to the
// student's live mentor at faculty level, or straight to the principal when
// the student has none.
func (s *GrievanceService) File(ctx context.Context, actor appauth.Actor, req *dto.GrievanceRequest) (*models.Grievance, error) {
	student, err := s.authz.StudentOf(ctx, actor)
	if err != nil {
		return nil, err
	}

	g := &models.Grievance{
		StudentID:       student.ID,
		InstitutionID:   student.InstitutionID,
		Category:        models.GrievanceCategory(req.Category),
		Subject:         strings.TrimSpace(req.Subject),
		Description:     strings.TrimSpace(req.Description),
		Status:          models.GrievanceSubmitted,
		EscalationLevel: models.LevelFaculty,
	}

	mentor, err := s.liveMentor(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if mentor != nil {
		g.AssignedTo = &mentor.UserID
	} else {
		g.EscalationLevel = models.LevelPrincipal
	}

	if err := s.grievances.Create(ctx, g, actor.UserID); err != nil {
		return nil, err
	}

	if mentor == nil {
		s.logger.Info().Int64("grievanceId", g.ID).Int64("studentId", student.ID).
			Msg("Student has no mentor, grievance filed with principal")
		return g, nil
	}
	s.notifier.NotifyUser(ctx, mentor.User, Notice{
		Title:    "New grievance",
		Body:     fmt.Sprintf("A mentee filed a grievance: %s", g.Subject),
		Category: models.NotificationGrievance,
		Link:     fmt.Sprintf("/faculty/grievances/%d", g.ID),
	})
	return g, nil
}

// liveMentor returns the student's current mentor, or nil when there is no
// active assignment or the mentor's staff record or account is deactivated
func (s *GrievanceService) liveMentor(ctx context.Context, studentID int64) (*models.Staff, error) {
	assignment, err := s.assignments.GetActiveForStudent(ctx, studentID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrAssignmentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	m := assignment.Mentor
	if m == nil || !m.IsActive || (m.User != nil && !m.User.IsActive) {
		return nil, nil
	}
	return m, nil
}

// List returns the grievances the actor owns or handles
func (s *GrievanceService) List(ctx context.Context, actor appauth.Actor, filter models.GrievanceFilter, page, size int) ([]models.Grievance, int64, error) {
	switch actor.Role {
	case models.RoleStudent:
		student, err := s.authz.StudentOf(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		filter.StudentID = &student.ID
	case models.RoleFacultySupervisor:
		filter.MentorUserID = &actor.UserID
		filter.Level = helpers.Ptr(models.LevelFaculty)
	case models.RolePrincipal:
		institutionID, err := actor.Institution()
		if err != nil {
			return nil, 0, err
		}
		filter.InstitutionID = &institutionID
		filter.Level = helpers.Ptr(models.LevelPrincipal)
		filter.WithOrphaned = true
	case models.RoleStateDirectorate:
		filter.Level = helpers.Ptr(models.LevelStateDirectorate)
	}
	return s.grievances.List(ctx, filter, page, size)
}

// Get returns a grievance with its history
func (s *GrievanceService) Get(ctx context.Context, actor appauth.Actor, id int64) (*models.Grievance, error) {
	g, err := s.grievances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, g); err != nil {
		return nil, err
	}
	history, err := s.grievances.History(ctx, id)
	if err != nil {
		return nil, err
	}
	g.History = history
	return g, nil
}

func (s *GrievanceService) canView(ctx context.Context, actor appauth.Actor, g *models.Grievance) error {
	switch actor.Role {
	case models.RoleSystemAdmin:
		return nil
	case models.RoleStudent:
		student, err := s.authz.StudentOf(ctx, actor)
		if err != nil {
			return err
		}
		if student.ID != g.StudentID {
			return apperrors.ErrGrievanceNotFound
		}
		return nil
	}
	return s.canHandle(ctx, actor, g)
}

// canHandle reports whether actor works the grievance at its current level.
// Faculty-level grievances belong to the student's live mentor; once the
// student has none, the institution's principal takes them over.
func (s *GrievanceService) canHandle(ctx context.Context, actor appauth.Actor, g *models.Grievance) error {
	wrongLevel := apperrors.NewForbiddenError(fmt.Sprintf("grievance is handled at %s level", g.EscalationLevel))
	level, ok := models.LevelForRole(actor.Role)
	if !ok {
		return wrongLevel
	}

	switch actor.Role {
	case models.RoleFacultySupervisor:
		if g.EscalationLevel != models.LevelFaculty {
			return wrongLevel
		}
		mentor, err := s.liveMentor(ctx, g.StudentID)
		if err != nil {
			return err
		}
		if mentor == nil || mentor.UserID != actor.UserID {
			return apperrors.NewForbiddenError("grievance is not assigned to you")
		}
		return nil
	case models.RolePrincipal:
		if err := actor.CheckInstitution(g.InstitutionID); err != nil {
			return err
		}
		if g.EscalationLevel == models.LevelFaculty {
			mentor, err := s.liveMentor(ctx, g.StudentID)
			if err != nil {
				return err
			}
			if mentor == nil {
				return nil
			}
		}
	}

	if level != g.EscalationLevel {
		return wrongLevel
	}
	return nil
}

func (s *GrievanceService) transition(
	ctx context.Context,
	actor appauth.Actor,
	g *models.Grievance,
	to models.GrievanceStatus,
	level models.EscalationLevel,
	remarks *string,
) error {
	if !g.Status.CanTransitionTo(to) {
		return apperrors.NewCustomError(apperrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move grievance from %s to %s", g.Status, to))
	}

	now := s.now()
	event := &models.GrievanceEvent{
		GrievanceID: g.ID,
		FromStatus:  g.Status,
		ToStatus:    to,
		FromLevel:   g.EscalationLevel,
		ToLevel:     level,
		ActorID:     actor.UserID,
		Remarks:     remarks,
		CreatedAt:   now,
	}

	next := *g
	next.Status = to
	next.EscalationLevel = level
	next.UpdatedAt = now
	switch to {
	case models.GrievanceResolved:
		next.ResolvedAt = &now
	case models.GrievanceClosed:
		next.ClosedAt = &now
	}
	switch {
	case level != g.EscalationLevel:
		next.AssignedTo = nil
	case actor.Role == models.RoleFacultySupervisor:
		next.AssignedTo = &actor.UserID
	}

	if err := s.grievances.ApplyTransition(ctx, &next, event); err != nil {
		return err
	}
	*g = next
	g.History = append(g.History, *event)
	return nil
}

func (s *GrievanceService) handled(ctx context.Context, actor appauth.Actor, id int64) (*models.Grievance, error) {
	g, err := s.grievances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canHandle(ctx, actor, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Review marks a grievance as picked up at its current level
func (s *GrievanceService) Review(ctx context.Context, actor appauth.Actor, id int64, req *dto.GrievanceActionRequest) (*models.Grievance, error) {
	g, err := s.handled(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, actor, g, models.GrievanceInReview, g.EscalationLevel, req.Remarks); err != nil {
		return nil, err
	}
	s.notifyStudent(ctx, g, req.Remarks)
	return g, nil
}

// Escalate hands a grievance to the next level of the chain
func (s *GrievanceService) Escalate(ctx context.Context, actor appauth.Actor, id int64, req *dto.GrievanceActionRequest) (*models.Grievance, error) {
	g, err := s.handled(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	next, ok := g.EscalationLevel.Next()
	if !ok {
		return nil, apperrors.ErrEscalationLimitReached
	}
	from := g.EscalationLevel
	if err := s.transition(ctx, actor, g, models.GrievanceEscalated, next, req.Remarks); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditActionGrievanceEscalate, "grievance", fmt.Sprint(g.ID), map[string]any{
		"fromLevel": string(from),
		"toLevel":   string(next),
		"remarks":   helpers.Deref(req.Remarks),
	})
	s.notifyStudent(ctx, g, req.Remarks)
	return g, nil
}

// Resolve closes the handling of a grievance with a resolution
func (s *GrievanceService) Resolve(ctx context.Context, actor appauth.Actor, id int64, req *dto.ResolveGrievanceRequest) (*models.Grievance, error) {
	g, err := s.handled(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	resolution := strings.TrimSpace(req.Resolution)
	if resolution == "" {
		return nil, fmt.Errorf("%w: resolution is required", apperrors.ErrValidationFailed)
	}

	previous := g.Resolution
	g.Resolution = &resolution
	if err := s.transition(ctx, actor, g, models.GrievanceResolved, g.EscalationLevel, &resolution); err != nil {
		g.Resolution = previous
		return nil, err
	}
	s.notifyStudent(ctx, g, &resolution)
	return g, nil
}

// Close lets the student close a resolved grievance
func (s *GrievanceService) Close(ctx context.Context, actor appauth.Actor, id int64, req *dto.GrievanceActionRequest) (*models.Grievance, error) {
	student, err := s.authz.StudentOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	g, err := s.grievances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.StudentID != student.ID {
		return nil, apperrors.ErrGrievanceNotFound
	}
	if err := s.transition(ctx, actor, g, models.GrievanceClosed, g.EscalationLevel, req.Remarks); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GrievanceService) notifyStudent(ctx context.Context, g *models.Grievance, remarks *string) {
	student, err := s.students.GetByID(ctx, g.StudentID)
	if err != nil {
		s.logger.Error().Err(err).Int64("grievanceId", g.ID).Msg("Failed to load grievance owner")
		return
	}
	status := strings.ToLower(strings.ReplaceAll(string(g.Status), "_", " "))
	s.notifier.NotifyUser(ctx, student.User, Notice{
		Title:         "Grievance " + status,
		Body:          fmt.Sprintf("Your grievance %q is now %s at %s level.", g.Subject, status, g.EscalationLevel),
		Category:      models.NotificationGrievance,
		Link:          fmt.Sprintf("/student/grievances/%d", g.ID),
		EmailTemplate: email.TemplateGrievanceUpdate,
		EmailData: map[string]any{
			"grievanceId": g.ID,
			"subject":     g.Subject,
			"status":      string(g.Status),
			"level":       string(g.EscalationLevel),
			"remarks":     helpers.Deref(remarks),
		},
	})
}
