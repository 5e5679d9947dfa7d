package services

import (
	"context"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/repositories"
	"github.com/placeintern/backend/internal/pkg/apperrors"
)

// DashboardStore computes aggregate counts
type DashboardStore interface {
	InstitutionSummary(ctx context.Context, institutionID int64) (*repositories.InstitutionCounts, error)
	StateOverview(ctx context.Context) ([]repositories.InstitutionCounts, error)
	FacultySummary(ctx context.Context, staffID int64) (*repositories.FacultyCounts, error)
	StudentReportCounts(ctx context.Context, studentID int64) (map[string]int64, error)
}

// DashboardService builds the per-role dashboards
type DashboardService struct {
	counts       DashboardStore
	applications interface {
		List(ctx context.Context, filter models.ApplicationFilter, page, size int) ([]models.InternshipApplication, int64, error)
		GetApprovedForStudent(ctx context.Context, studentID int64) (*models.InternshipApplication, error)
	}
	assignments interface {
		GetActiveForStudent(ctx context.Context, studentID int64) (*models.MentorAssignment, error)
	}
	grievances interface {
		List(ctx context.Context, filter models.GrievanceFilter, page, size int) ([]models.Grievance, int64, error)
	}
	authz  *appauth.AuthorizationService
	logger zerolog.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	counts DashboardStore,
	applications interface {
		List(ctx context.Context, filter models.ApplicationFilter, page, size int) ([]models.InternshipApplication, int64, error)
		GetApprovedForStudent(ctx context.Context, studentID int64) (*models.InternshipApplication, error)
	},
	assignments interface {
		GetActiveForStudent(ctx context.Context, studentID int64) (*models.MentorAssignment, error)
	},
	grievances interface {
		List(ctx context.Context, filter models.GrievanceFilter, page, size int) ([]models.Grievance, int64, error)
	},
	authz *appauth.AuthorizationService,
	logger zerolog.Logger,
) *DashboardService {
	return &DashboardService{
		counts:       counts,
		applications: applications,
		assignments:  assignments,
		grievances:   grievances,
		authz:        authz,
		logger:       logger,
	}
}

// Principal returns the counts of the principal's institution
func (s *DashboardService) Principal(ctx context.Context, actor appauth.Actor) (*repositories.InstitutionCounts, error) {
	institutionID, err := actor.Institution()
	if err != nil {
		return nil, err
	}
	return s.counts.InstitutionSummary(ctx, institutionID)
}

// Institution returns the counts of any institution the actor may see
func (s *DashboardService) Institution(ctx context.Context, actor appauth.Actor, institutionID int64) (*repositories.InstitutionCounts, error) {
	if err := actor.CheckInstitution(institutionID); err != nil {
		return nil, err
	}
	return s.counts.InstitutionSummary(ctx, institutionID)
}

// Faculty returns the workload of the calling mentor
func (s *DashboardService) Faculty(ctx context.Context, actor appauth.Actor) (*repositories.FacultyCounts, error) {
	staff, err := s.authz.StaffOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.counts.FacultySummary(ctx, staff.ID)
}

// Student returns the internship progress of the calling student
func (s *DashboardService) Student(ctx context.Context, actor appauth.Actor) (*dto.StudentDashboard, error) {
	student, err := s.authz.StudentOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	out := &dto.StudentDashboard{}

	if out.Internship, err = s.applications.GetApprovedForStudent(ctx, student.ID); err != nil {
		if !apperrors.Is(err, apperrors.ErrApplicationNotFound) {
			return nil, err
		}
		out.Internship = nil
	}
	if _, out.ApplicationCount, err = s.applications.List(ctx, models.ApplicationFilter{StudentID: &student.ID}, 1, 1); err != nil {
		return nil, err
	}
	if out.ReportsByStatus, err = s.counts.StudentReportCounts(ctx, student.ID); err != nil {
		return nil, err
	}
	if _, out.OpenGrievances, err = s.grievances.List(ctx, models.GrievanceFilter{StudentID: &student.ID, OpenOnly: true}, 1, 1); err != nil {
		return nil, err
	}

	assignment, err := s.assignments.GetActiveForStudent(ctx, student.ID)
	switch {
	case err == nil:
		out.Mentor = &dto.MentorSummary{
			StaffID:      assignment.MentorID,
			Name:         assignment.Mentor.User.FullName(),
			Email:        assignment.Mentor.User.Email,
			Designation:  assignment.Mentor.Designation,
			AcademicYear: assignment.AcademicYear,
		}
	case !apperrors.Is(err, apperrors.ErrAssignmentNotFound):
		return nil, err
	}
	return out, nil
}

// StateOverview returns per-institution counts and their totals
func (s *DashboardService) StateOverview(ctx context.Context) ([]repositories.InstitutionCounts, dto.StateTotals, error) {
	rows, err := s.counts.StateOverview(ctx)
	if err != nil {
		return nil, dto.StateTotals{}, err
	}
	totals := dto.StateTotals{Institutions: len(rows)}
	for _, r := range rows {
		totals.Students += r.Students
		totals.AssignedStudents += r.AssignedStudents
		totals.ApprovedInternships += r.ApprovedInternships
		totals.OpenGrievances += r.OpenGrievances
	}
	if rows == nil {
		rows = []repositories.InstitutionCounts{}
	}
	return rows, totals, nil
}
