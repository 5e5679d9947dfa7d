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

// ApplicationStore persists internship applications
type ApplicationStore interface {
	Create(ctx context.Context, a *models.InternshipApplication) error
	GetByID(ctx context.Context, id int64) (*models.InternshipApplication, error)
	List(ctx context.Context, filter models.ApplicationFilter, page, size int) ([]models.InternshipApplication, int64, error)
	HasApproved(ctx context.Context, studentID, excludeID int64) (bool, error)
	UpdateDetails(ctx context.Context, a *models.InternshipApplication) error
	UpdateStatus(ctx context.Context, id int64, from, to models.ApplicationStatus, remarks *string, reviewerID *int64) error
}

// MonthlyReportStore persists monthly reports
type MonthlyReportStore interface {
	Create(ctx context.Context, m *models.MonthlyReport) error
	GetByID(ctx context.Context, id int64) (*models.MonthlyReport, error)
	List(ctx context.Context, filter models.MonthlyReportFilter, page, size int) ([]models.MonthlyReport, int64, error)
	Review(ctx context.Context, id int64, to models.ReportStatus, remarks *string, reviewerID int64) error
	Resubmit(ctx context.Context, id int64, summary string, hours int) error
}

// InternshipService handles applications and monthly reports
type InternshipService struct {
	applications ApplicationStore
	reports      MonthlyReportStore
	students     interface {
		GetByID(ctx context.Context, id int64) (*models.Student, error)
	}
	authz    *appauth.AuthorizationService
	notifier Notifier
	logger   zerolog.Logger
}

// NewInternshipService creates a new InternshipService
func NewInternshipService(
	applications ApplicationStore,
	reports MonthlyReportStore,
	students interface {
		GetByID(ctx context.Context, id int64) (*models.Student, error)
	},
	authz *appauth.AuthorizationService,
	notifier Notifier,
	logger zerolog.Logger,
) *InternshipService {
	return &InternshipService{
		applications: applications,
		reports:      reports,
		students:     students,
		authz:        authz,
		notifier:     notifier,
		logger:       logger,
	}
}

func isReviewer(role models.RoleType) bool {
	return role == models.RoleFacultySupervisor || role == models.RolePrincipal
}

func applyApplication(a *models.InternshipApplication, req *dto.ApplicationRequest) error {
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return fmt.Errorf("%w: startDate must be YYYY-MM-DD", apperrors.ErrValidationFailed)
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return fmt.Errorf("%w: endDate must be YYYY-MM-DD", apperrors.ErrValidationFailed)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: endDate must not be before startDate", apperrors.ErrValidationFailed)
	}
	a.CompanyName = strings.TrimSpace(req.CompanyName)
	a.CompanyAddress = strings.TrimSpace(req.CompanyAddress)
	a.IndustrySector = strings.TrimSpace(req.IndustrySector)
	a.RoleTitle = strings.TrimSpace(req.RoleTitle)
	a.StartDate = start
	a.EndDate = end
	a.Stipend = req.Stipend
	return nil
}

// CreateApplication files an internship application for the calling student
func (s *InternshipService) CreateApplication(ctx context.Context, actor appauth.Actor, req *dto.ApplicationRequest) (*models.InternshipApplication, error) {
	student, err := s.authz.StudentOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	a := &models.InternshipApplication{StudentID: student.ID}
	if err := applyApplication(a, req); err != nil {
		return nil, err
	}
	if err := s.applications.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetApplication returns an application the actor may see
func (s *InternshipService) GetApplication(ctx context.Context, actor appauth.Actor, id int64) (*models.InternshipApplication, error) {
	a, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessStudent(ctx, actor, a.Student); err != nil {
		return nil, err
	}
	return a, nil
}

// ListApplications returns the applications within the actor's reach
func (s *InternshipService) ListApplications(ctx context.Context, actor appauth.Actor, filter models.ApplicationFilter, page, size int) ([]models.InternshipApplication, int64, error) {
	switch actor.Role {
	case models.RoleStudent:
		student, err := s.authz.StudentOf(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		filter.StudentID = &student.ID
	case models.RoleFacultySupervisor:
		staff, err := s.authz.StaffOf(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		filter.MentorID = &staff.ID
	case models.RolePrincipal:
		institutionID, err := actor.Institution()
		if err != nil {
			return nil, 0, err
		}
		filter.InstitutionID = &institutionID
	}
	return s.applications.List(ctx, filter, page, size)
}

// UpdateApplication edits an application that is still APPLIED
func (s *InternshipService) UpdateApplication(ctx context.Context, actor appauth.Actor, id int64, req *dto.ApplicationRequest) (*models.InternshipApplication, error) {
	a, err := s.ownApplication(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.ApplicationApplied {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition, "only applications in APPLIED state can be edited")
	}
	if err := applyApplication(a, req); err != nil {
		return nil, err
	}
	if err := s.applications.UpdateDetails(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// WithdrawApplication withdraws one of the caller's applications
func (s *InternshipService) WithdrawApplication(ctx context.Context, actor appauth.Actor, id int64) (*models.InternshipApplication, error) {
	a, err := s.ownApplication(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransitionTo(models.ApplicationWithdrawn) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition,
			fmt.Sprintf("an application in %s state cannot be withdrawn", a.Status))
	}
	if err := s.applications.UpdateStatus(ctx, id, a.Status, models.ApplicationWithdrawn, nil, nil); err != nil {
		return nil, err
	}
	a.Status = models.ApplicationWithdrawn
	return a, nil
}

func (s *InternshipService) ownApplication(ctx context.Context, actor appauth.Actor, id int64) (*models.InternshipApplication, error) {
	student, err := s.authz.StudentOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	a, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.StudentID != student.ID {
		return nil, apperrors.ErrApplicationNotFound
	}
	return a, nil
}

// ReviewApplication moves an application through review. A student may hold only
// one APPROVED application at a time.
func (s *InternshipService) ReviewApplication(ctx context.Context, actor appauth.Actor, id int64, req *dto.ReviewRequest) (*models.InternshipApplication, error) {
	if !isReviewer(actor.Role) {
		return nil, apperrors.NewForbiddenError("only mentors and principals review applications")
	}
	a, err := s.GetApplication(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	to := models.ApplicationStatus(req.Status)
	if !to.IsValid() || !a.Status.CanTransitionTo(to) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move application from %s to %s", a.Status, to))
	}
	if to == models.ApplicationApproved {
		approved, err := s.applications.HasApproved(ctx, a.StudentID, a.ID)
		if err != nil {
			return nil, err
		}
		if approved {
			return nil, apperrors.ErrActiveInternshipExists
		}
	}

	if err := s.applications.UpdateStatus(ctx, id, a.Status, to, req.Remarks, &actor.UserID); err != nil {
		return nil, err
	}
	now := time.Now()
	a.Status = to
	a.Remarks = req.Remarks
	a.ReviewedBy = &actor.UserID
	a.ReviewedAt = &now

	s.notifier.NotifyUser(ctx, a.Student.User, Notice{
		Title:         "Application " + strings.ToLower(strings.ReplaceAll(string(to), "_", " ")),
		Body:          fmt.Sprintf("Your application to %s is now %s.", a.CompanyName, to),
		Category:      models.NotificationApplication,
		Link:          fmt.Sprintf("/student/applications/%d", a.ID),
		EmailTemplate: email.TemplateApplicationStatus,
		EmailData: map[string]any{
			"roleTitle":   a.RoleTitle,
			"companyName": a.CompanyName,
			"status":      string(to),
			"remarks":     helpers.Deref(req.Remarks),
		},
	})
	return a, nil
}

// SubmitReport files a monthly report against the caller's approved internship
func (s *InternshipService) SubmitReport(ctx context.Context, actor appauth.Actor, req *dto.MonthlyReportRequest) (*models.MonthlyReport, error) {
	a, err := s.ownApplication(ctx, actor, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.ApplicationApproved {
		return nil, apperrors.ErrApplicationNotApproved
	}
	if !a.CoversMonth(req.ReportMonth, req.ReportYear) {
		return nil, apperrors.ErrReportOutsideInternship
	}

	m := &models.MonthlyReport{
		ApplicationID: a.ID,
		StudentID:     a.StudentID,
		ReportMonth:   req.ReportMonth,
		ReportYear:    req.ReportYear,
		Summary:       strings.TrimSpace(req.Summary),
		HoursWorked:   req.HoursWorked,
	}
	if err := s.reports.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ResubmitReport replaces a rejected report and sends it back for review
func (s *InternshipService) ResubmitReport(ctx context.Context, actor appauth.Actor, id int64, req *dto.ResubmitReportRequest) (*models.MonthlyReport, error) {
	student, err := s.authz.StudentOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	m, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.StudentID != student.ID {
		return nil, apperrors.ErrMonthlyReportNotFound
	}
	if !m.Status.CanTransitionTo(models.ReportSubmitted) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition, "only rejected reports can be resubmitted")
	}
	if err := s.reports.Resubmit(ctx, id, strings.TrimSpace(req.Summary), req.HoursWorked); err != nil {
		return nil, err
	}
	return s.reports.GetByID(ctx, id)
}

// GetReport returns a monthly report the actor may see
func (s *InternshipService) GetReport(ctx context.Context, actor appauth.Actor, id int64) (*models.MonthlyReport, error) {
	m, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.reportStudent(ctx, actor, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *InternshipService) reportStudent(ctx context.Context, actor appauth.Actor, m *models.MonthlyReport) (*models.Student, error) {
	student, err := s.students.GetByID(ctx, m.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessStudent(ctx, actor, student); err != nil {
		return nil, err
	}
	return student, nil
}

// ListReports returns the monthly reports within the actor's reach
func (s *InternshipService) ListReports(ctx context.Context, actor appauth.Actor, filter models.MonthlyReportFilter, page, size int) ([]models.MonthlyReport, int64, error) {
	switch actor.Role {
	case models.RoleStudent:
		student, err := s.authz.StudentOf(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		filter.StudentID = &student.ID
	case models.RoleFacultySupervisor:
		staff, err := s.authz.StaffOf(ctx, actor)
		if err != nil {
			return nil, 0, err
		}
		filter.MentorID = &staff.ID
	case models.RolePrincipal:
		institutionID, err := actor.Institution()
		if err != nil {
			return nil, 0, err
		}
		filter.InstitutionID = &institutionID
	}
	return s.reports.List(ctx, filter, page, size)
}

// ReviewReport approves or rejects a submitted monthly report
func (s *InternshipService) ReviewReport(ctx context.Context, actor appauth.Actor, id int64, req *dto.ReportReviewRequest) (*models.MonthlyReport, error) {
	if !isReviewer(actor.Role) {
		return nil, apperrors.NewForbiddenError("only mentors and principals review monthly reports")
	}
	m, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	student, err := s.reportStudent(ctx, actor, m)
	if err != nil {
		return nil, err
	}

	to := models.ReportStatus(req.Status)
	if !m.Status.CanTransitionTo(to) || to == models.ReportSubmitted {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move report from %s to %s", m.Status, to))
	}
	if to == models.ReportRejected && strings.TrimSpace(helpers.Deref(req.Remarks)) == "" {
		return nil, fmt.Errorf("%w: remarks are required when rejecting a report", apperrors.ErrValidationFailed)
	}
	if err := s.reports.Review(ctx, id, to, req.Remarks, actor.UserID); err != nil {
		return nil, err
	}
	now := time.Now()
	m.Status = to
	m.ReviewerRemarks = req.Remarks
	m.ReviewedBy = &actor.UserID
	m.ReviewedAt = &now

	s.notifier.NotifyUser(ctx, student.User, Notice{
		Title:         "Monthly report " + strings.ToLower(string(to)),
		Body:          fmt.Sprintf("Your report for %s was %s.", m.Period(), strings.ToLower(string(to))),
		Category:      models.NotificationReport,
		Link:          fmt.Sprintf("/student/reports/%d", m.ID),
		EmailTemplate: email.TemplateReportReviewed,
		EmailData: map[string]any{
			"period":  m.Period(),
			"status":  string(to),
			"remarks": helpers.Deref(req.Remarks),
		},
	})
	return m, nil
}
