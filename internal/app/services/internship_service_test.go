package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

type memoryApplications struct {
	dir    *directory
	nextID int64
	items  map[int64]models.InternshipApplication
}

func (m *memoryApplications) Create(_ context.Context, a *models.InternshipApplication) error {
	m.nextID++
	a.ID = m.nextID
	a.Status = models.ApplicationApplied
	m.items[a.ID] = *a
	return nil
}

func (m *memoryApplications) GetByID(_ context.Context, id int64) (*models.InternshipApplication, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, apperrors.ErrApplicationNotFound
	}
	a.Student = m.dir.students[a.StudentID]
	return &a, nil
}

func (m *memoryApplications) List(_ context.Context, filter models.ApplicationFilter, _, _ int) ([]models.InternshipApplication, int64, error) {
	var out []models.InternshipApplication
	for _, a := range m.items {
		if filter.StudentID != nil && a.StudentID != *filter.StudentID {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (m *memoryApplications) HasApproved(_ context.Context, studentID, excludeID int64) (bool, error) {
	for _, a := range m.items {
		if a.StudentID == studentID && a.ID != excludeID && a.Status == models.ApplicationApproved {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryApplications) UpdateDetails(_ context.Context, a *models.InternshipApplication) error {
	if m.items[a.ID].Status != models.ApplicationApplied {
		return apperrors.ErrInvalidTransition
	}
	m.items[a.ID] = *a
	return nil
}

func (m *memoryApplications) UpdateStatus(_ context.Context, id int64, from, to models.ApplicationStatus, remarks *string, _ *int64) error {
	a := m.items[id]
	if a.Status != from {
		return apperrors.ErrInvalidTransition
	}
	a.Status = to
	a.Remarks = remarks
	m.items[id] = a
	return nil
}

type memoryMonthlyReports struct {
	nextID int64
	items  map[int64]models.MonthlyReport
}

func (m *memoryMonthlyReports) Create(_ context.Context, r *models.MonthlyReport) error {
	for _, existing := range m.items {
		if existing.ApplicationID == r.ApplicationID && existing.ReportMonth == r.ReportMonth && existing.ReportYear == r.ReportYear {
			return apperrors.ErrMonthlyReportExists
		}
	}
	m.nextID++
	r.ID = m.nextID
	r.Status = models.ReportSubmitted
	m.items[r.ID] = *r
	return nil
}

func (m *memoryMonthlyReports) GetByID(_ context.Context, id int64) (*models.MonthlyReport, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, apperrors.ErrMonthlyReportNotFound
	}
	return &r, nil
}

func (m *memoryMonthlyReports) List(_ context.Context, _ models.MonthlyReportFilter, _, _ int) ([]models.MonthlyReport, int64, error) {
	var out []models.MonthlyReport
	for _, r := range m.items {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (m *memoryMonthlyReports) Review(_ context.Context, id int64, to models.ReportStatus, remarks *string, reviewerID int64) error {
	r := m.items[id]
	if r.Status != models.ReportSubmitted {
		return apperrors.ErrInvalidTransition
	}
	r.Status, r.ReviewerRemarks, r.ReviewedBy = to, remarks, &reviewerID
	m.items[id] = r
	return nil
}

func (m *memoryMonthlyReports) Resubmit(_ context.Context, id int64, summary string, hours int) error {
	r := m.items[id]
	if r.Status != models.ReportRejected {
		return apperrors.ErrInvalidTransition
	}
	r.Status, r.Summary, r.HoursWorked = models.ReportSubmitted, summary, hours
	m.items[id] = r
	return nil
}

type internshipFixture struct {
	svc      *InternshipService
	notifier *recordingNotifier
	student  *models.Student
	mentor   *models.Staff
	outsider *models.Staff
}

func newInternshipFixture() *internshipFixture {
	dir := newDirectory()
	student := dir.addStudent(&models.Student{ID: 100, UserID: 10, InstitutionID: 3})
	mentor := dir.addStaff(&models.Staff{ID: 200, UserID: 20, InstitutionID: 3})
	outsider := dir.addStaff(&models.Staff{ID: 201, UserID: 21, InstitutionID: 3})
	dir.mentor(mentor.ID, student.ID)

	f := &internshipFixture{notifier: &recordingNotifier{}, student: student, mentor: mentor, outsider: outsider}
	f.svc = NewInternshipService(
		&memoryApplications{dir: dir, items: map[int64]models.InternshipApplication{}},
		&memoryMonthlyReports{items: map[int64]models.MonthlyReport{}},
		studentDir{dir}, dir.authz(), f.notifier, testLogger,
	)
	return f
}

func applicationRequest(company string) *dto.ApplicationRequest {
	return &dto.ApplicationRequest{
		CompanyName:    company,
		CompanyAddress: "Phase 7, Mohali",
		IndustrySector: "Manufacturing",
		RoleTitle:      "Production Trainee",
		StartDate:      "2025-01-06",
		EndDate:        "2025-03-31",
	}
}

func (f *internshipFixture) approved(t *testing.T, company string) *models.InternshipApplication {
	t.Helper()
	ctx := context.Background()
	a, err := f.svc.CreateApplication(ctx, studentActor(f.student), applicationRequest(company))
	require.NoError(t, err)
	a, err = f.svc.ReviewApplication(ctx, facultyActor(f.mentor), a.ID, &dto.ReviewRequest{Status: "APPROVED"})
	require.NoError(t, err)
	return a
}

func TestApplicationDatesValidated(t *testing.T) {
	f := newInternshipFixture()
	req := applicationRequest("Hero Cycles")
	req.EndDate = "2024-12-01"

	_, err := f.svc.CreateApplication(context.Background(), studentActor(f.student), req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestApplicationReviewRules(t *testing.T) {
	f := newInternshipFixture()
	ctx := context.Background()

	first := f.approved(t, "Hero Cycles")
	assert.Equal(t, models.ApplicationApproved, first.Status)
	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, f.student.UserID, last.UserID)
	assert.Equal(t, email.TemplateApplicationStatus, last.Notice.EmailTemplate)

	second, err := f.svc.CreateApplication(ctx, studentActor(f.student), applicationRequest("Sonalika"))
	require.NoError(t, err)

	_, err = f.svc.ReviewApplication(ctx, facultyActor(f.outsider), second.ID, &dto.ReviewRequest{Status: "APPROVED"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied, "not the student's mentor")

	_, err = f.svc.ReviewApplication(ctx, studentActor(f.student), second.ID, &dto.ReviewRequest{Status: "APPROVED"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = f.svc.ReviewApplication(ctx, principalActor(30, 3), second.ID, &dto.ReviewRequest{Status: "APPROVED"})
	assert.ErrorIs(t, err, apperrors.ErrActiveInternshipExists)

	_, err = f.svc.ReviewApplication(ctx, principalActor(30, 3), second.ID, &dto.ReviewRequest{Status: "COMPLETED"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.svc.WithdrawApplication(ctx, studentActor(f.student), first.ID)
	require.NoError(t, err)
	second, err = f.svc.ReviewApplication(ctx, principalActor(30, 3), second.ID, &dto.ReviewRequest{Status: "APPROVED"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, second.Status)

	_, err = f.svc.UpdateApplication(ctx, studentActor(f.student), second.ID, applicationRequest("Other"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestMonthlyReportWindowAndReview(t *testing.T) {
	f := newInternshipFixture()
	ctx := context.Background()

	pending, err := f.svc.CreateApplication(ctx, studentActor(f.student), applicationRequest("Pending Co"))
	require.NoError(t, err)
	_, err = f.svc.SubmitReport(ctx, studentActor(f.student), &dto.MonthlyReportRequest{
		ApplicationID: pending.ID, ReportMonth: 2, ReportYear: 2025, Summary: "Learned CNC basics on the floor",
	})
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotApproved)

	_, err = f.svc.WithdrawApplication(ctx, studentActor(f.student), pending.ID)
	require.NoError(t, err)
	a := f.approved(t, "Hero Cycles")

	_, err = f.svc.SubmitReport(ctx, studentActor(f.student), &dto.MonthlyReportRequest{
		ApplicationID: a.ID, ReportMonth: 5, ReportYear: 2025, Summary: "Outside the internship window",
	})
	assert.ErrorIs(t, err, apperrors.ErrReportOutsideInternship)

	report, err := f.svc.SubmitReport(ctx, studentActor(f.student), &dto.MonthlyReportRequest{
		ApplicationID: a.ID, ReportMonth: 3, ReportYear: 2025, Summary: "Assembly line rotation", HoursWorked: 150,
	})
	require.NoError(t, err)

	_, err = f.svc.ReviewReport(ctx, facultyActor(f.mentor), report.ID, &dto.ReportReviewRequest{Status: "REJECTED"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed, "rejection needs remarks")

	report, err = f.svc.ReviewReport(ctx, facultyActor(f.mentor), report.ID, &dto.ReportReviewRequest{
		Status: "REJECTED", Remarks: helpers.Ptr("Add weekly detail"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportRejected, report.Status)
	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, email.TemplateReportReviewed, last.Notice.EmailTemplate)
	assert.Equal(t, time.March.String()+" 2025", last.Notice.EmailData["period"])

	report, err = f.svc.ResubmitReport(ctx, studentActor(f.student), report.ID, &dto.ResubmitReportRequest{
		Summary: "Assembly line rotation with weekly detail", HoursWorked: 152,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportSubmitted, report.Status)

	_, err = f.svc.ResubmitReport(ctx, studentActor(f.student), report.ID, &dto.ResubmitReportRequest{Summary: "again"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}
