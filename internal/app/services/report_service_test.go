package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
	"github.com/placeintern/backend/internal/pkg/jobqueue"
)

type memoryReports struct {
	reports   map[string]*models.GeneratedReport
	templates map[int64]*models.ReportTemplate
	rows      [][]string
	fetchErr  error
	query     string
}

func newMemoryReports() *memoryReports {
	return &memoryReports{reports: map[string]*models.GeneratedReport{}, templates: map[int64]*models.ReportTemplate{}}
}

func (m *memoryReports) Create(_ context.Context, g *models.GeneratedReport) error {
	g.Status = models.GeneratedPending
	copied := *g
	m.reports[g.ID] = &copied
	return nil
}

func (m *memoryReports) GetByID(_ context.Context, id string) (*models.GeneratedReport, error) {
	g, ok := m.reports[id]
	if !ok {
		return nil, apperrors.ErrReportNotFound
	}
	copied := *g
	return &copied, nil
}

func (m *memoryReports) ListByRequester(_ context.Context, userID int64, _, _ int) ([]models.GeneratedReport, int64, error) {
	var out []models.GeneratedReport
	for _, g := range m.reports {
		if g.RequestedBy == userID {
			out = append(out, *g)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryReports) SetJobID(_ context.Context, id string, jobID int64) error {
	m.reports[id].JobID = &jobID
	return nil
}

func (m *memoryReports) MarkProcessing(_ context.Context, id string) error {
	g := m.reports[id]
	if g.Status == models.GeneratedCompleted {
		return apperrors.ErrInvalidTransition
	}
	g.Status = models.GeneratedProcessing
	g.ErrorMessage = nil
	return nil
}

func (m *memoryReports) MarkCompleted(_ context.Context, id, key, fileName string, rowCount int) error {
	g := m.reports[id]
	g.Status = models.GeneratedCompleted
	g.StorageKey, g.FileName, g.RowCount = &key, &fileName, &rowCount
	return nil
}

func (m *memoryReports) MarkFailed(_ context.Context, id, message string) error {
	g := m.reports[id]
	g.Status = models.GeneratedFailed
	g.ErrorMessage = &message
	return nil
}

func (m *memoryReports) FetchRows(_ context.Context, q squirrel.SelectBuilder) ([][]string, error) {
	sql, _, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	m.query = sql
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.rows, nil
}

func (m *memoryReports) ListFinishedBefore(_ context.Context, before time.Time, _ int) ([]models.GeneratedReport, error) {
	var out []models.GeneratedReport
	for _, g := range m.reports {
		if g.CompletedAt != nil && g.CompletedAt.Before(before) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *memoryReports) DeleteGenerated(_ context.Context, id string) error {
	delete(m.reports, id)
	return nil
}

func (m *memoryReports) CreateTemplate(_ context.Context, t *models.ReportTemplate) error {
	t.ID = int64(len(m.templates) + 1)
	m.templates[t.ID] = t
	return nil
}

func (m *memoryReports) GetTemplate(_ context.Context, id int64) (*models.ReportTemplate, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, apperrors.ErrReportTemplateNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *memoryReports) ListTemplatesVisibleTo(_ context.Context, userID int64, _ *int64) ([]models.ReportTemplate, error) {
	var out []models.ReportTemplate
	for _, t := range m.templates {
		if t.CreatedBy == userID || t.IsPublic {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memoryReports) UpdateTemplate(_ context.Context, t *models.ReportTemplate) error {
	m.templates[t.ID] = t
	return nil
}

func (m *memoryReports) DeleteTemplate(_ context.Context, id int64) error {
	delete(m.templates, id)
	return nil
}

type fakeQueue struct {
	jobs []river.JobArgs
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, args river.JobArgs) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	q.jobs = append(q.jobs, args)
	return int64(len(q.jobs)), nil
}

type memoryStorage struct {
	objects map[string][]byte
}

func (s *memoryStorage) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.objects[key] = b
	return "mem://" + key, nil
}

func (s *memoryStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, apperrors.ErrStorageObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memoryStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type userByID map[int64]*models.User

func (u userByID) GetByID(_ context.Context, id int64) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, apperrors.ErrUserNotFound
}

type reportFixture struct {
	svc      *ReportService
	store    *memoryReports
	queue    *fakeQueue
	storage  *memoryStorage
	notifier *recordingNotifier
	audit    *recordingAuditor
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		store:    newMemoryReports(),
		queue:    &fakeQueue{},
		storage:  &memoryStorage{objects: map[string][]byte{}},
		notifier: &recordingNotifier{},
		audit:    &recordingAuditor{},
	}
	users := userByID{30: {ID: 30, Email: "principal@example.com", RoleType: models.RolePrincipal}}
	f.svc = NewReportService(f.store, users, f.queue, f.storage, f.notifier, f.audit, 1000, testLogger)
	return f
}

func reportJob(reportID string, attempt, maxAttempts int) *river.Job[ReportArgs] {
	return &river.Job[ReportArgs]{
		JobRow: &rivertype.JobRow{ID: 7, Kind: JobTypeReportGenerate, Attempt: attempt, MaxAttempts: maxAttempts},
		Args:   ReportArgs{ReportID: reportID},
	}
}

func TestReportRequestQueuesScopedJob(t *testing.T) {
	f := newReportFixture()
	accepted, err := f.svc.Request(context.Background(), principalActor(30, 3), &dto.ReportRequest{
		ReportType: "students",
		Columns:    []string{"roll_number", "name"},
		Format:     "csv",
	})
	require.NoError(t, err)

	assert.Equal(t, "PENDING", accepted.Status)
	assert.Equal(t, int64(1), accepted.JobID)
	require.Len(t, f.queue.jobs, 1)
	args, ok := f.queue.jobs[0].(ReportArgs)
	require.True(t, ok)
	assert.Equal(t, accepted.ID, args.ReportID)
	assert.Equal(t, JobTypeReportGenerate, args.Kind())
	assert.Equal(t, jobqueue.QueueReports, args.InsertOpts().Queue)

	stored := f.store.reports[accepted.ID]
	assert.Equal(t, "3", stored.Filters["institution_id"])
	require.NotNil(t, stored.JobID)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionReportGenerate, f.audit.entries[0].Action)
}

func TestReportRequestRejectsStudentsAndBadInput(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	student := &models.Student{ID: 1, UserID: 10, InstitutionID: 3}

	_, err := f.svc.Request(ctx, studentActor(student), &dto.ReportRequest{ReportType: "students", Columns: []string{"name"}, Format: "csv"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = f.svc.Request(ctx, principalActor(30, 3), &dto.ReportRequest{ReportType: "students", Columns: []string{"name", "name"}, Format: "csv"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.svc.Request(ctx, principalActor(30, 3), &dto.ReportRequest{
		ReportType: "students", Columns: []string{"name"}, Format: "csv", Filters: map[string]string{"institution_id": "4"},
	})
	assert.ErrorIs(t, err, apperrors.ErrOutOfScope)
	assert.Empty(t, f.queue.jobs)
}

func TestReportGenerateStoresFileAndNotifies(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	actor := principalActor(30, 3)
	f.store.rows = [][]string{{"CE-01", "Aman Gill"}, {"CE-02", "Simran Kaur"}}

	accepted, err := f.svc.Request(ctx, actor, &dto.ReportRequest{
		ReportType: "students", Columns: []string{"roll_number", "name"}, Format: "csv",
	})
	require.NoError(t, err)

	_, _, err = f.svc.Open(ctx, actor, accepted.ID)
	assert.ErrorIs(t, err, apperrors.ErrReportNotReady)

	require.NoError(t, f.svc.Generate(ctx, accepted.ID))

	g, rc, err := f.svc.Open(ctx, actor, accepted.ID)
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Simran Kaur")
	assert.Equal(t, models.GeneratedCompleted, g.Status)
	assert.Equal(t, 2, *g.RowCount)
	assert.Contains(t, f.store.query, "LIMIT 1000")

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, email.TemplateReportReady, f.notifier.sent[0].Notice.EmailTemplate)

	_, _, err = f.svc.Open(ctx, principalActor(31, 3), accepted.ID)
	assert.ErrorIs(t, err, apperrors.ErrReportNotFound, "other users cannot download")
}

func TestReportFailureMarksFailed(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	err := f.svc.Generate(ctx, "missing")
	assert.True(t, jobqueue.IsPermanent(err))

	accepted, err := f.svc.Request(ctx, principalActor(30, 3), &dto.ReportRequest{
		ReportType: "students", Columns: []string{"name"}, Format: "pdf",
	})
	require.NoError(t, err)

	f.svc.HandleFailure(ctx, accepted.ID, errors.New("database unavailable"))
	g := f.store.reports[accepted.ID]
	assert.Equal(t, models.GeneratedFailed, g.Status)
	assert.Equal(t, "database unavailable", *g.ErrorMessage)
}

func TestReportFromTemplate(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	owner := principalActor(30, 3)

	tpl, err := f.svc.CreateTemplate(ctx, owner, &dto.ReportTemplateRequest{
		Name: "Roll list", ReportType: "students", Columns: []string{"roll_number"}, Format: "xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, "3", tpl.Filters["institution_id"])

	_, err = f.svc.Request(ctx, principalActor(31, 4), &dto.ReportRequest{TemplateID: &tpl.ID})
	assert.ErrorIs(t, err, apperrors.ErrReportTemplateNotFound, "private template of another user")

	accepted, err := f.svc.Request(ctx, owner, &dto.ReportRequest{TemplateID: &tpl.ID})
	require.NoError(t, err)
	stored := f.store.reports[accepted.ID]
	assert.Equal(t, models.FormatXLSX, stored.Format)
	assert.Equal(t, []string{"roll_number"}, stored.Columns)

	err = f.svc.DeleteTemplate(ctx, principalActor(31, 3), tpl.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestReportPurgeExpiredRemovesFilesAndRows(t *testing.T) {
	f := newReportFixture()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	oldKey, recentKey := "reports/old.xlsx", "reports/recent.xlsx"
	f.store.reports["old"] = &models.GeneratedReport{ID: "old", Status: models.GeneratedCompleted, StorageKey: &oldKey, CompletedAt: &old}
	f.store.reports["recent"] = &models.GeneratedReport{ID: "recent", Status: models.GeneratedCompleted, StorageKey: &recentKey, CompletedAt: &recent}
	f.storage.objects[oldKey] = []byte("old")
	f.storage.objects[recentKey] = []byte("recent")

	n, err := f.svc.PurgeExpired(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.NotContains(t, f.store.reports, "old")
	assert.Contains(t, f.store.reports, "recent")
	assert.NotContains(t, f.storage.objects, oldKey)
	assert.Contains(t, f.storage.objects, recentKey)
}

func TestReportWorkerMarksFailedOnlyOnFinalAttempt(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	f.store.fetchErr = errors.New("database unavailable")

	accepted, err := f.svc.Request(ctx, principalActor(30, 3), &dto.ReportRequest{
		ReportType: "students", Columns: []string{"name"}, Format: "csv",
	})
	require.NoError(t, err)
	worker := NewReportWorker(f.svc)

	err = worker.Work(ctx, reportJob(accepted.ID, 1, 3))
	require.Error(t, err)
	assert.Equal(t, models.GeneratedProcessing, f.store.reports[accepted.ID].Status, "retries remain")

	err = worker.Work(ctx, reportJob(accepted.ID, 3, 3))
	require.Error(t, err)
	g := f.store.reports[accepted.ID]
	assert.Equal(t, models.GeneratedFailed, g.Status)
	assert.Equal(t, "database unavailable", *g.ErrorMessage)
}

func TestRetriedReportJobRegeneratesFailedReport(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	f.store.fetchErr = errors.New("database unavailable")

	accepted, err := f.svc.Request(ctx, principalActor(30, 3), &dto.ReportRequest{
		ReportType: "students", Columns: []string{"roll_number", "name"}, Format: "csv",
	})
	require.NoError(t, err)
	worker := NewReportWorker(f.svc)
	require.Error(t, worker.Work(ctx, reportJob(accepted.ID, 3, 3)))
	require.Equal(t, models.GeneratedFailed, f.store.reports[accepted.ID].Status)

	// an administrator retries the job once the database is back
	f.store.fetchErr = nil
	f.store.rows = [][]string{{"CE-01", "Aman Gill"}}
	require.NoError(t, worker.Work(ctx, reportJob(accepted.ID, 4, 4)))

	g := f.store.reports[accepted.ID]
	assert.Equal(t, models.GeneratedCompleted, g.Status)
	assert.Nil(t, g.ErrorMessage)
	assert.Equal(t, 1, *g.RowCount)
	require.Len(t, f.notifier.sent, 1)
}

func TestCompletedReportIsNotRegenerated(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	key := "reports/done.csv"
	f.store.reports["done"] = &models.GeneratedReport{ID: "done", Status: models.GeneratedCompleted, StorageKey: &key}

	require.NoError(t, NewReportWorker(f.svc).Work(ctx, reportJob("done", 1, 3)))
	assert.Empty(t, f.storage.objects)
	assert.Empty(t, f.notifier.sent)
}
