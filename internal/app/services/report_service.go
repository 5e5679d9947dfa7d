package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/reportbuilder"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
	"github.com/placeintern/backend/internal/pkg/export"
	"github.com/placeintern/backend/internal/pkg/filestorage"
	"github.com/placeintern/backend/internal/pkg/jobqueue"
)

// JobTypeReportGenerate is the job that renders a requested report
const JobTypeReportGenerate = "report.generate"

// ReportArgs is the report.generate job payload
type ReportArgs struct {
	ReportID string `json:"reportId"`
}

// Kind implements river.JobArgs
func (ReportArgs) Kind() string { return JobTypeReportGenerate }

// InsertOpts implements river.JobArgsWithInsertOpts
func (ReportArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: jobqueue.QueueReports}
}

// ReportWorker runs report.generate jobs
type ReportWorker struct {
	river.WorkerDefaults[ReportArgs]
	reports *ReportService
}

// NewReportWorker creates the worker for reports
func NewReportWorker(reports *ReportService) *ReportWorker {
	return &ReportWorker{reports: reports}
}

// Work generates the report and marks it FAILED once the job will not run again
func (w *ReportWorker) Work(ctx context.Context, job *river.Job[ReportArgs]) error {
	err := w.reports.Generate(ctx, job.Args.ReportID)
	if jobqueue.IsFinalAttempt(job.JobRow, err) {
		w.reports.HandleFailure(context.WithoutCancel(ctx), job.Args.ReportID, err)
	}
	return err
}

// ReportStore persists generated reports and templates
type ReportStore interface {
	Create(ctx context.Context, g *models.GeneratedReport) error
	GetByID(ctx context.Context, id string) (*models.GeneratedReport, error)
	ListByRequester(ctx context.Context, userID int64, page, size int) ([]models.GeneratedReport, int64, error)
	SetJobID(ctx context.Context, id string, jobID int64) error
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, storageKey, fileName string, rowCount int) error
	MarkFailed(ctx context.Context, id, message string) error
	FetchRows(ctx context.Context, query squirrel.SelectBuilder) ([][]string, error)
	ListFinishedBefore(ctx context.Context, before time.Time, limit int) ([]models.GeneratedReport, error)
	DeleteGenerated(ctx context.Context, id string) error

	CreateTemplate(ctx context.Context, t *models.ReportTemplate) error
	GetTemplate(ctx context.Context, id int64) (*models.ReportTemplate, error)
	ListTemplatesVisibleTo(ctx context.Context, userID int64, institutionID *int64) ([]models.ReportTemplate, error)
	UpdateTemplate(ctx context.Context, t *models.ReportTemplate) error
	DeleteTemplate(ctx context.Context, id int64) error
}

// JobEnqueuer queues background jobs
type JobEnqueuer interface {
	Enqueue(ctx context.Context, args river.JobArgs) (int64, error)
}

// ReportService runs the report builder
type ReportService struct {
	reports ReportStore
	users   interface {
		GetByID(ctx context.Context, id int64) (*models.User, error)
	}
	queue    JobEnqueuer
	storage  filestorage.Storage
	notifier Notifier
	audit    Auditor
	maxRows  int
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	reports ReportStore,
	users interface {
		GetByID(ctx context.Context, id int64) (*models.User, error)
	},
	queue JobEnqueuer,
	storage filestorage.Storage,
	notifier Notifier,
	audit Auditor,
	maxRows int,
	logger zerolog.Logger,
) *ReportService {
	return &ReportService{
		reports:  reports,
		users:    users,
		queue:    queue,
		storage:  storage,
		notifier: notifier,
		audit:    audit,
		maxRows:  maxRows,
		logger:   logger,
		now:      time.Now,
	}
}

func scopeOf(actor appauth.Actor) reportbuilder.Scope {
	return reportbuilder.Scope{Role: actor.Role, InstitutionID: actor.InstitutionID}
}

// Catalog lists the report types the builder knows
func (s *ReportService) Catalog() []*reportbuilder.ReportType {
	return reportbuilder.Catalog()
}

// Request validates a report request, records it and queues its generation
func (s *ReportService) Request(ctx context.Context, actor appauth.Actor, req *dto.ReportRequest) (*dto.ReportAccepted, error) {
	raw := reportbuilder.Request{
		ReportType: req.ReportType,
		Columns:    req.Columns,
		Filters:    req.Filters,
		Format:     models.ReportFormat(req.Format),
	}
	if req.TemplateID != nil {
		t, err := s.visibleTemplate(ctx, actor, *req.TemplateID)
		if err != nil {
			return nil, err
		}
		raw = reportbuilder.Request{
			ReportType: t.ReportType,
			Columns:    t.Columns,
			Filters:    t.Filters,
			Format:     t.Format,
		}
		if req.Format != "" {
			raw.Format = models.ReportFormat(req.Format)
		}
	}

	valid, err := reportbuilder.Validate(raw, scopeOf(actor))
	if err != nil {
		return nil, err
	}

	g := &models.GeneratedReport{
		ID:            uuid.New().String(),
		ReportType:    valid.ReportType,
		Format:        valid.Format,
		Columns:       valid.Columns,
		Filters:       valid.Filters,
		RequestedBy:   actor.UserID,
		InstitutionID: actor.InstitutionID,
		TemplateID:    req.TemplateID,
	}
	if err := s.reports.Create(ctx, g); err != nil {
		return nil, err
	}

	jobID, err := s.queue.Enqueue(ctx, ReportArgs{ReportID: g.ID})
	if err != nil {
		if markErr := s.reports.MarkFailed(context.WithoutCancel(ctx), g.ID, "could not queue report"); markErr != nil {
			s.logger.Error().Err(markErr).Str("reportId", g.ID).Msg("Failed to mark unqueued report")
		}
		return nil, fmt.Errorf("queue report: %w", err)
	}
	if err := s.reports.SetJobID(ctx, g.ID, jobID); err != nil {
		s.logger.Warn().Err(err).Str("reportId", g.ID).Msg("Failed to link report job")
	}

	s.audit.Record(ctx, actor, models.AuditActionReportGenerate, "report", g.ID, map[string]any{
		"reportType": g.ReportType,
		"format":     string(g.Format),
		"columns":    len(g.Columns),
		"jobId":      jobID,
	})

	return &dto.ReportAccepted{ID: g.ID, JobID: jobID, Status: string(models.GeneratedPending)}, nil
}

// Get returns one of the caller's reports
func (s *ReportService) Get(ctx context.Context, actor appauth.Actor, id string) (*models.GeneratedReport, error) {
	g, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.RequestedBy != actor.UserID && actor.Role != models.RoleSystemAdmin {
		return nil, apperrors.ErrReportNotFound
	}
	return g, nil
}

// List returns the caller's reports, newest first
func (s *ReportService) List(ctx context.Context, actor appauth.Actor, page, size int) ([]models.GeneratedReport, int64, error) {
	return s.reports.ListByRequester(ctx, actor.UserID, page, size)
}

// Open returns a finished report and a reader over its file
func (s *ReportService) Open(ctx context.Context, actor appauth.Actor, id string) (*models.GeneratedReport, io.ReadCloser, error) {
	g, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if g.Status != models.GeneratedCompleted || g.StorageKey == nil {
		return nil, nil, apperrors.ErrReportNotReady
	}
	rc, err := s.storage.Open(ctx, *g.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return g, rc, nil
}

// Generate builds, stores and announces the report. A FAILED report whose
// job was retried is generated again.
func (s *ReportService) Generate(ctx context.Context, reportID string) error {
	g, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, apperrors.ErrReportNotFound) {
			return jobqueue.Permanent(err)
		}
		return err
	}
	if g.Status == models.GeneratedCompleted {
		return nil
	}
	if err := s.reports.MarkProcessing(ctx, g.ID); err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			return jobqueue.Permanent(fmt.Errorf("report %s is %s", g.ID, g.Status))
		}
		return err
	}

	compiled, err := reportbuilder.Compile(reportbuilder.Request{
		ReportType: g.ReportType,
		Columns:    g.Columns,
		Filters:    g.Filters,
		Format:     g.Format,
	}, s.maxRows)
	if err != nil {
		return jobqueue.Permanent(err)
	}

	rows, err := s.reports.FetchRows(ctx, compiled.Query)
	if err != nil {
		return err
	}

	generatedAt := s.now()
	content, err := export.Render(g.Format, export.Table{
		Title:       compiled.Title,
		Headers:     compiled.Headers,
		Rows:        rows,
		GeneratedAt: generatedAt,
	})
	if err != nil {
		return jobqueue.Permanent(err)
	}

	fileName := export.FileName(g.ReportType, g.Format, generatedAt)
	key := fmt.Sprintf("reports/%s.%s", g.ID, g.Format)
	if _, err := s.storage.Put(ctx, key, bytes.NewReader(content), g.Format.ContentType()); err != nil {
		return err
	}
	if err := s.reports.MarkCompleted(ctx, g.ID, key, fileName, len(rows)); err != nil {
		return err
	}

	s.logger.Info().
		Str("reportId", g.ID).
		Str("reportType", g.ReportType).
		Int("rows", len(rows)).
		Msg("Report generated")

	requester, err := s.users.GetByID(ctx, g.RequestedBy)
	if err != nil {
		s.logger.Warn().Err(err).Str("reportId", g.ID).Msg("Failed to load report requester")
		return nil
	}
	s.notifier.NotifyUser(ctx, requester, Notice{
		Title:         "Report ready",
		Body:          fmt.Sprintf("%s (%d rows) is ready to download.", compiled.Title, len(rows)),
		Category:      models.NotificationExport,
		Link:          fmt.Sprintf("/shared/reports/%s", g.ID),
		EmailTemplate: email.TemplateReportReady,
		EmailData: map[string]any{
			"reportType": compiled.Title,
			"rowCount":   len(rows),
			"link":       fmt.Sprintf("/shared/reports/%s", g.ID),
		},
	})
	return nil
}

// HandleFailure marks the report FAILED once its job has run out of attempts
func (s *ReportService) HandleFailure(ctx context.Context, reportID string, cause error) {
	message := "report generation failed"
	if cause != nil {
		message = cause.Error()
	}
	if err := s.reports.MarkFailed(ctx, reportID, message); err != nil {
		s.logger.Error().Err(err).Str("reportId", reportID).Msg("Failed to mark report failed")
	}
}

// PurgeExpired deletes reports that finished more than age ago together with their files
func (s *ReportService) PurgeExpired(ctx context.Context, age time.Duration) (int, error) {
	expired, err := s.reports.ListFinishedBefore(ctx, s.now().Add(-age), 500)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, g := range expired {
		if g.StorageKey != nil {
			if err := s.storage.Delete(ctx, *g.StorageKey); err != nil {
				s.logger.Warn().Err(err).Str("reportId", g.ID).Msg("Failed to delete report file, keeping row")
				continue
			}
		}
		if err := s.reports.DeleteGenerated(ctx, g.ID); err != nil {
			return purged, err
		}
		purged++
	}
	s.logger.Info().Int("purged", purged).Dur("age", age).Msg("Expired reports purged")
	return purged, nil
}

// visibleTemplate loads a template the actor may use
func (s *ReportService) visibleTemplate(ctx context.Context, actor appauth.Actor, id int64) (*models.ReportTemplate, error) {
	t, err := s.reports.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy == actor.UserID || actor.Role == models.RoleSystemAdmin {
		return t, nil
	}
	if !t.IsPublic {
		return nil, apperrors.ErrReportTemplateNotFound
	}
	if t.InstitutionID != nil && actor.CheckInstitution(*t.InstitutionID) != nil {
		return nil, apperrors.ErrReportTemplateNotFound
	}
	return t, nil
}

func (s *ReportService) applyTemplate(actor appauth.Actor, t *models.ReportTemplate, req *dto.ReportTemplateRequest) error {
	valid, err := reportbuilder.Validate(reportbuilder.Request{
		ReportType: req.ReportType,
		Columns:    req.Columns,
		Filters:    req.Filters,
		Format:     models.ReportFormat(req.Format),
	}, scopeOf(actor))
	if err != nil {
		return err
	}
	t.Name = strings.TrimSpace(req.Name)
	t.Description = req.Description
	t.ReportType = valid.ReportType
	t.Columns = valid.Columns
	t.Filters = valid.Filters
	t.Format = valid.Format
	t.IsPublic = req.IsPublic
	return nil
}

// CreateTemplate saves a report builder configuration
func (s *ReportService) CreateTemplate(ctx context.Context, actor appauth.Actor, req *dto.ReportTemplateRequest) (*models.ReportTemplate, error) {
	t := &models.ReportTemplate{CreatedBy: actor.UserID, InstitutionID: actor.InstitutionID}
	if err := s.applyTemplate(actor, t, req); err != nil {
		return nil, err
	}
	if err := s.reports.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTemplate returns a template visible to the actor
func (s *ReportService) GetTemplate(ctx context.Context, actor appauth.Actor, id int64) (*models.ReportTemplate, error) {
	return s.visibleTemplate(ctx, actor, id)
}

// ListTemplates returns the actor's templates and the public ones in scope
func (s *ReportService) ListTemplates(ctx context.Context, actor appauth.Actor) ([]models.ReportTemplate, error) {
	return s.reports.ListTemplatesVisibleTo(ctx, actor.UserID, actor.InstitutionID)
}

// UpdateTemplate rewrites one of the actor's templates
func (s *ReportService) UpdateTemplate(ctx context.Context, actor appauth.Actor, id int64, req *dto.ReportTemplateRequest) (*models.ReportTemplate, error) {
	t, err := s.ownTemplate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyTemplate(actor, t, req); err != nil {
		return nil, err
	}
	if err := s.reports.UpdateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTemplate removes one of the actor's templates
func (s *ReportService) DeleteTemplate(ctx context.Context, actor appauth.Actor, id int64) error {
	if _, err := s.ownTemplate(ctx, actor, id); err != nil {
		return err
	}
	return s.reports.DeleteTemplate(ctx, id)
}

func (s *ReportService) ownTemplate(ctx context.Context, actor appauth.Actor, id int64) (*models.ReportTemplate, error) {
	t, err := s.reports.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy != actor.UserID && actor.Role != models.RoleSystemAdmin {
		return nil, apperrors.NewForbiddenError("only the owner can change a template")
	}
	return t, nil
}
