package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/dberrors"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// ReportRepository handles generated reports and saved report templates
type ReportRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db, sb: newStatementBuilder()}
}

var generatedReportColumns = []string{
	"id", "report_type", "format", "columns", "filters", "status", "requested_by", "institution_id", "template_id",
	"job_id", "storage_key", "file_name", "row_count", "error_message", "created_at", "completed_at",
}

func decodeFilters(raw []byte) (map[string]string, error) {
	filters := map[string]string{}
	if len(raw) == 0 {
		return filters, nil
	}
	if err := json.Unmarshal(raw, &filters); err != nil {
		return nil, fmt.Errorf("invalid stored filters: %w", err)
	}
	return filters, nil
}

func scanGeneratedReport(row scanner) (*models.GeneratedReport, error) {
	g := &models.GeneratedReport{}
	var filters []byte
	err := row.Scan(&g.ID, &g.ReportType, &g.Format, &g.Columns, &filters, &g.Status, &g.RequestedBy, &g.InstitutionID,
		&g.TemplateID, &g.JobID, &g.StorageKey, &g.FileName, &g.RowCount, &g.ErrorMessage, &g.CreatedAt, &g.CompletedAt)
	if err != nil {
		return nil, err
	}
	g.Filters, err = decodeFilters(filters)
	return g, err
}

// Create inserts a PENDING report request
func (r *ReportRepository) Create(ctx context.Context, g *models.GeneratedReport) error {
	filters, err := models.FiltersJSON(g.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	g.Status = models.GeneratedPending
	g.CreatedAt = time.Now()

	sql, args, err := r.sb.Insert("generated_reports").
		Columns("id", "report_type", "format", "columns", "filters", "status", "requested_by", "institution_id",
			"template_id", "created_at").
		Values(g.ID, g.ReportType, g.Format, g.Columns, string(filters), g.Status, g.RequestedBy, g.InstitutionID,
			g.TemplateID, g.CreatedAt).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create report query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error creating report request: %w", err)
	}
	return nil
}

// GetByID retrieves a report request
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.GeneratedReport, error) {
	sql, args, err := r.sb.Select(generatedReportColumns...).From("generated_reports").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get report query: %w", err)
	}
	g, err := scanGeneratedReport(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, fmt.Errorf("error retrieving report: %w", err)
	}
	return g, nil
}

// ListByRequester returns a page of the user's reports, newest first
func (r *ReportRepository) ListByRequester(ctx context.Context, userID int64, page, size int) ([]models.GeneratedReport, int64, error) {
	where := squirrel.Eq{"requested_by": userID}
	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From("generated_reports").Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.sb.Select(generatedReportColumns...).From("generated_reports").Where(where).
		OrderBy("created_at DESC").Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list reports query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing reports: %w", err)
	}
	defer rows.Close()

	var out []models.GeneratedReport
	for rows.Next() {
		g, err := scanGeneratedReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning report: %w", err)
		}
		out = append(out, *g)
	}
	return out, total, rows.Err()
}

// SetJobID links the report to the queued job
func (r *ReportRepository) SetJobID(ctx context.Context, id string, jobID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE generated_reports SET job_id = $1 WHERE id = $2`, jobID, id)
	if err != nil {
		return fmt.Errorf("error linking report job: %w", err)
	}
	return nil
}

// MarkProcessing moves a PENDING, previously attempted or retried FAILED report to PROCESSING
func (r *ReportRepository) MarkProcessing(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE generated_reports SET status = $1, error_message = NULL, completed_at = NULL
		WHERE id = $2 AND status IN ($3, $1, $4)`,
		models.GeneratedProcessing, id, models.GeneratedPending, models.GeneratedFailed)
	if err != nil {
		return fmt.Errorf("error marking report processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// MarkCompleted records the stored file of a finished report
func (r *ReportRepository) MarkCompleted(ctx context.Context, id, storageKey, fileName string, rowCount int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE generated_reports
		SET status = $1, storage_key = $2, file_name = $3, row_count = $4, completed_at = NOW(), error_message = NULL
		WHERE id = $5`, models.GeneratedCompleted, storageKey, fileName, rowCount, id)
	if err != nil {
		return fmt.Errorf("error marking report completed: %w", err)
	}
	return nil
}

// MarkFailed records the final error of a report
func (r *ReportRepository) MarkFailed(ctx context.Context, id, message string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE generated_reports SET status = $1, error_message = $2, completed_at = NOW()
		WHERE id = $3`, models.GeneratedFailed, message, id)
	if err != nil {
		return fmt.Errorf("error marking report failed: %w", err)
	}
	return nil
}

// ListFinishedBefore returns completed or failed reports that finished before the cutoff
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, before time.Time, limit int) ([]models.GeneratedReport, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, storage_key FROM generated_reports
		WHERE status IN ($1, $2) AND completed_at < $3
		ORDER BY completed_at LIMIT $4`,
		models.GeneratedCompleted, models.GeneratedFailed, before, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing expired reports: %w", err)
	}
	defer rows.Close()

	var out []models.GeneratedReport
	for rows.Next() {
		var g models.GeneratedReport
		if err := rows.Scan(&g.ID, &g.StorageKey); err != nil {
			return nil, fmt.Errorf("error scanning expired report: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeleteGenerated removes a generated report row
func (r *ReportRepository) DeleteGenerated(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM generated_reports WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting report: %w", err)
	}
	return nil
}

var templateColumns = []string{
	"id", "name", "description", "report_type", "columns", "filters", "format", "is_public",
	"created_by", "institution_id", "created_at", "updated_at",
}

func scanTemplate(row scanner) (*models.ReportTemplate, error) {
	t := &models.ReportTemplate{}
	var filters []byte
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.ReportType, &t.Columns, &filters, &t.Format, &t.IsPublic,
		&t.CreatedBy, &t.InstitutionID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Filters, err = decodeFilters(filters)
	return t, err
}

// CreateTemplate stores a report template
func (r *ReportRepository) CreateTemplate(ctx context.Context, t *models.ReportTemplate) error {
	filters, err := models.FiltersJSON(t.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	now := time.Now()
	sql, args, err := r.sb.Insert("report_templates").
		Columns("name", "description", "report_type", "columns", "filters", "format", "is_public",
			"created_by", "institution_id", "created_at", "updated_at").
		Values(t.Name, t.Description, t.ReportType, t.Columns, string(filters), t.Format, t.IsPublic,
			t.CreatedBy, t.InstitutionID, now, now).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create template query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&t.ID); err != nil {
		return fmt.Errorf("error creating template: %w", err)
	}
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

// GetTemplate retrieves a report template
func (r *ReportRepository) GetTemplate(ctx context.Context, id int64) (*models.ReportTemplate, error) {
	sql, args, err := r.sb.Select(templateColumns...).From("report_templates").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get template query: %w", err)
	}
	t, err := scanTemplate(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrReportTemplateNotFound
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	return t, nil
}

// ListTemplatesVisibleTo returns the user's own templates and public templates of the
// same institution (or global ones when institutionID is nil)
func (r *ReportRepository) ListTemplatesVisibleTo(ctx context.Context, userID int64, institutionID *int64) ([]models.ReportTemplate, error) {
	public := squirrel.And{squirrel.Eq{"is_public": true}}
	if institutionID != nil {
		public = append(public, squirrel.Or{squirrel.Eq{"institution_id": *institutionID}, squirrel.Eq{"institution_id": nil}})
	}
	sql, args, err := r.sb.Select(templateColumns...).From("report_templates").
		Where(squirrel.Or{squirrel.Eq{"created_by": userID}, public}).
		OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list templates query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing templates: %w", err)
	}
	defer rows.Close()

	var out []models.ReportTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning template: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTemplate writes template fields
func (r *ReportRepository) UpdateTemplate(ctx context.Context, t *models.ReportTemplate) error {
	filters, err := models.FiltersJSON(t.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	t.UpdatedAt = time.Now()
	sql, args, err := r.sb.Update("report_templates").
		Set("name", t.Name).
		Set("description", t.Description).
		Set("report_type", t.ReportType).
		Set("columns", t.Columns).
		Set("filters", string(filters)).
		Set("format", t.Format).
		Set("is_public", t.IsPublic).
		Set("updated_at", t.UpdatedAt).
		Where(squirrel.Eq{"id": t.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update template query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrReportTemplateNotFound
	}
	return nil
}

// DeleteTemplate removes a template
func (r *ReportRepository) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM report_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrReportTemplateNotFound
	}
	return nil
}

// FetchRows runs a compiled report query and returns its rows as display strings
func (r *ReportRepository) FetchRows(ctx context.Context, query squirrel.SelectBuilder) ([][]string, error) {
	sql, args, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build report data query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error running report query: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("error reading report row: %w", err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatCell(v)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04")
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
