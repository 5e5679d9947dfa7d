package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/dberrors"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// MonthlyReportRepository handles monthly progress reports
type MonthlyReportRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewMonthlyReportRepository creates a new MonthlyReportRepository
func NewMonthlyReportRepository(db *pgxpool.Pool) *MonthlyReportRepository {
	return &MonthlyReportRepository{db: db, sb: newStatementBuilder()}
}

var monthlyReportColumns = []string{
	"r.id", "r.application_id", "r.student_id", "r.report_month", "r.report_year", "r.summary", "r.hours_worked",
	"r.status", "r.reviewer_remarks", "r.reviewed_by", "r.reviewed_at", "r.submitted_at",
}

func scanMonthlyReport(row scanner) (*models.MonthlyReport, error) {
	m := &models.MonthlyReport{}
	err := row.Scan(&m.ID, &m.ApplicationID, &m.StudentID, &m.ReportMonth, &m.ReportYear, &m.Summary, &m.HoursWorked,
		&m.Status, &m.ReviewerRemarks, &m.ReviewedBy, &m.ReviewedAt, &m.SubmittedAt)
	return m, err
}

// Create inserts a SUBMITTED report
func (r *MonthlyReportRepository) Create(ctx context.Context, m *models.MonthlyReport) error {
	now := time.Now()
	m.Status = models.ReportSubmitted
	sql, args, err := r.sb.Insert("monthly_reports").
		Columns("application_id", "student_id", "report_month", "report_year", "summary", "hours_worked", "status", "submitted_at").
		Values(m.ApplicationID, m.StudentID, m.ReportMonth, m.ReportYear, m.Summary, m.HoursWorked, m.Status, now).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create report query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "monthly_reports_period_key") {
			return apperrors.ErrMonthlyReportExists
		}
		return fmt.Errorf("error creating monthly report: %w", err)
	}
	m.SubmittedAt = now
	return nil
}

// GetByID retrieves a monthly report
func (r *MonthlyReportRepository) GetByID(ctx context.Context, id int64) (*models.MonthlyReport, error) {
	sql, args, err := r.sb.Select(monthlyReportColumns...).From("monthly_reports r").Where(squirrel.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get report query: %w", err)
	}
	m, err := scanMonthlyReport(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrMonthlyReportNotFound
		}
		return nil, fmt.Errorf("error retrieving monthly report: %w", err)
	}
	return m, nil
}

// List returns a page of reports, newest period first
func (r *MonthlyReportRepository) List(ctx context.Context, filter models.MonthlyReportFilter, page, size int) ([]models.MonthlyReport, int64, error) {
	where := squirrel.And{}
	if filter.InstitutionID != nil {
		where = append(where, squirrel.Eq{"s.institution_id": *filter.InstitutionID})
	}
	if filter.StudentID != nil {
		where = append(where, squirrel.Eq{"r.student_id": *filter.StudentID})
	}
	if filter.ApplicationID != nil {
		where = append(where, squirrel.Eq{"r.application_id": *filter.ApplicationID})
	}
	if filter.MentorID != nil {
		where = append(where, squirrel.Expr(
			"EXISTS (SELECT 1 FROM mentor_assignments ma WHERE ma.student_id = r.student_id AND ma.mentor_id = ? AND ma.is_active)",
			*filter.MentorID))
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"r.status": *filter.Status})
	}

	from := "monthly_reports r JOIN students s ON s.id = r.student_id"
	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From(from).Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.sb.Select(monthlyReportColumns...).From(from).Where(where).
		OrderBy("r.report_year DESC", "r.report_month DESC", "r.id DESC").
		Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list reports query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing monthly reports: %w", err)
	}
	defer rows.Close()

	var out []models.MonthlyReport
	for rows.Next() {
		m, err := scanMonthlyReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning monthly report: %w", err)
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

// Review records the reviewer's decision on a SUBMITTED report
func (r *MonthlyReportRepository) Review(ctx context.Context, id int64, to models.ReportStatus, remarks *string, reviewerID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE monthly_reports
		SET status = $1, reviewer_remarks = $2, reviewed_by = $3, reviewed_at = NOW()
		WHERE id = $4 AND status = $5`, to, remarks, reviewerID, id, models.ReportSubmitted)
	if err != nil {
		return fmt.Errorf("error reviewing monthly report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// Resubmit replaces the content of a REJECTED report and puts it back in review
func (r *MonthlyReportRepository) Resubmit(ctx context.Context, id int64, summary string, hours int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE monthly_reports
		SET status = $1, summary = $2, hours_worked = $3, submitted_at = NOW(),
		    reviewer_remarks = NULL, reviewed_by = NULL, reviewed_at = NULL
		WHERE id = $4 AND status = $5`, models.ReportSubmitted, summary, hours, id, models.ReportRejected)
	if err != nil {
		return fmt.Errorf("error resubmitting monthly report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}
