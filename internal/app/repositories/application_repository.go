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

// ApplicationRepository handles internship applications
type ApplicationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(db *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{db: db, sb: newStatementBuilder()}
}

func (r *ApplicationRepository) baseSelect() squirrel.SelectBuilder {
	return r.sb.Select(
		"a.id", "a.student_id", "a.company_name", "a.company_address", "a.industry_sector", "a.role_title",
		"a.start_date", "a.end_date", "a.stipend", "a.status", "a.remarks", "a.reviewed_by", "a.reviewed_at",
		"a.created_at", "a.updated_at",
		"s.user_id", "s.institution_id", "s.roll_number", "u.first_name", "u.last_name", "u.email",
	).
		From("internship_applications a").
		Join("students s ON s.id = a.student_id").
		Join("users u ON u.id = s.user_id")
}

func scanApplication(row scanner) (*models.InternshipApplication, error) {
	a := &models.InternshipApplication{Student: &models.Student{User: &models.User{}}}
	err := row.Scan(&a.ID, &a.StudentID, &a.CompanyName, &a.CompanyAddress, &a.IndustrySector, &a.RoleTitle,
		&a.StartDate, &a.EndDate, &a.Stipend, &a.Status, &a.Remarks, &a.ReviewedBy, &a.ReviewedAt,
		&a.CreatedAt, &a.UpdatedAt,
		&a.Student.UserID, &a.Student.InstitutionID, &a.Student.RollNumber,
		&a.Student.User.FirstName, &a.Student.User.LastName, &a.Student.User.Email)
	if err != nil {
		return nil, err
	}
	a.Student.ID = a.StudentID
	a.Student.User.ID = a.Student.UserID
	return a, nil
}

// Create inserts an application in APPLIED state
func (r *ApplicationRepository) Create(ctx context.Context, a *models.InternshipApplication) error {
	now := time.Now()
	a.Status = models.ApplicationApplied
	sql, args, err := r.sb.Insert("internship_applications").
		Columns("student_id", "company_name", "company_address", "industry_sector", "role_title",
			"start_date", "end_date", "stipend", "status", "created_at", "updated_at").
		Values(a.StudentID, a.CompanyName, a.CompanyAddress, a.IndustrySector, a.RoleTitle,
			a.StartDate, a.EndDate, a.Stipend, a.Status, now, now).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create application query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID); err != nil {
		return fmt.Errorf("error creating application: %w", err)
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

// GetByID retrieves an application with its student
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.InternshipApplication, error) {
	sql, args, err := r.baseSelect().Where(squirrel.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get application query: %w", err)
	}
	a, err := scanApplication(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error retrieving application: %w", err)
	}
	return a, nil
}

func applicationWhere(filter models.ApplicationFilter) squirrel.And {
	where := squirrel.And{}
	if filter.InstitutionID != nil {
		where = append(where, squirrel.Eq{"s.institution_id": *filter.InstitutionID})
	}
	if filter.StudentID != nil {
		where = append(where, squirrel.Eq{"a.student_id": *filter.StudentID})
	}
	if filter.MentorID != nil {
		where = append(where, squirrel.Expr(
			"EXISTS (SELECT 1 FROM mentor_assignments ma WHERE ma.student_id = a.student_id AND ma.mentor_id = ? AND ma.is_active)",
			*filter.MentorID))
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"a.status": *filter.Status})
	}
	return where
}

// List returns a page of applications, newest first
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter, page, size int) ([]models.InternshipApplication, int64, error) {
	where := applicationWhere(filter)
	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").
		From("internship_applications a").Join("students s ON s.id = a.student_id").Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.baseSelect().Where(where).OrderBy("a.created_at DESC", "a.id DESC").
		Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list applications query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing applications: %w", err)
	}
	defer rows.Close()

	var out []models.InternshipApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning application: %w", err)
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// HasApproved reports whether the student holds an APPROVED application other than excludeID
func (r *ApplicationRepository) HasApproved(ctx context.Context, studentID, excludeID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM internship_applications WHERE student_id = $1 AND status = 'APPROVED' AND id <> $2)`,
		studentID, excludeID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("error checking approved applications: %w", err)
	}
	return ok, nil
}

// GetApprovedForStudent returns the student's approved application
func (r *ApplicationRepository) GetApprovedForStudent(ctx context.Context, studentID int64) (*models.InternshipApplication, error) {
	status := models.ApplicationApproved
	items, _, err := r.List(ctx, models.ApplicationFilter{StudentID: &studentID, Status: &status}, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.ErrApplicationNotFound
	}
	return &items[0], nil
}

// UpdateDetails rewrites the company and period of an application still in APPLIED state
func (r *ApplicationRepository) UpdateDetails(ctx context.Context, a *models.InternshipApplication) error {
	sql, args, err := r.sb.Update("internship_applications").
		Set("company_name", a.CompanyName).
		Set("company_address", a.CompanyAddress).
		Set("industry_sector", a.IndustrySector).
		Set("role_title", a.RoleTitle).
		Set("start_date", a.StartDate).
		Set("end_date", a.EndDate).
		Set("stipend", a.Stipend).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": a.ID, "status": models.ApplicationApplied}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update application query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// UpdateStatus moves an application from one status to another. The update only
// applies while the row still holds from.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, from, to models.ApplicationStatus, remarks *string, reviewerID *int64) error {
	q := r.sb.Update("internship_applications").
		Set("status", to).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "status": from})
	if remarks != nil {
		q = q.Set("remarks", remarks)
	}
	if reviewerID != nil {
		q = q.Set("reviewed_by", reviewerID).Set("reviewed_at", time.Now())
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build application status query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "internship_applications_one_approved") {
			return apperrors.ErrActiveInternshipExists
		}
		return fmt.Errorf("error updating application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}
