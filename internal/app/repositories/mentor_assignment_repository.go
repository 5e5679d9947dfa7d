package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/db"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/dberrors"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// AssignmentFilter narrows mentor assignment listings
type AssignmentFilter struct {
	InstitutionID *int64
	MentorID      *int64
	StudentID     *int64
	AcademicYear  string
	ActiveOnly    bool
}

// MentorAssignmentRepository handles mentor assignments
type MentorAssignmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewMentorAssignmentRepository creates a new MentorAssignmentRepository
func NewMentorAssignmentRepository(db *pgxpool.Pool) *MentorAssignmentRepository {
	return &MentorAssignmentRepository{db: db, sb: newStatementBuilder()}
}

func (r *MentorAssignmentRepository) baseSelect() squirrel.SelectBuilder {
	return r.sb.Select(
		"ma.id", "ma.student_id", "ma.mentor_id", "ma.academic_year", "ma.assigned_by", "ma.assignment_reason",
		"ma.is_active", "ma.assigned_at", "ma.deactivated_at",
		"s.roll_number", "s.institution_id", "su.id", "su.first_name", "su.last_name", "su.email",
		"m.designation", "m.is_active", "mu.id", "mu.first_name", "mu.last_name", "mu.email", "mu.is_active",
	).
		From("mentor_assignments ma").
		Join("students s ON s.id = ma.student_id").
		Join("users su ON su.id = s.user_id").
		Join("staff m ON m.id = ma.mentor_id").
		Join("users mu ON mu.id = m.user_id")
}

func scanAssignment(row scanner) (*models.MentorAssignment, error) {
	a := &models.MentorAssignment{
		Student: &models.Student{User: &models.User{}},
		Mentor:  &models.Staff{User: &models.User{}},
	}
	err := row.Scan(&a.ID, &a.StudentID, &a.MentorID, &a.AcademicYear, &a.AssignedBy, &a.AssignmentReason,
		&a.IsActive, &a.AssignedAt, &a.DeactivatedAt,
		&a.Student.RollNumber, &a.Student.InstitutionID, &a.Student.User.ID, &a.Student.User.FirstName,
		&a.Student.User.LastName, &a.Student.User.Email,
		&a.Mentor.Designation, &a.Mentor.IsActive, &a.Mentor.User.ID, &a.Mentor.User.FirstName, &a.Mentor.User.LastName,
		&a.Mentor.User.Email, &a.Mentor.User.IsActive)
	if err != nil {
		return nil, err
	}
	a.Student.ID = a.StudentID
	a.Student.UserID = a.Student.User.ID
	a.Mentor.ID = a.MentorID
	a.Mentor.UserID = a.Mentor.User.ID
	a.Mentor.InstitutionID = a.Student.InstitutionID
	return a, nil
}

func (r *MentorAssignmentRepository) assignTx(ctx context.Context, tx pgx.Tx, a *models.MentorAssignment) error {
	now := time.Now()
	if _, err := tx.Exec(ctx, `
		UPDATE mentor_assignments SET is_active = FALSE, deactivated_at = $1
		WHERE student_id = $2 AND academic_year = $3 AND is_active`, now, a.StudentID, a.AcademicYear); err != nil {
		return fmt.Errorf("error deactivating previous assignment: %w", err)
	}

	sql, args, err := r.sb.Insert("mentor_assignments").
		Columns("student_id", "mentor_id", "academic_year", "assigned_by", "assignment_reason", "is_active", "assigned_at").
		Values(a.StudentID, a.MentorID, a.AcademicYear, a.AssignedBy, a.AssignmentReason, true, now).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build assignment query: %w", err)
	}
	if err := tx.QueryRow(ctx, sql, args...).Scan(&a.ID); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "mentor_assignments_active_student_year"):
			return apperrors.NewConflictError("student was assigned concurrently")
		case dberrors.IsForeignKeyError(err):
			return apperrors.ErrMentorNotFound
		}
		return fmt.Errorf("error creating assignment: %w", err)
	}
	a.IsActive = true
	a.AssignedAt = now
	return nil
}

// Assign deactivates the student's current assignment for the year and creates a new one
func (r *MentorAssignmentRepository) Assign(ctx context.Context, a *models.MentorAssignment) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return r.assignTx(ctx, tx, a)
	})
}

// AssignBatch persists all assignments in one transaction
func (r *MentorAssignmentRepository) AssignBatch(ctx context.Context, assignments []models.MentorAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		for i := range assignments {
			if err := r.assignTx(ctx, tx, &assignments[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves an assignment
func (r *MentorAssignmentRepository) GetByID(ctx context.Context, id int64) (*models.MentorAssignment, error) {
	sql, args, err := r.baseSelect().Where(squirrel.Eq{"ma.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get assignment query: %w", err)
	}
	a, err := scanAssignment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("error retrieving assignment: %w", err)
	}
	return a, nil
}

// GetActiveForStudent returns the current assignment of a student, if any
func (r *MentorAssignmentRepository) GetActiveForStudent(ctx context.Context, studentID int64) (*models.MentorAssignment, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"ma.student_id": studentID, "ma.is_active": true}).
		OrderBy("ma.assigned_at DESC").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build active assignment query: %w", err)
	}
	a, err := scanAssignment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("error retrieving active assignment: %w", err)
	}
	return a, nil
}

// IsActiveMentor reports whether mentorID currently supervises studentID
func (r *MentorAssignmentRepository) IsActiveMentor(ctx context.Context, mentorID, studentID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM mentor_assignments WHERE mentor_id = $1 AND student_id = $2 AND is_active)`,
		mentorID, studentID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("error checking mentorship: %w", err)
	}
	return ok, nil
}

// List returns a page of assignments
func (r *MentorAssignmentRepository) List(ctx context.Context, filter AssignmentFilter, page, size int) ([]models.MentorAssignment, int64, error) {
	where := squirrel.And{}
	if filter.InstitutionID != nil {
		where = append(where, squirrel.Eq{"s.institution_id": *filter.InstitutionID})
	}
	if filter.MentorID != nil {
		where = append(where, squirrel.Eq{"ma.mentor_id": *filter.MentorID})
	}
	if filter.StudentID != nil {
		where = append(where, squirrel.Eq{"ma.student_id": *filter.StudentID})
	}
	if filter.AcademicYear != "" {
		where = append(where, squirrel.Eq{"ma.academic_year": filter.AcademicYear})
	}
	if filter.ActiveOnly {
		where = append(where, squirrel.Eq{"ma.is_active": true})
	}

	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").
		From("mentor_assignments ma").Join("students s ON s.id = ma.student_id").Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.baseSelect().Where(where).OrderBy("ma.assigned_at DESC", "ma.id DESC").
		Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list assignments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing assignments: %w", err)
	}
	defer rows.Close()

	var out []models.MentorAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// Deactivate ends an active assignment
func (r *MentorAssignmentRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE mentor_assignments SET is_active = FALSE, deactivated_at = NOW()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("error deactivating assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAssignmentNotFound
	}
	return nil
}
