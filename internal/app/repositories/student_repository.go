package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/db"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/dberrors"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// StudentRepository handles student records and their accounts
type StudentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{db: db, sb: newStatementBuilder()}
}

func (r *StudentRepository) baseSelect() squirrel.SelectBuilder {
	return r.sb.Select(
		"s.id", "s.user_id", "s.institution_id", "s.branch_id", "s.batch_id", "s.roll_number",
		"s.semester", "s.academic_year", "s.is_active",
		"u.email", "u.first_name", "u.last_name", "u.phone", "u.role_type", "u.is_active",
		"b.name", "b.code",
		"m.id", "m.user_id", "m.designation", "mu.first_name", "mu.last_name", "mu.email",
	).
		From("students s").
		Join("users u ON u.id = s.user_id").
		Join("branches b ON b.id = s.branch_id").
		LeftJoin("mentor_assignments ma ON ma.student_id = s.id AND ma.is_active AND ma.academic_year = s.academic_year").
		LeftJoin("staff m ON m.id = ma.mentor_id").
		LeftJoin("users mu ON mu.id = m.user_id")
}

func scanStudent(row scanner) (*models.Student, error) {
	s := &models.Student{User: &models.User{}, Branch: &models.Branch{}}
	var (
		mentorID, mentorUserID                           *int64
		designation, mentorFirst, mentorLast, mentorMail *string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.InstitutionID, &s.BranchID, &s.BatchID, &s.RollNumber,
		&s.Semester, &s.AcademicYear, &s.IsActive,
		&s.User.Email, &s.User.FirstName, &s.User.LastName, &s.User.Phone, &s.User.RoleType, &s.User.IsActive,
		&s.Branch.Name, &s.Branch.Code,
		&mentorID, &mentorUserID, &designation, &mentorFirst, &mentorLast, &mentorMail)
	if err != nil {
		return nil, err
	}

	s.User.ID = s.UserID
	s.User.InstitutionID = &s.InstitutionID
	s.Branch.ID = s.BranchID
	s.Branch.InstitutionID = s.InstitutionID
	if mentorID != nil {
		s.Mentor = &models.Staff{
			ID:            *mentorID,
			UserID:        helpers.Deref(mentorUserID),
			InstitutionID: s.InstitutionID,
			Designation:   helpers.Deref(designation),
			IsActive:      true,
			User: &models.User{
				ID:        helpers.Deref(mentorUserID),
				FirstName: helpers.Deref(mentorFirst),
				LastName:  helpers.Deref(mentorLast),
				Email:     helpers.Deref(mentorMail),
			},
		}
	}
	return s, nil
}

// CreateWithUser inserts the account and the student record together
func (r *StudentRepository) CreateWithUser(ctx context.Context, user *models.User, student *models.Student) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := createUser(ctx, tx, r.sb, user); err != nil {
			return err
		}
		student.UserID = user.ID

		sql, args, err := r.sb.Insert("students").
			Columns("user_id", "institution_id", "branch_id", "batch_id", "roll_number", "semester", "academic_year", "is_active").
			Values(student.UserID, student.InstitutionID, student.BranchID, student.BatchID, student.RollNumber,
				student.Semester, student.AcademicYear, student.IsActive).
			Suffix("RETURNING id").ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create student query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&student.ID); err != nil {
			switch {
			case dberrors.IsDuplicateConstraintError(err, "students_institution_roll_key"):
				return apperrors.ErrRollNumberAlreadyExists
			case dberrors.IsForeignKeyError(err):
				return apperrors.ErrBranchNotFound
			}
			return fmt.Errorf("error creating student: %w", err)
		}
		student.User = user
		return nil
	})
}

func (r *StudentRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Student, error) {
	sql, args, err := r.baseSelect().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}
	s, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return s, nil
}

// GetByID retrieves a student with account, branch and current mentor
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"s.id": id})
}

// GetByUserID retrieves the student record of an account
func (r *StudentRepository) GetByUserID(ctx context.Context, userID int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"s.user_id": userID})
}

func studentWhere(filter models.StudentFilter) squirrel.And {
	where := squirrel.And{}
	if filter.InstitutionID != nil {
		where = append(where, squirrel.Eq{"s.institution_id": *filter.InstitutionID})
	}
	if filter.BranchID != nil {
		where = append(where, squirrel.Eq{"s.branch_id": *filter.BranchID})
	}
	if filter.BatchID != nil {
		where = append(where, squirrel.Eq{"s.batch_id": *filter.BatchID})
	}
	if filter.AcademicYear != "" {
		where = append(where, squirrel.Eq{"s.academic_year": filter.AcademicYear})
	}
	if filter.Semester != nil {
		where = append(where, squirrel.Eq{"s.semester": *filter.Semester})
	}
	if filter.Unassigned {
		where = append(where, squirrel.Eq{"ma.id": nil})
	}
	if filter.Search != "" {
		pattern := helpers.LikePattern(filter.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"s.roll_number": pattern},
			squirrel.ILike{"u.first_name": pattern},
			squirrel.ILike{"u.last_name": pattern},
			squirrel.ILike{"u.email": pattern},
		})
	}
	return where
}

// List returns a page of students matching the filter
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter, page, size int) ([]models.Student, int64, error) {
	where := studentWhere(filter)

	countQuery := r.sb.Select("COUNT(*)").
		From("students s").
		Join("users u ON u.id = s.user_id").
		LeftJoin("mentor_assignments ma ON ma.student_id = s.id AND ma.is_active AND ma.academic_year = s.academic_year").
		Where(where)
	total, err := count(ctx, r.db, countQuery)
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	students, err := r.query(ctx, r.baseSelect().Where(where).OrderBy("s.roll_number").Limit(uint64(limit)).Offset(offset))
	return students, total, err
}

// ListUnassigned returns active students of the academic year without an active mentor,
// ordered by branch and roll number
func (r *StudentRepository) ListUnassigned(ctx context.Context, institutionID int64, academicYear string, branchID *int64) ([]models.Student, error) {
	where := studentWhere(models.StudentFilter{
		InstitutionID: &institutionID,
		AcademicYear:  academicYear,
		BranchID:      branchID,
		Unassigned:    true,
	})
	where = append(where, squirrel.Eq{"s.is_active": true})
	return r.query(ctx, r.baseSelect().Where(where).OrderBy("b.code", "s.roll_number", "s.id"))
}

func (r *StudentRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]models.Student, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	var out []models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning student: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update writes the academic fields of a student
func (r *StudentRepository) Update(ctx context.Context, s *models.Student) error {
	sql, args, err := r.sb.Update("students").
		Set("branch_id", s.BranchID).
		Set("batch_id", s.BatchID).
		Set("roll_number", s.RollNumber).
		Set("semester", s.Semester).
		Set("academic_year", s.AcademicYear).
		Set("is_active", s.IsActive).
		Where(squirrel.Eq{"id": s.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "students_institution_roll_key") {
			return apperrors.ErrRollNumberAlreadyExists
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// Deactivate disables the student and its account and ends the active mentorship
func (r *StudentRepository) Deactivate(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `UPDATE students SET is_active = FALSE WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
		if err != nil {
			if dberrors.IsNoRows(err) {
				return apperrors.ErrStudentNotFound
			}
			return fmt.Errorf("error deactivating student: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("error deactivating student account: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE mentor_assignments SET is_active = FALSE, deactivated_at = NOW()
			WHERE student_id = $1 AND is_active`, id); err != nil {
			return fmt.Errorf("error ending mentorship: %w", err)
		}
		return nil
	})
}
