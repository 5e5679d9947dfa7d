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

// StaffFilter narrows staff listings
type StaffFilter struct {
	InstitutionID *int64
	BranchID      *int64
	ActiveOnly    bool
	Search        string
}

// StaffRepository handles faculty supervisor records
type StaffRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStaffRepository creates a new StaffRepository
func NewStaffRepository(db *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{db: db, sb: newStatementBuilder()}
}

func (r *StaffRepository) baseSelect() squirrel.SelectBuilder {
	return r.sb.Select(
		"st.id", "st.user_id", "st.institution_id", "st.branch_id", "st.designation", "st.max_mentees", "st.is_active",
		"u.email", "u.first_name", "u.last_name", "u.phone", "u.role_type", "u.is_active",
	).From("staff st").Join("users u ON u.id = st.user_id")
}

func scanStaff(row scanner, extra ...any) (*models.Staff, error) {
	s := &models.Staff{User: &models.User{}}
	dest := []any{&s.ID, &s.UserID, &s.InstitutionID, &s.BranchID, &s.Designation, &s.MaxMentees, &s.IsActive,
		&s.User.Email, &s.User.FirstName, &s.User.LastName, &s.User.Phone, &s.User.RoleType, &s.User.IsActive}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	s.User.ID = s.UserID
	s.User.InstitutionID = &s.InstitutionID
	return s, nil
}

// CreateWithUser inserts the account and the staff record together
func (r *StaffRepository) CreateWithUser(ctx context.Context, user *models.User, staff *models.Staff) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := createUser(ctx, tx, r.sb, user); err != nil {
			return err
		}
		staff.UserID = user.ID

		sql, args, err := r.sb.Insert("staff").
			Columns("user_id", "institution_id", "branch_id", "designation", "max_mentees", "is_active").
			Values(staff.UserID, staff.InstitutionID, staff.BranchID, staff.Designation, staff.MaxMentees, staff.IsActive).
			Suffix("RETURNING id").ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create staff query: %w", err)
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&staff.ID); err != nil {
			if dberrors.IsForeignKeyError(err) {
				return apperrors.ErrBranchNotFound
			}
			return fmt.Errorf("error creating staff: %w", err)
		}
		staff.User = user
		return nil
	})
}

func (r *StaffRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Staff, error) {
	sql, args, err := r.baseSelect().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get staff query: %w", err)
	}
	s, err := scanStaff(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrStaffNotFound
		}
		return nil, fmt.Errorf("error retrieving staff: %w", err)
	}
	return s, nil
}

// GetByID retrieves a staff member
func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*models.Staff, error) {
	return r.getOne(ctx, squirrel.Eq{"st.id": id})
}

// GetByUserID retrieves the staff record of an account
func (r *StaffRepository) GetByUserID(ctx context.Context, userID int64) (*models.Staff, error) {
	return r.getOne(ctx, squirrel.Eq{"st.user_id": userID})
}

func staffWhere(filter StaffFilter) squirrel.And {
	where := squirrel.And{}
	if filter.InstitutionID != nil {
		where = append(where, squirrel.Eq{"st.institution_id": *filter.InstitutionID})
	}
	if filter.BranchID != nil {
		where = append(where, squirrel.Eq{"st.branch_id": *filter.BranchID})
	}
	if filter.ActiveOnly {
		where = append(where, squirrel.Eq{"st.is_active": true, "u.is_active": true})
	}
	if filter.Search != "" {
		pattern := helpers.LikePattern(filter.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"u.first_name": pattern},
			squirrel.ILike{"u.last_name": pattern},
			squirrel.ILike{"u.email": pattern},
		})
	}
	return where
}

// List returns a page of staff members
func (r *StaffRepository) List(ctx context.Context, filter StaffFilter, page, size int) ([]models.Staff, int64, error) {
	where := staffWhere(filter)
	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From("staff st").Join("users u ON u.id = st.user_id").Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.baseSelect().Where(where).OrderBy("u.first_name", "u.last_name").
		Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list staff query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing staff: %w", err)
	}
	defer rows.Close()

	var out []models.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning staff: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// ListMentorLoads returns active faculty supervisors of an institution with the number of
// active mentees they carry for the academic year, ordered by staff ID.
// When mentorIDs is non-empty only those mentors are returned.
func (r *StaffRepository) ListMentorLoads(ctx context.Context, institutionID int64, academicYear string, branchID *int64, mentorIDs []int64) ([]models.MentorLoad, error) {
	where := staffWhere(StaffFilter{InstitutionID: &institutionID, BranchID: branchID, ActiveOnly: true})
	where = append(where, squirrel.Eq{"u.role_type": models.RoleFacultySupervisor})
	if len(mentorIDs) > 0 {
		where = append(where, squirrel.Eq{"st.id": mentorIDs})
	}

	q := r.baseSelect().
		Column(squirrel.Expr("(SELECT COUNT(*) FROM mentor_assignments ma WHERE ma.mentor_id = st.id AND ma.is_active AND ma.academic_year = ?)", academicYear)).
		Where(where).
		OrderBy("st.id")
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build mentor load query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing mentor loads: %w", err)
	}
	defer rows.Close()

	var out []models.MentorLoad
	for rows.Next() {
		var load int
		s, err := scanStaff(rows, &load)
		if err != nil {
			return nil, fmt.Errorf("error scanning mentor load: %w", err)
		}
		out = append(out, models.MentorLoad{Mentor: *s, Load: load})
	}
	return out, rows.Err()
}

// Update writes staff fields
func (r *StaffRepository) Update(ctx context.Context, s *models.Staff) error {
	sql, args, err := r.sb.Update("staff").
		Set("branch_id", s.BranchID).
		Set("designation", s.Designation).
		Set("max_mentees", s.MaxMentees).
		Set("is_active", s.IsActive).
		Where(squirrel.Eq{"id": s.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update staff query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating staff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStaffNotFound
	}
	return nil
}

// Deactivate disables the staff member and its account. Active mentorships are kept
// so they can be reassigned explicitly.
func (r *StaffRepository) Deactivate(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var userID int64
		if err := tx.QueryRow(ctx, `UPDATE staff SET is_active = FALSE WHERE id = $1 RETURNING user_id`, id).Scan(&userID); err != nil {
			if dberrors.IsNoRows(err) {
				return apperrors.ErrStaffNotFound
			}
			return fmt.Errorf("error deactivating staff: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("error deactivating staff account: %w", err)
		}
		return nil
	})
}
