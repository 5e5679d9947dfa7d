package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/db"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/dberrors"
	"github.com/placeintern/backend/internal/pkg/helpers"
	"github.com/placeintern/backend/internal/pkg/logger"
)

var userColumns = []string{
	"u.id", "u.email", "u.password", "u.first_name", "u.last_name", "u.phone", "u.role_type",
	"u.institution_id", "u.is_active", "u.must_change_password", "u.last_login_at", "u.created_at", "u.updated_at",
}

func scanUser(row scanner, u *models.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.Phone, &u.RoleType,
		&u.InstitutionID, &u.IsActive, &u.MustChangePassword, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
}

// UserRepository handles user database operations
type UserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// Create inserts a user and sets its ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return createUser(ctx, r.db, r.sb, user)
}

func createUser(ctx context.Context, q db.DBTX, sb squirrel.StatementBuilderType, user *models.User) error {
	now := time.Now()
	sql, args, err := sb.Insert("users").
		Columns("email", "password", "first_name", "last_name", "phone", "role_type",
			"institution_id", "is_active", "must_change_password", "created_at", "updated_at").
		Values(user.Email, user.Password, user.FirstName, user.LastName, user.Phone, user.RoleType,
			user.InstitutionID, user.IsActive, user.MustChangePassword, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if err := q.QueryRow(ctx, sql, args...).Scan(&user.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			return apperrors.ErrEmailAlreadyExists
		}
		if dberrors.IsForeignKeyError(err) {
			return apperrors.ErrInstitutionNotFound
		}
		logger.Error().Err(err).Str("email", user.Email).Msg("Error creating user")
		return fmt.Errorf("error creating user: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users u").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user := &models.User{}
	if err := scanUser(r.db.QueryRow(ctx, sql, args...), user); err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.id": id})
}

// GetByEmail retrieves a user by email, case insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Expr("LOWER(u.email) = LOWER(?)", email))
}

// EmailExists checks if an email already exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return exists, nil
}

// List returns one page of users matching the filter
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter, page, size int) ([]models.User, int64, error) {
	where := squirrel.And{}
	if filter.RoleType != nil {
		where = append(where, squirrel.Eq{"u.role_type": *filter.RoleType})
	}
	if filter.InstitutionID != nil {
		where = append(where, squirrel.Eq{"u.institution_id": *filter.InstitutionID})
	}
	if filter.IsActive != nil {
		where = append(where, squirrel.Eq{"u.is_active": *filter.IsActive})
	}
	if filter.Search != "" {
		pattern := helpers.LikePattern(filter.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"u.email": pattern},
			squirrel.ILike{"u.first_name": pattern},
			squirrel.ILike{"u.last_name": pattern},
		})
	}

	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From("users u").Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.sb.Select(userColumns...).From("users u").Where(where).
		OrderBy("u.id").Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list users query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, limit)
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Update writes profile fields of a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	return r.exec(ctx, r.sb.Update("users").
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("email", user.Email).
		Set("phone", user.Phone).
		Set("institution_id", user.InstitutionID).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": user.ID}))
}

// UpdatePhone changes the contact number of a user
func (r *UserRepository) UpdatePhone(ctx context.Context, userID int64, phone *string) error {
	return r.exec(ctx, r.sb.Update("users").
		Set("phone", phone).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": userID}))
}

// UpdatePassword stores a new password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string, mustChange bool) error {
	return r.exec(ctx, r.sb.Update("users").
		Set("password", hash).
		Set("must_change_password", mustChange).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": userID}))
}

// SetActive activates or deactivates a user
func (r *UserRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	return r.exec(ctx, r.sb.Update("users").
		Set("is_active", active).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": userID}))
}

// UpdateLastLogin updates the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	return r.exec(ctx, r.sb.Update("users").Set("last_login_at", time.Now()).Where(squirrel.Eq{"id": userID}))
}

// Delete removes a user without dependants
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, r.sb.Delete("users").Where(squirrel.Eq{"id": id}))
}

func (r *UserRepository) exec(ctx context.Context, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "users_email_key"):
			return apperrors.ErrEmailAlreadyExists
		case dberrors.IsForeignKeyError(err):
			return apperrors.ErrHasDependents
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
