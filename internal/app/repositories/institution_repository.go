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

var institutionColumns = []string{"id", "name", "code", "district", "address", "contact_email", "is_active", "created_at", "updated_at"}

func scanInstitution(row scanner, i *models.Institution) error {
	return row.Scan(&i.ID, &i.Name, &i.Code, &i.District, &i.Address, &i.ContactEmail, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
}

// InstitutionRepository handles institutions, branches and batches
type InstitutionRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewInstitutionRepository creates a new InstitutionRepository
func NewInstitutionRepository(db *pgxpool.Pool) *InstitutionRepository {
	return &InstitutionRepository{db: db, sb: newStatementBuilder()}
}

// Create inserts an institution
func (r *InstitutionRepository) Create(ctx context.Context, inst *models.Institution) error {
	now := time.Now()
	sql, args, err := r.sb.Insert("institutions").
		Columns("name", "code", "district", "address", "contact_email", "is_active", "created_at", "updated_at").
		Values(inst.Name, inst.Code, inst.District, inst.Address, inst.ContactEmail, inst.IsActive, now, now).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create institution query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&inst.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "institutions_code_key") {
			return apperrors.ErrInstitutionAlreadyExists
		}
		return fmt.Errorf("error creating institution: %w", err)
	}
	inst.CreatedAt, inst.UpdatedAt = now, now
	return nil
}

// GetByID retrieves an institution
func (r *InstitutionRepository) GetByID(ctx context.Context, id int64) (*models.Institution, error) {
	sql, args, err := r.sb.Select(institutionColumns...).From("institutions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get institution query: %w", err)
	}

	inst := &models.Institution{}
	if err := scanInstitution(r.db.QueryRow(ctx, sql, args...), inst); err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("error retrieving institution: %w", err)
	}
	return inst, nil
}

// List returns institutions, optionally only active ones, matching search
func (r *InstitutionRepository) List(ctx context.Context, search string, activeOnly bool, page, size int) ([]models.Institution, int64, error) {
	where := squirrel.And{}
	if activeOnly {
		where = append(where, squirrel.Eq{"is_active": true})
	}
	if search != "" {
		pattern := helpers.LikePattern(search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"district": pattern},
		})
	}

	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From("institutions").Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.sb.Select(institutionColumns...).From("institutions").Where(where).
		OrderBy("name").Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list institutions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing institutions: %w", err)
	}
	defer rows.Close()

	var out []models.Institution
	for rows.Next() {
		var inst models.Institution
		if err := scanInstitution(rows, &inst); err != nil {
			return nil, 0, fmt.Errorf("error scanning institution: %w", err)
		}
		out = append(out, inst)
	}
	return out, total, rows.Err()
}

// ListAllActive returns every active institution ordered by name
func (r *InstitutionRepository) ListAllActive(ctx context.Context) ([]models.Institution, error) {
	sql, args, err := r.sb.Select(institutionColumns...).From("institutions").
		Where(squirrel.Eq{"is_active": true}).OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list active institutions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing active institutions: %w", err)
	}
	defer rows.Close()

	var out []models.Institution
	for rows.Next() {
		var inst models.Institution
		if err := scanInstitution(rows, &inst); err != nil {
			return nil, fmt.Errorf("error scanning institution: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// Update writes institution fields
func (r *InstitutionRepository) Update(ctx context.Context, inst *models.Institution) error {
	sql, args, err := r.sb.Update("institutions").
		Set("name", inst.Name).
		Set("code", inst.Code).
		Set("district", inst.District).
		Set("address", inst.Address).
		Set("contact_email", inst.ContactEmail).
		Set("is_active", inst.IsActive).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": inst.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update institution query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "institutions_code_key") {
			return apperrors.ErrInstitutionAlreadyExists
		}
		return fmt.Errorf("error updating institution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInstitutionNotFound
	}
	return nil
}

// HasDependents reports whether users or branches reference the institution
func (r *InstitutionRepository) HasDependents(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE institution_id = $1)
		    OR EXISTS(SELECT 1 FROM branches WHERE institution_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking institution dependants: %w", err)
	}
	return exists, nil
}

// Delete removes an institution
func (r *InstitutionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM institutions WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.ErrHasDependents
		}
		return fmt.Errorf("error deleting institution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInstitutionNotFound
	}
	return nil
}

// CreateBranch inserts a branch
func (r *InstitutionRepository) CreateBranch(ctx context.Context, b *models.Branch) error {
	sql, args, err := r.sb.Insert("branches").
		Columns("institution_id", "name", "code").
		Values(b.InstitutionID, b.Name, b.Code).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create branch query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&b.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "branches_institution_code_key") {
			return apperrors.ErrBranchAlreadyExists
		}
		return fmt.Errorf("error creating branch: %w", err)
	}
	return nil
}

// GetBranch retrieves a branch
func (r *InstitutionRepository) GetBranch(ctx context.Context, id int64) (*models.Branch, error) {
	b := &models.Branch{}
	err := r.db.QueryRow(ctx, `SELECT id, institution_id, name, code FROM branches WHERE id = $1`, id).
		Scan(&b.ID, &b.InstitutionID, &b.Name, &b.Code)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrBranchNotFound
		}
		return nil, fmt.Errorf("error retrieving branch: %w", err)
	}
	return b, nil
}

// ListBranches returns the branches of an institution
func (r *InstitutionRepository) ListBranches(ctx context.Context, institutionID int64) ([]models.Branch, error) {
	rows, err := r.db.Query(ctx, `SELECT id, institution_id, name, code FROM branches WHERE institution_id = $1 ORDER BY code`, institutionID)
	if err != nil {
		return nil, fmt.Errorf("error listing branches: %w", err)
	}
	defer rows.Close()

	var out []models.Branch
	for rows.Next() {
		var b models.Branch
		if err := rows.Scan(&b.ID, &b.InstitutionID, &b.Name, &b.Code); err != nil {
			return nil, fmt.Errorf("error scanning branch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BranchCodes maps branch codes to IDs for one institution
func (r *InstitutionRepository) BranchCodes(ctx context.Context, institutionID int64) (map[string]int64, error) {
	branches, err := r.ListBranches(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(branches))
	for _, b := range branches {
		out[b.Code] = b.ID
	}
	return out, nil
}

// UpdateBranch renames a branch
func (r *InstitutionRepository) UpdateBranch(ctx context.Context, b *models.Branch) error {
	tag, err := r.db.Exec(ctx, `UPDATE branches SET name = $1, code = $2 WHERE id = $3`, b.Name, b.Code, b.ID)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "branches_institution_code_key") {
			return apperrors.ErrBranchAlreadyExists
		}
		return fmt.Errorf("error updating branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBranchNotFound
	}
	return nil
}

// DeleteBranch removes a branch without students or staff
func (r *InstitutionRepository) DeleteBranch(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.ErrHasDependents
		}
		return fmt.Errorf("error deleting branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBranchNotFound
	}
	return nil
}

const batchSelect = `SELECT id, institution_id, name, academic_year, semester, start_date, end_date FROM batches`

func scanBatch(row scanner, b *models.Batch) error {
	return row.Scan(&b.ID, &b.InstitutionID, &b.Name, &b.AcademicYear, &b.Semester, &b.StartDate, &b.EndDate)
}

// CreateBatch inserts a batch
func (r *InstitutionRepository) CreateBatch(ctx context.Context, b *models.Batch) error {
	sql, args, err := r.sb.Insert("batches").
		Columns("institution_id", "name", "academic_year", "semester", "start_date", "end_date").
		Values(b.InstitutionID, b.Name, b.AcademicYear, b.Semester, b.StartDate, b.EndDate).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create batch query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&b.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "batches_institution_name_key") {
			return apperrors.ErrBatchAlreadyExists
		}
		return fmt.Errorf("error creating batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch
func (r *InstitutionRepository) GetBatch(ctx context.Context, id int64) (*models.Batch, error) {
	b := &models.Batch{}
	if err := scanBatch(r.db.QueryRow(ctx, batchSelect+` WHERE id = $1`, id), b); err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrBatchNotFound
		}
		return nil, fmt.Errorf("error retrieving batch: %w", err)
	}
	return b, nil
}

// ListBatches returns the batches of an institution, newest first
func (r *InstitutionRepository) ListBatches(ctx context.Context, institutionID int64) ([]models.Batch, error) {
	rows, err := r.db.Query(ctx, batchSelect+` WHERE institution_id = $1 ORDER BY academic_year DESC, name`, institutionID)
	if err != nil {
		return nil, fmt.Errorf("error listing batches: %w", err)
	}
	defer rows.Close()

	var out []models.Batch
	for rows.Next() {
		var b models.Batch
		if err := scanBatch(rows, &b); err != nil {
			return nil, fmt.Errorf("error scanning batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBatch writes batch fields
func (r *InstitutionRepository) UpdateBatch(ctx context.Context, b *models.Batch) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE batches SET name = $1, academic_year = $2, semester = $3, start_date = $4, end_date = $5
		WHERE id = $6`, b.Name, b.AcademicYear, b.Semester, b.StartDate, b.EndDate, b.ID)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "batches_institution_name_key") {
			return apperrors.ErrBatchAlreadyExists
		}
		return fmt.Errorf("error updating batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBatchNotFound
	}
	return nil
}

// DeleteBatch removes a batch no student references
func (r *InstitutionRepository) DeleteBatch(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.ErrHasDependents
		}
		return fmt.Errorf("error deleting batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBatchNotFound
	}
	return nil
}
