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
)

// DocumentRepository handles uploaded document metadata
type DocumentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db, sb: newStatementBuilder()}
}

var documentColumns = []string{
	"id", "owner_user_id", "student_id", "document_type", "file_name", "storage_key", "file_url",
	"mime_type", "file_size", "is_verified", "verified_by", "verified_at", "created_at",
}

func scanDocument(row scanner) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(&d.ID, &d.OwnerUserID, &d.StudentID, &d.DocumentType, &d.FileName, &d.StorageKey, &d.FileURL,
		&d.MimeType, &d.FileSize, &d.IsVerified, &d.VerifiedBy, &d.VerifiedAt, &d.CreatedAt)
	return d, err
}

// Create stores document metadata
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	d.CreatedAt = time.Now()
	sql, args, err := r.sb.Insert("documents").
		Columns("owner_user_id", "student_id", "document_type", "file_name", "storage_key", "file_url",
			"mime_type", "file_size", "is_verified", "created_at").
		Values(d.OwnerUserID, d.StudentID, d.DocumentType, d.FileName, d.StorageKey, d.FileURL,
			d.MimeType, d.FileSize, false, d.CreatedAt).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create document query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&d.ID); err != nil {
		return fmt.Errorf("error creating document: %w", err)
	}
	return nil
}

// GetByID retrieves document metadata
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	sql, args, err := r.sb.Select(documentColumns...).From("documents").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get document query: %w", err)
	}
	d, err := scanDocument(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error retrieving document: %w", err)
	}
	return d, nil
}

// ListByStudent returns the documents attached to a student record
func (r *DocumentRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Document, error) {
	sql, args, err := r.sb.Select(documentColumns...).From("documents").
		Where(squirrel.Eq{"student_id": studentID}).OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list documents query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning document: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Verify marks a document verified by the given user
func (r *DocumentRepository) Verify(ctx context.Context, id, verifierID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE documents SET is_verified = TRUE, verified_by = $1, verified_at = NOW()
		WHERE id = $2 AND NOT is_verified`, verifierID, id)
	if err != nil {
		return fmt.Errorf("error verifying document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDocumentAlreadyVerified
	}
	return nil
}

// DeleteUnverified removes a document that has not been verified yet
func (r *DocumentRepository) DeleteUnverified(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND NOT is_verified`, id)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDocumentAlreadyVerified
	}
	return nil
}
