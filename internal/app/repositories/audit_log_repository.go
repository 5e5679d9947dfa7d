package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// AuditLogRepository stores the audit trail
type AuditLogRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{db: db, sb: newStatementBuilder()}
}

// Create appends an audit entry
func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	var details any
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}

	sql, args, err := r.sb.Insert("audit_logs").
		Columns("user_id", "role_type", "action", "entity_type", "entity_id", "method", "path",
			"status_code", "ip_address", "user_agent", "details", "created_at").
		Values(entry.UserID, entry.RoleType, entry.Action, entry.EntityType, entry.EntityID, entry.Method, entry.Path,
			entry.StatusCode, entry.IPAddress, entry.UserAgent, details, entry.CreatedAt).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build audit log query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&entry.ID); err != nil {
		return fmt.Errorf("error writing audit log: %w", err)
	}
	return nil
}

// List returns a page of audit entries, newest first
func (r *AuditLogRepository) List(ctx context.Context, filter models.AuditLogFilter, page, size int) ([]models.AuditLog, int64, error) {
	where := squirrel.And{}
	if filter.UserID != nil {
		where = append(where, squirrel.Eq{"user_id": *filter.UserID})
	}
	if filter.Action != "" {
		where = append(where, squirrel.Eq{"action": filter.Action})
	}
	if filter.EntityType != "" {
		where = append(where, squirrel.Eq{"entity_type": filter.EntityType})
	}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.Lt{"created_at": *filter.To})
	}

	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From("audit_logs").Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.sb.Select("id", "user_id", "role_type", "action", "entity_type", "entity_id", "method", "path",
		"status_code", "ip_address", "user_agent", "details", "created_at").
		From("audit_logs").Where(where).OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list audit logs query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing audit logs: %w", err)
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var a models.AuditLog
		var details []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.RoleType, &a.Action, &a.EntityType, &a.EntityID, &a.Method, &a.Path,
			&a.StatusCode, &a.IPAddress, &a.UserAgent, &details, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("error scanning audit log: %w", err)
		}
		a.Details = details
		out = append(out, a)
	}
	return out, total, rows.Err()
}
