package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// NotificationRepository handles in-app notifications
type NotificationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db, sb: newStatementBuilder()}
}

// Create stores a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now()
	sql, args, err := r.sb.Insert("notifications").
		Columns("user_id", "title", "body", "category", "link", "is_read", "created_at").
		Values(n.UserID, n.Title, n.Body, n.Category, n.Link, false, n.CreatedAt).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create notification query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n.ID); err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

// List returns a page of a user's notifications, newest first
func (r *NotificationRepository) List(ctx context.Context, userID int64, unreadOnly bool, page, size int) ([]models.Notification, int64, error) {
	where := squirrel.Eq{"user_id": userID}
	if unreadOnly {
		where["is_read"] = false
	}

	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From("notifications").Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.sb.Select("id", "user_id", "title", "body", "category", "link", "is_read", "created_at", "read_at").
		From("notifications").Where(where).OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list notifications query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Category, &n.Link, &n.IsRead, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, 0, fmt.Errorf("error scanning notification: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// MarkRead marks one of the user's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE, read_at = NOW() WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UnreadCount returns the number of unread notifications of the user
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return count(ctx, r.db, r.sb.Select("COUNT(*)").From("notifications").Where(squirrel.Eq{"user_id": userID, "is_read": false}))
}
