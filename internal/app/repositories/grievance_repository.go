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

// GrievanceRepository handles grievances and their history
type GrievanceRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewGrievanceRepository creates a new GrievanceRepository
func NewGrievanceRepository(db *pgxpool.Pool) *GrievanceRepository {
	return &GrievanceRepository{db: db, sb: newStatementBuilder()}
}

var grievanceColumns = []string{
	"g.id", "g.student_id", "g.institution_id", "g.category", "g.subject", "g.description", "g.status",
	"g.escalation_level", "g.assigned_to", "g.resolution", "g.created_at", "g.updated_at", "g.resolved_at", "g.closed_at",
}

func scanGrievance(row scanner) (*models.Grievance, error) {
	g := &models.Grievance{}
	err := row.Scan(&g.ID, &g.StudentID, &g.InstitutionID, &g.Category, &g.Subject, &g.Description, &g.Status,
		&g.EscalationLevel, &g.AssignedTo, &g.Resolution, &g.CreatedAt, &g.UpdatedAt, &g.ResolvedAt, &g.ClosedAt)
	return g, err
}

func (r *GrievanceRepository) insertEvent(ctx context.Context, q db.DBTX, e *models.GrievanceEvent) error {
	sql, args, err := r.sb.Insert("grievance_history").
		Columns("grievance_id", "from_status", "to_status", "from_level", "to_level", "actor_id", "remarks", "created_at").
		Values(e.GrievanceID, e.FromStatus, e.ToStatus, e.FromLevel, e.ToLevel, e.ActorID, e.Remarks, e.CreatedAt).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build grievance history query: %w", err)
	}
	if err := q.QueryRow(ctx, sql, args...).Scan(&e.ID); err != nil {
		return fmt.Errorf("error recording grievance history: %w", err)
	}
	return nil
}

// Create inserts a grievance and its opening history entry
func (r *GrievanceRepository) Create(ctx context.Context, g *models.Grievance, actorID int64) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		now := time.Now()
		sql, args, err := r.sb.Insert("grievances").
			Columns("student_id", "institution_id", "category", "subject", "description", "status",
				"escalation_level", "assigned_to", "created_at", "updated_at").
			Values(g.StudentID, g.InstitutionID, g.Category, g.Subject, g.Description, g.Status,
				g.EscalationLevel, g.AssignedTo, now, now).
			Suffix("RETURNING id").ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create grievance query: %w", err)
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&g.ID); err != nil {
			return fmt.Errorf("error creating grievance: %w", err)
		}
		g.CreatedAt, g.UpdatedAt = now, now

		event := models.GrievanceEvent{
			GrievanceID: g.ID,
			FromStatus:  g.Status,
			ToStatus:    g.Status,
			FromLevel:   g.EscalationLevel,
			ToLevel:     g.EscalationLevel,
			ActorID:     actorID,
			CreatedAt:   now,
		}
		if err := r.insertEvent(ctx, tx, &event); err != nil {
			return err
		}
		g.History = []models.GrievanceEvent{event}
		return nil
	})
}

// GetByID retrieves a grievance with its history
func (r *GrievanceRepository) GetByID(ctx context.Context, id int64) (*models.Grievance, error) {
	sql, args, err := r.sb.Select(grievanceColumns...).From("grievances g").Where(squirrel.Eq{"g.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get grievance query: %w", err)
	}
	g, err := scanGrievance(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrGrievanceNotFound
		}
		return nil, fmt.Errorf("error retrieving grievance: %w", err)
	}

	g.History, err = r.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// History returns the transitions of a grievance in order
func (r *GrievanceRepository) History(ctx context.Context, grievanceID int64) ([]models.GrievanceEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, grievance_id, from_status, to_status, from_level, to_level, actor_id, remarks, created_at
		FROM grievance_history WHERE grievance_id = $1 ORDER BY created_at, id`, grievanceID)
	if err != nil {
		return nil, fmt.Errorf("error listing grievance history: %w", err)
	}
	defer rows.Close()

	var out []models.GrievanceEvent
	for rows.Next() {
		var e models.GrievanceEvent
		if err := rows.Scan(&e.ID, &e.GrievanceID, &e.FromStatus, &e.ToStatus, &e.FromLevel, &e.ToLevel,
			&e.ActorID, &e.Remarks, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning grievance history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// liveMentorExists matches grievances whose student has an active mentor
// whose staff record and account are both active
const liveMentorExists = `EXISTS (SELECT 1 FROM mentor_assignments ma
	JOIN staff st ON st.id = ma.mentor_id
	JOIN users u ON u.id = st.user_id
	WHERE ma.student_id = g.student_id AND ma.is_active AND st.is_active AND u.is_active %s)`

// List returns a page of grievances, newest first
func (r *GrievanceRepository) List(ctx context.Context, filter models.GrievanceFilter, page, size int) ([]models.Grievance, int64, error) {
	where := squirrel.And{}
	if filter.InstitutionID != nil {
		where = append(where, squirrel.Eq{"g.institution_id": *filter.InstitutionID})
	}
	if filter.StudentID != nil {
		where = append(where, squirrel.Eq{"g.student_id": *filter.StudentID})
	}
	if filter.AssignedTo != nil {
		where = append(where, squirrel.Eq{"g.assigned_to": *filter.AssignedTo})
	}
	if filter.MentorUserID != nil {
		where = append(where, squirrel.Expr(fmt.Sprintf(liveMentorExists, "AND st.user_id = ?"), *filter.MentorUserID))
	}
	if filter.Level != nil {
		level := squirrel.Sqlizer(squirrel.Eq{"g.escalation_level": *filter.Level})
		if filter.WithOrphaned {
			level = squirrel.Or{level, squirrel.And{
				squirrel.Eq{"g.escalation_level": models.LevelFaculty},
				squirrel.Expr("NOT " + fmt.Sprintf(liveMentorExists, "")),
			}}
		}
		where = append(where, level)
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"g.status": *filter.Status})
	}
	if filter.OpenOnly {
		where = append(where, squirrel.Eq{"g.status": []models.GrievanceStatus{
			models.GrievanceSubmitted, models.GrievanceInReview, models.GrievanceEscalated,
		}})
	}

	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From("grievances g").Where(where))
	if err != nil {
		return nil, 0, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.sb.Select(grievanceColumns...).From("grievances g").Where(where).
		OrderBy("g.updated_at DESC", "g.id DESC").Limit(uint64(limit)).Offset(offset).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list grievances query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing grievances: %w", err)
	}
	defer rows.Close()

	var out []models.Grievance
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning grievance: %w", err)
		}
		out = append(out, *g)
	}
	return out, total, rows.Err()
}

// ApplyTransition persists the new state of g and its history entry together.
// The update only applies while the row is still in event.FromStatus at event.FromLevel.
func (r *GrievanceRepository) ApplyTransition(ctx context.Context, g *models.Grievance, event *models.GrievanceEvent) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Update("grievances").
			Set("status", g.Status).
			Set("escalation_level", g.EscalationLevel).
			Set("assigned_to", g.AssignedTo).
			Set("resolution", g.Resolution).
			Set("resolved_at", g.ResolvedAt).
			Set("closed_at", g.ClosedAt).
			Set("updated_at", g.UpdatedAt).
			Where(squirrel.Eq{"id": g.ID, "status": event.FromStatus, "escalation_level": event.FromLevel}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build grievance transition query: %w", err)
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("error updating grievance: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrInvalidTransition
		}
		return r.insertEvent(ctx, tx, event)
	})
}
