package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
)

const jobTable = "river_job"

const jobColumns = "id, queue, kind, args, state, attempt, max_attempts, scheduled_at, attempted_at, " +
	"errors[array_length(errors, 1)]->>'error', created_at, finalized_at"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// StatusOf collapses a river job state into the status shown to administrators
func StatusOf(state rivertype.JobState) models.JobStatus {
	switch state {
	case rivertype.JobStateRunning:
		return models.JobActive
	case rivertype.JobStateCompleted:
		return models.JobCompleted
	case rivertype.JobStateDiscarded, rivertype.JobStateCancelled:
		return models.JobFailed
	default:
		return models.JobPending
	}
}

// StatesOf is the inverse of StatusOf
func StatesOf(status models.JobStatus) []string {
	var states []rivertype.JobState
	switch status {
	case models.JobActive:
		states = []rivertype.JobState{rivertype.JobStateRunning}
	case models.JobCompleted:
		states = []rivertype.JobState{rivertype.JobStateCompleted}
	case models.JobFailed:
		states = []rivertype.JobState{rivertype.JobStateDiscarded, rivertype.JobStateCancelled}
	case models.JobPending:
		states = []rivertype.JobState{rivertype.JobStateAvailable, rivertype.JobStateScheduled,
			rivertype.JobStateRetryable, rivertype.JobStatePending}
	}
	out := make([]string, len(states))
	for i, st := range states {
		out[i] = string(st)
	}
	return out
}

// FromRow converts a river job row into the admin view
func FromRow(row *rivertype.JobRow) *models.Job {
	job := &models.Job{
		ID:          row.ID,
		Queue:       row.Queue,
		JobType:     row.Kind,
		Payload:     row.EncodedArgs,
		Status:      StatusOf(row.State),
		State:       string(row.State),
		Attempts:    row.Attempt,
		MaxAttempts: row.MaxAttempts,
		RunAt:       row.ScheduledAt,
		AttemptedAt: row.AttemptedAt,
		CreatedAt:   row.CreatedAt,
		FinalizedAt: row.FinalizedAt,
	}
	if n := len(row.Errors); n > 0 {
		last := row.Errors[n-1].Error
		job.LastError = &last
	}
	return job
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (models.Job, error) {
	var j models.Job
	var args []byte
	err := row.Scan(&j.ID, &j.Queue, &j.JobType, &args, &j.State, &j.Attempts, &j.MaxAttempts, &j.RunAt,
		&j.AttemptedAt, &j.LastError, &j.CreatedAt, &j.FinalizedAt)
	j.Payload = args
	j.Status = StatusOf(rivertype.JobState(j.State))
	return j, err
}

// Stats counts jobs per queue and status
func (q *Queue) Stats(ctx context.Context) ([]models.QueueStat, error) {
	sql, args, err := psql.Select("queue", "state", "COUNT(*)").
		From(jobTable).
		GroupBy("queue", "state").
		OrderBy("queue", "state").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build job stats query: %w", err)
	}

	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying job stats: %w", err)
	}
	defer rows.Close()

	// several river states share one status
	index := map[[2]string]int{}
	stats := []models.QueueStat{}
	for rows.Next() {
		var queue, state string
		var count int64
		if err := rows.Scan(&queue, &state, &count); err != nil {
			return nil, fmt.Errorf("error scanning job stats: %w", err)
		}
		status := StatusOf(rivertype.JobState(state))
		key := [2]string{queue, string(status)}
		if i, ok := index[key]; ok {
			stats[i].Count += count
			continue
		}
		index[key] = len(stats)
		stats = append(stats, models.QueueStat{Queue: queue, Status: status, Count: count})
	}
	return stats, rows.Err()
}

// List returns jobs filtered by queue and status, most recently scheduled first
func (q *Queue) List(ctx context.Context, queue string, status models.JobStatus, offset uint64, limit int) ([]models.Job, int64, error) {
	where := squirrel.And{}
	if queue != "" {
		where = append(where, squirrel.Eq{"queue": queue})
	}
	if status != "" {
		where = append(where, squirrel.Eq{"state": StatesOf(status)})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From(jobTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build job count query: %w", err)
	}
	var total int64
	if err := q.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting jobs: %w", err)
	}

	sql, args, err := psql.Select(jobColumns).From(jobTable).Where(where).
		OrderBy("scheduled_at DESC", "id DESC").
		Offset(offset).Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list jobs query: %w", err)
	}
	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

// Get returns one job
func (q *Queue) Get(ctx context.Context, id int64) (*models.Job, error) {
	row, err := q.client.JobGet(ctx, id)
	if err != nil {
		if errors.Is(err, river.ErrNotFound) {
			return nil, apperrors.ErrJobNotFound
		}
		return nil, fmt.Errorf("error getting job: %w", err)
	}
	return FromRow(row), nil
}

// Requeue makes a failed job available again. River grants one more attempt
// when the job had used all of them.
func (q *Queue) Requeue(ctx context.Context, id int64) (*models.Job, error) {
	current, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.JobFailed {
		return nil, fmt.Errorf("only failed jobs can be retried: %w", apperrors.ErrInvalidTransition)
	}

	row, err := q.client.JobRetry(ctx, id)
	if err != nil {
		if errors.Is(err, river.ErrNotFound) {
			return nil, apperrors.ErrJobNotFound
		}
		return nil, fmt.Errorf("error requeueing job: %w", err)
	}
	return FromRow(row), nil
}

// PurgeCompleted deletes completed jobs finalized before the cutoff
func (q *Queue) PurgeCompleted(ctx context.Context, before time.Time) (int64, error) {
	sql, args, err := psql.Delete(jobTable).
		Where(squirrel.Eq{"state": string(rivertype.JobStateCompleted)}).
		Where(squirrel.Lt{"finalized_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build purge jobs query: %w", err)
	}
	tag, err := q.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error purging jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
