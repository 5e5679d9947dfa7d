package services

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// JobStore reads and repairs the job queue
type JobStore interface {
	Stats(ctx context.Context) ([]models.QueueStat, error)
	List(ctx context.Context, queue string, status models.JobStatus, offset uint64, limit int) ([]models.Job, int64, error)
	Get(ctx context.Context, id int64) (*models.Job, error)
	Requeue(ctx context.Context, id int64) (*models.Job, error)
	PurgeCompleted(ctx context.Context, before time.Time) (int64, error)
}

// JobService exposes the job queue to administrators
type JobService struct {
	jobs   JobStore
	audit  Auditor
	logger zerolog.Logger
	now    func() time.Time
}

// NewJobService creates a new JobService
func NewJobService(jobs JobStore, audit Auditor, logger zerolog.Logger) *JobService {
	return &JobService{jobs: jobs, audit: audit, logger: logger, now: time.Now}
}

// Stats returns job counts keyed by queue then status
func (s *JobService) Stats(ctx context.Context) (*dto.JobStatsResponse, error) {
	stats, err := s.jobs.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := &dto.JobStatsResponse{Queues: map[string]map[string]int64{}}
	for _, st := range stats {
		if out.Queues[st.Queue] == nil {
			out.Queues[st.Queue] = map[string]int64{}
		}
		out.Queues[st.Queue][string(st.Status)] = st.Count
	}
	return out, nil
}

// List returns a page of jobs, by default the failed ones
func (s *JobService) List(ctx context.Context, queue string, status models.JobStatus, page, size int) ([]models.Job, int64, error) {
	if status == "" {
		status = models.JobFailed
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	return s.jobs.List(ctx, queue, status, offset, limit)
}

// Get returns one job
func (s *JobService) Get(ctx context.Context, id int64) (*models.Job, error) {
	return s.jobs.Get(ctx, id)
}

// Retry puts a failed job back on its queue
func (s *JobService) Retry(ctx context.Context, actor appauth.Actor, id int64) (*models.Job, error) {
	job, err := s.jobs.Requeue(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, models.AuditActionUpdate, "job", strconv.FormatInt(job.ID, 10), map[string]any{
		"queue":   job.Queue,
		"jobType": job.JobType,
		"retry":   true,
	})
	s.logger.Info().Int64("jobId", job.ID).Str("jobType", job.JobType).Msg("Job requeued")
	return job, nil
}

// Purge deletes completed jobs older than age
func (s *JobService) Purge(ctx context.Context, age time.Duration) (int64, error) {
	return s.jobs.PurgeCompleted(ctx, s.now().Add(-age))
}
