package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"

	"github.com/placeintern/backend/internal/pkg/logger"
)

// Queue names
const (
	QueueEmail   = "email"
	QueueReports = "reports"
)

// Config controls worker behaviour
type Config struct {
	ClientID     string
	Workers      int
	PollInterval time.Duration
	LeaseTTL     time.Duration
	JobTimeout   time.Duration
	MaxAttempts  int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	StopTimeout  time.Duration
}

func (c Config) normalized() Config {
	if strings.TrimSpace(c.ClientID) == "" {
		host, _ := os.Hostname()
		c.ClientID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 2 * time.Minute
	}
	if c.LeaseTTL < c.JobTimeout {
		c.LeaseTTL = c.JobTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 5 * time.Second
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = c.BackoffBase
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 30 * time.Second
	}
	return c
}

// riverConfig maps Config onto the river client options
func (c Config) riverConfig(workers *river.Workers) *river.Config {
	return &river.Config{
		ID:                   c.ClientID,
		Logger:               logger.Slog(),
		FetchPollInterval:    c.PollInterval,
		JobTimeout:           c.JobTimeout,
		RescueStuckJobsAfter: c.LeaseTTL,
		MaxAttempts:          c.MaxAttempts,
		RetryPolicy:          &BackoffPolicy{Base: c.BackoffBase, Max: c.BackoffMax},
		Queues: map[string]river.QueueConfig{
			QueueEmail:   {MaxWorkers: c.Workers},
			QueueReports: {MaxWorkers: c.Workers},
		},
		Workers: workers,
	}
}

// Queue enqueues jobs and runs registered workers on top of a river client
type Queue struct {
	pool    *pgxpool.Pool
	client  *river.Client[pgx.Tx]
	workers *river.Workers
	cfg     Config
}

// New creates a queue backed by the river tables in pool
func New(pool *pgxpool.Pool, cfg Config) (*Queue, error) {
	cfg = cfg.normalized()
	workers := river.NewWorkers()
	client, err := river.NewClient(riverpgxv5.New(pool), cfg.riverConfig(workers))
	if err != nil {
		return nil, fmt.Errorf("failed to create job queue client: %w", err)
	}
	return &Queue{pool: pool, client: client, workers: workers, cfg: cfg}, nil
}

// AddWorker registers the worker for its job kind. Workers must be added before Run.
func AddWorker[T river.JobArgs](q *Queue, w river.Worker[T]) {
	river.AddWorker(q.workers, w)
}

// Enqueue stores a job for later processing and returns its ID. Queue and
// attempt limits come from the args' InsertOpts.
func (q *Queue) Enqueue(ctx context.Context, args river.JobArgs) (int64, error) {
	res, err := q.client.Insert(ctx, args, nil)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", args.Kind(), err)
	}
	logger.Debug().Int64("jobId", res.Job.ID).Str("queue", res.Job.Queue).Str("jobType", args.Kind()).Msg("Job enqueued")
	return res.Job.ID, nil
}

// Run works jobs until ctx is cancelled, then waits for in-flight jobs up to StopTimeout
func (q *Queue) Run(ctx context.Context) error {
	if err := q.client.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	logger.Info().
		Str("clientId", q.cfg.ClientID).
		Int("workersPerQueue", q.cfg.Workers).
		Msg("Job queue workers starting")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), q.cfg.StopTimeout)
	defer cancel()
	if err := q.client.Stop(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("Job queue did not drain in time, cancelling running jobs")
		cancelCtx, cancelStop := context.WithTimeout(context.Background(), q.cfg.StopTimeout)
		defer cancelStop()
		if err := q.client.StopAndCancel(cancelCtx); err != nil {
			return fmt.Errorf("failed to stop job queue: %w", err)
		}
	}

	logger.Info().Str("clientId", q.cfg.ClientID).Msg("Job queue workers stopped")
	return nil
}

// Migrate creates or upgrades the river tables
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create job queue migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to migrate job queue tables: %w", err)
	}
	return len(res.Versions), nil
}

// BackoffPolicy schedules retries at Base * 2^(attempt-1), capped at Max
type BackoffPolicy struct {
	Base time.Duration
	Max  time.Duration
	now  func() time.Time
}

// NextRetry implements river.ClientRetryPolicy
func (p *BackoffPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	return now().UTC().Add(RetryDelay(job.Attempt, p.Base, p.Max))
}

// RetryDelay is the wait before the next run after the given attempt failed:
// base * 2^(attempt-1), capped at max
func RetryDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= max/2 {
			return max
		}
		delay *= 2
	}
	if delay > max {
		return max
	}
	return delay
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return river.JobCancel(err)
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var cancelErr *river.JobCancelError
	return errors.As(err, &cancelErr)
}

// IsFinalAttempt reports whether a job that failed with err will not run again
func IsFinalAttempt(job *rivertype.JobRow, err error) bool {
	if err == nil {
		return false
	}
	return IsPermanent(err) || job.Attempt >= job.MaxAttempts
}
