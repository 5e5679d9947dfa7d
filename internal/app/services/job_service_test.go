package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
)

type memoryJobs struct {
	stats      []models.QueueStat
	jobs       map[int64]*models.Job
	listStatus models.JobStatus
	listOffset uint64
	listLimit  int
	purgedTo   time.Time
}

func (m *memoryJobs) Stats(context.Context) ([]models.QueueStat, error) { return m.stats, nil }

func (m *memoryJobs) List(_ context.Context, _ string, status models.JobStatus, offset uint64, limit int) ([]models.Job, int64, error) {
	m.listStatus, m.listOffset, m.listLimit = status, offset, limit
	return nil, 0, nil
}

func (m *memoryJobs) Get(_ context.Context, id int64) (*models.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, apperrors.ErrJobNotFound
}

func (m *memoryJobs) Requeue(ctx context.Context, id int64) (*models.Job, error) {
	j, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Status != models.JobFailed {
		return nil, apperrors.ErrInvalidTransition
	}
	j.Status = models.JobPending
	return j, nil
}

func (m *memoryJobs) PurgeCompleted(_ context.Context, before time.Time) (int64, error) {
	m.purgedTo = before
	return 2, nil
}

func TestJobStatsGroupByQueue(t *testing.T) {
	store := &memoryJobs{stats: []models.QueueStat{
		{Queue: "email", Status: models.JobFailed, Count: 2},
		{Queue: "email", Status: models.JobCompleted, Count: 10},
		{Queue: "reports", Status: models.JobPending, Count: 1},
	}}
	svc := NewJobService(store, &recordingAuditor{}, testLogger)

	out, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Queues["email"]["FAILED"])
	assert.Equal(t, int64(10), out.Queues["email"]["COMPLETED"])
	assert.Equal(t, int64(1), out.Queues["reports"]["PENDING"])
}

func TestJobListDefaultsToFailed(t *testing.T) {
	store := &memoryJobs{}
	svc := NewJobService(store, &recordingAuditor{}, testLogger)

	_, _, err := svc.List(context.Background(), "", "", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, store.listStatus)
	assert.Equal(t, uint64(10), store.listOffset)
	assert.Equal(t, 10, store.listLimit)
}

func TestJobRetryAuditsRequeue(t *testing.T) {
	store := &memoryJobs{jobs: map[int64]*models.Job{
		7: {ID: 7, Queue: "reports", JobType: "report.generate", Status: models.JobFailed},
		8: {ID: 8, Queue: "email", JobType: "email.send", Status: models.JobCompleted},
	}}
	audit := &recordingAuditor{}
	svc := NewJobService(store, audit, testLogger)
	actor := stateActor(1)

	job, err := svc.Retry(context.Background(), actor, 7)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, job.Status)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "7", audit.entries[0].EntityID)
	assert.Equal(t, true, audit.entries[0].Details["retry"])

	_, err = svc.Retry(context.Background(), actor, 8)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = svc.Retry(context.Background(), actor, 99)
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
	assert.Len(t, audit.entries, 1)
}

func TestJobPurgeUsesAge(t *testing.T) {
	store := &memoryJobs{}
	svc := NewJobService(store, &recordingAuditor{}, testLogger)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	n, err := svc.Purge(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, now.Add(-24*time.Hour), store.purgedTo)
}
