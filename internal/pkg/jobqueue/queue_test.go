package jobqueue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeintern/backend/internal/app/models"
)

func TestRetryDelay(t *testing.T) {
	base := 5 * time.Second
	max := 30 * time.Second

	assert.Equal(t, 5*time.Second, RetryDelay(1, base, max))
	assert.Equal(t, 10*time.Second, RetryDelay(2, base, max))
	assert.Equal(t, 20*time.Second, RetryDelay(3, base, max))
	assert.Equal(t, 30*time.Second, RetryDelay(4, base, max))
	assert.Equal(t, 30*time.Second, RetryDelay(40, base, max))
	assert.Equal(t, 5*time.Second, RetryDelay(0, base, max))
}

func TestBackoffPolicyDoublesPerAttempt(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	p := &BackoffPolicy{Base: time.Second, Max: 10 * time.Second, now: func() time.Time { return now }}

	assert.Equal(t, now.Add(time.Second), p.NextRetry(&rivertype.JobRow{Attempt: 1}))
	assert.Equal(t, now.Add(2*time.Second), p.NextRetry(&rivertype.JobRow{Attempt: 2}))
	assert.Equal(t, now.Add(4*time.Second), p.NextRetry(&rivertype.JobRow{Attempt: 3}))
	assert.Equal(t, now.Add(10*time.Second), p.NextRetry(&rivertype.JobRow{Attempt: 9}))
}

func TestPermanentIsRiverCancel(t *testing.T) {
	cause := errors.New("bad payload")
	err := Permanent(cause)

	assert.True(t, IsPermanent(err))
	assert.True(t, IsPermanent(fmt.Errorf("wrapped: %w", err)))
	assert.ErrorIs(t, err, cause)

	var cancelErr *river.JobCancelError
	assert.ErrorAs(t, err, &cancelErr)

	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(cause))
}

func TestIsFinalAttempt(t *testing.T) {
	failure := errors.New("smtp down")

	assert.False(t, IsFinalAttempt(&rivertype.JobRow{Attempt: 1, MaxAttempts: 3}, failure))
	assert.True(t, IsFinalAttempt(&rivertype.JobRow{Attempt: 3, MaxAttempts: 3}, failure))
	assert.True(t, IsFinalAttempt(&rivertype.JobRow{Attempt: 1, MaxAttempts: 3}, Permanent(failure)))
	assert.False(t, IsFinalAttempt(&rivertype.JobRow{Attempt: 3, MaxAttempts: 3}, nil))
}

func TestStatusMapping(t *testing.T) {
	cases := map[rivertype.JobState]models.JobStatus{
		rivertype.JobStateAvailable: models.JobPending,
		rivertype.JobStateScheduled: models.JobPending,
		rivertype.JobStateRetryable: models.JobPending,
		rivertype.JobStatePending:   models.JobPending,
		rivertype.JobStateRunning:   models.JobActive,
		rivertype.JobStateCompleted: models.JobCompleted,
		rivertype.JobStateDiscarded: models.JobFailed,
		rivertype.JobStateCancelled: models.JobFailed,
	}
	for state, status := range cases {
		assert.Equal(t, status, StatusOf(state), state)
		assert.Contains(t, StatesOf(status), string(state))
	}
	assert.Empty(t, StatesOf("UNKNOWN"))
}

func TestFromRowKeepsLastError(t *testing.T) {
	finalized := time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC)
	job := FromRow(&rivertype.JobRow{
		ID:          42,
		Queue:       QueueReports,
		Kind:        "report.generate",
		EncodedArgs: []byte(`{"reportId":"r-1"}`),
		State:       rivertype.JobStateDiscarded,
		Attempt:     3,
		MaxAttempts: 3,
		FinalizedAt: &finalized,
		Errors: []rivertype.AttemptError{
			{Attempt: 1, Error: "timeout"},
			{Attempt: 3, Error: "connection refused"},
		},
	})

	assert.Equal(t, int64(42), job.ID)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "discarded", job.State)
	require.NotNil(t, job.LastError)
	assert.Equal(t, "connection refused", *job.LastError)
	assert.JSONEq(t, `{"reportId":"r-1"}`, string(job.Payload))

	assert.Nil(t, FromRow(&rivertype.JobRow{State: rivertype.JobStateAvailable}).LastError)
}

func TestConfigMapsOntoRiver(t *testing.T) {
	cfg := Config{
		Workers:      4,
		PollInterval: time.Second,
		LeaseTTL:     time.Minute,
		JobTimeout:   5 * time.Minute,
		MaxAttempts:  5,
		BackoffBase:  2 * time.Second,
		BackoffMax:   time.Second,
	}.normalized()

	// a lease shorter than the job timeout would rescue running jobs
	assert.Equal(t, 5*time.Minute, cfg.LeaseTTL)
	assert.Equal(t, 2*time.Second, cfg.BackoffMax)
	assert.NotEmpty(t, cfg.ClientID)

	rc := cfg.riverConfig(river.NewWorkers())
	assert.Equal(t, 5, rc.MaxAttempts)
	assert.Equal(t, time.Second, rc.FetchPollInterval)
	assert.Equal(t, 5*time.Minute, rc.RescueStuckJobsAfter)
	assert.Equal(t, 4, rc.Queues[QueueEmail].MaxWorkers)
	assert.Equal(t, 4, rc.Queues[QueueReports].MaxWorkers)
	assert.IsType(t, &BackoffPolicy{}, rc.RetryPolicy)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.normalized()
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.GreaterOrEqual(t, cfg.LeaseTTL, cfg.JobTimeout)
	assert.Equal(t, 5*time.Second, cfg.BackoffBase)
}
