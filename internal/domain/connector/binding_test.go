package connector

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBinding(t *testing.T) {
	backendID := uuid.New()
	internalID := uuid.New()

	t.Run("creates binding", func(t *testing.T) {
		b, err := NewBinding(backendID, ModelPartner, 42, internalID)
		require.NoError(t, err)
		assert.Equal(t, backendID, b.BackendID)
		assert.Equal(t, ModelPartner, b.Model)
		assert.Equal(t, int64(42), b.ExternalID)
		assert.Equal(t, internalID, b.InternalID)
		assert.False(t, b.SyncDate.IsZero())
	})

	t.Run("rejects invalid inputs", func(t *testing.T) {
		_, err := NewBinding(uuid.Nil, ModelPartner, 1, internalID)
		assert.ErrorIs(t, err, ErrInvalidBackendID)
		_, err = NewBinding(backendID, "res.partner", 1, internalID)
		assert.ErrorIs(t, err, ErrInvalidModel)
		_, err = NewBinding(backendID, ModelPartner, 0, internalID)
		assert.ErrorIs(t, err, ErrInvalidExternalID)
		_, err = NewBinding(backendID, ModelPartner, 1, uuid.Nil)
		assert.ErrorIs(t, err, ErrInvalidInternalID)
	})
}

func TestIsValidModel(t *testing.T) {
	for _, m := range AllModels() {
		assert.True(t, IsValidModel(m), m)
	}
	assert.False(t, IsValidModel("prestashop.unknown"))
}

func TestNewCheckpoint(t *testing.T) {
	backendID := uuid.New()
	recordID := uuid.New()

	cp, err := NewCheckpoint(backendID, ModelTax, recordID, "  Cannot find tax 20.000  ")
	require.NoError(t, err)
	assert.Equal(t, "Cannot find tax 20.000", cp.Message)
	require.NotNil(t, cp.RecordID)
	assert.Equal(t, recordID, *cp.RecordID)
	assert.False(t, cp.Reviewed)

	cp.Review()
	assert.True(t, cp.Reviewed)
	require.NotNil(t, cp.ReviewedAt)
	reviewedAt := *cp.ReviewedAt
	cp.Review()
	assert.Equal(t, reviewedAt, *cp.ReviewedAt)

	_, err = NewCheckpoint(backendID, ModelTax, recordID, " ")
	assert.ErrorIs(t, err, ErrEmptyCheckpoint)
	_, err = NewCheckpoint(backendID, ModelTax, uuid.Nil, "msg")
	assert.ErrorIs(t, err, ErrInvalidInternalID)
	_, err = NewCheckpointMessage(uuid.Nil, "msg")
	assert.ErrorIs(t, err, ErrInvalidBackendID)

	msg, err := NewCheckpointMessage(backendID, "Missing default language")
	require.NoError(t, err)
	assert.Empty(t, msg.Model)
	assert.Nil(t, msg.RecordID)
}

func TestJob_Lifecycle(t *testing.T) {
	job, err := NewJob(uuid.New(), ModelPartner, JobImportRecord, JobArgs{ExternalID: 7}, 2)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.True(t, job.IsReady(time.Now()))

	job.Start()
	assert.Equal(t, JobStatusStarted, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.True(t, job.CanRetry())

	job.Postpone(time.Minute, "lock held")
	assert.Equal(t, JobStatusPending, job.Status)
	assert.False(t, job.IsReady(time.Now()))
	assert.True(t, job.IsReady(time.Now().Add(2*time.Minute)))

	job.Start()
	assert.False(t, job.CanRetry())
	job.Fail("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.Error)

	job.Requeue()
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Empty(t, job.Error)

	job.Start()
	job.Release()
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempts, "a released job gives its attempt back")
	assert.Nil(t, job.StartedAt)

	job.Start()
	job.Done("imported")
	assert.Equal(t, JobStatusDone, job.Status)
	assert.NotNil(t, job.DoneAt)

	job.Release()
	assert.Equal(t, JobStatusDone, job.Status, "only started jobs are released")
}

func TestNewJob_Validation(t *testing.T) {
	_, err := NewJob(uuid.Nil, ModelPartner, JobImportRecord, JobArgs{}, 1)
	assert.ErrorIs(t, err, ErrInvalidBackendID)
	_, err = NewJob(uuid.New(), "x", JobImportRecord, JobArgs{}, 1)
	assert.ErrorIs(t, err, ErrInvalidModel)
	_, err = NewJob(uuid.New(), ModelPartner, "run", JobArgs{}, 1)
	assert.ErrorIs(t, err, ErrInvalidJobMethod)

	job, err := NewJob(uuid.New(), ModelPartner, JobImportBatch, JobArgs{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, job.MaxAttempts)
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 10*time.Second, RetryBackoff(1, 10*time.Second, time.Minute))
	assert.Equal(t, 20*time.Second, RetryBackoff(2, 10*time.Second, time.Minute))
	assert.Equal(t, 40*time.Second, RetryBackoff(3, 10*time.Second, time.Minute))
	assert.Equal(t, time.Minute, RetryBackoff(4, 10*time.Second, time.Minute))
	assert.Equal(t, time.Minute, RetryBackoff(20, 10*time.Second, time.Minute))
}
