package connector

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of a queued job
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusStarted JobStatus = "started"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// IsValid checks if the status is known
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusStarted, JobStatusDone, JobStatusFailed:
		return true
	}
	return false
}

// JobMethod is the connector operation a job runs
type JobMethod string

const (
	JobImportRecord JobMethod = "import_record"
	JobImportBatch  JobMethod = "import_batch"
	JobExportStock  JobMethod = "export_stock"
)

// IsValid checks if the method is known
func (m JobMethod) IsValid() bool {
	switch m {
	case JobImportRecord, JobImportBatch, JobExportStock:
		return true
	}
	return false
}

// JobArgs are the arguments of a job. Filters are PrestaShop search filters
// for batch imports; SinceDate is expanded into a date_upd filter.
type JobArgs struct {
	ExternalID int64             `json:"external_id,omitempty"`
	Force      bool              `json:"force,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
	SinceDate  *time.Time        `json:"since_date,omitempty"`
	Quantity   string            `json:"quantity,omitempty"`
}

// Job is a delayed call of a connector operation
type Job struct {
	ID          uuid.UUID
	BackendID   uuid.UUID
	Model       string
	Method      JobMethod
	Args        JobArgs
	Priority    int
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	ETA         *time.Time
	Result      string
	Error       string
	StartedAt   *time.Time
	DoneAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewJob creates a pending job
func NewJob(backendID uuid.UUID, model string, method JobMethod, args JobArgs, maxAttempts int) (*Job, error) {
	if backendID == uuid.Nil {
		return nil, ErrInvalidBackendID
	}
	if !IsValidModel(model) {
		return nil, ErrInvalidModel
	}
	if !method.IsValid() {
		return nil, ErrInvalidJobMethod
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	now := time.Now()
	return &Job{
		ID:          uuid.New(),
		BackendID:   backendID,
		Model:       model,
		Method:      method,
		Args:        args,
		Priority:    10,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsReady reports whether a pending job may run at the given time
func (j *Job) IsReady(now time.Time) bool {
	return j.Status == JobStatusPending && (j.ETA == nil || !now.Before(*j.ETA))
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusStarted
	j.Attempts++
	j.StartedAt = &now
	j.Error = ""
	j.UpdatedAt = now
}

// Release gives back a started job that did not run
func (j *Job) Release() {
	if j.Status != JobStatusStarted {
		return
	}
	j.Status = JobStatusPending
	if j.Attempts > 0 {
		j.Attempts--
	}
	j.StartedAt = nil
	j.UpdatedAt = time.Now()
}

// Done marks the job as successful
func (j *Job) Done(result string) {
	now := time.Now()
	j.Status = JobStatusDone
	j.Result = result
	j.DoneAt = &now
	j.ETA = nil
	j.UpdatedAt = now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = err
	j.DoneAt = &now
	j.UpdatedAt = now
}

// CanRetry returns true if the job has attempts left
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// Postpone puts the job back to pending, to run after delay
func (j *Job) Postpone(delay time.Duration, reason string) {
	now := time.Now()
	eta := now.Add(delay)
	j.Status = JobStatusPending
	j.ETA = &eta
	j.Error = reason
	j.UpdatedAt = now
}

// Requeue resets a failed or done job so it runs again
func (j *Job) Requeue() {
	now := time.Now()
	j.Status = JobStatusPending
	j.Attempts = 0
	j.ETA = nil
	j.Error = ""
	j.Result = ""
	j.DoneAt = nil
	j.UpdatedAt = now
}

// RetryBackoff returns the delay before the next attempt: base doubled per
// attempt already made, capped at max.
func RetryBackoff(attempts int, base, max time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
