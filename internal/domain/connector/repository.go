package connector

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BackendRepository persists backends and their language maps
type BackendRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Backend, error)
	FindAll(ctx context.Context) ([]Backend, error)
	FindActive(ctx context.Context) ([]Backend, error)
	Save(ctx context.Context, backend *Backend) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BindingFilter defines filter criteria for listing bindings
type BindingFilter struct {
	Model    string
	Page     int
	PageSize int
	// SortBy defaults to model then external id
	SortBy    string
	SortOrder string
}

// BindingRepository persists bindings
type BindingRepository interface {
	FindByExternalID(ctx context.Context, backendID uuid.UUID, model string, externalID int64) (*Binding, error)
	FindByInternalID(ctx context.Context, backendID uuid.UUID, model string, internalID uuid.UUID) (*Binding, error)
	FindAll(ctx context.Context, backendID uuid.UUID, filter BindingFilter) ([]Binding, int64, error)
	Save(ctx context.Context, binding *Binding) error
	Delete(ctx context.Context, backendID uuid.UUID, model string, externalID int64) error
}

// CheckpointFilter defines filter criteria for listing checkpoints
type CheckpointFilter struct {
	// Reviewed filters by review status (optional)
	Reviewed *bool
	Page     int
	PageSize int
}

// CheckpointRepository persists checkpoints
type CheckpointRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Checkpoint, error)
	FindAll(ctx context.Context, backendID uuid.UUID, filter CheckpointFilter) ([]Checkpoint, int64, error)
	Save(ctx context.Context, checkpoint *Checkpoint) error
}

// JobFilter defines filter criteria for listing jobs
type JobFilter struct {
	BackendID *uuid.UUID
	Status    *JobStatus
	Model     string
	Page      int
	PageSize  int
	// SortBy defaults to created_at, newest first
	SortBy    string
	SortOrder string
}

// JobRepository persists queued jobs
type JobRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	FindAll(ctx context.Context, filter JobFilter) ([]Job, int64, error)
	// ClaimReady marks up to limit ready pending jobs as started and returns them
	ClaimReady(ctx context.Context, now time.Time, limit int) ([]Job, error)
	// ResetStarted puts the jobs started before startedBefore and still
	// running back to pending
	ResetStarted(ctx context.Context, startedBefore time.Time) (int64, error)
	Save(ctx context.Context, job *Job) error
}

// Translation is the value of a translatable column in a non-default language
type Translation struct {
	Table    string
	RecordID uuid.UUID
	Field    string
	Lang     string
	Value    string
}

// TranslationRepository persists translated column values
type TranslationRepository interface {
	Upsert(ctx context.Context, translations []Translation) error
	FindByRecord(ctx context.Context, table string, recordID uuid.UUID) ([]Translation, error)
}
