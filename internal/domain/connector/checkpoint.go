package connector

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Checkpoint flags a record, or the backend itself, for an administrator.
// Business failures that need a human (unmatched tax, unmatched country,
// invalid VAT number) are recorded as checkpoints instead of failing the job.
type Checkpoint struct {
	ID        uuid.UUID
	BackendID uuid.UUID
	// Model and RecordID are empty for backend-level messages
	Model      string
	RecordID   *uuid.UUID
	Message    string
	Reviewed   bool
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

// NewCheckpoint creates a checkpoint on a record
func NewCheckpoint(backendID uuid.UUID, model string, recordID uuid.UUID, message string) (*Checkpoint, error) {
	cp, err := NewCheckpointMessage(backendID, message)
	if err != nil {
		return nil, err
	}
	if !IsValidModel(model) {
		return nil, ErrInvalidModel
	}
	if recordID == uuid.Nil {
		return nil, ErrInvalidInternalID
	}
	cp.Model = model
	cp.RecordID = &recordID
	return cp, nil
}

// NewCheckpointMessage creates a backend-level checkpoint
func NewCheckpointMessage(backendID uuid.UUID, message string) (*Checkpoint, error) {
	if backendID == uuid.Nil {
		return nil, ErrInvalidBackendID
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyCheckpoint
	}
	return &Checkpoint{
		ID:        uuid.New(),
		BackendID: backendID,
		Message:   message,
		CreatedAt: time.Now(),
	}, nil
}

// Review marks the checkpoint as handled
func (c *Checkpoint) Review() {
	if c.Reviewed {
		return
	}
	now := time.Now()
	c.Reviewed = true
	c.ReviewedAt = &now
}
