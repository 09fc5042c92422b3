package persistence

import (
	"context"
	"errors"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCheckpointRepository implements connector.CheckpointRepository using GORM
type GormCheckpointRepository struct {
	db *gorm.DB
}

// NewGormCheckpointRepository creates a new GormCheckpointRepository
func NewGormCheckpointRepository(db *gorm.DB) *GormCheckpointRepository {
	return &GormCheckpointRepository{db: db}
}

// FindByID finds a checkpoint by its ID
func (r *GormCheckpointRepository) FindByID(ctx context.Context, id uuid.UUID) (*connector.Checkpoint, error) {
	var model models.CheckpointModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, connector.ErrCheckpointNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists the checkpoints of a backend, newest first
func (r *GormCheckpointRepository) FindAll(ctx context.Context, backendID uuid.UUID, filter connector.CheckpointFilter) ([]connector.Checkpoint, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CheckpointModel{}).Where("backend_id = ?", backendID)
	if filter.Reviewed != nil {
		query = query.Where("reviewed = ?", *filter.Reviewed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var checkpointModels []models.CheckpointModel
	if err := paginate(query, filter.Page, filter.PageSize).
		Order("created_at DESC").
		Find(&checkpointModels).Error; err != nil {
		return nil, 0, err
	}

	checkpoints := make([]connector.Checkpoint, len(checkpointModels))
	for i, model := range checkpointModels {
		checkpoints[i] = *model.ToDomain()
	}
	return checkpoints, total, nil
}

// Save creates or updates a checkpoint
func (r *GormCheckpointRepository) Save(ctx context.Context, checkpoint *connector.Checkpoint) error {
	var model models.CheckpointModel
	model.FromDomain(checkpoint)
	return r.db.WithContext(ctx).Save(&model).Error
}
