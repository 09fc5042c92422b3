package persistence

import (
	"context"
	"errors"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBackendRepository implements connector.BackendRepository using GORM
type GormBackendRepository struct {
	db *gorm.DB
}

// NewGormBackendRepository creates a new GormBackendRepository
func NewGormBackendRepository(db *gorm.DB) *GormBackendRepository {
	return &GormBackendRepository{db: db}
}

// FindByID finds a backend with its language map
func (r *GormBackendRepository) FindByID(ctx context.Context, id uuid.UUID) (*connector.Backend, error) {
	var model models.BackendModel
	if err := r.db.WithContext(ctx).
		Preload("Languages", func(db *gorm.DB) *gorm.DB { return db.Order("external_id ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, connector.ErrBackendNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every backend ordered by name
func (r *GormBackendRepository) FindAll(ctx context.Context) ([]connector.Backend, error) {
	return r.find(ctx, r.db.WithContext(ctx))
}

// FindActive returns the active backends, used by scheduled actions
func (r *GormBackendRepository) FindActive(ctx context.Context) ([]connector.Backend, error) {
	return r.find(ctx, r.db.WithContext(ctx).Where("active = ?", true))
}

func (r *GormBackendRepository) find(_ context.Context, query *gorm.DB) ([]connector.Backend, error) {
	var backendModels []models.BackendModel
	if err := query.
		Preload("Languages", func(db *gorm.DB) *gorm.DB { return db.Order("external_id ASC") }).
		Order("name ASC").
		Find(&backendModels).Error; err != nil {
		return nil, err
	}

	backends := make([]connector.Backend, len(backendModels))
	for i, model := range backendModels {
		backends[i] = *model.ToDomain()
	}
	return backends, nil
}

// Save creates or updates a backend and replaces its language map
func (r *GormBackendRepository) Save(ctx context.Context, backend *connector.Backend) error {
	var model models.BackendModel
	model.FromDomain(backend)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Languages").Save(&model).Error; err != nil {
			return err
		}
		if err := tx.Where("backend_id = ?", backend.ID).Delete(&models.BackendLanguageModel{}).Error; err != nil {
			return err
		}
		if len(model.Languages) == 0 {
			return nil
		}
		return tx.Create(&model.Languages).Error
	})
}

// Delete removes a backend and its language map.
// Bindings, checkpoints and jobs of the backend are removed as well.
func (r *GormBackendRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.BackendModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return connector.ErrBackendNotFound
		}
		for _, m := range []any{
			&models.BackendLanguageModel{}, &models.BindingModel{},
			&models.CheckpointModel{}, &models.JobModel{},
		} {
			if err := tx.Where("backend_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
