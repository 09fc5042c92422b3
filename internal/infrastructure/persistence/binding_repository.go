package persistence

import (
	"context"
	"errors"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBindingRepository implements connector.BindingRepository using GORM.
// Built on a transaction, it sees the bindings written by the running import.
type GormBindingRepository struct {
	db *gorm.DB
}

// NewGormBindingRepository creates a new GormBindingRepository
func NewGormBindingRepository(db *gorm.DB) *GormBindingRepository {
	return &GormBindingRepository{db: db}
}

// FindByExternalID finds the binding of a PrestaShop record
func (r *GormBindingRepository) FindByExternalID(ctx context.Context, backendID uuid.UUID, model string, externalID int64) (*connector.Binding, error) {
	var binding models.BindingModel
	if err := r.db.WithContext(ctx).
		Where("backend_id = ? AND model = ? AND external_id = ?", backendID, model, externalID).
		First(&binding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, connector.ErrBindingNotFound
		}
		return nil, err
	}
	return binding.ToDomain(), nil
}

// FindByInternalID finds the oldest binding of an ERP record
func (r *GormBindingRepository) FindByInternalID(ctx context.Context, backendID uuid.UUID, model string, internalID uuid.UUID) (*connector.Binding, error) {
	var binding models.BindingModel
	if err := r.db.WithContext(ctx).
		Where("backend_id = ? AND model = ? AND internal_id = ?", backendID, model, internalID).
		Order("created_at ASC, external_id ASC").
		Take(&binding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, connector.ErrBindingNotFound
		}
		return nil, err
	}
	return binding.ToDomain(), nil
}

// FindAll lists the bindings of a backend, optionally for one model
func (r *GormBindingRepository) FindAll(ctx context.Context, backendID uuid.UUID, filter connector.BindingFilter) ([]connector.Binding, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BindingModel{}).Where("backend_id = ?", backendID)
	if filter.Model != "" {
		query = query.Where("model = ?", filter.Model)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "model ASC, external_id ASC"
	if filter.SortBy != "" {
		order = orderClause(filter.SortBy, filter.SortOrder, BindingSortFields, "external_id")
	}
	var bindingModels []models.BindingModel
	if err := paginate(query, filter.Page, filter.PageSize).
		Order(order).
		Find(&bindingModels).Error; err != nil {
		return nil, 0, err
	}

	bindings := make([]connector.Binding, len(bindingModels))
	for i, model := range bindingModels {
		bindings[i] = *model.ToDomain()
	}
	return bindings, total, nil
}

// Save creates or updates a binding
func (r *GormBindingRepository) Save(ctx context.Context, binding *connector.Binding) error {
	var model models.BindingModel
	model.FromDomain(binding)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Delete removes the binding of a PrestaShop record
func (r *GormBindingRepository) Delete(ctx context.Context, backendID uuid.UUID, model string, externalID int64) error {
	result := r.db.WithContext(ctx).
		Where("backend_id = ? AND model = ? AND external_id = ?", backendID, model, externalID).
		Delete(&models.BindingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return connector.ErrBindingNotFound
	}
	return nil
}

// paginate applies a 1-indexed page to the query. A zero page size means no limit.
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}
