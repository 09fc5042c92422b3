package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormJobRepository implements connector.JobRepository using GORM
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new GormJobRepository
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// FindByID finds a job by its ID
func (r *GormJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*connector.Job, error) {
	var model models.JobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, connector.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists jobs, newest first unless the filter sorts otherwise
func (r *GormJobRepository) FindAll(ctx context.Context, filter connector.JobFilter) ([]connector.Job, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.JobModel{})
	if filter.BackendID != nil {
		query = query.Where("backend_id = ?", *filter.BackendID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Model != "" {
		query = query.Where("model = ?", filter.Model)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobModels []models.JobModel
	if err := paginate(query, filter.Page, filter.PageSize).
		Order(orderClause(filter.SortBy, filter.SortOrder, JobSortFields, "created_at")).
		Find(&jobModels).Error; err != nil {
		return nil, 0, err
	}

	jobs := make([]connector.Job, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = *model.ToDomain()
	}
	return jobs, total, nil
}

// ClaimReady marks up to limit ready jobs as started and returns them.
// Rows are locked with SKIP LOCKED on PostgreSQL so several processes can
// poll the same table.
func (r *GormJobRepository) ClaimReady(ctx context.Context, now time.Time, limit int) ([]connector.Job, error) {
	var claimed []connector.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var jobModels []models.JobModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND (eta IS NULL OR eta <= ?)", string(connector.JobStatusPending), now).
			Order("priority ASC, created_at ASC").
			Limit(limit).
			Find(&jobModels).Error; err != nil {
			return err
		}

		claimed = make([]connector.Job, 0, len(jobModels))
		for _, model := range jobModels {
			job := model.ToDomain()
			job.Start()
			if err := tx.Model(&models.JobModel{}).Where("id = ?", job.ID).Updates(map[string]any{
				"status":     string(job.Status),
				"attempts":   job.Attempts,
				"started_at": job.StartedAt,
				"error":      "",
				"updated_at": job.UpdatedAt,
			}).Error; err != nil {
				return err
			}
			claimed = append(claimed, *job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ResetStarted puts jobs abandoned by a killed process back to pending.
// Only jobs started before startedBefore are reset, so the jobs other
// processes are running stay untouched.
func (r *GormJobRepository) ResetStarted(ctx context.Context, startedBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.JobModel{}).
		Where("status = ? AND (started_at IS NULL OR started_at < ?)", string(connector.JobStatusStarted), startedBefore).
		Updates(map[string]any{
			"status":     string(connector.JobStatusPending),
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// Save creates or updates a job
func (r *GormJobRepository) Save(ctx context.Context, job *connector.Job) error {
	var model models.JobModel
	model.FromDomain(job)
	return r.db.WithContext(ctx).Save(&model).Error
}
