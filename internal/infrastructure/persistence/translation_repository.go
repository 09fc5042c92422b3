package persistence

import (
	"context"
	"time"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTranslationRepository implements connector.TranslationRepository using GORM
type GormTranslationRepository struct {
	db *gorm.DB
}

// NewGormTranslationRepository creates a new GormTranslationRepository
func NewGormTranslationRepository(db *gorm.DB) *GormTranslationRepository {
	return &GormTranslationRepository{db: db}
}

// Upsert writes translated values, replacing the previous value of the same
// (table, record, field, lang)
func (r *GormTranslationRepository) Upsert(ctx context.Context, translations []connector.Translation) error {
	if len(translations) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]models.TranslationModel, len(translations))
	for i, t := range translations {
		rows[i] = models.TranslationModel{
			ID:        uuid.New(),
			ResTable:  t.Table,
			ResID:     t.RecordID,
			Field:     t.Field,
			Lang:      t.Lang,
			Value:     t.Value,
			UpdatedAt: now,
		}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "res_table"}, {Name: "res_id"}, {Name: "field"}, {Name: "lang"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}

// FindByRecord returns every translated value of one record
func (r *GormTranslationRepository) FindByRecord(ctx context.Context, table string, recordID uuid.UUID) ([]connector.Translation, error) {
	var rows []models.TranslationModel
	if err := r.db.WithContext(ctx).
		Where("res_table = ? AND res_id = ?", table, recordID).
		Order("field ASC, lang ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	translations := make([]connector.Translation, len(rows))
	for i, row := range rows {
		translations[i] = connector.Translation{
			Table:    row.ResTable,
			RecordID: row.ResID,
			Field:    row.Field,
			Lang:     row.Lang,
			Value:    row.Value,
		}
	}
	return translations, nil
}
