package persistence

import (
	"context"
	"fmt"

	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceRepository hands out record numbers such as "CART/00042"
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// Next returns the next number of the sequence, creating the sequence with
// the given prefix on first use
func (r *GormSequenceRepository) Next(ctx context.Context, code, prefix string) (string, error) {
	var name string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := models.SequenceModel{Code: code, Prefix: prefix, Padding: 5, NextNumber: 1}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&seq, "code = ?", code).Error; err != nil {
			return err
		}
		name = fmt.Sprintf("%s%0*d", seq.Prefix, seq.Padding, seq.NextNumber)
		return tx.Model(&models.SequenceModel{}).
			Where("code = ?", code).
			Update("next_number", seq.NextNumber+1).Error
	})
	return name, err
}
