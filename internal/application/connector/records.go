package connector

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/prestashop-connector/internal/domain/connector"
)

// splitValues separates column values from Match and M2M entries
func splitValues(values Values) (columns map[string]any, match *Match, m2m []M2M) {
	columns = make(map[string]any, len(values))
	for key, v := range values {
		switch t := v.(type) {
		case Match:
			match = &t
		case *Match:
			match = t
		case M2M:
			m2m = append(m2m, t)
		default:
			if key != MatchKey {
				columns[key] = v
			}
		}
	}
	sort.Slice(m2m, func(i, j int) bool { return m2m[i].Table < m2m[j].Table })
	return columns, match, m2m
}

// createRecord inserts the ERP record of a component and returns its id.
// When the values carry a Match, the matched record is updated instead.
func createRecord(ctx context.Context, env *Env, comp *Component, values Values) (uuid.UUID, error) {
	columns, match, m2m := splitValues(values)
	if match != nil {
		return match.ID, writeRecord(ctx, env, comp, match.ID, columns, m2m)
	}

	id := uuid.New()
	record := comp.NewRecord()
	columns["id"] = id
	if err := decodeColumns(env.DB, columns, record); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", comp.Model, err)
	}
	if err := env.DB.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	if err := writeM2M(ctx, env.DB, id, m2m); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// updateRecord writes values on an existing ERP record
func updateRecord(ctx context.Context, env *Env, comp *Component, id uuid.UUID, values Values) error {
	columns, _, m2m := splitValues(values)
	return writeRecord(ctx, env, comp, id, columns, m2m)
}

func writeRecord(ctx context.Context, env *Env, comp *Component, id uuid.UUID, columns map[string]any, m2m []M2M) error {
	delete(columns, "id")
	if len(columns) > 0 {
		result := env.DB.WithContext(ctx).Model(comp.NewRecord()).Where("id = ?", id).Updates(columns)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return connector.NewFailedJobError(
				fmt.Sprintf("%s record %s bound to PrestaShop no longer exists", comp.Model, id), nil)
		}
	}
	return writeM2M(ctx, env.DB, id, m2m)
}

// writeM2M replaces the join rows owned by id
func writeM2M(ctx context.Context, db *gorm.DB, id uuid.UUID, relations []M2M) error {
	for _, rel := range relations {
		if err := db.WithContext(ctx).
			Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", rel.Table, rel.OwnerColumn), id).Error; err != nil {
			return err
		}
		seen := make(map[uuid.UUID]bool, len(rel.IDs))
		rows := make([]map[string]any, 0, len(rel.IDs))
		for _, target := range rel.IDs {
			if target == uuid.Nil || seen[target] {
				continue
			}
			seen[target] = true
			rows = append(rows, map[string]any{rel.OwnerColumn: id, rel.TargetColumn: target})
		}
		if len(rows) == 0 {
			continue
		}
		if err := db.WithContext(ctx).Table(rel.Table).Create(rows).Error; err != nil {
			return err
		}
	}
	return nil
}

// decodeColumns fills a GORM model from column values. Keys are matched to
// struct fields through the GORM schema, unknown keys are an error. Nil
// pointers leave the field unset.
func decodeColumns(db *gorm.DB, columns map[string]any, record any) error {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(record); err != nil {
		return err
	}
	fieldColumns := make(map[string]string, len(stmt.Schema.Fields))
	for _, f := range stmt.Schema.Fields {
		fieldColumns[f.Name] = f.DBName
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      record,
		ErrorUnused: true,
		MatchName: func(mapKey, fieldName string) bool {
			return fieldColumns[fieldName] == mapKey
		},
	})
	if err != nil {
		return err
	}
	return decoder.Decode(columns)
}
