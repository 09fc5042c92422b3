package connector

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

func combinationComponent() *Component {
	return &Component{
		Model:     connector.ModelCombination,
		Resource:  "combinations",
		NewRecord: func() any { return &models.ProductVariantModel{} },
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "reference", To: "default_code"},
				{From: "ean13", To: "barcode"},
			},
			Mappings: []MappingFunc{
				func(_ context.Context, _ *Env, rec prestashop.Record) (Values, error) {
					return Values{"default_on": rec.Bool("default_on"), "active": true}, nil
				},
				mapCombinationTemplate,
				mapCombinationValues,
			},
		},
		Hooks: combinationHooks{},
	}
}

func combinationTemplate(ctx context.Context, env *Env, rec prestashop.Record) (*models.ProductTemplateModel, error) {
	id, err := bindingOf(ctx, env, connector.ModelProductTemplate, rec.Int64("id_product"))
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, connector.NewMappingError("Combination %d has no product", rec.ID())
	}
	var tmpl models.ProductTemplateModel
	if err := env.DB.WithContext(ctx).First(&tmpl, "id = ?", *id).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func mapCombinationTemplate(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
	tmpl, err := combinationTemplate(ctx, env, rec)
	if err != nil {
		return nil, err
	}
	standard := rec.Decimal("wholesale_price")
	if standard.IsZero() {
		standard = tmpl.WholesalePrice
	}
	return Values{
		"template_id":    tmpl.ID,
		"company_id":     tmpl.CompanyID,
		"type":           tmpl.Type,
		"categ_id":       tmpl.CategID,
		"list_price":     tmpl.ListPrice,
		"standard_price": standard,
		"impact_price":   rec.Decimal("price"),
	}, nil
}

func optionValueIDs(env *Env, rec prestashop.Record) []int64 {
	var ids []int64
	for _, v := range prestashop.Associations(rec, env.Backend.Version, "product_option_values") {
		if id := v.Int64("id"); id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// mapCombinationValues links the variant to its attribute values and sets
// the combination price impact as price extra of each value
func mapCombinationValues(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
	tmpl, err := combinationTemplate(ctx, env, rec)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, extID := range optionValueIDs(env, rec) {
		valueID, err := bindingOf(ctx, env, connector.ModelOptionValue, extID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, *valueID)
		if err := upsertAttributePrice(ctx, env, tmpl.ID, *valueID, rec); err != nil {
			return nil, err
		}
	}
	return Values{"value_ids": M2M{
		Table:        "product_variant_values",
		OwnerColumn:  "variant_id",
		TargetColumn: "value_id",
		IDs:          ids,
	}}, nil
}

func upsertAttributePrice(ctx context.Context, env *Env, templateID, valueID uuid.UUID, rec prestashop.Record) error {
	price := models.AttributePriceModel{
		ID:         uuid.New(),
		TemplateID: templateID,
		ValueID:    valueID,
		PriceExtra: rec.Decimal("price"),
	}
	return env.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "template_id"}, {Name: "value_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"price_extra", "updated_at"}),
	}).Create(&price).Error
}

type combinationHooks struct {
	NoopHooks
}

// ImportDependencies imports the options and option values of the combination
func (combinationHooks) ImportDependencies(ctx context.Context, imp *Importer) error {
	env := imp.Env
	for _, id := range optionValueIDs(env, imp.Record) {
		value, err := env.API.Get(ctx, "product_option_values", id, nil)
		if err != nil {
			return err
		}
		if err := env.ImportDependency(ctx, value.Int64("id_attribute_group"), connector.ModelOption, false); err != nil {
			return err
		}
		if err := env.ImportDependency(ctx, id, connector.ModelOptionValue, false); err != nil {
			return err
		}
	}
	return nil
}

func optionComponent() *Component {
	return &Component{
		Model:             connector.ModelOption,
		Resource:          "product_options",
		NewRecord:         func() any { return &models.ProductAttributeModel{} },
		Translatable:      []string{"name"},
		TranslatedColumns: []string{"name"},
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "name", To: "name"},
			},
			OnlyCreate: []MappingFunc{
				func(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
					id, ok, err := findByName(ctx, env, &models.ProductAttributeModel{}, rec.String("name"))
					if err != nil || !ok {
						return nil, err
					}
					return Values{MatchKey: Match{ID: id}}, nil
				},
			},
		},
		Hooks: optionHooks{},
	}
}

type optionHooks struct {
	NoopHooks
}

// AfterImport imports the values of the option
func (optionHooks) AfterImport(ctx context.Context, imp *Importer, _ uuid.UUID) error {
	for _, id := range optionValueIDs(imp.Env, imp.Raw) {
		if err := imp.Env.ImportDependency(ctx, id, connector.ModelOptionValue, false); err != nil {
			return err
		}
	}
	return nil
}

func optionValueComponent() *Component {
	return &Component{
		Model:             connector.ModelOptionValue,
		Resource:          "product_option_values",
		NewRecord:         func() any { return &models.AttributeValueModel{} },
		Translatable:      []string{"name"},
		TranslatedColumns: []string{"name"},
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "name", To: "name"},
				{From: "id_attribute_group", To: "attribute_id", Convert: ExternalToM2O(connector.ModelOption)},
			},
			OnlyCreate: []MappingFunc{
				func(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
					attribute, err := bindingOf(ctx, env, connector.ModelOption, rec.Int64("id_attribute_group"))
					if err != nil || attribute == nil {
						return nil, err
					}
					id, ok, err := findByName(ctx, env, &models.AttributeValueModel{}, rec.String("name"), "attribute_id = ?", *attribute)
					if err != nil || !ok {
						return nil, err
					}
					return Values{MatchKey: Match{ID: id}}, nil
				},
			},
		},
	}
}
