package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

func languageComponent() *Component {
	return &Component{
		Model:     connector.ModelLanguage,
		Resource:  "languages",
		NewRecord: func() any { return &models.LanguageModel{} },
		Mapper: &Mapper{
			Mappings: []MappingFunc{
				func(_ context.Context, _ *Env, rec prestashop.Record) (Values, error) {
					return Values{"active": rec.String("active") == "1"}, nil
				},
			},
			OnlyCreate: []MappingFunc{mapLanguageMatch},
		},
		Hooks: languageHooks{},
		Batch: BatchOptions{Mode: BatchDirect},
	}
}

// mapLanguageMatch links the PrestaShop language to the ERP language of the
// same ISO code, or describes a new one
func mapLanguageMatch(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
	var ids []uuid.UUID
	if err := env.DB.WithContext(ctx).Model(&models.LanguageModel{}).
		Where("LOWER(iso_code) = ?", strings.ToLower(rec.String("iso_code"))).
		Order("created_at ASC").
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		return Values{MatchKey: Match{ID: ids[0]}}, nil
	}
	return Values{
		"name":     rec.String("name"),
		"code":     LocaleCode(rec.String("language_code"), rec.String("iso_code")),
		"iso_code": rec.String("iso_code"),
	}, nil
}

// LocaleCode converts a PrestaShop language code ("en-us") to an ERP locale
// code ("en_US"). The ISO code is used when the language code is not valid.
func LocaleCode(languageCode, isoCode string) string {
	tag, err := language.Parse(languageCode)
	if err != nil {
		tag, err = language.Parse(isoCode)
		if err != nil {
			return strings.ToLower(isoCode)
		}
	}
	return strings.ReplaceAll(tag.String(), "-", "_")
}

type languageHooks struct {
	NoopHooks
}

// AfterImport adds the language to the backend language map
func (languageHooks) AfterImport(ctx context.Context, imp *Importer, id uuid.UUID) error {
	var lang models.LanguageModel
	if err := imp.Env.DB.WithContext(ctx).First(&lang, "id = ?", id).Error; err != nil {
		return err
	}
	backend := imp.Env.Backend
	entry := connector.BackendLanguage{
		ExternalID: imp.ExternalID,
		LanguageID: lang.ID,
		Code:       lang.Code,
		Active:     imp.Record.String("active") == "1",
	}
	found := false
	for i := range backend.Languages {
		if backend.Languages[i].ExternalID == imp.ExternalID {
			entry.Default = backend.Languages[i].Default
			backend.Languages[i] = entry
			found = true
		}
	}
	if !found {
		backend.Languages = append(backend.Languages, entry)
	}
	backend.UpdatedAt = time.Now()
	return imp.Env.Backends.Save(ctx, backend)
}

func countryComponent() *Component {
	return &Component{
		Model:        connector.ModelCountry,
		Resource:     "countries",
		NewRecord:    func() any { return &models.CountryModel{} },
		Translatable: []string{"name"},
		Mapper: &Mapper{
			Mappings: []MappingFunc{
				func(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
					id, ok, err := findCountry(ctx, env, rec.String("iso_code"))
					if err != nil || !ok {
						return nil, err
					}
					return Values{MatchKey: Match{ID: id}}, nil
				},
			},
		},
		Hooks: countryHooks{},
		Batch: BatchOptions{Mode: BatchDirect},
	}
}

func findCountry(ctx context.Context, env *Env, isoCode string) (uuid.UUID, bool, error) {
	var ids []uuid.UUID
	if err := env.DB.WithContext(ctx).Model(&models.CountryModel{}).
		Where("LOWER(code) = ?", strings.ToLower(isoCode)).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return uuid.Nil, false, err
	}
	if len(ids) == 0 {
		return uuid.Nil, false, nil
	}
	return ids[0], true, nil
}

type countryHooks struct {
	NoopHooks
}

// HasToSkip skips countries unknown to the ERP
func (countryHooks) HasToSkip(ctx context.Context, imp *Importer) (string, error) {
	_, ok, err := findCountry(ctx, imp.Env, imp.Record.String("iso_code"))
	if err != nil || ok {
		return "", err
	}
	msg := fmt.Sprintf("Cannot find country %s with this code: %s", imp.Record.String("name"), imp.Record.String("iso_code"))
	if err := imp.Env.AddCheckpointMessage(ctx, msg); err != nil {
		return "", err
	}
	return msg, nil
}

func taxComponent() *Component {
	return &Component{
		Model:        connector.ModelTax,
		Resource:     "taxes",
		NewRecord:    func() any { return &models.TaxModel{} },
		Translatable: []string{"name"},
		Mapper: &Mapper{
			Mappings: []MappingFunc{
				func(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
					id, ok, err := findSaleTax(ctx, env, rec.Decimal("rate"))
					if err != nil || !ok {
						return nil, err
					}
					return Values{MatchKey: Match{ID: id}}, nil
				},
			},
		},
		Hooks: taxHooks{},
		Batch: BatchOptions{Mode: BatchDirect},
	}
}

var taxRateTolerance = decimal.NewFromFloat(0.01)

// findSaleTax returns the percent sale tax of the backend company whose
// amount is within 0.01 of rate
func findSaleTax(ctx context.Context, env *Env, rate decimal.Decimal) (uuid.UUID, bool, error) {
	var taxes []models.TaxModel
	if err := env.DB.WithContext(ctx).
		Where("type_tax_use = ? AND amount_type = ? AND company_id = ?", "sale", "percent", env.Backend.CompanyID).
		Order("created_at ASC").
		Find(&taxes).Error; err != nil {
		return uuid.Nil, false, err
	}
	for _, tax := range taxes {
		if tax.Amount.Sub(rate).Abs().LessThan(taxRateTolerance) {
			return tax.ID, true, nil
		}
	}
	return uuid.Nil, false, nil
}

type taxHooks struct {
	NoopHooks
}

// HasToSkip skips taxes without a matching ERP tax
func (taxHooks) HasToSkip(ctx context.Context, imp *Importer) (string, error) {
	_, ok, err := findSaleTax(ctx, imp.Env, imp.Record.Decimal("rate"))
	if err != nil || ok {
		return "", err
	}
	msg := fmt.Sprintf("Cannot find tax %s", imp.Record.String("name"))
	if err := imp.Env.AddCheckpointMessage(ctx, msg); err != nil {
		return "", err
	}
	return msg, nil
}

func orderStateComponent() *Component {
	return &Component{
		Model:             connector.ModelSaleOrderState,
		Resource:          "order_states",
		NewRecord:         func() any { return &models.OrderStateModel{} },
		Translatable:      []string{"name"},
		TranslatedColumns: []string{"name"},
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "name", To: "name"},
			},
			Mappings: []MappingFunc{mapCompany},
		},
		Batch: BatchOptions{Mode: BatchDirect},
	}
}

func carrierComponent() *Component {
	return &Component{
		Model:     connector.ModelCarrier,
		Resource:  "carriers",
		NewRecord: func() any { return &models.CarrierModel{} },
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "name", To: "name"},
				{From: "id_reference", To: "id_reference", Convert: ToInt},
			},
			Mappings: []MappingFunc{
				func(_ context.Context, env *Env, rec prestashop.Record) (Values, error) {
					return Values{
						"active_ext": rec.String("active") == "1",
						"product_id": env.Backend.ShippingProductID,
					}, nil
				},
				mapCompany,
			},
		},
	}
}

func mapCompany(_ context.Context, env *Env, _ prestashop.Record) (Values, error) {
	return Values{"company_id": env.Backend.CompanyID}, nil
}
