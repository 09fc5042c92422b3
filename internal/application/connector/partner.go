package connector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

const defaultPartnerLang = "en_US"

func partnerCategoryComponent() *Component {
	return &Component{
		Model:             connector.ModelPartnerCategory,
		Resource:          "groups",
		NewRecord:         func() any { return &models.PartnerCategoryModel{} },
		Translatable:      []string{"name"},
		TranslatedColumns: []string{"name"},
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "name", To: "name"},
				{From: "date_add", To: "date_add", Convert: ToDatetime},
				{From: "date_upd", To: "date_upd", Convert: ToDatetime},
			},
		},
	}
}

func partnerComponent() *Component {
	return &Component{
		Model:     connector.ModelPartner,
		Resource:  "customers",
		NewRecord: func() any { return &models.PartnerModel{} },
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "date_add", To: "date_add", Convert: ToDatetime},
				{From: "date_upd", To: "date_upd", Convert: ToDatetime},
				{From: "email", To: "email"},
				{From: "newsletter", To: "newsletter", Convert: NormalizeBoolean},
				{From: "active", To: "active", Convert: NormalizeBoolean},
				{From: "note", To: "comment"},
				{From: "id_shop_group", To: "shop_group_id", Convert: ExternalToM2O(connector.ModelShopGroup)},
				{From: "id_shop", To: "shop_id", Convert: ExternalToM2O(connector.ModelShop)},
				{From: "id_default_group", To: "default_category_id", Convert: ExternalToM2O(connector.ModelPartnerCategory)},
			},
			Mappings: []MappingFunc{
				mapPartnerBirthday,
				func(_ context.Context, _ *Env, rec prestashop.Record) (Values, error) {
					return Values{"name": joinName(rec.String("firstname"), rec.String("lastname"))}, nil
				},
				mapPartnerGroups,
				mapPartnerLang,
				func(_ context.Context, env *Env, _ prestashop.Record) (Values, error) {
					return Values{
						"customer":   true,
						"is_company": true,
						"company_id": env.Backend.CompanyID,
					}, nil
				},
			},
		},
		Hooks: partnerHooks{},
		Batch: BatchOptions{Mode: BatchDelayed},
	}
}

// joinName joins the non-empty trimmed parts with spaces
func joinName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func mapPartnerBirthday(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
	birthday, err := ToDate(ctx, env, rec, "birthday")
	if err != nil {
		return nil, err
	}
	if birthday == nil {
		return Values{}, nil
	}
	return Values{"birthday": birthday}, nil
}

func customerGroups(env *Env, rec prestashop.Record) []int64 {
	var ids []int64
	for _, group := range prestashop.Associations(rec, env.Backend.Version, "groups") {
		if id := group.Int64("id"); id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func mapPartnerGroups(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
	binder := env.Binder(connector.ModelPartnerCategory)
	var ids []uuid.UUID
	for _, extID := range customerGroups(env, rec) {
		id, ok, err := binder.ToInternal(ctx, extID)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, id)
		}
	}
	return Values{"category_ids": M2M{
		Table:        "partner_category_rels",
		OwnerColumn:  "partner_id",
		TargetColumn: "category_id",
		IDs:          ids,
	}}, nil
}

func mapPartnerLang(_ context.Context, env *Env, rec prestashop.Record) (Values, error) {
	code, ok := env.Backend.LanguageMap()[rec.Int64("id_lang")]
	if !ok {
		code = defaultPartnerLang
	}
	return Values{"lang": code}, nil
}

type partnerHooks struct {
	NoopHooks
}

func (partnerHooks) ImportDependencies(ctx context.Context, imp *Importer) error {
	for _, id := range customerGroups(imp.Env, imp.Record) {
		if err := imp.Env.ImportDependency(ctx, id, connector.ModelPartnerCategory, false); err != nil {
			return err
		}
	}
	return nil
}

// AfterImport imports the addresses of the customer
func (partnerHooks) AfterImport(ctx context.Context, imp *Importer, _ uuid.UUID) error {
	return ImportCustomerAddresses(ctx, imp.Env, imp.ExternalID)
}

// ImportCustomerAddresses imports every address of a PrestaShop customer
func ImportCustomerAddresses(ctx context.Context, env *Env, customerID int64) error {
	ids, err := env.API.Search(ctx, "addresses", prestashop.Filters{
		"filter[id_customer]": strconv.FormatInt(customerID, 10),
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := env.ImportRecord(ctx, connector.ModelAddress, id, false); err != nil {
			return err
		}
	}
	return nil
}

func addressComponent() *Component {
	return &Component{
		Model:     connector.ModelAddress,
		Resource:  "addresses",
		NewRecord: func() any { return &models.PartnerModel{} },
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "address1", To: "street"},
				{From: "address2", To: "street2"},
				{From: "city", To: "city"},
				{From: "other", To: "comment"},
				{From: "phone", To: "phone"},
				{From: "phone_mobile", To: "mobile"},
				{From: "postcode", To: "zip"},
				{From: "date_add", To: "date_add", Convert: ToDatetime},
				{From: "date_upd", To: "date_upd", Convert: ToDatetime},
				{From: "id_customer", To: "parent_id", Convert: ExternalToM2O(connector.ModelPartner)},
			},
			Mappings: []MappingFunc{
				func(_ context.Context, _ *Env, rec prestashop.Record) (Values, error) {
					parts := []string{rec.String("firstname"), rec.String("lastname")}
					if alias := strings.TrimSpace(rec.String("alias")); alias != "" {
						parts = append(parts, "("+alias+")")
					}
					return Values{"name": joinName(parts...)}, nil
				},
				func(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
					country, err := optionalBindingOf(ctx, env, connector.ModelCountry, rec.Int64("id_country"))
					if err != nil {
						return nil, err
					}
					return Values{
						"customer":   true,
						"country_id": country,
						"company_id": env.Backend.CompanyID,
					}, nil
				},
			},
			OnlyCreate: []MappingFunc{
				func(context.Context, *Env, prestashop.Record) (Values, error) {
					return Values{"type": "other"}, nil
				},
			},
		},
		Hooks: addressHooks{},
	}
}

type addressHooks struct {
	NoopHooks
}

// AfterImport copies a valid VAT number to the customer and deactivates
// the customer of a deleted address
func (addressHooks) AfterImport(ctx context.Context, imp *Importer, id uuid.UUID) error {
	rec := imp.Record
	parent, err := bindingOf(ctx, imp.Env, connector.ModelPartner, rec.Int64("id_customer"))
	if err != nil {
		return err
	}
	if parent == nil {
		return nil
	}
	db := imp.Env.DB.WithContext(ctx).Model(&models.PartnerModel{}).Where("id = ?", *parent)

	if vat := AddressVAT(rec); vat != "" {
		if CheckVAT(vat) {
			if err := db.Update("vat", vat).Error; err != nil {
				return err
			}
		} else {
			msg := fmt.Sprintf("Please check the VAT number: %s", vat)
			if err := imp.Env.AddCheckpoint(ctx, connector.ModelAddress, id, msg); err != nil {
				return err
			}
		}
	}
	if rec.String("deleted") == "1" {
		return imp.Env.DB.WithContext(ctx).Model(&models.PartnerModel{}).
			Where("id = ?", *parent).
			Update("active", false).Error
	}
	return nil
}

// AddressVAT returns the VAT number of an address, falling back to the DNI
func AddressVAT(rec prestashop.Record) string {
	if vat := rec.String("vat_number"); vat != "" {
		return strings.NewReplacer(".", "", " ", "").Replace(vat)
	}
	if dni := rec.String("dni"); dni != "" {
		return strings.NewReplacer(".", "", " ", "", "-", "").Replace(dni)
	}
	return ""
}

// vatRules holds the validator tags a VAT number must satisfy once its
// country code and the required letter prefix are removed
var vatRules = map[string]struct{ prefix, tag string }{
	"AT": {"U", "number,len=8"},
	"BE": {"", "number,len=10,startswith=0|startswith=1"},
	"BG": {"", "number,min=9,max=10"},
	"CH": {"", "alphanum,min=9,max=14"},
	"CY": {"", "alphanum,len=9"},
	"CZ": {"", "number,min=8,max=10"},
	"DE": {"", "number,len=9"},
	"DK": {"", "number,len=8"},
	"EE": {"", "number,len=9"},
	"EL": {"", "number,len=9"},
	"ES": {"", "alphanum,len=9"},
	"FI": {"", "number,len=8"},
	"FR": {"", "alphanum,len=11"},
	"GB": {"", "alphanum,len=5|len=9|len=12"},
	"HR": {"", "number,len=11"},
	"HU": {"", "number,len=8"},
	"IE": {"", "alphanum,min=8,max=9"},
	"IT": {"", "number,len=11"},
	"LT": {"", "number,len=9|len=12"},
	"LU": {"", "number,len=8"},
	"LV": {"", "number,len=11"},
	"MT": {"", "number,len=8"},
	"NL": {"", "alphanum,len=12,contains=B"},
	"PL": {"", "number,len=10"},
	"PT": {"", "number,len=9"},
	"RO": {"", "number,min=2,max=10"},
	"SE": {"", "number,len=12"},
	"SI": {"", "number,len=8"},
	"SK": {"", "number,len=10"},
}

const genericVATTag = "alphanum,min=2,max=13"

var vatValidate = validator.New()

// CheckVAT checks the format of a VAT number prefixed with its country code.
// Countries without a known format only need a valid ISO code.
func CheckVAT(vat string) bool {
	vat = strings.ToUpper(vat)
	if len(vat) < 3 {
		return false
	}
	country, number := vat[:2], vat[2:]
	rule, ok := vatRules[country]
	if !ok {
		if vatValidate.Var(country, "iso3166_1_alpha2") != nil {
			return false
		}
		return vatValidate.Var(number, genericVATTag) == nil
	}
	number, ok = strings.CutPrefix(number, rule.prefix)
	if !ok {
		return false
	}
	return vatValidate.Var(number, rule.tag) == nil
}
