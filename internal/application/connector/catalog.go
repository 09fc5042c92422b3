package connector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

const zeroDatetime = "0000-00-00 00:00:00"

// datetimeOrNow maps a PrestaShop datetime, using the current time for zero dates
func datetimeOrNow(field string) MappingFunc {
	return func(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
		if rec.String(field) == zeroDatetime {
			now := time.Now().UTC()
			return Values{field: &now}, nil
		}
		t, err := ToDatetime(ctx, env, rec, field)
		if err != nil {
			return nil, err
		}
		return Values{field: t}, nil
	}
}

func productCategoryComponent() *Component {
	translatable := []string{"name", "description", "link_rewrite", "meta_title", "meta_description", "meta_keywords"}
	return &Component{
		Model:             connector.ModelProductCategory,
		Resource:          "categories",
		NewRecord:         func() any { return &models.ProductCategoryModel{} },
		Translatable:      translatable,
		TranslatedColumns: translatable,
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "name", To: "name"},
				{From: "position", To: "position", Convert: ToInt},
				{From: "description", To: "description"},
				{From: "link_rewrite", To: "link_rewrite"},
				{From: "meta_description", To: "meta_description"},
				{From: "meta_keywords", To: "meta_keywords"},
				{From: "meta_title", To: "meta_title"},
				{From: "id_shop_default", To: "default_shop_id", Convert: ExternalToM2O(connector.ModelShop)},
				{From: "active", To: "active", Convert: NormalizeBoolean},
			},
			Mappings: []MappingFunc{
				mapCategoryParent,
				datetimeOrNow("date_add"),
				datetimeOrNow("date_upd"),
			},
		},
		Hooks: productCategoryHooks{},
		Batch: BatchOptions{Mode: BatchDelayed},
	}
}

func mapCategoryParent(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
	parent := rec.Int64("id_parent")
	if parent == 0 {
		return Values{}, nil
	}
	id, ok, err := env.Binder(connector.ModelProductCategory).ToInternal(ctx, parent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, connector.NewMappingError("The product category with prestashop id %s is not imported.", rec.String("id_parent"))
	}
	return Values{"parent_id": &id}, nil
}

type productCategoryHooks struct {
	NoopHooks
}

func (productCategoryHooks) ImportDependencies(ctx context.Context, imp *Importer) error {
	rec := imp.Record
	parent := rec.Int64("id_parent")
	if parent == 0 {
		return nil
	}
	err := imp.Env.ImportDependency(ctx, parent, connector.ModelProductCategory, false)
	if errors.Is(err, prestashop.ErrWebService) {
		return connector.NewInvalidDataError(err,
			`Parent category (id %s) for "%s" with id %s cannot be imported. Error: %s`,
			rec.String("id_parent"), rec.String("name"), rec.String("id"), err)
	}
	return err
}

func productTemplateComponent() *Component {
	return &Component{
		Model:     connector.ModelProductTemplate,
		Resource:  "products",
		NewRecord: func() any { return &models.ProductTemplateModel{} },
		Translatable: []string{
			"name", "description", "link_rewrite", "description_short",
			"meta_title", "meta_description", "meta_keywords",
		},
		TranslatedColumns: []string{
			"name", "description", "description_html", "description_short_html",
			"link_rewrite", "meta_title", "meta_description", "meta_keywords",
		},
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "weight", To: "weight", Convert: ToDecimal},
				{From: "wholesale_price", To: "wholesale_price", Convert: ToDecimal},
				{From: "wholesale_price", To: "standard_price", Convert: ToDecimal},
				{From: "id_shop_default", To: "default_shop_id", Convert: ExternalToM2O(connector.ModelShop)},
				{From: "link_rewrite", To: "link_rewrite"},
				{From: "meta_title", To: "meta_title"},
				{From: "meta_description", To: "meta_description"},
				{From: "meta_keywords", To: "meta_keywords"},
				{From: "available_for_order", To: "available_for_order", Convert: NormalizeBoolean},
				{From: "on_sale", To: "on_sale", Convert: NormalizeBoolean},
				{From: "reference", To: "default_code"},
				{From: "ean13", To: "barcode"},
			},
			Mappings: []MappingFunc{
				mapTemplateListPrice,
				func(_ context.Context, _ *Env, rec prestashop.Record) (Values, error) {
					name := rec.String("name")
					if name == "" {
						name = "noname"
					}
					product := "product"
					if rec.String("type") == "virtual" {
						product = "service"
					}
					active := rec.Bool("active")
					return Values{
						"name":             name,
						"type":             product,
						"always_available": active,
						"active":           active,
						"sale_ok":          true,
						"purchase_ok":      true,
					}, nil
				},
				datetimeOrNow("date_add"),
				datetimeOrNow("date_upd"),
				func(_ context.Context, _ *Env, rec prestashop.Record) (Values, error) {
					return Values{
						"description":            HTMLToText(rec.String("description_short")),
						"description_html":       SanitizeHTML(rec.String("description")),
						"description_short_html": SanitizeHTML(rec.String("description_short")),
					}, nil
				},
				mapTemplateCategories,
				mapTemplateTaxes,
				mapCompany,
			},
		},
		Hooks: productTemplateHooks{},
		Batch: BatchOptions{Mode: BatchDelayed, SinceUnpaged: true},
	}
}

// mapTemplateListPrice removes the product tax from the PrestaShop price
// unless the tax is included in prices
func mapTemplateListPrice(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
	price := rec.Decimal("price")
	if env.Backend.ProductTaxID != nil {
		var tax models.TaxModel
		if err := env.DB.WithContext(ctx).First(&tax, "id = ?", *env.Backend.ProductTaxID).Error; err != nil {
			return nil, fmt.Errorf("product tax: %w", err)
		}
		if !tax.PriceInclude {
			rate := decimal.NewFromInt(1).Add(tax.Amount.Div(decimal.NewFromInt(100)))
			price = price.Div(rate)
		}
	}
	return Values{"list_price": price}, nil
}

func templateCategories(env *Env, rec prestashop.Record) []int64 {
	var ids []int64
	for _, c := range prestashop.Associations(rec, env.Backend.Version, "categories") {
		if id := c.Int64("id"); id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func mapTemplateCategories(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
	binder := env.Binder(connector.ModelProductCategory)
	var ids []uuid.UUID
	for _, extID := range templateCategories(env, rec) {
		id, ok, err := binder.ToInternal(ctx, extID)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, id)
		}
	}
	values := Values{"categ_ids": M2M{
		Table:        "product_template_categories",
		OwnerColumn:  "template_id",
		TargetColumn: "category_id",
		IDs:          ids,
	}}
	if def := rec.Int64("id_category_default"); def > 0 {
		categ, err := optionalBindingOf(ctx, env, connector.ModelProductCategory, def)
		if err != nil {
			return nil, err
		}
		if categ != nil {
			values["categ_id"] = categ
		}
	}
	return values, nil
}

func mapTemplateTaxes(_ context.Context, env *Env, _ prestashop.Record) (Values, error) {
	var ids []uuid.UUID
	if env.Backend.ProductTaxID != nil {
		ids = append(ids, *env.Backend.ProductTaxID)
	}
	return Values{"taxes_id": M2M{
		Table:        "product_template_taxes",
		OwnerColumn:  "template_id",
		TargetColumn: "tax_id",
		IDs:          ids,
	}}, nil
}

// HTMLToText returns the text of an HTML fragment, one line per block
func HTMLToText(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(collapseBlankLines(b.String()))
		case html.TextToken:
			if skip == 0 {
				// keep a separator where the text touches an inline tag
				b.WriteString(" " + strings.Join(strings.Fields(string(z.Text())), " ") + " ")
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n")
			}
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" && (len(kept) == 0 || kept[len(kept)-1] == "") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// SanitizeHTML parses an HTML fragment, drops xml:lang attributes and
// renders it back
func SanitizeHTML(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return content
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		dropXMLLang(n)
		if err := html.Render(&buf, n); err != nil {
			return content
		}
	}
	return buf.String()
}

func dropXMLLang(n *html.Node) {
	if n.Type == html.ElementNode {
		attrs := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Key == "xml:lang" || a.Namespace == "xml" && a.Key == "lang" {
				continue
			}
			attrs = append(attrs, a)
		}
		n.Attr = attrs
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dropXMLLang(c)
	}
}

type productTemplateHooks struct {
	NoopHooks
}

func (productTemplateHooks) ImportDependencies(ctx context.Context, imp *Importer) error {
	env := imp.Env
	if err := env.ImportDependency(ctx, imp.Record.Int64("id_category_default"), connector.ModelProductCategory, false); err != nil {
		return err
	}
	for _, id := range templateCategories(env, imp.Record) {
		if err := env.ImportDependency(ctx, id, connector.ModelProductCategory, false); err != nil {
			return err
		}
	}
	return nil
}

// AfterImport imports the combinations, images and stock of the product
// and keeps its variants and attribute lines in line with the combinations
func (productTemplateHooks) AfterImport(ctx context.Context, imp *Importer, id uuid.UUID) error {
	env := imp.Env
	if err := ensureDefaultVariant(ctx, env, id); err != nil {
		return err
	}
	if err := importCombinations(ctx, imp, id); err != nil {
		return err
	}
	if err := syncAttributeLines(ctx, env, id); err != nil {
		return err
	}
	if err := deleteDefaultVariants(ctx, env, id); err != nil {
		return err
	}
	if err := importProductImage(ctx, imp, id); err != nil {
		return err
	}
	return ImportProductStock(ctx, env, imp.ExternalID)
}

// ensureDefaultVariant gives a template without variant its default variant
func ensureDefaultVariant(ctx context.Context, env *Env, templateID uuid.UUID) error {
	var count int64
	if err := env.DB.WithContext(ctx).Model(&models.ProductVariantModel{}).
		Where("template_id = ?", templateID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	var tmpl models.ProductTemplateModel
	if err := env.DB.WithContext(ctx).First(&tmpl, "id = ?", templateID).Error; err != nil {
		return err
	}
	variant := models.ProductVariantModel{
		ID:            uuid.New(),
		TemplateID:    tmpl.ID,
		CompanyID:     tmpl.CompanyID,
		Type:          tmpl.Type,
		CategID:       tmpl.CategID,
		DefaultCode:   tmpl.DefaultCode,
		Barcode:       tmpl.Barcode,
		ListPrice:     tmpl.ListPrice,
		StandardPrice: tmpl.StandardPrice,
		Active:        true,
	}
	return env.DB.WithContext(ctx).Create(&variant).Error
}

// importCombinations imports every combination of the product and deletes
// the variants of combinations removed from PrestaShop
func importCombinations(ctx context.Context, imp *Importer, templateID uuid.UUID) error {
	env := imp.Env
	kept := map[int64]bool{}
	for _, c := range prestashop.Associations(imp.Raw, env.Backend.Version, "combinations") {
		extID := c.Int64("id")
		if extID <= 0 {
			continue
		}
		if err := env.ImportDependency(ctx, extID, connector.ModelCombination, true); err != nil {
			return err
		}
		kept[extID] = true
	}

	var variantIDs []uuid.UUID
	if err := env.DB.WithContext(ctx).Model(&models.ProductVariantModel{}).
		Where("template_id = ?", templateID).Pluck("id", &variantIDs).Error; err != nil {
		return err
	}
	binder := env.Binder(connector.ModelCombination)
	for _, variantID := range variantIDs {
		extID, bound, err := binder.ToExternal(ctx, variantID)
		if err != nil {
			return err
		}
		if !bound || kept[extID] {
			continue
		}
		if err := deleteVariant(ctx, env, variantID); err != nil {
			return err
		}
		if err := binder.Unbind(ctx, extID); err != nil {
			return err
		}
		env.Logger.Info("Combination removed from PrestaShop, variant deleted",
			logger.ExternalID(extID),
			zap.String("variant_id", variantID.String()),
		)
	}
	return nil
}

func deleteVariant(ctx context.Context, env *Env, variantID uuid.UUID) error {
	db := env.DB.WithContext(ctx)
	if err := db.Where("variant_id = ?", variantID).Delete(&models.ProductVariantValueModel{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", variantID).Delete(&models.ProductVariantModel{}).Error
}

// syncAttributeLines makes the attribute lines of a template list the
// values used by its variants
func syncAttributeLines(ctx context.Context, env *Env, templateID uuid.UUID) error {
	db := env.DB.WithContext(ctx)

	type variantValue struct {
		AttributeID uuid.UUID
		ValueID     uuid.UUID
	}
	var used []variantValue
	if err := db.Table("product_variant_values").
		Select("DISTINCT attribute_values.attribute_id AS attribute_id, attribute_values.id AS value_id").
		Joins("JOIN product_variants ON product_variants.id = product_variant_values.variant_id").
		Joins("JOIN attribute_values ON attribute_values.id = product_variant_values.value_id").
		Where("product_variants.template_id = ?", templateID).
		Order("attribute_id, value_id").
		Scan(&used).Error; err != nil {
		return err
	}
	wanted := map[uuid.UUID][]uuid.UUID{}
	for _, u := range used {
		wanted[u.AttributeID] = append(wanted[u.AttributeID], u.ValueID)
	}

	var lines []models.AttributeLineModel
	if err := db.Where("template_id = ?", templateID).Find(&lines).Error; err != nil {
		return err
	}
	existing := map[uuid.UUID]uuid.UUID{}
	for _, line := range lines {
		if _, ok := wanted[line.AttributeID]; !ok {
			if err := db.Where("line_id = ?", line.ID).Delete(&models.AttributeLineValueModel{}).Error; err != nil {
				return err
			}
			if err := db.Delete(&models.AttributeLineModel{}, "id = ?", line.ID).Error; err != nil {
				return err
			}
			continue
		}
		existing[line.AttributeID] = line.ID
	}

	for attributeID, values := range wanted {
		lineID, ok := existing[attributeID]
		if !ok {
			line := models.AttributeLineModel{ID: uuid.New(), TemplateID: templateID, AttributeID: attributeID}
			if err := db.Create(&line).Error; err != nil {
				return err
			}
			lineID = line.ID
		}
		if err := writeM2M(ctx, env.DB, lineID, []M2M{{
			Table:        "attribute_line_values",
			OwnerColumn:  "line_id",
			TargetColumn: "value_id",
			IDs:          values,
		}}); err != nil {
			return err
		}
	}
	return nil
}

// deleteDefaultVariants removes the variants without attribute values of
// a template having several variants
func deleteDefaultVariants(ctx context.Context, env *Env, templateID uuid.UUID) error {
	db := env.DB.WithContext(ctx)
	var count int64
	if err := db.Model(&models.ProductVariantModel{}).Where("template_id = ?", templateID).Count(&count).Error; err != nil {
		return err
	}
	if count == 1 {
		return nil
	}
	return db.Where("template_id = ?", templateID).
		Where("id NOT IN (?)", db.Model(&models.ProductVariantValueModel{}).Select("variant_id")).
		Delete(&models.ProductVariantModel{}).Error
}

// importProductImage stores the default image of the product and links it
// on the template
func importProductImage(ctx context.Context, imp *Importer, templateID uuid.UUID) error {
	env := imp.Env
	imageID := imp.Raw.Int64("id_default_image")
	if env.Images == nil || imageID == 0 {
		return nil
	}
	img, err := env.API.GetImage(ctx, "products", imp.ExternalID, imageID, nil)
	if err != nil {
		if connector.IsIDMissing(err) {
			imp.Logger().Warn("Default image missing in PrestaShop", zap.Int64("image_id", imageID))
			return nil
		}
		return err
	}

	key := fmt.Sprintf("prestashop/%s/products/%d/%d%s", env.Backend.ID, imp.ExternalID, imageID, imageExtension(img.Type))
	if err := env.Images.Upload(ctx, key, img.Data, img.Type); err != nil {
		return connector.NewRetryableJobError("image upload failed", 0, err)
	}
	url, err := env.Images.URL(ctx, key)
	if err != nil {
		return err
	}
	return env.DB.WithContext(ctx).Model(&models.ProductTemplateModel{}).
		Where("id = ?", templateID).
		Updates(map[string]any{"image_key": key, "image_url": url}).Error
}

func imageExtension(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/gif"):
		return ".gif"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	}
	return ""
}
