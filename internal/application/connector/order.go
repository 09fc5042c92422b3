package connector

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

const (
	shippingLineName = "Shipping"
	discountLineName = "Discount"
)

func saleOrderComponent() *Component {
	return &Component{
		Model:     connector.ModelSaleOrder,
		Resource:  "orders",
		NewRecord: func() any { return &models.SaleOrderModel{} },
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "date_add", To: "date_order", Convert: ToDatetime},
				{From: "date_add", To: "date_add", Convert: ToDatetime},
				{From: "date_upd", To: "date_upd", Convert: ToDatetime},
				{From: "invoice_number", To: "invoice_number"},
				{From: "delivery_number", To: "delivery_number"},
				{From: "total_paid", To: "total_amount", Convert: ToDecimal},
				{From: "total_paid_tax_incl", To: "total_paid_tax_incl", Convert: ToDecimal},
				{From: "total_paid_tax_excl", To: "total_paid_tax_excl", Convert: ToDecimal},
				{From: "total_shipping_tax_incl", To: "total_shipping_tax_incl", Convert: ToDecimal},
				{From: "total_shipping_tax_excl", To: "total_shipping_tax_excl", Convert: ToDecimal},
				{From: "total_discounts_tax_incl", To: "total_discounts_tax_incl", Convert: ToDecimal},
				{From: "total_discounts_tax_excl", To: "total_discounts_tax_excl", Convert: ToDecimal},
				{From: "id_shop_group", To: "shop_group_id", Convert: ExternalToM2O(connector.ModelShopGroup)},
				{From: "id_shop", To: "shop_id", Convert: ExternalToM2O(connector.ModelShop)},
				{From: "current_state", To: "state_id", Convert: ExternalToM2O(connector.ModelSaleOrderState)},
				{From: "reference", To: "name"},
			},
			Mappings: []MappingFunc{
				mapOrderPartners,
				func(_ context.Context, env *Env, rec prestashop.Record) (Values, error) {
					return Values{
						"total_amount_tax": rec.Decimal("total_paid_tax_incl").Sub(rec.Decimal("total_paid_tax_excl")),
						"company_id":       env.Backend.CompanyID,
						"warehouse_id":     env.Backend.WarehouseID,
						"pricelist_id":     env.Backend.PricelistID,
						"team_id":          env.Backend.SaleTeamID,
					}, nil
				},
			},
		},
		Hooks: saleOrderHooks{},
		Batch: BatchOptions{Mode: BatchDelayed, SinceUnpaged: true},
	}
}

// mapOrderPartners maps the customer, addresses and carrier shared by
// orders and carts
func mapOrderPartners(ctx context.Context, env *Env, rec prestashop.Record) (Values, error) {
	values := Values{}
	fields := []struct {
		from, to, model string
	}{
		{"id_customer", "partner_id", connector.ModelPartner},
		{"id_address_invoice", "partner_invoice_id", connector.ModelAddress},
		{"id_address_delivery", "partner_shipping_id", connector.ModelAddress},
		{"id_carrier", "carrier_id", connector.ModelCarrier},
	}
	for _, f := range fields {
		id, err := bindingOf(ctx, env, f.model, rec.Int64(f.from))
		if err != nil {
			return nil, err
		}
		if id != nil || f.from != "id_carrier" {
			values[f.to] = id
		}
	}
	return values, nil
}

// importOrderPartners imports the customer, addresses and carrier of an
// order or cart
func importOrderPartners(ctx context.Context, env *Env, rec prestashop.Record) error {
	deps := []struct {
		field, model string
	}{
		{"id_customer", connector.ModelPartner},
		{"id_address_invoice", connector.ModelAddress},
		{"id_address_delivery", connector.ModelAddress},
		{"id_carrier", connector.ModelCarrier},
	}
	for _, d := range deps {
		if err := env.ImportDependency(ctx, rec.Int64(d.field), d.model, false); err != nil {
			return err
		}
	}
	return nil
}

// lineProduct resolves the variant sold by an order or cart row: the
// combination when there is one, else the first variant of the product
func lineProduct(ctx context.Context, env *Env, productID, combinationID int64) (*uuid.UUID, error) {
	if combinationID > 0 {
		id, ok, err := env.Binder(connector.ModelCombination).ToInternal(ctx, combinationID)
		if err != nil || !ok {
			return nil, err
		}
		return &id, nil
	}
	tmpl, ok, err := env.Binder(connector.ModelProductTemplate).ToInternal(ctx, productID)
	if err != nil || !ok {
		return nil, err
	}
	var ids []uuid.UUID
	if err := env.DB.WithContext(ctx).Model(&models.ProductVariantModel{}).
		Where("template_id = ? AND company_id = ?", tmpl, env.Backend.CompanyID).
		Order("created_at ASC").
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &ids[0], nil
}

func orderRows(env *Env, rec prestashop.Record) []prestashop.Record {
	return prestashop.Associations(rec, env.Backend.Version, "order_rows")
}

type saleOrderHooks struct {
	NoopHooks
}

func (saleOrderHooks) ImportDependencies(ctx context.Context, imp *Importer) error {
	env := imp.Env
	if err := importOrderPartners(ctx, env, imp.Record); err != nil {
		return err
	}
	for _, row := range orderRows(env, imp.Record) {
		if err := env.ImportDependency(ctx, row.Int64("product_id"), connector.ModelProductTemplate, false); err != nil {
			return err
		}
	}
	return nil
}

// AfterImport writes the order rows, the shipping line and the discount line
func (saleOrderHooks) AfterImport(ctx context.Context, imp *Importer, orderID uuid.UUID) error {
	env := imp.Env
	for _, row := range orderRows(env, imp.Record) {
		if err := writeOrderRow(ctx, env, orderID, row); err != nil {
			return err
		}
	}
	if err := writeShippingLine(ctx, env, orderID, imp.Record); err != nil {
		return err
	}
	return writeDiscountLine(ctx, env, orderID, imp.Record)
}

func writeOrderRow(ctx context.Context, env *Env, orderID uuid.UUID, row prestashop.Record) error {
	product, err := lineProduct(ctx, env, row.Int64("product_id"), row.Int64("product_attribute_id"))
	if err != nil {
		return err
	}
	line := models.SaleOrderLineModel{
		OrderID:          orderID,
		Sequence:         row.Int64("id"),
		Name:             row.String("product_name"),
		ProductID:        product,
		Qty:              row.Decimal("product_quantity"),
		PriceUnit:        row.Decimal("unit_price_tax_excl"),
		ProductPrice:     row.Decimal("product_price"),
		UnitPriceTaxIncl: row.Decimal("unit_price_tax_incl"),
		UnitPriceTaxExcl: row.Decimal("unit_price_tax_excl"),
	}

	binder := env.Binder(connector.ModelSaleOrderLine)
	id, bound, err := binder.ToInternal(ctx, row.ID())
	if err != nil {
		return err
	}
	if bound {
		line.ID = id
		if err := env.DB.WithContext(ctx).Model(&models.SaleOrderLineModel{}).Where("id = ?", id).
			Select("order_id", "sequence", "name", "product_id", "qty", "price_unit", "product_price",
				"unit_price_tax_incl", "unit_price_tax_excl").
			Updates(&line).Error; err != nil {
			return err
		}
		return binder.Bind(ctx, row.ID(), id)
	}
	line.ID = uuid.New()
	if err := env.DB.WithContext(ctx).Create(&line).Error; err != nil {
		return err
	}
	return binder.Bind(ctx, row.ID(), line.ID)
}

// specialLine returns the shipping or discount line of an order
func specialLine(ctx context.Context, env *Env, orderID uuid.UUID, column string) (*models.SaleOrderLineModel, error) {
	var line models.SaleOrderLineModel
	err := env.DB.WithContext(ctx).Where("order_id = ? AND "+column+" = ?", orderID, true).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func saveSpecialLine(ctx context.Context, env *Env, existing, line *models.SaleOrderLineModel) error {
	if existing != nil {
		line.ID = existing.ID
		line.Sequence = existing.Sequence
		return env.DB.WithContext(ctx).Model(&models.SaleOrderLineModel{}).Where("id = ?", existing.ID).
			Select("name", "product_id", "qty", "price_unit", "product_price", "unit_price_tax_incl", "unit_price_tax_excl").
			Updates(line).Error
	}
	line.ID = uuid.New()
	return env.DB.WithContext(ctx).Create(line).Error
}

func writeShippingLine(ctx context.Context, env *Env, orderID uuid.UUID, rec prestashop.Record) error {
	existing, err := specialLine(ctx, env, orderID, "is_shipping")
	if err != nil {
		return err
	}
	var product *uuid.UUID
	if carrierID := rec.Int64("id_carrier"); carrierID > 0 {
		id, ok, err := env.Binder(connector.ModelCarrier).ToInternal(ctx, carrierID)
		if err != nil {
			return err
		}
		if ok {
			var carrier models.CarrierModel
			if err := env.DB.WithContext(ctx).First(&carrier, "id = ?", id).Error; err != nil {
				return err
			}
			product = carrier.ProductID
		}
	}
	price := rec.Decimal("total_shipping_tax_excl")
	return saveSpecialLine(ctx, env, existing, &models.SaleOrderLineModel{
		OrderID:          orderID,
		Name:             shippingLineName,
		ProductID:        product,
		Qty:              decimal.NewFromInt(1),
		PriceUnit:        price,
		ProductPrice:     price,
		UnitPriceTaxIncl: rec.Decimal("total_shipping_tax_incl"),
		UnitPriceTaxExcl: price,
		IsShipping:       true,
	})
}

func writeDiscountLine(ctx context.Context, env *Env, orderID uuid.UUID, rec prestashop.Record) error {
	existing, err := specialLine(ctx, env, orderID, "is_discount")
	if err != nil {
		return err
	}
	excl := rec.Decimal("total_discounts_tax_excl")
	incl := rec.Decimal("total_discounts_tax_incl")
	if excl.IsZero() && incl.IsZero() {
		if existing == nil {
			return nil
		}
		return env.DB.WithContext(ctx).Delete(&models.SaleOrderLineModel{}, "id = ?", existing.ID).Error
	}
	// without a discount product on the backend the line has no product
	price := excl.Neg()
	return saveSpecialLine(ctx, env, existing, &models.SaleOrderLineModel{
		OrderID:          orderID,
		Name:             discountLineName,
		ProductID:        env.Backend.DiscountProductID,
		Qty:              decimal.NewFromInt(1),
		PriceUnit:        price,
		ProductPrice:     price,
		UnitPriceTaxIncl: incl.Neg(),
		UnitPriceTaxExcl: price,
		IsDiscount:       true,
	})
}

func cartComponent() *Component {
	return &Component{
		Model:     connector.ModelCart,
		Resource:  "carts",
		NewRecord: func() any { return &models.CartModel{} },
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "date_add", To: "date_order", Convert: ToDatetime},
				{From: "date_add", To: "date_add", Convert: ToDatetime},
				{From: "date_upd", To: "date_upd", Convert: ToDatetime},
				{From: "id_shop_group", To: "shop_group_id", Convert: ExternalToM2O(connector.ModelShopGroup)},
				{From: "id_shop", To: "shop_id", Convert: ExternalToM2O(connector.ModelShop)},
			},
			Mappings: []MappingFunc{mapOrderPartners, mapCompany},
			OnlyCreate: []MappingFunc{
				func(ctx context.Context, env *Env, _ prestashop.Record) (Values, error) {
					name, err := env.Sequences.Next(ctx, "prestashop.cart", "CART/")
					if err != nil {
						return nil, err
					}
					return Values{"name": name}, nil
				},
			},
		},
		Hooks: cartHooks{},
		Batch: BatchOptions{
			Mode: BatchDelayed,
			SinceFilters: prestashop.Filters{
				"filter[id_customer]":    ">[0]",
				"filter[minimum_amount]": ">[0]",
			},
		},
	}
}

type cartHooks struct {
	NoopHooks
}

func (cartHooks) ImportDependencies(ctx context.Context, imp *Importer) error {
	return importOrderPartners(ctx, imp.Env, imp.Record)
}

// AfterImport replaces the lines of the cart with its rows
func (cartHooks) AfterImport(ctx context.Context, imp *Importer, cartID uuid.UUID) error {
	env := imp.Env
	db := env.DB.WithContext(ctx)
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartLineModel{}).Error; err != nil {
		return err
	}
	for _, row := range prestashop.Associations(imp.Record, env.Backend.Version, "cart_rows") {
		product, err := lineProduct(ctx, env, row.Int64("id_product"), row.Int64("id_product_attribute"))
		if err != nil {
			return err
		}
		line := models.CartLineModel{
			ID:        uuid.New(),
			CartID:    cartID,
			ProductID: product,
			Quantity:  row.Decimal("quantity"),
		}
		if err := db.Create(&line).Error; err != nil {
			return err
		}
	}
	return nil
}
