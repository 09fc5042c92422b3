package connector

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

const stockResource = "stock_availables"

func stockAvailableComponent() *Component {
	return &Component{
		Model:     connector.ModelStockAvailable,
		Resource:  stockResource,
		NewRecord: func() any { return &models.StockAvailableModel{} },
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "quantity", To: "quantity", Convert: ToDecimal},
				{From: "id_product", To: "product_template_id", Convert: ExternalToM2O(connector.ModelProductTemplate)},
			},
		},
		Batch: BatchOptions{Mode: BatchDelayed},
	}
}

// ImportProductStock imports the stock records of a PrestaShop product
func ImportProductStock(ctx context.Context, env *Env, productID int64) error {
	ids, err := env.API.Search(ctx, stockResource, prestashop.Filters{
		"filter[id_product]": strconv.FormatInt(productID, 10),
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := env.ImportRecord(ctx, connector.ModelStockAvailable, id, false); err != nil {
			return err
		}
	}
	return nil
}

// SetStockQuantity records the quantity to send for a bound stock record
func SetStockQuantity(ctx context.Context, env *Env, externalID int64, quantity decimal.Decimal) error {
	id, ok, err := env.Binder(connector.ModelStockAvailable).ToInternal(ctx, externalID)
	if err != nil {
		return err
	}
	if !ok {
		return connector.NewNothingToDoJob("Stock record %d is not imported", externalID)
	}
	return env.DB.WithContext(ctx).Model(&models.StockAvailableModel{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

// ExportStock sends the quantity of bound stock records to PrestaShop. A
// zero externalID exports every stock record of the backend.
func ExportStock(ctx context.Context, env *Env, externalID int64) (int, error) {
	binder := env.Binder(connector.ModelStockAvailable)
	type target struct {
		externalID int64
		internalID uuid.UUID
	}
	var targets []target
	if externalID > 0 {
		id, ok, err := binder.ToInternal(ctx, externalID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, connector.NewNothingToDoJob("Stock record %d is not imported", externalID)
		}
		targets = append(targets, target{externalID, id})
	} else {
		for page := 1; ; page++ {
			bindings, _, err := env.Bindings.FindAll(ctx, env.Backend.ID, connector.BindingFilter{
				Model:    connector.ModelStockAvailable,
				Page:     page,
				PageSize: env.Options.PageSize,
			})
			if err != nil {
				return 0, err
			}
			for _, b := range bindings {
				targets = append(targets, target{b.ExternalID, b.InternalID})
			}
			if len(bindings) < env.Options.PageSize {
				break
			}
		}
	}

	for _, t := range targets {
		var stock models.StockAvailableModel
		if err := env.DB.WithContext(ctx).First(&stock, "id = ?", t.internalID).Error; err != nil {
			return 0, err
		}
		quantity := stock.Quantity.Floor().String()
		if _, err := env.API.Edit(ctx, stockResource, t.externalID, prestashop.Record{"quantity": quantity}); err != nil {
			return 0, err
		}
		env.Logger.Info("Stock exported",
			logger.ExternalID(t.externalID),
			zap.String("quantity", quantity),
		)
	}
	return len(targets), nil
}
