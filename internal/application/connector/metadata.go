package connector

import (
	"context"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence/models"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

func shopGroupComponent() *Component {
	return &Component{
		Model:     connector.ModelShopGroup,
		Resource:  "shop_groups",
		NewRecord: func() any { return &models.ShopGroupModel{} },
		Mapper: &Mapper{
			Mappings: []MappingFunc{mapShopGroupName},
		},
		Batch: BatchOptions{Mode: BatchDirect},
	}
}

func mapShopGroupName(_ context.Context, _ *Env, rec prestashop.Record) (Values, error) {
	name := rec.String("name")
	if name == "" {
		name = "Undefined"
	}
	return Values{"name": name}, nil
}

func shopComponent() *Component {
	return &Component{
		Model:     connector.ModelShop,
		Resource:  "shops",
		NewRecord: func() any { return &models.ShopModel{} },
		Mapper: &Mapper{
			Direct: []Direct{
				{From: "name", To: "name"},
				{From: "id_shop_group", To: "shop_group_id", Convert: ExternalToM2O(connector.ModelShopGroup)},
			},
			Mappings: []MappingFunc{
				func(_ context.Context, env *Env, _ prestashop.Record) (Values, error) {
					return Values{"warehouse_id": env.Backend.WarehouseID}, nil
				},
			},
		},
		Batch: BatchOptions{Mode: BatchDirect},
	}
}
