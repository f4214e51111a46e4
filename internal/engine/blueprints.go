package engine

import (
	"context"
	"fmt"
	"strings"

	"lp-analyzer/internal/esi"
	"lp-analyzer/internal/logger"
)

// IsBlueprint reports whether an item name denotes a blueprint.
func IsBlueprint(name string) bool {
	return strings.Contains(name, "Blueprint")
}

// BlueprintResale values the blueprint copy offers among offers at the
// highest buy order in regionID, as a proxy for a contract sale. Contract
// sales pay no sales tax. extra[i] is the material cost of offers[i].
// Copies without a buy order have no price and get no row.
func BlueprintResale(ctx context.Context, src MarketSource, offers []Offer, extra []float64, regionName string, regionID int32, topN int) GlobalTable {
	rows := make([]ProfitabilityResult, 0)
	for i, o := range offers {
		if !IsBlueprint(o.ItemName) {
			continue
		}
		orders, err := src.FetchRegionOrdersByType(ctx, regionID, o.TypeID, esi.OrderTypeBuy)
		if err != nil {
			logger.Debug("Blueprints", fmt.Sprintf("%s: buy orders unavailable: %v", o.ItemName, err))
			continue
		}
		best := BestBuyPrice(orders)
		if best <= 0 {
			continue
		}

		costTotal := o.CurrencyCost + extra[i]
		revenue := best * float64(o.Quantity)
		profit := revenue - costTotal
		ratio := profit / float64(o.PointCost)
		rows = append(rows, ProfitabilityResult{
			TypeID:            o.TypeID,
			ItemName:          o.ItemName,
			RegionName:        regionName,
			Quantity:          o.Quantity,
			PointCost:         o.PointCost,
			CurrencyCost:      o.CurrencyCost,
			CurrencyCostTotal: costTotal,
			CurrentPrice:      best,
			EffectivePrice:    best,
			Revenue:           revenue,
			Profit:            profit,
			Ratio:             ratio,
			ProfitCurrent:     profit,
			RatioCurrent:      ratio,
		})
	}

	sortDesc(rows, SortByRatio)
	return GlobalTable{
		Spec: ViewSpec{
			Name:    "blueprint_resale",
			Title:   fmt.Sprintf("Top %d blueprint copy resale offers at best buy in %s", topN, regionName),
			SortKey: SortByRatio,
			TopN:    topN,
		},
		Eligible: len(rows),
		Results:  truncate(rows, topN),
	}
}
