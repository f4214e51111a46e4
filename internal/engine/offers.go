package engine

import (
	"context"
	"fmt"

	"lp-analyzer/internal/esi"
	"lp-analyzer/internal/logger"
)

// RequiresMaterial reports whether the offer needs any item other than ISK.
func RequiresMaterial(o Offer) bool {
	for _, r := range o.ExtraRequirements {
		if r.TypeID != BaseCurrencyTypeID {
			return true
		}
	}
	return false
}

// FilterOffers keeps offers that cost LP and need nothing but ISK. Order is preserved.
func FilterOffers(raw []Offer) []Offer {
	out := make([]Offer, 0, len(raw))
	for _, o := range raw {
		if o.PointCost <= 0 {
			continue
		}
		if RequiresMaterial(o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// FilterOffersWithMaterials keeps every offer that costs LP, including those
// that need extra materials. Their material cost is priced separately.
func FilterOffersWithMaterials(raw []Offer) []Offer {
	out := make([]Offer, 0, len(raw))
	for _, o := range raw {
		if o.PointCost > 0 {
			out = append(out, o)
		}
	}
	return out
}

// ResolveNames batch-resolves type names. It never fails: on error the
// returned map is empty and callers fall back to ItemLabel's synthetic label.
func ResolveNames(ctx context.Context, src MarketSource, ids []int32) map[int32]string {
	if len(ids) == 0 {
		return map[int32]string{}
	}
	names, err := src.ResolveNames(ctx, ids)
	if err != nil {
		logger.Warn("Names", fmt.Sprintf("Name resolution failed, using ID labels: %v", err))
		return map[int32]string{}
	}
	if names == nil {
		return map[int32]string{}
	}
	return names
}

// ItemLabel returns the resolved name of id or "ID:<id>".
func ItemLabel(names map[int32]string, id int32) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("ID:%d", id)
}

// materialCosts prices the non-ISK requirements of each offer at the highest
// buy order in regionID; costs[i] and priced[i] belong to offers[i]. An offer
// is unpriced when any of its materials has no buy order or its lookup
// failed: a missing price is no signal, not a free material.
func materialCosts(ctx context.Context, src MarketSource, offers []Offer, regionID int32) (costs []float64, priced []bool) {
	prices := make(map[int32]float64)
	costs = make([]float64, len(offers))
	priced = make([]bool, len(offers))
	for i, o := range offers {
		total := 0.0
		ok := true
		for _, r := range o.ExtraRequirements {
			if r.TypeID == BaseCurrencyTypeID {
				continue
			}
			price, seen := prices[r.TypeID]
			if !seen {
				orders, err := src.FetchRegionOrdersByType(ctx, regionID, r.TypeID, esi.OrderTypeBuy)
				if err != nil {
					logger.Warn("Materials", fmt.Sprintf("type %d: buy orders unavailable: %v", r.TypeID, err))
				}
				price = BestBuyPrice(orders)
				prices[r.TypeID] = price
			}
			if price <= 0 {
				ok = false
				continue
			}
			total += price * float64(r.Quantity)
		}
		costs[i] = total
		priced[i] = ok
	}
	return costs, priced
}
