package engine

import (
	"context"
	"sort"

	"lp-analyzer/internal/config"
	"lp-analyzer/internal/esi"
)

// OrderLevel is one order-book entry shown in the item summary.
type OrderLevel struct {
	Price        float64 `json:"price"`
	VolumeRemain int32   `json:"volume_remain"`
	LocationID   int64   `json:"location_id"`
	Structure    bool    `json:"structure"` // player-owned citadel rather than an NPC station
}

// VolumeWindow is traded volume over a trailing number of days.
type VolumeWindow struct {
	Days   int   `json:"days"`
	Volume int64 `json:"volume"`
}

// ItemDetail summarizes the order book and recent volume of one item in one region.
type ItemDetail struct {
	TypeID        int32          `json:"type_id"`
	ItemName      string         `json:"item_name"`
	RegionName    string         `json:"region_name"`
	RegionID      int32          `json:"region_id"`
	BestSell      *OrderLevel    `json:"best_sell,omitempty"`  // cheapest sell
	WorstSell     *OrderLevel    `json:"worst_sell,omitempty"` // most expensive sell
	BestBuy       *OrderLevel    `json:"best_buy,omitempty"`   // highest buy
	WorstBuy      *OrderLevel    `json:"worst_buy,omitempty"`  // lowest buy
	SellOrders    int            `json:"sell_orders"`
	BuyOrders     int            `json:"buy_orders"`
	Volumes       []VolumeWindow `json:"volumes"`
	VWAP          float64        `json:"vwap"`       // over the history window
	Volatility    float64        `json:"volatility"` // % daily range stddev over the history window
	OrdersStatus  LookupStatus   `json:"orders_status"`
	HistoryStatus LookupStatus   `json:"history_status"`
}

// detailWindows lists the volume windows of the summary, shortest first.
func (a *Analyzer) detailWindows() []int {
	set := map[int]bool{1: true, 7: true}
	if a.Config.VolumeWindowDays > 0 {
		set[a.Config.VolumeWindowDays] = true
	}
	if a.Config.HistoryWindowDays > 0 {
		set[a.Config.HistoryWindowDays] = true
	}
	days := make([]int, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

func level(o esi.MarketOrder) *OrderLevel {
	return &OrderLevel{
		Price:        o.Price,
		VolumeRemain: o.VolumeRemain,
		LocationID:   o.LocationID,
		Structure:    IsPlayerStructure(o.LocationID),
	}
}

// SummarizeOrders picks the best and worst entries of each side of the book.
// Orders with a non-positive price are ignored.
func SummarizeOrders(orders []esi.MarketOrder) (bestSell, worstSell, bestBuy, worstBuy *OrderLevel, sells, buys int) {
	for _, o := range orders {
		if o.Price <= 0 {
			continue
		}
		if o.IsBuyOrder {
			buys++
			if bestBuy == nil || o.Price > bestBuy.Price {
				bestBuy = level(o)
			}
			if worstBuy == nil || o.Price < worstBuy.Price {
				worstBuy = level(o)
			}
			continue
		}
		sells++
		if bestSell == nil || o.Price < bestSell.Price {
			bestSell = level(o)
		}
		if worstSell == nil || o.Price > worstSell.Price {
			worstSell = level(o)
		}
	}
	return
}

// ItemDetail fetches the order book and history of one item in region.
// Like snapshots, lookup failures degrade to empty sections.
func (a *Analyzer) ItemDetail(ctx context.Context, typeID int32, itemName string, region config.Region) ItemDetail {
	d := ItemDetail{
		TypeID:     typeID,
		ItemName:   itemName,
		RegionName: region.Name,
		RegionID:   region.ID,
		Volumes:    []VolumeWindow{},
	}

	orders, err := a.Source.FetchRegionOrdersByType(ctx, region.ID, typeID, esi.OrderTypeAll)
	if err != nil {
		d.OrdersStatus = LookupFailed
	} else {
		d.BestSell, d.WorstSell, d.BestBuy, d.WorstBuy, d.SellOrders, d.BuyOrders = SummarizeOrders(orders)
		if d.SellOrders+d.BuyOrders == 0 {
			d.OrdersStatus = LookupEmpty
		}
	}

	entries, err := a.Source.FetchMarketHistory(ctx, region.ID, typeID)
	if err != nil {
		d.HistoryStatus = LookupFailed
		return d
	}
	if len(entries) == 0 {
		d.HistoryStatus = LookupEmpty
	}
	now := a.now()
	for _, days := range a.detailWindows() {
		d.Volumes = append(d.Volumes, VolumeWindow{Days: days, Volume: WindowVolume(entries, now, days)})
	}
	d.VWAP = VWAP(entries, now, a.Config.HistoryWindowDays)
	d.Volatility = Volatility(entries, now, a.Config.HistoryWindowDays)
	return d
}
