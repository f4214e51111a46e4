package engine

import (
	"context"
	"time"

	"lp-analyzer/internal/esi"
)

// HistoryStats aggregates daily history over trailing windows.
type HistoryStats struct {
	AveragePrice float64 // mean of daily averages in the history window
	LowestPrice  float64 // min of daily lows in the history window
	Volume       int64   // summed volume in the volume window
	Days         int     // records inside the history window
}

// windowCutoff is the earliest instant still inside a trailing window of days.
func windowCutoff(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, -days)
}

func inWindow(date string, cutoff time.Time) bool {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	return !d.Before(cutoff)
}

// ComputeHistoryStats aggregates entries dated inside the trailing windows.
// Entries with unparseable dates are ignored. Empty windows yield zeros.
func ComputeHistoryStats(entries []esi.HistoryEntry, now time.Time, historyDays, volumeDays int) HistoryStats {
	histCutoff := windowCutoff(now, historyDays)
	volCutoff := windowCutoff(now, volumeDays)

	var st HistoryStats
	var sum float64
	for _, e := range entries {
		if inWindow(e.Date, histCutoff) {
			sum += e.Average
			if st.Days == 0 || e.Lowest < st.LowestPrice {
				st.LowestPrice = e.Lowest
			}
			st.Days++
		}
		if inWindow(e.Date, volCutoff) {
			st.Volume += e.Volume
		}
	}
	if st.Days > 0 {
		st.AveragePrice = sum / float64(st.Days)
	}
	return st
}

// WindowVolume sums traded volume over the trailing days.
func WindowVolume(entries []esi.HistoryEntry, now time.Time, days int) int64 {
	cutoff := windowCutoff(now, days)
	var vol int64
	for _, e := range entries {
		if inWindow(e.Date, cutoff) {
			vol += e.Volume
		}
	}
	return vol
}

// BestSellPrice is the cheapest active sell order, 0 when there is none.
func BestSellPrice(orders []esi.MarketOrder) float64 {
	best := 0.0
	for _, o := range orders {
		if o.IsBuyOrder || o.Price <= 0 {
			continue
		}
		if best == 0 || o.Price < best {
			best = o.Price
		}
	}
	return best
}

// BestBuyPrice is the highest active buy order, 0 when there is none.
func BestBuyPrice(orders []esi.MarketOrder) float64 {
	best := 0.0
	for _, o := range orders {
		if !o.IsBuyOrder || o.Price <= 0 {
			continue
		}
		if o.Price > best {
			best = o.Price
		}
	}
	return best
}

// StatsFetcher builds market snapshots from two independent lookups.
type StatsFetcher struct {
	Source      MarketSource
	HistoryDays int
	VolumeDays  int
	Now         func() time.Time
}

// FetchSnapshot always returns a snapshot. A failed lookup leaves its fields at zero
// and records the failure in the snapshot's status fields.
func (f *StatsFetcher) FetchSnapshot(ctx context.Context, typeID, regionID int32) MarketSnapshot {
	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}

	var snap MarketSnapshot

	entries, err := f.Source.FetchMarketHistory(ctx, regionID, typeID)
	if err != nil {
		snap.HistoryStatus = LookupFailed
		snap.HistoryErr = err
	} else {
		st := ComputeHistoryStats(entries, now, f.HistoryDays, f.VolumeDays)
		snap.AveragePrice = st.AveragePrice
		snap.LowestPrice = st.LowestPrice
		snap.RecentVolume = st.Volume
		if st.Days == 0 && st.Volume == 0 {
			snap.HistoryStatus = LookupEmpty
		}
	}

	orders, err := f.Source.FetchRegionOrdersByType(ctx, regionID, typeID, esi.OrderTypeSell)
	if err != nil {
		snap.OrdersStatus = LookupFailed
		snap.OrdersErr = err
	} else {
		snap.CurrentBestSell = BestSellPrice(orders)
		if snap.CurrentBestSell == 0 {
			snap.OrdersStatus = LookupEmpty
		}
	}
	return snap
}
