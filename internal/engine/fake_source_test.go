package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"lp-analyzer/internal/config"
	"lp-analyzer/internal/esi"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// day returns the ESI date string n days before testNow.
func day(n int) string {
	return testNow.AddDate(0, 0, -n).Format("2006-01-02")
}

type marketKey struct {
	region int32
	typeID int32
}

// fakeSource is an in-memory MarketSource.
type fakeSource struct {
	mu sync.Mutex

	offers    []esi.LoyaltyOffer
	offersErr error
	names     map[int32]string
	namesErr  error

	history    map[marketKey][]esi.HistoryEntry
	historyErr map[marketKey]error
	orders     map[marketKey][]esi.MarketOrder
	ordersErr  map[marketKey]error

	historyCalls int
	orderCalls   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		names:      map[int32]string{},
		history:    map[marketKey][]esi.HistoryEntry{},
		historyErr: map[marketKey]error{},
		orders:     map[marketKey][]esi.MarketOrder{},
		ordersErr:  map[marketKey]error{},
	}
}

var errFake = errors.New("fake network failure")

func (f *fakeSource) FetchLoyaltyOffers(ctx context.Context, corporationID int32) ([]esi.LoyaltyOffer, error) {
	if f.offersErr != nil {
		return nil, f.offersErr
	}
	return f.offers, nil
}

func (f *fakeSource) ResolveNames(ctx context.Context, ids []int32) (map[int32]string, error) {
	if f.namesErr != nil {
		return nil, f.namesErr
	}
	out := make(map[int32]string)
	for _, id := range ids {
		if n, ok := f.names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (f *fakeSource) FetchMarketHistory(ctx context.Context, regionID, typeID int32) ([]esi.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	k := marketKey{regionID, typeID}
	if err := f.historyErr[k]; err != nil {
		return nil, err
	}
	return f.history[k], nil
}

func (f *fakeSource) FetchRegionOrdersByType(ctx context.Context, regionID, typeID int32, orderType string) ([]esi.MarketOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls++
	k := marketKey{regionID, typeID}
	if err := f.ordersErr[k]; err != nil {
		return nil, err
	}
	var out []esi.MarketOrder
	for _, o := range f.orders[k] {
		switch {
		case orderType == esi.OrderTypeSell && o.IsBuyOrder:
			continue
		case orderType == esi.OrderTypeBuy && !o.IsBuyOrder:
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// flatHistory returns one record per day for the last n days at a constant price.
func flatHistory(n int, avg, low float64, volume int64) []esi.HistoryEntry {
	var out []esi.HistoryEntry
	for i := 0; i < n; i++ {
		out = append(out, esi.HistoryEntry{Date: day(i), Average: avg, Lowest: low, Highest: avg, Volume: volume})
	}
	return out
}

func sell(price float64) esi.MarketOrder {
	return esi.MarketOrder{Price: price, VolumeRemain: 10}
}

func buy(price float64) esi.MarketOrder {
	return esi.MarketOrder{Price: price, VolumeRemain: 10, IsBuyOrder: true}
}

// testConfig has two regions, no courtesy delay and small top-N values.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Regions = []config.Region{
		{Name: "Jita", ID: 10000002},
		{Name: "Dodixie", ID: 10000032},
	}
	cfg.RequestDelay = 0
	cfg.TopNRegional = 15
	cfg.TopNGlobal = 25
	cfg.TopNLiquidity = 25
	return cfg
}
