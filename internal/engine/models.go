package engine

import (
	"context"
	"time"

	"lp-analyzer/internal/esi"
)

// BaseCurrencyTypeID is the pseudo-item ESI uses for ISK in offer requirements.
const BaseCurrencyTypeID int32 = 58

// MarketSource is the subset of the ESI client the pipeline needs.
type MarketSource interface {
	FetchLoyaltyOffers(ctx context.Context, corporationID int32) ([]esi.LoyaltyOffer, error)
	ResolveNames(ctx context.Context, ids []int32) (map[int32]string, error)
	FetchMarketHistory(ctx context.Context, regionID, typeID int32) ([]esi.HistoryEntry, error)
	FetchRegionOrdersByType(ctx context.Context, regionID, typeID int32, orderType string) ([]esi.MarketOrder, error)
}

// RequiredItem is an extra item an offer consumes besides LP and ISK.
type RequiredItem struct {
	TypeID   int32 `json:"type_id"`
	Quantity int64 `json:"quantity"`
}

// Offer is one LP store catalog entry.
type Offer struct {
	OfferID           int32          `json:"offer_id"`
	TypeID            int32          `json:"type_id"`
	ItemName          string         `json:"item_name"`
	PointCost         int64          `json:"lp_cost"`
	CurrencyCost      float64        `json:"isk_cost"`
	Quantity          int64          `json:"quantity"`
	ExtraRequirements []RequiredItem `json:"required_items"`
}

// OfferFromESI converts an ESI offer. A missing quantity means one unit.
func OfferFromESI(o esi.LoyaltyOffer) Offer {
	qty := o.Quantity
	if qty < 1 {
		qty = 1
	}
	var reqs []RequiredItem
	for _, r := range o.RequiredItems {
		reqs = append(reqs, RequiredItem{TypeID: r.TypeID, Quantity: r.Quantity})
	}
	return Offer{
		OfferID:           o.OfferID,
		TypeID:            o.TypeID,
		PointCost:         o.LPCost,
		CurrencyCost:      o.ISKCost,
		Quantity:          qty,
		ExtraRequirements: reqs,
	}
}

// LookupStatus records how one external lookup ended.
type LookupStatus int

const (
	LookupOK     LookupStatus = iota // data received and usable
	LookupEmpty                      // request succeeded but carried no usable data
	LookupFailed                     // request failed; fields hold zero defaults
)

func (s LookupStatus) String() string {
	switch s {
	case LookupOK:
		return "ok"
	case LookupEmpty:
		return "empty"
	case LookupFailed:
		return "failed"
	}
	return "unknown"
}

func (s LookupStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarketSnapshot is the market state of one item in one region at fetch time.
// A zero price means "no usable price signal", never "free".
type MarketSnapshot struct {
	AveragePrice    float64      `json:"average_price"`     // mean daily average over the history window
	LowestPrice     float64      `json:"lowest_price"`      // min daily low over the history window
	CurrentBestSell float64      `json:"current_best_sell"` // cheapest active sell order
	RecentVolume    int64        `json:"recent_volume"`     // units traded over the volume window
	HistoryStatus   LookupStatus `json:"history_status"`
	OrdersStatus    LookupStatus `json:"orders_status"`
	HistoryErr      error        `json:"-"`
	OrdersErr       error        `json:"-"`
}

// HasPriceSignal reports whether either price basis is usable.
func (s MarketSnapshot) HasPriceSignal() bool {
	return s.AveragePrice > 0 || s.CurrentBestSell > 0
}

// ProfitabilityResult is one ranked row: an offer evaluated in one region.
type ProfitabilityResult struct {
	TypeID            int32   `json:"type_id"`
	ItemName          string  `json:"item_name"`
	RegionName        string  `json:"region_name"`
	Quantity          int64   `json:"quantity"`
	PointCost         int64   `json:"lp_cost"`
	CurrencyCost      float64 `json:"isk_cost"`       // offer ISK cost only
	CurrencyCostTotal float64 `json:"isk_cost_total"` // ISK cost plus extra requirement cost
	AveragePrice      float64 `json:"average_price"`
	LowestPrice       float64 `json:"lowest_price"`
	CurrentPrice      float64 `json:"current_price"`
	EffectivePrice    float64 `json:"effective_price"`
	Revenue           float64 `json:"revenue"`
	Profit            float64 `json:"profit"`
	Ratio             float64 `json:"isk_per_lp"`
	ProfitCurrent     float64 `json:"profit_current"`
	RatioCurrent      float64 `json:"isk_per_lp_current"`
	RecentVolume      int64   `json:"recent_volume"`
}

// RegionTable is the ranked view of one region.
type RegionTable struct {
	Name     string                `json:"name"`
	RegionID int32                 `json:"region_id"`
	TopN     int                   `json:"top_n"` // configured table size; Results may be shorter
	Results  []ProfitabilityResult `json:"results"`
}

// Limit is the table size shown in titles. Tables built without a
// configured size report their row count.
func (t RegionTable) Limit() int {
	if t.TopN > 0 {
		return t.TopN
	}
	return len(t.Results)
}

// GlobalTable is one cross-region view.
type GlobalTable struct {
	Spec     ViewSpec              `json:"spec"`
	Eligible int                   `json:"eligible"` // rows after filtering and dedupe, before truncation
	Results  []ProfitabilityResult `json:"results"`
}

// Report is the outcome of one analysis run.
type Report struct {
	ID                 string                `json:"id"`
	CorporationID      int32                 `json:"corporation_id"`
	StartedAt          time.Time             `json:"started_at"`
	FinishedAt         time.Time             `json:"finished_at"`
	OfferCount         int                   `json:"offer_count"`
	EligibleOfferCount int                   `json:"eligible_offer_count"`
	HistoryWindowDays  int                   `json:"history_window_days"`
	VolumeWindowDays   int                   `json:"volume_window_days"`
	Notice             string                `json:"notice,omitempty"`
	Results            []ProfitabilityResult `json:"results"`
	Regions            []RegionTable         `json:"regions"`
	Globals            []GlobalTable         `json:"globals"`
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// TopRatio is the best ISK/LP across all results, 0 when there are none.
func (r *Report) TopRatio() float64 {
	best := 0.0
	for i, res := range r.Results {
		if i == 0 || res.Ratio > best {
			best = res.Ratio
		}
	}
	return best
}
