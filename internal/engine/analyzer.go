package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lp-analyzer/internal/config"
	"lp-analyzer/internal/logger"
)

// ErrOffersUnavailable means the LP store could not be read; the run has no results.
var ErrOffersUnavailable = errors.New("LP store offers unavailable")

// Analyzer runs the offer → snapshot → profitability → ranking pipeline.
type Analyzer struct {
	Source MarketSource
	Config *config.Config
	Now    func() time.Time

	// Progress, if set, receives human-readable status lines.
	Progress func(string)
}

// NewAnalyzer creates an Analyzer for the given market source and settings.
func NewAnalyzer(src MarketSource, cfg *config.Config) *Analyzer {
	return &Analyzer{Source: src, Config: cfg}
}

func (a *Analyzer) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Analyzer) progress(msg string) {
	logger.Info("Engine", msg)
	if a.Progress != nil {
		a.Progress(msg)
	}
}

// pause waits the configured courtesy delay between lookups.
func (a *Analyzer) pause(ctx context.Context) error {
	d := a.Config.RequestDelay
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run performs one full analysis. It fails only when the LP store itself
// cannot be read (ErrOffersUnavailable) or ctx is cancelled; every other
// lookup failure degrades to zero values. An empty outcome is reported via
// Report.Notice.
func (a *Analyzer) Run(ctx context.Context) (*Report, error) {
	cfg := a.Config
	topKey, err := ParseSortKey(cfg.GlobalSortKey)
	if cfg.GlobalSortKey == "" {
		topKey, err = SortByRatio, nil
	}
	if err != nil {
		return nil, fmt.Errorf("global_sort_key: %w", err)
	}
	report := &Report{
		ID:                uuid.NewString(),
		CorporationID:     cfg.CorporationID,
		StartedAt:         a.now(),
		HistoryWindowDays: cfg.HistoryWindowDays,
		VolumeWindowDays:  cfg.VolumeWindowDays,
		Results:           []ProfitabilityResult{},
		Regions:           []RegionTable{},
		Globals:           []GlobalTable{},
	}
	finish := func() *Report {
		report.FinishedAt = a.now()
		return report
	}

	a.progress(fmt.Sprintf("Fetching LP store offers for corporation %d...", cfg.CorporationID))
	raw, err := a.Source.FetchLoyaltyOffers(ctx, cfg.CorporationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOffersUnavailable, err)
	}
	report.OfferCount = len(raw)

	all := make([]Offer, 0, len(raw))
	for _, o := range raw {
		all = append(all, OfferFromESI(o))
	}
	var offers []Offer
	if cfg.IncludeMaterialOffers {
		offers = FilterOffersWithMaterials(all)
	} else {
		offers = FilterOffers(all)
	}
	report.EligibleOfferCount = len(offers)
	if len(offers) == 0 {
		if cfg.IncludeMaterialOffers {
			report.Notice = fmt.Sprintf("No offers with an LP cost were found for corporation %d.", cfg.CorporationID)
		} else {
			report.Notice = fmt.Sprintf("No offers that only require LP and ISK were found for corporation %d.", cfg.CorporationID)
		}
		return finish(), nil
	}
	a.progress(fmt.Sprintf("%d of %d offers eligible", len(offers), len(raw)))

	ids := make([]int32, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.TypeID)
	}
	names := ResolveNames(ctx, a.Source, ids)
	for i := range offers {
		offers[i].ItemName = ItemLabel(names, offers[i].TypeID)
	}

	extra := make([]float64, len(offers))
	if cfg.IncludeMaterialOffers {
		a.progress("Pricing required materials...")
		costs, priced := materialCosts(ctx, a.Source, offers, cfg.MaterialPriceRegionID)
		offers, extra = keepPriced(offers, costs, priced)
		if dropped := report.EligibleOfferCount - len(offers); dropped > 0 {
			logger.Warn("Materials", fmt.Sprintf("%d offers skipped: a required material has no buy price", dropped))
		}
	}

	results, err := a.evaluate(ctx, offers, extra)
	if err != nil {
		return nil, err
	}
	report.Results = results

	for _, region := range cfg.Regions {
		report.Regions = append(report.Regions, RegionTable{
			Name:     region.Name,
			RegionID: region.ID,
			TopN:     cfg.TopNRegional,
			Results:  RegionView(results, region.Name, cfg.TopNRegional),
		})
	}
	for _, spec := range GlobalViews(topKey, cfg.TopNGlobal, cfg.TopNLiquidity, cfg.MinRatioThresholds) {
		rows, n := RankWithCount(results, spec)
		report.Globals = append(report.Globals, GlobalTable{Spec: spec, Eligible: n, Results: rows})
	}

	blueprints := 0
	if cfg.IncludeBlueprintResale {
		a.progress("Valuing blueprint copies...")
		table := BlueprintResale(ctx, a.Source, offers, extra,
			cfg.RegionName(cfg.MaterialPriceRegionID), cfg.MaterialPriceRegionID, cfg.TopNGlobal)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blueprints = table.Eligible
		report.Globals = append(report.Globals, table)
	}

	if len(results) == 0 && blueprints == 0 {
		report.Notice = "No offer has a usable market price in any configured region."
	}
	return finish(), nil
}

// keepPriced drops the offers whose materials could not be priced.
func keepPriced(offers []Offer, costs []float64, priced []bool) ([]Offer, []float64) {
	keptOffers := make([]Offer, 0, len(offers))
	keptCosts := make([]float64, 0, len(offers))
	for i, o := range offers {
		if priced[i] {
			keptOffers = append(keptOffers, o)
			keptCosts = append(keptCosts, costs[i])
		}
	}
	return keptOffers, keptCosts
}

// evaluate fetches a snapshot for every (region, offer) pair and computes its
// row. Rows come back in region-then-offer order whatever the worker count.
func (a *Analyzer) evaluate(ctx context.Context, offers []Offer, extra []float64) ([]ProfitabilityResult, error) {
	cfg := a.Config
	fetcher := &StatsFetcher{
		Source:      a.Source,
		HistoryDays: cfg.HistoryWindowDays,
		VolumeDays:  cfg.VolumeWindowDays,
		Now:         a.Now,
	}
	calc := Calculator{SalesTaxPercent: cfg.SalesTaxPercent}

	type slot struct {
		result ProfitabilityResult
		ok     bool
	}
	slots := make([]slot, len(cfg.Regions)*len(offers))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	for ri, region := range cfg.Regions {
		a.progress(fmt.Sprintf("Analyzing market %s (region %d)...", region.Name, region.ID))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for oi := range offers {
			g.Go(func() error {
				offer := offers[oi]
				snap := fetcher.FetchSnapshot(gctx, offer.TypeID, region.ID)
				if snap.HistoryStatus == LookupFailed {
					logger.Debug("Engine", fmt.Sprintf("%s/%s: history lookup failed: %v", region.Name, offer.ItemName, snap.HistoryErr))
				}
				if snap.OrdersStatus == LookupFailed {
					logger.Debug("Engine", fmt.Sprintf("%s/%s: order lookup failed: %v", region.Name, offer.ItemName, snap.OrdersErr))
				}
				res, ok := calc.Compute(offer, region.Name, snap, extra[oi])
				slots[ri*len(offers)+oi] = slot{result: res, ok: ok}
				return a.pause(gctx)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := make([]ProfitabilityResult, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.result)
		}
	}
	return out, nil
}
