package engine

// Calculator turns an offer and a market snapshot into a profitability row.
type Calculator struct {
	SalesTaxPercent float64 // deducted from revenue; 0 disables
}

// Compute evaluates offer in regionName. extraCost is the ISK value of the
// offer's non-ISK requirements. ok is false when the snapshot has no usable
// price, in which case no row exists for this pair.
// The caller guarantees offer.PointCost > 0.
func (c Calculator) Compute(offer Offer, regionName string, snap MarketSnapshot, extraCost float64) (ProfitabilityResult, bool) {
	if !snap.HasPriceSignal() {
		return ProfitabilityResult{}, false
	}

	effective := snap.AveragePrice
	if effective <= 0 {
		effective = snap.CurrentBestSell
	}

	keep := 1 - c.SalesTaxPercent/100
	qty := float64(offer.Quantity)
	lp := float64(offer.PointCost)
	costTotal := offer.CurrencyCost + extraCost

	revenue := effective * qty * keep
	profit := revenue - costTotal
	profitCurrent := snap.CurrentBestSell*qty*keep - costTotal

	return ProfitabilityResult{
		TypeID:            offer.TypeID,
		ItemName:          offer.ItemName,
		RegionName:        regionName,
		Quantity:          offer.Quantity,
		PointCost:         offer.PointCost,
		CurrencyCost:      offer.CurrencyCost,
		CurrencyCostTotal: costTotal,
		AveragePrice:      snap.AveragePrice,
		LowestPrice:       snap.LowestPrice,
		CurrentPrice:      snap.CurrentBestSell,
		EffectivePrice:    effective,
		Revenue:           revenue,
		Profit:            profit,
		Ratio:             profit / lp,
		ProfitCurrent:     profitCurrent,
		RatioCurrent:      profitCurrent / lp,
		RecentVolume:      snap.RecentVolume,
	}, true
}

// Compute evaluates an offer without sales tax.
func Compute(offer Offer, regionName string, snap MarketSnapshot, extraCost float64) (ProfitabilityResult, bool) {
	return Calculator{}.Compute(offer, regionName, snap, extraCost)
}
