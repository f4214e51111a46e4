package engine

import (
	"math"
	"time"

	"lp-analyzer/internal/esi"
)

// Upwell structures use location IDs above this; NPC stations sit below it.
const playerStructureLocationIDMin int64 = 1_000_000_000_000

// IsPlayerStructure reports whether a market location is a player-owned structure.
func IsPlayerStructure(locationID int64) bool {
	return locationID > playerStructureLocationIDMin
}

// VWAP is the volume-weighted mean of daily averages over the trailing days.
func VWAP(entries []esi.HistoryEntry, now time.Time, days int) float64 {
	cutoff := windowCutoff(now, days)
	var sumPriceVol, sumVol float64
	for _, e := range entries {
		if !inWindow(e.Date, cutoff) {
			continue
		}
		sumPriceVol += e.Average * float64(e.Volume)
		sumVol += float64(e.Volume)
	}
	if sumVol == 0 {
		return 0
	}
	return sumPriceVol / sumVol
}

// Volatility is the standard deviation of the daily high-low range, in
// percent of the daily average. Fewer than two usable days yield 0.
func Volatility(entries []esi.HistoryEntry, now time.Time, days int) float64 {
	cutoff := windowCutoff(now, days)
	var ranges []float64
	for _, e := range entries {
		if e.Average <= 0 || !inWindow(e.Date, cutoff) {
			continue
		}
		ranges = append(ranges, (e.Highest-e.Lowest)/e.Average*100)
	}
	return stdDev(ranges)
}

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}
