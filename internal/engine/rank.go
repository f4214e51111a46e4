package engine

import (
	"fmt"
	"sort"
)

// SortKey selects the numeric column a view is ranked by.
type SortKey string

const (
	SortByRatio        SortKey = "ratio"
	SortByVolume       SortKey = "volume"
	SortByCurrentRatio SortKey = "current_ratio"
)

// Value extracts the key's value from r.
func (k SortKey) Value(r ProfitabilityResult) float64 {
	switch k {
	case SortByVolume:
		return float64(r.RecentVolume)
	case SortByCurrentRatio:
		return r.RatioCurrent
	default:
		return r.Ratio
	}
}

// ParseSortKey accepts "ratio", "volume" or "current_ratio".
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortByRatio, SortByVolume, SortByCurrentRatio:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ViewSpec describes one cross-region ranking.
type ViewSpec struct {
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	SortKey      SortKey `json:"sort_key"`
	TopN         int     `json:"top_n"`
	MinRatio     float64 `json:"min_ratio"`     // ISK/LP floor, compared against the average-price ratio
	PositiveOnly bool    `json:"positive_only"` // also drop rows with ISK/LP <= 0
}

// Eligible reports whether r may appear in the view.
func (v ViewSpec) Eligible(r ProfitabilityResult) bool {
	if r.RecentVolume <= 0 || r.Ratio < v.MinRatio {
		return false
	}
	if v.PositiveOnly && r.Ratio <= 0 {
		return false
	}
	return true
}

// dedupeOrdered keeps one row per key, in first-seen key order. A later row
// replaces the kept one only when better says it is strictly better.
func dedupeOrdered(results []ProfitabilityResult, key func(ProfitabilityResult) string, better func(a, b ProfitabilityResult) bool) []ProfitabilityResult {
	idx := make(map[string]int, len(results))
	out := make([]ProfitabilityResult, 0, len(results))
	for _, r := range results {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			idx[k] = len(out)
			out = append(out, r)
			continue
		}
		if better(r, out[i]) {
			out[i] = r
		}
	}
	return out
}

// DedupeBest maps each key to its best row. Ties keep the first row seen.
func DedupeBest(results []ProfitabilityResult, key func(ProfitabilityResult) string, better func(a, b ProfitabilityResult) bool) map[string]ProfitabilityResult {
	kept := dedupeOrdered(results, key, better)
	m := make(map[string]ProfitabilityResult, len(kept))
	for _, r := range kept {
		m[key(r)] = r
	}
	return m
}

// ByItemName is the identity used to merge rows across regions.
func ByItemName(r ProfitabilityResult) string { return r.ItemName }

// sortDesc orders rows by key, highest first, keeping input order on ties.
func sortDesc(results []ProfitabilityResult, key SortKey) {
	sort.SliceStable(results, func(i, j int) bool {
		return key.Value(results[i]) > key.Value(results[j])
	})
}

func truncate(results []ProfitabilityResult, n int) []ProfitabilityResult {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}

// RankWithCount filters, dedupes by item name, sorts and truncates.
// It also returns the number of rows before truncation.
func RankWithCount(results []ProfitabilityResult, spec ViewSpec) ([]ProfitabilityResult, int) {
	eligible := make([]ProfitabilityResult, 0, len(results))
	for _, r := range results {
		if spec.Eligible(r) {
			eligible = append(eligible, r)
		}
	}
	better := func(a, b ProfitabilityResult) bool {
		return spec.SortKey.Value(a) > spec.SortKey.Value(b)
	}
	unique := dedupeOrdered(eligible, ByItemName, better)
	sortDesc(unique, spec.SortKey)
	return truncate(unique, spec.TopN), len(unique)
}

// Rank returns the top rows of a cross-region view.
func Rank(results []ProfitabilityResult, spec ViewSpec) []ProfitabilityResult {
	out, _ := RankWithCount(results, spec)
	return out
}

// RegionView returns the profitable rows of one region, best ISK/LP first.
func RegionView(results []ProfitabilityResult, region string, topN int) []ProfitabilityResult {
	out := make([]ProfitabilityResult, 0)
	for _, r := range results {
		if r.RegionName == region && r.Ratio > 0 {
			out = append(out, r)
		}
	}
	sortDesc(out, SortByRatio)
	return truncate(out, topN)
}

// topTitle names the top-profit view for its sort key.
func topTitle(key SortKey, n int) string {
	switch key {
	case SortByCurrentRatio:
		return fmt.Sprintf("Top %d current ISK/LP across all markets", n)
	case SortByVolume:
		return fmt.Sprintf("Top %d profitable offers by volume across all markets", n)
	}
	return fmt.Sprintf("Top %d ISK/LP across all markets", n)
}

// GlobalViews builds the top-profit view, ranked by topKey, and one
// liquidity view per threshold. An empty topKey ranks by ISK/LP.
func GlobalViews(topKey SortKey, topNGlobal, topNLiquidity int, thresholds []float64) []ViewSpec {
	if topKey == "" {
		topKey = SortByRatio
	}
	views := []ViewSpec{{
		Name:         "global_max_" + string(topKey),
		Title:        topTitle(topKey, topNGlobal),
		SortKey:      topKey,
		TopN:         topNGlobal,
		PositiveOnly: true,
	}}
	for _, th := range thresholds {
		views = append(views, ViewSpec{
			Name:     fmt.Sprintf("liquidity_%.0f", th),
			Title:    fmt.Sprintf("Top %d by volume with ISK/LP >= %.0f", topNLiquidity, th),
			SortKey:  SortByVolume,
			TopN:     topNLiquidity,
			MinRatio: th,
		})
	}
	return views
}
