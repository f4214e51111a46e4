// Package render turns analysis reports into console tables and HTML.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"lp-analyzer/internal/engine"
)

const ruleWidth = 220

// ISK formats an amount with thousands separators and no decimals.
func ISK(v float64) string {
	return humanize.FormatFloat("#,###.", v)
}

// Price formats a unit price with two decimals.
func Price(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// Count formats an integer quantity.
func Count(v int64) string {
	return humanize.Comma(v)
}

type column struct {
	title string
	width int
	value func(r engine.ProfitabilityResult) string
}

func columns(volumeDays int, withRegion bool) []column {
	cols := []column{
		{"ISK/LP AVG", 19, func(r engine.ProfitabilityResult) string { return ISK(r.Ratio) }},
		{"ISK/LP CURRENT", 19, func(r engine.ProfitabilityResult) string { return ISK(r.RatioCurrent) }},
		{"Net profit", 18, func(r engine.ProfitabilityResult) string { return ISK(r.Profit) }},
		{"LP cost", 14, func(r engine.ProfitabilityResult) string { return Count(r.PointCost) }},
		{"ISK cost", 14, func(r engine.ProfitabilityResult) string { return ISK(r.CurrencyCostTotal) }},
	}
	if withRegion {
		cols = append(cols, column{"Market", 12, func(r engine.ProfitabilityResult) string { return r.RegionName }})
	}
	return append(cols,
		column{"AVG (30D)", 18, func(r engine.ProfitabilityResult) string { return Price(r.AveragePrice) }},
		column{"LOW (30D)", 18, func(r engine.ProfitabilityResult) string { return Price(r.LowestPrice) }},
		column{"CURRENT", 18, func(r engine.ProfitabilityResult) string { return Price(r.CurrentPrice) }},
		column{fmt.Sprintf("Volume (%dD)", volumeDays), 15, func(r engine.ProfitabilityResult) string { return Count(r.RecentVolume) }},
	)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func writeTable(b *bytes.Buffer, title string, rows []engine.ProfitabilityResult, cols []column) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(b, "\n%s\n  %s\n%s\n", rule, title, rule)

	for _, c := range cols {
		b.WriteString(pad(c.title, c.width))
		b.WriteString(" | ")
	}
	b.WriteString("Item (qty)\n")
	b.WriteString(strings.Repeat("-", ruleWidth))
	b.WriteByte('\n')

	if len(rows) == 0 {
		b.WriteString("  No profitable results.\n")
	}
	for _, r := range rows {
		for _, c := range cols {
			b.WriteString(pad(c.value(r), c.width))
			b.WriteString(" | ")
		}
		fmt.Fprintf(b, "%s (%d)\n", r.ItemName, r.Quantity)
	}
	b.WriteString(rule)
	b.WriteByte('\n')
}

// Console writes the full report as fixed-width tables. The output depends
// only on the report, so rendering the same report twice is byte-identical.
func Console(w io.Writer, report *engine.Report) error {
	var b bytes.Buffer

	fmt.Fprintf(&b, "LP store analysis for corporation %d\n", report.CorporationID)
	fmt.Fprintf(&b, "Offers: %d fetched, %d eligible\n", report.OfferCount, report.EligibleOfferCount)
	if report.Notice != "" {
		fmt.Fprintf(&b, "\n%s\n", report.Notice)
	}

	regional := columns(report.VolumeWindowDays, false)
	for _, rt := range report.Regions {
		title := fmt.Sprintf("TOP %d ISK/LP - MARKET: %s", rt.Limit(), rt.Name)
		writeTable(&b, title, rt.Results, regional)
	}

	global := columns(report.VolumeWindowDays, true)
	for _, gt := range report.Globals {
		title := fmt.Sprintf("%s (showing top %d of %d filtered results)", gt.Spec.Title, len(gt.Results), gt.Eligible)
		writeTable(&b, title, gt.Results, global)
	}

	_, err := w.Write(b.Bytes())
	return err
}
