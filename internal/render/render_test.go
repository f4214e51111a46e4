package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"lp-analyzer/internal/config"
	"lp-analyzer/internal/engine"
)

func sampleReport() *engine.Report {
	booster := engine.ProfitabilityResult{
		TypeID: 100, ItemName: "Navy Booster", RegionName: "Jita", Quantity: 100,
		PointCost: 5000, CurrencyCost: 1_000_000, CurrencyCostTotal: 1_000_000,
		AveragePrice: 15000, LowestPrice: 14000, CurrentPrice: 14000, EffectivePrice: 15000,
		Revenue: 1_500_000, Profit: 500_000, Ratio: 100, ProfitCurrent: 400_000, RatioCurrent: 80,
		RecentVolume: 12345,
	}
	loss := engine.ProfitabilityResult{
		TypeID: 200, ItemName: "ID:200", RegionName: "Dodixie", Quantity: 1,
		PointCost: 1000, CurrencyCostTotal: 2000, CurrentPrice: 1000, EffectivePrice: 1000,
		Revenue: 1000, Profit: -1000, Ratio: -1, ProfitCurrent: -1000, RatioCurrent: -1,
	}
	start := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	return &engine.Report{
		ID:                 "run-1",
		CorporationID:      1000181,
		StartedAt:          start,
		FinishedAt:         start.Add(90 * time.Second),
		OfferCount:         10,
		EligibleOfferCount: 2,
		VolumeWindowDays:   10,
		HistoryWindowDays:  30,
		Results:            []engine.ProfitabilityResult{booster, loss},
		Regions: []engine.RegionTable{
			{Name: "Jita", RegionID: 10000002, TopN: 15, Results: []engine.ProfitabilityResult{booster}},
			{Name: "Dodixie", RegionID: 10000032, TopN: 15, Results: []engine.ProfitabilityResult{}},
		},
		Globals: []engine.GlobalTable{{
			Spec:     engine.ViewSpec{Name: "global_max_ratio", Title: "Top 25 ISK/LP across all markets", SortKey: engine.SortByRatio, TopN: 25},
			Eligible: 1,
			Results:  []engine.ProfitabilityResult{booster},
		}},
	}
}

func TestFormatters(t *testing.T) {
	if got := ISK(1_500_000.4); got != "1,500,000" {
		t.Errorf("ISK = %q, want 1,500,000", got)
	}
	if got := ISK(-1000); got != "-1,000" {
		t.Errorf("ISK(-1000) = %q, want -1,000", got)
	}
	if got := Price(14000.5); got != "14,000.50" {
		t.Errorf("Price = %q, want 14,000.50", got)
	}
	if got := Count(12345); got != "12,345" {
		t.Errorf("Count = %q, want 12,345", got)
	}
}

func TestConsole(t *testing.T) {
	var b bytes.Buffer
	if err := Console(&b, sampleReport()); err != nil {
		t.Fatalf("Console: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"LP store analysis for corporation 1000181",
		"Offers: 10 fetched, 2 eligible",
		"TOP 15 ISK/LP - MARKET: Jita",
		"TOP 15 ISK/LP - MARKET: Dodixie",
		"No profitable results.",
		"Top 25 ISK/LP across all markets (showing top 1 of 1 filtered results)",
		"Volume (10D)",
		"Navy Booster (100)",
		"12,345",
		"15,000.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q", want)
		}
	}
	if !strings.Contains(out, "Market") {
		t.Error("global table should carry a market column")
	}
}

func TestConsole_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	r := sampleReport()
	if err := Console(&a, r); err != nil {
		t.Fatal(err)
	}
	if err := Console(&b, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("rendering the same report twice produced different output")
	}
}

func TestConsole_Notice(t *testing.T) {
	r := &engine.Report{CorporationID: 1, Notice: "No offers that only require LP and ISK were found for corporation 1."}
	var b bytes.Buffer
	if err := Console(&b, r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), r.Notice) {
		t.Error("notice missing from console output")
	}
}

func TestHTML_Report(t *testing.T) {
	h, err := NewHTML()
	if err != nil {
		t.Fatalf("NewHTML: %v", err)
	}
	var b bytes.Buffer
	if err := h.Report(&b, sampleReport()); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"<h2>Top 15 ISK/LP - market: Jita</h2>",
		"Navy Booster (100)",
		`data-item-id="100"`,
		"2025-06-30 12:01:30 UTC",
		"1m30s",
		"/api/item/summary",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report page missing %q", want)
		}
	}

	var again bytes.Buffer
	if err := h.Report(&again, sampleReport()); err != nil {
		t.Fatal(err)
	}
	if again.String() != out {
		t.Error("HTML report not deterministic")
	}
}

func TestHTML_ErrorPage(t *testing.T) {
	h, err := NewHTML()
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err := h.ErrorPage(&b, "LP store offers unavailable: <boom>"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "LP store offers unavailable: &lt;boom&gt;") {
		t.Errorf("error page did not escape message: %s", b.String())
	}
}

func TestHTML_Index(t *testing.T) {
	h, err := NewHTML()
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	err = h.Index(&b, IndexData{
		CorporationID: 1000181,
		Regions:       []config.Region{{Name: "Jita", ID: 10000002}, {Name: "Amarr", ID: 10000043}},
		Runs:          3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "Jita, Amarr") || !strings.Contains(b.String(), `href="/analyze"`) {
		t.Errorf("index page = %s", b.String())
	}
}

func TestHTML_ItemSummary(t *testing.T) {
	h, err := NewHTML()
	if err != nil {
		t.Fatal(err)
	}
	d := engine.ItemDetail{
		TypeID:        100,
		ItemName:      "Navy Booster",
		RegionName:    "Jita",
		BestSell:      &engine.OrderLevel{Price: 14000, VolumeRemain: 5, LocationID: 60003760},
		SellOrders:    1,
		Volumes:       []engine.VolumeWindow{{Days: 1, Volume: 10}, {Days: 30, Volume: 1500}},
		OrdersStatus:  engine.LookupOK,
		HistoryStatus: engine.LookupOK,
	}
	out, err := h.ItemSummary(d)
	if err != nil {
		t.Fatalf("ItemSummary: %v", err)
	}
	for _, want := range []string{"Navy Booster in Jita", "14,000.00", "60003760", "1,500", "orders: ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
	if strings.Contains(out, "<html") {
		t.Error("summary should be a fragment")
	}
}
