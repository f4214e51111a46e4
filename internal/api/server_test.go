package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lp-analyzer/internal/config"
	"lp-analyzer/internal/db"
	"lp-analyzer/internal/esi"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

// stubSource serves one LP offer priced in Jita.
type stubSource struct {
	offersErr error
	healthy   bool
}

func (s *stubSource) FetchLoyaltyOffers(ctx context.Context, corporationID int32) ([]esi.LoyaltyOffer, error) {
	if s.offersErr != nil {
		return nil, s.offersErr
	}
	return []esi.LoyaltyOffer{{OfferID: 1, TypeID: 100, Quantity: 100, LPCost: 5000, ISKCost: 1_000_000}}, nil
}

func (s *stubSource) ResolveNames(ctx context.Context, ids []int32) (map[int32]string, error) {
	return map[int32]string{100: "Navy Booster"}, nil
}

func (s *stubSource) FetchMarketHistory(ctx context.Context, regionID, typeID int32) ([]esi.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if regionID != 10000002 {
		return nil, nil
	}
	var out []esi.HistoryEntry
	for i := 0; i < 5; i++ {
		out = append(out, esi.HistoryEntry{
			Date: testNow.AddDate(0, 0, -i).Format("2006-01-02"), Average: 15000, Lowest: 14000, Volume: 7,
		})
	}
	return out, nil
}

func (s *stubSource) FetchRegionOrdersByType(ctx context.Context, regionID, typeID int32, orderType string) ([]esi.MarketOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if regionID != 10000002 {
		return nil, errors.New("boom")
	}
	orders := []esi.MarketOrder{
		{Price: 14000, VolumeRemain: 3, LocationID: 60003760},
		{Price: 13000, VolumeRemain: 9, LocationID: 60003760, IsBuyOrder: true},
	}
	if orderType == esi.OrderTypeSell {
		return orders[:1], nil
	}
	return orders, nil
}

func (s *stubSource) HealthCheck(ctx context.Context) bool { return s.healthy }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Regions = []config.Region{{Name: "Jita", ID: 10000002}, {Name: "Dodixie", ID: 10000032}}
	cfg.RequestDelay = 0
	return cfg
}

func newTestServer(t *testing.T, src *stubSource) *Server {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	srv, err := NewServer(testConfig(), src, database)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.now = func() time.Time { return testNow }
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleGetConfig_ReturnsConfig(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	rec := do(t, srv, http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/config status = %d, want 200", rec.Code)
	}
	var out config.Config
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if out.CorporationID != 1000181 || len(out.Regions) != 2 {
		t.Errorf("config = %+v", out)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, &stubSource{healthy: true})
	rec := do(t, srv, http.MethodGet, "/api/status", "")
	var out map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["esi_ok"] != true || out["analyzing"] != false || out["runs"] != float64(0) {
		t.Errorf("status = %v", out)
	}
}

func TestItemSummary(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	rec := do(t, srv, http.MethodPost, "/api/item/summary",
		`{"item_id":100,"item_name":"Navy Booster","source_region_name":"Jita"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	html, ok := out["summary_html"]
	if !ok {
		t.Fatalf("response has no summary_html: %v", out)
	}
	for _, want := range []string{"Navy Booster in Jita", "14,000.00", "13,000.00", "35"} {
		if !strings.Contains(html, want) {
			t.Errorf("summary_html missing %q", want)
		}
	}
}

func TestItemSummary_ZeroTimeoutsMeanNoLimit(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	srv.cfg.OrdersTimeout = 0
	srv.cfg.HistoryTimeout = 0
	if err := srv.cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	rec := do(t, srv, http.MethodPost, "/api/item/summary",
		`{"item_id":100,"item_name":"Navy Booster","source_region_name":"Jita"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]string
	json.NewDecoder(rec.Body).Decode(&out)
	html := out["summary_html"]
	if !strings.Contains(html, "14,000.00") {
		t.Errorf("summary_html has no sell level: %s", html)
	}
	if strings.Contains(html, "failed") {
		t.Errorf("lookups failed with zero timeouts: %s", html)
	}
}

func TestItemSummary_FailedLookupsStillRender(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	rec := do(t, srv, http.MethodPost, "/api/item/summary", `{"item_id":100,"source_region_name":"Dodixie"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]string
	json.NewDecoder(rec.Body).Decode(&out)
	if !strings.Contains(out["summary_html"], "ID:100 in Dodixie") || !strings.Contains(out["summary_html"], "orders: failed") {
		t.Errorf("summary_html = %s", out["summary_html"])
	}
}

func TestItemSummary_BadRequests(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	cases := map[string]string{
		"malformed":      `{"item_id":`,
		"unknown region": `{"item_id":100,"source_region_name":"Rens"}`,
		"missing item":   `{"source_region_name":"Jita"}`,
	}
	for name, body := range cases {
		rec := do(t, srv, http.MethodPost, "/api/item/summary", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
		var out map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil || out["error"] == "" {
			t.Errorf("%s: expected JSON error, got %q", name, rec.Body.String())
		}
	}
}

func TestAnalyzePage_SavesRun(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	rec := do(t, srv, http.MethodGet, "/analyze", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Navy Booster (100)") {
		t.Errorf("report page missing result row")
	}

	runs := srv.db.GetRuns(10)
	if len(runs) != 1 {
		t.Fatalf("stored runs = %d, want 1", len(runs))
	}
	if runs[0].ResultCount != 1 || runs[0].TopRatio != 100 {
		t.Errorf("run = %+v", runs[0])
	}

	rec = do(t, srv, http.MethodGet, "/api/runs/"+runs[0].ID+"/results", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("results status = %d", rec.Code)
	}
	var rows []map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["item_name"] != "Navy Booster" {
		t.Errorf("rows = %v", rows)
	}
}

func TestAnalyzePage_OffersUnavailable(t *testing.T) {
	srv := newTestServer(t, &stubSource{offersErr: errors.New("ESI 503: down")})
	rec := do(t, srv, http.MethodGet, "/analyze", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "LP store offers unavailable") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if n := srv.db.CountRuns(); n != 0 {
		t.Errorf("failed analysis stored %d runs", n)
	}
}

func TestAnalyze_StreamsNDJSON(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	rec := do(t, srv, http.MethodPost, "/api/analyze", "")
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q", ct)
	}

	var types []string
	var last map[string]interface{}
	sc := bufio.NewScanner(rec.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var msg map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		types = append(types, msg["type"].(string))
		last = msg
	}
	if len(types) < 2 || types[0] != "progress" {
		t.Fatalf("types = %v", types)
	}
	if last["type"] != "result" || last["count"] != float64(1) {
		t.Errorf("final line = %v", last)
	}
}

func TestAnalyze_Busy(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	srv.analyzing.Store(true)
	rec := do(t, srv, http.MethodPost, "/api/analyze", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/analyze", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("page status = %d, want 409", rec.Code)
	}
}

func TestRuns_NotFoundAndDelete(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	if rec := do(t, srv, http.MethodGet, "/api/runs/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET missing run status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/runs/missing/results", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET missing results status = %d, want 404", rec.Code)
	}

	do(t, srv, http.MethodGet, "/analyze", "")
	runs := srv.db.GetRuns(1)
	if len(runs) != 1 {
		t.Fatal("analysis not stored")
	}
	if rec := do(t, srv, http.MethodGet, "/api/runs/"+runs[0].ID, ""); rec.Code != http.StatusOK {
		t.Errorf("GET run status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/runs/"+runs[0].ID, ""); rec.Code != http.StatusOK {
		t.Errorf("DELETE status = %d", rec.Code)
	}
	if srv.db.CountRuns() != 0 {
		t.Error("run not deleted")
	}
}

func TestClearRuns_Validation(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	if rec := do(t, srv, http.MethodPost, "/api/runs/clear", `{"older_than_days":0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	rec := do(t, srv, http.MethodPost, "/api/runs/clear", `{"older_than_days":30}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestIndexAndCORS(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	rec := do(t, srv, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "LP Analyzer") {
		t.Errorf("index status %d body %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
	if rec := do(t, srv, http.MethodOptions, "/api/item/summary", ""); rec.Code != 204 {
		t.Errorf("OPTIONS status = %d, want 204", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestRunsWithoutDB(t *testing.T) {
	srv, err := NewServer(testConfig(), &stubSource{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec := do(t, srv, http.MethodGet, "/api/runs", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
