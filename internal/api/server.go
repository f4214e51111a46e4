package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"lp-analyzer/internal/config"
	"lp-analyzer/internal/db"
	"lp-analyzer/internal/engine"
	"lp-analyzer/internal/logger"
	"lp-analyzer/internal/render"
)

// healthChecker is implemented by market sources that can report upstream health.
type healthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// Server is the HTTP server that connects the market source, analysis engine, and database.
type Server struct {
	cfg    *config.Config
	source engine.MarketSource
	db     *db.DB
	html   *render.HTML

	// analyzing guards against overlapping full analyses.
	analyzing atomic.Bool

	// now is overridable in tests.
	now func() time.Time
}

// NewServer creates a Server with the given config, market source, and database.
func NewServer(cfg *config.Config, source engine.MarketSource, database *db.DB) (*Server, error) {
	h, err := render.NewHTML()
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, source: source, db: database, html: h}, nil
}

func (s *Server) analyzer() *engine.Analyzer {
	a := engine.NewAnalyzer(s.source, s.cfg)
	a.Now = s.now
	return a
}

// Handler returns the HTTP handler with all routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /analyze", s.handleAnalyzePage)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/item/summary", s.handleItemSummary)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("GET /api/runs", s.handleGetRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRunByID)
	mux.HandleFunc("GET /api/runs/{id}/results", s.handleGetRunResults)
	mux.HandleFunc("DELETE /api/runs/{id}", s.handleDeleteRun)
	mux.HandleFunc("POST /api/runs/clear", s.handleClearRuns)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// runAnalysis performs one analysis and records it in the run history.
func (s *Server) runAnalysis(ctx context.Context, progress func(string)) (*engine.Report, error) {
	if !s.analyzing.CompareAndSwap(false, true) {
		return nil, errBusy
	}
	defer s.analyzing.Store(false)

	a := s.analyzer()
	a.Progress = progress
	report, err := a.Run(ctx)
	if err != nil {
		logger.Error("API", fmt.Sprintf("Analysis failed: %v", err))
		return nil, err
	}
	logger.Success("API", fmt.Sprintf("Analysis %s: %d rows in %s", report.ID, len(report.Results), report.Duration().Round(time.Millisecond)))

	if s.db != nil {
		if err := s.db.SaveReport(report, s.cfg); err != nil {
			logger.Warn("DB", fmt.Sprintf("Run %s not saved: %v", report.ID, err))
		}
	}
	return report, nil
}

var errBusy = errors.New("an analysis is already running")

// --- Pages ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := render.IndexData{CorporationID: s.cfg.CorporationID, Regions: s.cfg.Regions}
	if s.db != nil {
		data.Runs = s.db.CountRuns()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.html.Index(w, data); err != nil {
		logger.Error("API", err.Error())
	}
}

func (s *Server) handleAnalyzePage(w http.ResponseWriter, r *http.Request) {
	report, err := s.runAnalysis(r.Context(), nil)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, errBusy) {
			code = http.StatusConflict
		}
		w.WriteHeader(code)
		if rerr := s.html.ErrorPage(w, err.Error()); rerr != nil {
			logger.Error("API", rerr.Error())
		}
		return
	}
	if err := s.html.Report(w, report); err != nil {
		logger.Error("API", err.Error())
	}
}

// --- Analysis ---

// handleAnalyze streams progress lines as NDJSON, then the report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzing.Load() {
		writeError(w, http.StatusConflict, errBusy.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	send := func(v interface{}) {
		line, err := json.Marshal(v)
		if err != nil {
			line, _ = json.Marshal(map[string]string{"type": "error", "message": "JSON: " + err.Error()})
		}
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
	}

	report, err := s.runAnalysis(r.Context(), func(msg string) {
		send(map[string]string{"type": "progress", "message": msg})
	})
	if err != nil {
		send(map[string]string{"type": "error", "message": err.Error()})
		return
	}
	send(map[string]interface{}{"type": "result", "data": report, "count": len(report.Results), "run_id": report.ID})
}

type summaryRequest struct {
	ItemID           int32  `json:"item_id"`
	ItemName         string `json:"item_name"`
	SourceRegionName string `json:"source_region_name"`
}

// handleItemSummary renders the order-book and volume summary of one item
// in one configured region as an HTML fragment.
func (s *Server) handleItemSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json")
		return
	}
	if req.ItemID <= 0 {
		writeError(w, 400, "item_id must be positive")
		return
	}
	region, ok := s.cfg.RegionByName(req.SourceRegionName)
	if !ok {
		writeError(w, 400, fmt.Sprintf("unknown region %q", req.SourceRegionName))
		return
	}
	name := req.ItemName
	if name == "" {
		name = engine.ItemLabel(nil, req.ItemID)
	}

	ctx, cancel := summaryContext(r.Context(), s.cfg.OrdersTimeout+s.cfg.HistoryTimeout)
	defer cancel()
	detail := s.analyzer().ItemDetail(ctx, req.ItemID, name, region)

	html, err := s.html.ItemSummary(detail)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, map[string]string{"summary_html": html})
}

// summaryContext bounds the summary lookups by d. A non-positive d means the
// lookups have no per-call limit, so no deadline is set.
func summaryContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// --- Status / config ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result := map[string]interface{}{
		"corporation_id": s.cfg.CorporationID,
		"regions":        len(s.cfg.Regions),
		"analyzing":      s.analyzing.Load(),
	}
	if hc, ok := s.source.(healthChecker); ok {
		result["esi_ok"] = hc.HealthCheck(r.Context())
	}
	if s.db != nil {
		result["runs"] = s.db.CountRuns()
	}
	writeJSON(w, result)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg)
}

// --- Run history ---

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "run history disabled")
		return false
	}
	return true
}

func (s *Server) handleGetRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	writeJSON(w, s.db.GetRuns(limit))
}

func (s *Server) handleGetRunByID(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	record := s.db.GetRunByID(r.PathValue("id"))
	if record == nil {
		writeError(w, 404, "not found")
		return
	}
	writeJSON(w, record)
}

func (s *Server) handleGetRunResults(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id := r.PathValue("id")
	if s.db.GetRunByID(id) == nil {
		writeError(w, 404, "not found")
		return
	}
	writeJSON(w, s.db.GetRunResults(id))
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	if err := s.db.DeleteRun(r.PathValue("id")); err != nil {
		writeError(w, 500, "delete failed: "+err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

func (s *Server) handleClearRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	var req struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json")
		return
	}
	if req.OlderThanDays < 1 {
		writeError(w, 400, "older_than_days must be at least 1")
		return
	}
	n, err := s.db.ClearRuns(req.OlderThanDays)
	if err != nil {
		writeError(w, 500, "clear failed: "+err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"status": "cleared", "deleted": n})
}
