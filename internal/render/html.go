package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"lp-analyzer/internal/config"
	"lp-analyzer/internal/engine"
)

//go:embed templates/*.html
var templatesFS embed.FS

// HTML renders the web pages and fragments from the embedded templates.
type HTML struct {
	tmpl *template.Template
}

var funcMap = template.FuncMap{
	"isk":   ISK,
	"price": Price,
	"count": Count,
	"stamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05 UTC") },
	"table": func(rows []engine.ProfitabilityResult, global bool) tableData {
		return tableData{Rows: rows, Global: global}
	},
}

// tableData feeds the shared "rows" template; Global adds the market column.
type tableData struct {
	Rows   []engine.ProfitabilityResult
	Global bool
}

// NewHTML parses the embedded templates.
func NewHTML() (*HTML, error) {
	t, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &HTML{tmpl: t}, nil
}

// IndexData feeds the landing page.
type IndexData struct {
	CorporationID int32
	Regions       []config.Region
	Runs          int
}

type pageData struct {
	Report *engine.Report
	Error  string
}

func (h *HTML) execute(w io.Writer, name string, data any) error {
	var b bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := w.Write(b.Bytes())
	return err
}

// Index renders the landing page.
func (h *HTML) Index(w io.Writer, data IndexData) error {
	return h.execute(w, "index.html", data)
}

// Report renders a finished analysis.
func (h *HTML) Report(w io.Writer, report *engine.Report) error {
	return h.execute(w, "report.html", pageData{Report: report})
}

// ErrorPage renders the report page with only an error message.
func (h *HTML) ErrorPage(w io.Writer, msg string) error {
	return h.execute(w, "report.html", pageData{Error: msg})
}

// ItemSummary renders the detail fragment embedded by the report page.
func (h *HTML) ItemSummary(d engine.ItemDetail) (string, error) {
	var b bytes.Buffer
	if err := h.execute(&b, "summary.html", d); err != nil {
		return "", err
	}
	return b.String(), nil
}
