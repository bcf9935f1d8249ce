// Package server serves the local dashboard: an overview page, JSON data
// endpoints, CSV downloads and PNG charts.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/wupmaz/labordash/internal/aggregate"
	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/chart"
	"github.com/wupmaz/labordash/internal/database"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/export"
	"github.com/wupmaz/labordash/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// defaultTop is the ranking length when the request does not set one.
const defaultTop = 10

// History lists persisted run reports. *database.DB implements it.
type History interface {
	LatestRunReports(ctx context.Context) ([]database.RunReport, error)
}

// Server is the HTTP server for the dashboard.
type Server struct {
	pipe    *pipeline.Pipeline
	history History
	logger  *zap.Logger
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// New creates a new Server. history may be nil.
func New(pipe *pipeline.Pipeline, history History, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"thousands": func(n int) string {
			return groupDigits(strconv.Itoa(n))
		},
		"percent": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 1, 64) + "%"
		},
		"deref": func(p *int) string {
			if p == nil {
				return ""
			}
			return groupDigits(strconv.Itoa(*p))
		},
		"when": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page clones the base so it gets its own "title" and "content".
	pageNames := []string{"index.html", "reports.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{pipe: pipe, history: history, logger: logger, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /reports", s.handleReports)
	s.mux.HandleFunc("GET /api/summary/layoffs", s.handleLayoffSummary)
	s.mux.HandleFunc("GET /api/catalog/{dataset}", s.handleCatalog)
	s.mux.HandleFunc("GET /api/{dataset}", s.handleRecords)
	s.mux.HandleFunc("GET /export/{file}", s.handleExport)
	s.mux.HandleFunc("GET /chart/{file}", s.handleChart)
	s.mux.HandleFunc("POST /refresh", s.handleRefresh)
}

// load brings every dataset up to date with its directory. Unchanged
// directories are served from memory.
func (s *Server) load(r *http.Request) *pipeline.Result {
	res := s.pipe.Run(r.Context())
	for _, step := range res.Steps {
		if step.Err != nil {
			s.logger.Warn("dataset step failed",
				zap.String("op", "server.load"),
				zap.String("step", step.Name),
				zap.Error(step.Err))
		}
	}
	return res
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	res := s.load(r)
	p := s.pipe.Policy()

	recs := s.pipe.LayoffRecords()
	data := map[string]any{
		"Steps":   res.Steps,
		"Layoffs": aggregate.SummarizeLayoffs(recs, p, aggregate.LaidOff, defaultTop),
		"Charts":  pipeline.ChartNames,
	}
	if k, ok := aggregate.LatestRateKPIs(s.pipe.RateRecords()); ok {
		data["Rates"] = k
	}
	if k, ok := aggregate.LatestStockKPIs(s.pipe.StockRecords()); ok {
		data["Stock"] = k
	}

	var reports strings.Builder
	for _, rep := range s.pipe.Reports() {
		reports.WriteString(rep.Markdown())
		reports.WriteString("\n")
	}
	data["Reports"] = reports.String()

	s.render(w, "index.html", data)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	var runs []database.RunReport
	if s.history != nil {
		var err error
		if runs, err = s.history.LatestRunReports(r.Context()); err != nil {
			s.logger.Error("listing run reports failed", zap.String("op", "server.handleReports"), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}
	s.render(w, "reports.html", map[string]any{"Runs": runs})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	kind, ok := dataset.ParseKind(r.PathValue("dataset"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.load(r)

	level := dataset.Level(r.URL.Query().Get("level"))
	switch kind {
	case dataset.Layoffs:
		s.writeJSON(w, s.pipe.LayoffRecords())
	case dataset.Unemployment:
		s.writeJSON(w, filterLevel(s.pipe.StockRecords(), level, func(r dataset.StockRecord) dataset.Level { return r.Level }))
	case dataset.Rates:
		recs := filterLevel(s.pipe.RateRecords(), level, func(r dataset.RateRecord) dataset.Level { return r.Level })
		s.writeJSON(w, s.rateRows(recs))
	}
}

// rateRow is a rate record joined to the boundary feature it is drawn on.
type rateRow struct {
	dataset.RateRecord
	GeoID string `json:"geo_id,omitempty"`
}

func (s *Server) rateRows(recs []dataset.RateRecord) []rateRow {
	out := make([]rateRow, len(recs))
	for i, r := range recs {
		out[i].RateRecord = r
		if r.GeoName != nil {
			out[i].GeoID, _ = s.pipe.GeoID(r.Level, *r.GeoName)
		}
	}
	return out
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	kind, ok := dataset.ParseKind(r.PathValue("dataset"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	files := catalog.Build(s.pipe.Config().SourceDir(kind), s.logger)
	if files == nil {
		files = []catalog.SourceFile{}
	}
	s.writeJSON(w, files)
}

func (s *Server) handleLayoffSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, ok := aggregate.ParseMetric(q.Get("metric"))
	if !ok {
		http.Error(w, "unknown metric", http.StatusBadRequest)
		return
	}
	top := defaultTop
	if v := q.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid top", http.StatusBadRequest)
			return
		}
		top = n
	}
	s.load(r)
	s.writeJSON(w, aggregate.SummarizeLayoffs(s.pipe.LayoffRecords(), s.pipe.Policy(), m, top))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".csv")
	kind, known := dataset.ParseKind(name)
	if !ok || !known {
		http.NotFound(w, r)
		return
	}
	s.load(r)

	var buf bytes.Buffer
	opts := export.Options{BOM: s.pipe.Config().Output.CSVBOM}
	if err := s.pipe.Export(&buf, kind, opts); err != nil {
		s.logger.Error("export failed", zap.String("op", "server.handleExport"), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, kind))
	w.Write(buf.Bytes())
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.load(r)

	spec, err := s.pipe.ChartSpec(name, r.URL.Query().Get("key"))
	switch {
	case errors.Is(err, pipeline.ErrUnknownChart):
		http.NotFound(w, r)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := chart.PNG(&buf, spec); err != nil {
		if errors.Is(err, chart.ErrNoData) {
			http.Error(w, "no data", http.StatusNotFound)
			return
		}
		s.logger.Error("chart failed", zap.String("op", "server.handleChart"), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.pipe.Refresh()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("encoding response failed", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("op", "server.render"), zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template failed",
			zap.String("op", "server.render"),
			zap.String("template", name),
			zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func filterLevel[T any](recs []T, level dataset.Level, of func(T) dataset.Level) []T {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		if level == "" || of(r) == level {
			out = append(out, r)
		}
	}
	return out
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// groupDigits inserts a space every three digits, as Polish reports do.
func groupDigits(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Serve starts the HTTP server on addr and stops it when ctx is done.
func Serve(ctx context.Context, addr string, srv *Server, logger *zap.Logger) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("op", "server.Serve"), zap.String("url", "http://"+addr))
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}
