package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/wupmaz/labordash/internal/aggregate"
	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/config"
	"github.com/wupmaz/labordash/internal/database"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/layoffs"
	"github.com/wupmaz/labordash/internal/pipeline"
	"github.com/wupmaz/labordash/internal/sheet/sheettest"
)

func writeLayoffs(t *testing.T, dir, name string, employers ...string) {
	t.Helper()
	tpl := layoffs.V3
	rows := sheettest.Blank(7)
	rows[4] = sheettest.Row(12, map[int]any{
		tpl.District: "Powiat", tpl.Employer: "Nazwa zakładu", tpl.IndustryCode: "PKD",
		tpl.ModifiedTerms: "Wypowiedzenia zmieniające", tpl.Liquidation: "Likwidacja",
	})
	for _, e := range employers {
		rows = append(rows, sheettest.Row(12, map[int]any{
			tpl.District: "otwocki", tpl.Employer: e, tpl.IndustryCode: "62.01.Z",
			tpl.Notified: 20, tpl.LaidOff: 10, tpl.Liquidation: "nie",
		}))
	}
	sheettest.Write(t, dir, name, sheettest.Sheet{Name: layoffs.DataSheet, Rows: rows})
}

type fixture struct {
	cfg *config.Config
	db  *database.DB
	srv *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	root := t.TempDir()
	cfg.Data.LayoffsDir = filepath.Join(root, "zwolnienia")
	cfg.Data.UnemploymentDir = filepath.Join(root, "bezrobocie")
	cfg.Data.RatesDir = filepath.Join(root, "stopa")
	for _, d := range []string{cfg.Data.LayoffsDir, cfg.Data.UnemploymentDir, cfg.Data.RatesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeLayoffs(t, cfg.Data.LayoffsDir, "2025-01.xlsx", "ACME Polska", "Fabryka Mebli")
	writeLayoffs(t, cfg.Data.LayoffsDir, "2025-02.xlsx", "ACME Polska")

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pipe, err := pipeline.New(cfg, db, zap.NewNop())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	srv, err := New(pipe, db, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return &fixture{cfg: cfg, db: db, srv: srv}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Labour market", "ACME Polska", "/chart/layoffs.png", "<table>", "2025-01.xlsx"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response body", want)
		}
	}
}

func TestUnknownPath(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, "GET", "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRecordsRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/api/layoffs")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var recs []dataset.LayoffRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("records = %d, want 3", len(recs))
	}

	rec = f.do(t, "GET", "/api/rates?level=district")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("rates = %d %q", rec.Code, rec.Body.String())
	}

	if rec := f.do(t, "GET", "/api/salaries"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown dataset: expected 404, got %d", rec.Code)
	}
}

func TestRatesCarryGeoID(t *testing.T) {
	f := newFixture(t)
	sheettest.Write(t, f.cfg.Data.RatesDir, "2025-01.xlsx",
		sheettest.Sheet{Name: "Tabl.1", Rows: [][]any{
			{"PL21", nil, nil, nil, "MAŁOPOLSKIE", 60.1, 3.9},
			{"PL22", nil, nil, nil, "ŚLĄSKIE", 70.0, 4.2},
		}},
		sheettest.Sheet{Name: "Tabl.1a", Rows: [][]any{
			{"14", "17", "otwocki", 2.1, 3.3},
		}},
	)
	dir := t.TempDir()
	f.cfg.Data.BoundariesFile = filepath.Join(dir, "powiaty.geojson")
	f.cfg.Data.ProvinceBoundariesFile = filepath.Join(dir, "wojewodztwa.geojson")
	writeFile(t, f.cfg.Data.BoundariesFile, `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"nazwa":"powiat otwocki","id":"1417"},"geometry":null}]}`)
	writeFile(t, f.cfg.Data.ProvinceBoundariesFile, `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"nazwa":"małopolskie","id":"12"},"geometry":null}]}`)

	rec := f.do(t, "GET", "/api/rates")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rows []struct {
		Code  string `json:"code"`
		GeoID string `json:"geo_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	ids := map[string]string{}
	for _, r := range rows {
		ids[r.Code] = r.GeoID
	}
	if len(ids) != 3 {
		t.Fatalf("rates = %+v", rows)
	}
	if ids["1417"] != "1417" || ids["PL21"] != "12" {
		t.Errorf("geo ids = %v", ids)
	}
	if ids["PL22"] != "" {
		t.Errorf("unmatched province should carry no id: %q", ids["PL22"])
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCatalogRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/api/catalog/layoffs")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var files []catalog.SourceFile
	if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(files) != 2 || files[0].SortKey != 202501 || files[1].SortKey != 202502 {
		t.Errorf("files = %+v", files)
	}
}

func TestLayoffSummaryRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/api/summary/layoffs?top=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var sum aggregate.LayoffSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if sum.TotalLaidOff != 30 || len(sum.TopEmployers) != 1 || sum.TopEmployers[0].Value != 20 {
		t.Errorf("summary = %+v", sum)
	}

	for _, q := range []string{"?metric=salary", "?top=x", "?top=-1"} {
		if rec := f.do(t, "GET", "/api/summary/layoffs"+q); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestExportRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/export/layoffs.csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "\ufeffperiod,") {
		t.Errorf("expected BOM and header, got %q", body[:min(len(body), 20)])
	}
	if n := strings.Count(body, "\n"); n != 4 {
		t.Errorf("lines = %d, want 4", n)
	}

	for _, target := range []string{"/export/layoffs.xlsx", "/export/other.csv"} {
		if rec := f.do(t, "GET", target); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", target, rec.Code)
		}
	}
}

func TestChartRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/chart/layoffs.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Error("expected a PNG body")
	}

	// No rate files, so the series is empty.
	if rec := f.do(t, "GET", "/chart/rate.png"); rec.Code != http.StatusNotFound {
		t.Errorf("empty series: expected 404, got %d", rec.Code)
	}
	if rec := f.do(t, "GET", "/chart/pie.png"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown chart: expected 404, got %d", rec.Code)
	}
	if rec := f.do(t, "GET", "/chart/layoffs.png?key=salary"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown metric: expected 400, got %d", rec.Code)
	}
}

func TestRefreshRoute(t *testing.T) {
	f := newFixture(t)
	f.do(t, "GET", "/")

	rec := f.do(t, "POST", "/refresh")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("redirect to %q", loc)
	}
	if rec := f.do(t, "GET", "/refresh"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /refresh: expected 405, got %d", rec.Code)
	}

	f.do(t, "GET", "/")
	reports, err := f.db.RunReports(context.Background(), dataset.Layoffs, 10)
	if err != nil {
		t.Fatalf("RunReports: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("stored reports = %d, want 2", len(reports))
	}
}

func TestReportsRoute(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, "GET", "/reports"); !strings.Contains(rec.Body.String(), "No runs recorded yet") {
		t.Error("expected the empty history message")
	}

	f.do(t, "GET", "/")
	rec := f.do(t, "GET", "/reports")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "2025-02.xlsx") {
		t.Error("expected the stored report in the history page")
	}
}

func TestStaticRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/static/style.css")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestGroupDigits(t *testing.T) {
	for in, want := range map[string]string{"7": "7", "1234": "1 234", "1234567": "1 234 567", "-12345": "-12 345"} {
		if got := groupDigits(in); got != want {
			t.Errorf("groupDigits(%q) = %q, want %q", in, got, want)
		}
	}
}
