package dataset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/period"
)

type memCache struct {
	entries map[string][]byte
	mtimes  map[string]time.Time
	stores  int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}, mtimes: map[string]time.Time{}}
}

func (c *memCache) LoadParsed(_ context.Context, kind Kind, variant, path string, mod time.Time) ([]byte, bool, error) {
	key := string(kind) + ":" + variant + ":" + path
	p, ok := c.entries[key]
	if !ok || !c.mtimes[key].Equal(mod) {
		return nil, false, nil
	}
	return p, true, nil
}

func (c *memCache) StoreParsed(_ context.Context, kind Kind, variant, path string, mod time.Time, payload []byte) error {
	key := string(kind) + ":" + variant + ":" + path
	c.entries[key] = payload
	c.mtimes[key] = mod
	c.stores++
	return nil
}

func source(path string, month int, mod time.Time) catalog.SourceFile {
	return catalog.SourceFile{Period: period.New(2025, month), Path: path, ModTime: mod}
}

func TestRunSkipsFailingFiles(t *testing.T) {
	mod := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	files := []catalog.SourceFile{
		source("/d/2025-01.xlsx", 1, mod),
		source("/d/2025-02.xlsx", 2, mod),
		source("/d/2025-03.xlsx", 3, mod),
	}

	extract := func(src catalog.SourceFile) (FileResult[int], error) {
		switch src.Month {
		case 2:
			return FileResult[int]{}, errors.New("corrupt workbook")
		case 3:
			panic("index out of range")
		}
		return FileResult[int]{
			Records: []int{1, 2},
			Sheets:  []SheetOutcome{{Name: "dane", Records: 2}, {Name: "Arkusz2", Skipped: "too short"}},
		}, nil
	}

	set, err := Run(context.Background(), Layoffs, files, Options{}, extract)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(set.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(set.Records))
	}
	r := set.Report
	if len(r.Files) != 3 || r.FailedFiles() != 2 || r.Records() != 2 {
		t.Fatalf("report files=%d failed=%d records=%d", len(r.Files), r.FailedFiles(), r.Records())
	}
	if !strings.Contains(r.Files[2].Err, ErrExtractPanic.Error()) {
		t.Errorf("panic not reported: %q", r.Files[2].Err)
	}
	if r.RunID == "" || r.Finished.Before(r.Started) {
		t.Error("run id and timing must be set")
	}

	md := r.Markdown()
	for _, want := range []string{"## layoffs", "2025-01.xlsx", "skipped: corrupt workbook", "Arkusz2: skipped, too short"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRunUsesCache(t *testing.T) {
	cache := newMemCache()
	mod := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	files := []catalog.SourceFile{source("/d/2025-01.xlsx", 1, mod)}

	calls := 0
	extract := func(src catalog.SourceFile) (FileResult[string], error) {
		calls++
		return FileResult[string]{Records: []string{"a", "b"}}, nil
	}

	opts := Options{Cache: cache}
	if _, err := Run(context.Background(), Rates, files, opts, extract); err != nil {
		t.Fatal(err)
	}
	set, err := Run(context.Background(), Rates, files, opts, extract)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("extract called %d times, want 1", calls)
	}
	if !set.Report.Files[0].Cached || len(set.Records) != 2 {
		t.Errorf("second run should be served from cache: %+v", set.Report.Files[0])
	}

	files[0].ModTime = mod.Add(time.Hour)
	if _, err := Run(context.Background(), Rates, files, opts, extract); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("modified file should be re-parsed, calls = %d", calls)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	files := []catalog.SourceFile{source("/d/2025-01.xlsx", 1, time.Now())}
	_, err := Run(ctx, Layoffs, files, Options{}, func(catalog.SourceFile) (FileResult[int], error) {
		t.Fatal("extract must not run after cancellation")
		return FileResult[int]{}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEmptyReportMarkdown(t *testing.T) {
	r := &Report{Dataset: Unemployment}
	if !strings.Contains(r.Markdown(), "No files catalogued") {
		t.Error("empty report should say so")
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind("rates"); !ok || k != Rates {
		t.Errorf("ParseKind(rates) = %v, %v", k, ok)
	}
	if _, ok := ParseKind("articles"); ok {
		t.Error("unknown dataset accepted")
	}
}

func TestStockCategory(t *testing.T) {
	r := StockRecord{Categories: map[Category]int{CatRural: 0}}
	if n, ok := r.Category(CatRural); !ok || n != 0 {
		t.Error("zero-valued category must be present")
	}
	if _, ok := r.Category(CatDisabled); ok {
		t.Error("missing category must be absent")
	}
}
