package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/dataset"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func countingLoader(calls *atomic.Int32) Loader[string] {
	return func(_ context.Context, files []catalog.SourceFile) (dataset.Set[string], error) {
		calls.Add(1)
		set := dataset.Set[string]{Report: &dataset.Report{Dataset: dataset.Layoffs}}
		for _, f := range files {
			set.Records = append(set.Records, f.Name())
		}
		return set, nil
	}
}

func TestReloadMemoizes(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	touch(t, filepath.Join(dir, "2025-01.xlsx"), base)

	var calls atomic.Int32
	repo := New(dataset.Layoffs, countingLoader(&calls), nil, nil)
	ctx := context.Background()

	if _, ok := repo.Get(); ok {
		t.Fatal("Get before Reload should report no data")
	}

	set, err := repo.Reload(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Records) != 1 || set.Report.Dir != dir {
		t.Fatalf("set = %+v", set)
	}
	if _, err := repo.Reload(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("unchanged directory re-parsed: %d calls", calls.Load())
	}

	touch(t, filepath.Join(dir, "2025-01.xlsx"), base.Add(time.Minute))
	if _, err := repo.Reload(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("touched file should force a re-parse: %d calls", calls.Load())
	}

	touch(t, filepath.Join(dir, "2025-02.xlsx"), base)
	set, _ = repo.Reload(ctx, dir)
	if calls.Load() != 3 || len(set.Records) != 2 {
		t.Errorf("new file should force a re-parse: calls=%d records=%d", calls.Load(), len(set.Records))
	}

	got, ok := repo.Get()
	if !ok || len(got.Records) != 2 || repo.Dir() != dir {
		t.Errorf("Get = %+v, %v", got, ok)
	}
}

func TestInvalidate(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "2025-01.xlsx"), time.Now().Add(-time.Hour))

	var calls atomic.Int32
	memo := NewMapMemo()
	repo := New(dataset.Layoffs, countingLoader(&calls), memo, nil)
	ctx := context.Background()

	repo.Reload(ctx, dir)
	if memo.Len() != 1 {
		t.Fatalf("memo entries = %d", memo.Len())
	}
	repo.Invalidate()
	if _, ok := repo.Get(); ok || memo.Len() != 0 {
		t.Error("Invalidate should clear current state and memo")
	}
	repo.Reload(ctx, dir)
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestReloadConcurrentCallersShareWork(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "2025-01.xlsx"), time.Now().Add(-time.Hour))

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(_ context.Context, files []catalog.SourceFile) (dataset.Set[string], error) {
		calls.Add(1)
		<-release
		return dataset.Set[string]{Records: []string{"a"}}, nil
	}
	repo := New(dataset.Rates, load, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Reload(context.Background(), dir); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("loader ran %d times, want 1", calls.Load())
	}
}

func TestReloadMissingDirNotMemoized(t *testing.T) {
	var calls atomic.Int32
	repo := New(dataset.Unemployment, countingLoader(&calls), nil, nil)
	dir := filepath.Join(t.TempDir(), "missing")

	for i := 0; i < 2; i++ {
		set, err := repo.Reload(context.Background(), dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(set.Records) != 0 {
			t.Errorf("records = %v", set.Records)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("missing directory should not be memoized: %d calls", calls.Load())
	}
}

func TestReloadError(t *testing.T) {
	boom := errors.New("boom")
	repo := New(dataset.Rates, func(context.Context, []catalog.SourceFile) (dataset.Set[int], error) {
		return dataset.Set[int]{}, boom
	}, nil, nil)
	if _, err := repo.Reload(context.Background(), t.TempDir()); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if _, ok := repo.Get(); ok {
		t.Error("failed reload must not set current data")
	}
}
