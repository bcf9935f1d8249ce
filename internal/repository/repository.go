// Package repository memoizes dataset extraction per input directory. A
// reload re-parses only when the directory's catalog fingerprint changed;
// concurrent reloads of the same state share one extraction.
package repository

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/dataset"
)

// Loader extracts a dataset from a catalog.
type Loader[T any] func(ctx context.Context, files []catalog.SourceFile) (dataset.Set[T], error)

// Repository holds the current state of one dataset. Returned sets are
// shared and must not be modified.
type Repository[T any] struct {
	kind   dataset.Kind
	load   Loader[T]
	memo   Memo
	logger *zap.Logger
	group  singleflight.Group

	mu      sync.RWMutex
	current *dataset.Set[T]
	dir     string
}

// New returns a repository for kind. A nil memo uses a MapMemo.
func New[T any](kind dataset.Kind, load Loader[T], memo Memo, logger *zap.Logger) *Repository[T] {
	if memo == nil {
		memo = NewMapMemo()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository[T]{kind: kind, load: load, memo: memo, logger: logger}
}

// Kind returns the dataset this repository serves.
func (r *Repository[T]) Kind() dataset.Kind {
	return r.kind
}

// Reload returns the dataset for dir, extracting it only when no memoized
// result exists for the directory's current fingerprint.
func (r *Repository[T]) Reload(ctx context.Context, dir string) (dataset.Set[T], error) {
	fp, err := catalog.Fingerprint(dir)
	if err != nil {
		// Unreadable directories still go through the loader so the empty
		// catalog is reported, but are never memoized.
		fp = ""
	}
	key := fmt.Sprintf("%s\x00%s\x00%s", r.kind, dir, fp)

	if fp != "" {
		if v, ok := r.memo.Get(key); ok {
			set := v.(dataset.Set[T])
			r.setCurrent(dir, set)
			r.logger.Debug("dataset served from memo",
				zap.String("op", "repository.Reload"),
				zap.String("dataset", string(r.kind)))
			return set, nil
		}
	}

	v, err, shared := r.group.Do(key, func() (any, error) {
		files := catalog.Build(dir, r.logger)
		set, err := r.load(ctx, files)
		if err != nil {
			return nil, err
		}
		if set.Report != nil {
			set.Report.Dir = dir
		}
		if fp != "" {
			r.memo.Put(key, set)
		}
		return set, nil
	})
	if err != nil {
		return dataset.Set[T]{}, fmt.Errorf("loading %s: %w", r.kind, err)
	}

	set := v.(dataset.Set[T])
	r.setCurrent(dir, set)
	r.logger.Debug("dataset loaded",
		zap.String("op", "repository.Reload"),
		zap.String("dataset", string(r.kind)),
		zap.Bool("shared", shared))
	return set, nil
}

// Get returns the most recently loaded dataset.
func (r *Repository[T]) Get() (dataset.Set[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return dataset.Set[T]{}, false
	}
	return *r.current, true
}

// Dir returns the directory of the current dataset.
func (r *Repository[T]) Dir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir
}

// Invalidate drops the memoized results and the current dataset.
func (r *Repository[T]) Invalidate() {
	r.memo.Clear()
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}

func (r *Repository[T]) setCurrent(dir string, set dataset.Set[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = &set
	r.dir = dir
}
