package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wupmaz/labordash/internal/catalog"
)

// FileCache stores parsed records per source file. A stored payload is only
// returned while the source's modification time and the extractor variant
// are unchanged.
type FileCache interface {
	LoadParsed(ctx context.Context, kind Kind, variant, path string, modTime time.Time) ([]byte, bool, error)
	StoreParsed(ctx context.Context, kind Kind, variant, path string, modTime time.Time, payload []byte) error
}

// Options configures a dataset run. The zero value runs without a cache and
// without logging.
type Options struct {
	Cache  FileCache
	Logger *zap.Logger
	// Variant identifies the extractor version and settings. Cached files
	// parsed under another variant are parsed again.
	Variant string
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// FileResult is what an extractor produces for one file.
type FileResult[T any] struct {
	Records []T            `json:"records"`
	Sheets  []SheetOutcome `json:"sheets,omitempty"`
}

// ExtractFunc parses one catalogued file. A returned error skips the file.
type ExtractFunc[T any] func(src catalog.SourceFile) (FileResult[T], error)

// Run extracts every file in order, consulting the cache first, and returns
// the concatenated records with a report. A failing file never aborts the
// run; only context cancellation does.
func Run[T any](ctx context.Context, kind Kind, files []catalog.SourceFile, opts Options, extract ExtractFunc[T]) (Set[T], error) {
	log := opts.logger().With(zap.String("dataset", string(kind)))
	report := &Report{
		Dataset: kind,
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Files:   make([]FileOutcome, 0, len(files)),
	}
	set := Set[T]{Report: report}

	for _, src := range files {
		if err := ctx.Err(); err != nil {
			report.Finished = time.Now()
			return set, err
		}

		outcome := FileOutcome{Path: src.Path, Period: src.Label}
		res, cached, err := runFile(ctx, kind, src, opts, extract)
		if err != nil {
			log.Warn("file skipped",
				zap.String("op", "dataset.Run"),
				zap.String("file", src.Name()),
				zap.Error(err))
			outcome.Err = err.Error()
			report.Files = append(report.Files, outcome)
			continue
		}

		outcome.Cached = cached
		outcome.Records = len(res.Records)
		outcome.Sheets = res.Sheets
		report.Files = append(report.Files, outcome)
		set.Records = append(set.Records, res.Records...)

		log.Debug("file extracted",
			zap.String("op", "dataset.Run"),
			zap.String("file", src.Name()),
			zap.Int("records", len(res.Records)),
			zap.Bool("cached", cached))
	}

	report.Finished = time.Now()
	log.Info("dataset extracted",
		zap.String("op", "dataset.Run"),
		zap.String("run_id", report.RunID),
		zap.Int("files", len(files)),
		zap.Int("records", report.Records()),
		zap.Int("skipped", report.FailedFiles()))
	return set, nil
}

func runFile[T any](ctx context.Context, kind Kind, src catalog.SourceFile, opts Options, extract ExtractFunc[T]) (FileResult[T], bool, error) {
	log := opts.logger()

	if opts.Cache != nil {
		payload, ok, err := opts.Cache.LoadParsed(ctx, kind, opts.Variant, src.Path, src.ModTime)
		switch {
		case err != nil:
			log.Warn("cache read failed", zap.String("op", "dataset.cache"), zap.String("file", src.Name()), zap.Error(err))
		case ok:
			var res FileResult[T]
			if err := json.Unmarshal(payload, &res); err == nil {
				return res, true, nil
			}
			log.Warn("cache entry unreadable", zap.String("op", "dataset.cache"), zap.String("file", src.Name()))
		}
	}

	res, err := safeExtract(src, extract)
	if err != nil {
		return FileResult[T]{}, false, err
	}

	if opts.Cache != nil {
		payload, err := json.Marshal(res)
		if err == nil {
			err = opts.Cache.StoreParsed(ctx, kind, opts.Variant, src.Path, src.ModTime, payload)
		}
		if err != nil {
			log.Warn("cache write failed", zap.String("op", "dataset.cache"), zap.String("file", src.Name()), zap.Error(err))
		}
	}
	return res, false, nil
}

// ErrExtractPanic wraps a panic raised by a malformed workbook inside the
// spreadsheet library.
var ErrExtractPanic = errors.New("extractor panic")

func safeExtract[T any](src catalog.SourceFile, extract ExtractFunc[T]) (res FileResult[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExtractPanic, r)
		}
	}()
	return extract(src)
}
