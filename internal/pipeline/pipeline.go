package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wupmaz/labordash/internal/aggregate"
	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/config"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/geo"
	"github.com/wupmaz/labordash/internal/layoffs"
	"github.com/wupmaz/labordash/internal/rate"
	"github.com/wupmaz/labordash/internal/repository"
	"github.com/wupmaz/labordash/internal/stock"
)

// Store persists parsed files and run reports. *database.DB implements it.
type Store interface {
	dataset.FileCache
	InsertRunReport(ctx context.Context, r *dataset.Report) (int64, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Started  time.Time
	Finished time.Time
	Steps    []StepResult
	// Err is the first step failure, if any.
	Err error
}

// Failed reports whether any step failed.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline loads the three datasets from their configured directories.
type Pipeline struct {
	cfg    *config.Config
	store  Store
	logger *zap.Logger
	policy aggregate.Policy

	Layoffs      *repository.Repository[dataset.LayoffRecord]
	Unemployment *repository.Repository[dataset.StockRecord]
	Rates        *repository.Repository[dataset.RateRecord]

	mu        sync.Mutex
	persisted map[dataset.Kind]string
	districts *geo.Boundaries
	provinces *geo.Boundaries
}

// New creates a pipeline. store may be nil, which disables the on-disk
// cache and report history.
func New(cfg *config.Config, store Store, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy, err := aggregate.ParsePolicy(cfg.Extraction.DuplicatePeriods)
	if err != nil {
		return nil, err
	}

	opts := dataset.Options{Logger: logger}
	if cfg.Cache.Disk && store != nil {
		opts.Cache = store
	}
	memo := repository.NewMapMemo()

	lx := layoffs.Extractor{Strict: cfg.Extraction.StrictTemplates, Logger: logger}
	sx := stock.Extractor{Logger: logger}
	rx := rate.Extractor{Logger: logger}

	return &Pipeline{
		cfg:    cfg,
		store:  store,
		logger: logger,
		policy: policy,
		Layoffs: repository.New(dataset.Layoffs, func(ctx context.Context, files []catalog.SourceFile) (dataset.Set[dataset.LayoffRecord], error) {
			return lx.Extract(ctx, files, opts)
		}, memo, logger),
		Unemployment: repository.New(dataset.Unemployment, func(ctx context.Context, files []catalog.SourceFile) (dataset.Set[dataset.StockRecord], error) {
			return sx.Extract(ctx, files, opts)
		}, memo, logger),
		Rates: repository.New(dataset.Rates, func(ctx context.Context, files []catalog.SourceFile) (dataset.Set[dataset.RateRecord], error) {
			return rx.Extract(ctx, files, opts)
		}, memo, logger),
		persisted: make(map[dataset.Kind]string),
	}, nil
}

// Policy returns the configured duplicate-period policy.
func (p *Pipeline) Policy() aggregate.Policy {
	return p.policy
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Run loads every dataset concurrently, then checks boundary coverage for
// each configured boundary file. A failed step does not stop the others.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{Started: time.Now()}
	r.Steps = make([]StepResult, 3)

	var g errgroup.Group
	g.Go(func() error {
		r.Steps[0] = runStep(ctx, p, "Layoffs", p.Layoffs)
		return r.Steps[0].Err
	})
	g.Go(func() error {
		r.Steps[1] = runStep(ctx, p, "Unemployment", p.Unemployment)
		return r.Steps[1].Err
	})
	g.Go(func() error {
		r.Steps[2] = runStep(ctx, p, "Rates", p.Rates)
		return r.Steps[2].Err
	})
	if err := g.Wait(); err != nil {
		r.Err = err
		p.logger.Warn("dataset step failed", zap.String("op", "pipeline.Run"), zap.Error(err))
	}

	if path := p.cfg.Data.BoundariesFile; path != "" {
		step, b := p.checkBoundaries("Boundaries", path, p.districtNames())
		p.setBoundaries(&p.districts, b)
		r.Steps = append(r.Steps, step)
	}
	if path := p.cfg.Data.ProvinceBoundariesFile; path != "" {
		step, b := p.checkBoundaries("Province boundaries", path, geo.ProvinceGeoNames())
		p.setBoundaries(&p.provinces, b)
		r.Steps = append(r.Steps, step)
	}
	if r.Err == nil {
		for _, s := range r.Steps {
			if s.Err != nil {
				r.Err = s.Err
				break
			}
		}
	}
	r.Finished = time.Now()
	return r
}

// Refresh drops every memoized dataset so the next Run re-reads the
// directories.
func (p *Pipeline) Refresh() {
	p.Layoffs.Invalidate()
	p.Unemployment.Invalidate()
	p.Rates.Invalidate()
	p.logger.Info("datasets invalidated", zap.String("op", "pipeline.Refresh"))
}

func runStep[T any](ctx context.Context, p *Pipeline, name string, repo *repository.Repository[T]) StepResult {
	dir := p.cfg.SourceDir(repo.Kind())
	p.logger.Info("loading dataset",
		zap.String("op", "pipeline.Run"),
		zap.String("dataset", string(repo.Kind())),
		zap.String("dir", dir))

	set, err := repo.Reload(ctx, dir)
	if err != nil {
		return StepResult{Name: name, Err: err}
	}
	if set.Report == nil {
		return StepResult{Name: name, Summary: fmt.Sprintf("%d records", len(set.Records))}
	}
	p.persist(ctx, set.Report)
	return StepResult{Name: name, Summary: set.Report.Summary()}
}

// persist stores a report once per run id; memoized reloads return the same
// report and are not stored again.
func (p *Pipeline) persist(ctx context.Context, rep *dataset.Report) {
	if p.store == nil {
		return
	}
	p.mu.Lock()
	done := p.persisted[rep.Dataset] == rep.RunID
	if !done {
		p.persisted[rep.Dataset] = rep.RunID
	}
	p.mu.Unlock()
	if done {
		return
	}
	if _, err := p.store.InsertRunReport(ctx, rep); err != nil {
		p.logger.Warn("storing run report failed",
			zap.String("op", "pipeline.persist"),
			zap.String("dataset", string(rep.Dataset)),
			zap.Error(err))
	}
}

// districtNames lists the district boundary names the loaded rates can
// produce, on top of the static district table.
func (p *Pipeline) districtNames() []string {
	names := geo.DistrictGeoNames()
	if set, ok := p.Rates.Get(); ok {
		for _, r := range set.Records {
			if r.GeoName != nil && r.Level == dataset.LevelDistrict {
				names = append(names, *r.GeoName)
			}
		}
	}
	return names
}

// checkBoundaries loads a boundary file and reports which of names it does
// not cover. The boundaries are nil when the file cannot be read.
func (p *Pipeline) checkBoundaries(step, path string, names []string) (StepResult, *geo.Boundaries) {
	b, err := geo.LoadBoundaries(path)
	if err != nil {
		return StepResult{Name: step, Err: err}, nil
	}
	missing := b.Coverage(names)
	if len(missing) > 0 {
		p.logger.Warn("boundary names without a feature",
			zap.String("op", "pipeline.checkBoundaries"),
			zap.String("file", path),
			zap.Strings("names", missing))
	}
	return StepResult{
		Name:    step,
		Summary: fmt.Sprintf("%d features, %d names unmatched", b.Len(), len(missing)),
	}, b
}

func (p *Pipeline) setBoundaries(dst **geo.Boundaries, b *geo.Boundaries) {
	p.mu.Lock()
	*dst = b
	p.mu.Unlock()
}

// GeoID resolves a record's boundary name to the feature id of the matching
// boundary file: the province file for province-level records, the district
// file otherwise. It reports false until Run has loaded that file.
func (p *Pipeline) GeoID(level dataset.Level, geoName string) (string, bool) {
	p.mu.Lock()
	b := p.districts
	if level == dataset.LevelProvince || level == dataset.LevelProvinceSubset {
		b = p.provinces
	}
	p.mu.Unlock()
	return b.ID(geoName)
}

// LayoffRecords returns the current layoff records with the duplicate policy
// applied.
func (p *Pipeline) LayoffRecords() []dataset.LayoffRecord {
	set, _ := p.Layoffs.Get()
	return aggregate.Dedupe(set.Records, p.policy, aggregate.LayoffKey)
}

// StockRecords returns the current unemployment-stock records with the
// duplicate policy applied.
func (p *Pipeline) StockRecords() []dataset.StockRecord {
	set, _ := p.Unemployment.Get()
	return aggregate.Dedupe(set.Records, p.policy, aggregate.StockKey)
}

// RateRecords returns the current rate records with the duplicate policy
// applied.
func (p *Pipeline) RateRecords() []dataset.RateRecord {
	set, _ := p.Rates.Get()
	return aggregate.Dedupe(set.Records, p.policy, aggregate.RateKey)
}

// Reports returns the processing reports of the currently loaded datasets.
func (p *Pipeline) Reports() []*dataset.Report {
	var out []*dataset.Report
	if s, ok := p.Layoffs.Get(); ok && s.Report != nil {
		out = append(out, s.Report)
	}
	if s, ok := p.Unemployment.Get(); ok && s.Report != nil {
		out = append(out, s.Report)
	}
	if s, ok := p.Rates.Get(); ok && s.Report != nil {
		out = append(out, s.Report)
	}
	return out
}
