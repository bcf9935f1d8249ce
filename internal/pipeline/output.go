package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/wupmaz/labordash/internal/aggregate"
	"github.com/wupmaz/labordash/internal/chart"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/export"
)

// Chart names accepted by ChartSpec.
const (
	ChartLayoffs = "layoffs"
	ChartRate    = "rate"
	ChartStock   = "stock"
)

// ChartNames lists the charts in display order.
var ChartNames = []string{ChartLayoffs, ChartStock, ChartRate}

var ErrUnknownChart = errors.New("unknown chart")

// Export writes the current records of kind as CSV.
func (p *Pipeline) Export(w io.Writer, kind dataset.Kind, opts export.Options) error {
	switch kind {
	case dataset.Layoffs:
		return export.Layoffs(w, p.LayoffRecords(), opts)
	case dataset.Unemployment:
		return export.Stock(w, p.StockRecords(), opts)
	case dataset.Rates:
		return export.Rates(w, p.RateRecords(), opts)
	}
	return fmt.Errorf("unknown dataset %q", kind)
}

// ChartSpec builds the series of a named chart. key selects the metric for
// layoffs, the unit code for rate and the unit name for stock; empty keys
// pick the province.
func (p *Pipeline) ChartSpec(name, key string) (chart.Spec, error) {
	switch name {
	case ChartLayoffs:
		m, ok := aggregate.ParseMetric(key)
		if !ok {
			return chart.Spec{}, fmt.Errorf("unknown metric %q", key)
		}
		return chart.Spec{
			Title:  "Group layoffs per month",
			YLabel: string(m),
			Points: aggregate.LayoffSeries(p.LayoffRecords(), m),
		}, nil

	case ChartRate:
		if key == "" {
			key = aggregate.ProvinceRateCode
		}
		recs := p.RateRecords()
		title := "Unemployment rate " + key
		for _, r := range recs {
			if r.Code == key {
				title = "Unemployment rate, " + r.Name
				break
			}
		}
		return chart.Spec{
			Title:  title,
			YLabel: "%",
			Points: aggregate.RateSeries(recs, key),
		}, nil

	case ChartStock:
		recs := p.StockRecords()
		if key == "" {
			for _, r := range recs {
				if r.Level == dataset.LevelProvince {
					key = r.Unit
					break
				}
			}
		}
		return chart.Spec{
			Title:  "Registered unemployed, " + key,
			YLabel: "persons",
			Points: aggregate.StockSeries(recs, key),
		}, nil
	}
	return chart.Spec{}, fmt.Errorf("%w: %q", ErrUnknownChart, name)
}
