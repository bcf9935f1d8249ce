package aggregate

import (
	"cmp"
	"slices"

	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/geo"
	"github.com/wupmaz/labordash/internal/period"
	"github.com/wupmaz/labordash/internal/sheet"
)

// Metric selects a layoff count.
type Metric string

const (
	LaidOff       Metric = "laid_off"
	Notified      Metric = "notified"
	ModifiedTerms Metric = "modified_terms"
)

// ParseMetric validates a metric name, defaulting to LaidOff.
func ParseMetric(s string) (Metric, bool) {
	switch Metric(s) {
	case "":
		return LaidOff, true
	case LaidOff, Notified, ModifiedTerms:
		return Metric(s), true
	}
	return "", false
}

func (m Metric) of(r dataset.LayoffRecord) int {
	switch m {
	case Notified:
		return r.Notified
	case ModifiedTerms:
		return r.ModifiedTerms
	}
	return r.LaidOff
}

// LayoffKey is the Dedupe key for layoff records.
func LayoffKey(r dataset.LayoffRecord) (int, string) {
	return r.SortKey, r.Source
}

// MonthTotal sums one period.
type MonthTotal struct {
	period.Period
	Notified      int `json:"notified"`
	ModifiedTerms int `json:"modified_terms"`
	LaidOff       int `json:"laid_off"`
	Monitored     int `json:"monitored"`
	Employers     int `json:"employers"`
	Liquidations  int `json:"liquidations"`
}

// MonthlyTotals sums records per period, ascending.
func MonthlyTotals(recs []dataset.LayoffRecord) []MonthTotal {
	byKey := make(map[int]*MonthTotal)
	for _, r := range recs {
		m, ok := byKey[r.SortKey]
		if !ok {
			m = &MonthTotal{Period: r.Period}
			byKey[r.SortKey] = m
		}
		m.Notified += r.Notified
		m.ModifiedTerms += r.ModifiedTerms
		m.LaidOff += r.LaidOff
		m.Monitored += r.Monitored
		m.Employers++
		if r.Liquidation {
			m.Liquidations++
		}
	}
	out := make([]MonthTotal, 0, len(byKey))
	for _, m := range byKey {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b MonthTotal) int { return cmp.Compare(a.SortKey, b.SortKey) })
	return out
}

// Ranked is one row of a top-N table.
type Ranked struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Value  int    `json:"value"`
}

// industryLabelLen caps the description part of industry labels.
const industryLabelLen = 28

// TopEmployers ranks employers by the metric summed over all periods.
func TopEmployers(recs []dataset.LayoffRecord, m Metric, n int) []Ranked {
	return rank(recs, n, func(r dataset.LayoffRecord) (string, string, string, int) {
		return r.Employer, r.Employer, r.District, m.of(r)
	})
}

// TopIndustries ranks industry codes by the metric.
func TopIndustries(recs []dataset.LayoffRecord, m Metric, n int) []Ranked {
	return rank(recs, n, func(r dataset.LayoffRecord) (string, string, string, int) {
		label := r.IndustryCode + " – " + sheet.Truncate(r.IndustryDesc, industryLabelLen)
		return r.IndustryCode, label, "", m.of(r)
	})
}

// ModifiedTermsEmployers lists employers that issued modified-terms notices.
func ModifiedTermsEmployers(recs []dataset.LayoffRecord) []Ranked {
	var with []dataset.LayoffRecord
	for _, r := range recs {
		if r.ModifiedTerms > 0 {
			with = append(with, r)
		}
	}
	return TopEmployers(with, ModifiedTerms, 0)
}

// rank groups by key, sums values and returns the n largest (all when n <= 0).
// Ties are ordered by label.
func rank(recs []dataset.LayoffRecord, n int, f func(dataset.LayoffRecord) (key, label, detail string, v int)) []Ranked {
	byKey := make(map[string]*Ranked)
	var order []string
	for _, r := range recs {
		key, label, detail, v := f(r)
		if key == "" {
			continue
		}
		e, ok := byKey[key]
		if !ok {
			e = &Ranked{Key: key, Label: label, Detail: detail}
			byKey[key] = e
			order = append(order, key)
		}
		e.Value += v
	}
	out := make([]Ranked, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DistrictTotal sums one district over all periods.
type DistrictTotal struct {
	District  string `json:"district"`
	GeoName   string `json:"geo_name,omitempty"`
	LaidOff   int    `json:"laid_off"`
	Notified  int    `json:"notified"`
	Employers int    `json:"employers"`
}

// ByDistrict sums records per district, largest laid-off count first.
func ByDistrict(recs []dataset.LayoffRecord) []DistrictTotal {
	byName := make(map[string]*DistrictTotal)
	for _, r := range recs {
		d, ok := byName[r.District]
		if !ok {
			d = &DistrictTotal{District: r.District}
			if g, ok := geo.DistrictGeoName(r.District); ok {
				d.GeoName = g
			}
			byName[r.District] = d
		}
		d.LaidOff += r.LaidOff
		d.Notified += r.Notified
		d.Employers++
	}
	out := make([]DistrictTotal, 0, len(byName))
	for _, d := range byName {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b DistrictTotal) int {
		if c := cmp.Compare(b.LaidOff, a.LaidOff); c != 0 {
			return c
		}
		return cmp.Compare(a.District, b.District)
	})
	return out
}

// LayoffSummary is the combined layoffs overview.
type LayoffSummary struct {
	Months         []MonthTotal    `json:"months"`
	TopEmployers   []Ranked        `json:"top_employers"`
	TopIndustries  []Ranked        `json:"top_industries"`
	Districts      []DistrictTotal `json:"districts"`
	ModifiedTerms  []Ranked        `json:"modified_terms"`
	TotalLaidOff   int             `json:"total_laid_off"`
	TotalEmployers int             `json:"total_employers"`
}

// SummarizeLayoffs builds the overview after applying the policy.
func SummarizeLayoffs(recs []dataset.LayoffRecord, p Policy, m Metric, top int) LayoffSummary {
	recs = Dedupe(recs, p, LayoffKey)
	s := LayoffSummary{
		Months:        MonthlyTotals(recs),
		TopEmployers:  TopEmployers(recs, m, top),
		TopIndustries: TopIndustries(recs, m, top),
		Districts:     ByDistrict(recs),
		ModifiedTerms: ModifiedTermsEmployers(recs),
	}
	for _, r := range recs {
		s.TotalLaidOff += r.LaidOff
	}
	s.TotalEmployers = len(recs)
	return s
}
