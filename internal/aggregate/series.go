package aggregate

import (
	"cmp"
	"slices"

	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/period"
)

// Point is one value of a monthly series.
type Point struct {
	period.Period
	Value float64 `json:"value"`
}

// StockKey is the Dedupe key for stock records.
func StockKey(r dataset.StockRecord) (int, string) {
	return r.SortKey, r.Source
}

// RateKey is the Dedupe key for rate records.
func RateKey(r dataset.RateRecord) (int, string) {
	return r.SortKey, r.Source
}

// LatestPeriod returns the highest sort key among records, or false when
// there are none.
func LatestPeriod[T any](recs []T, key func(T) (int, string)) (int, bool) {
	best, ok := 0, false
	for _, r := range recs {
		k, _ := key(r)
		if !ok || k > best {
			best, ok = k, true
		}
	}
	return best, ok
}

// LatestStock returns the records of the latest period at the given level,
// largest stock first. An empty level matches every level.
func LatestStock(recs []dataset.StockRecord, level dataset.Level) []dataset.StockRecord {
	latest, ok := LatestPeriod(recs, StockKey)
	if !ok {
		return nil
	}
	var out []dataset.StockRecord
	for _, r := range recs {
		if r.SortKey == latest && (level == "" || r.Level == level) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b dataset.StockRecord) int { return cmp.Compare(b.Stock, a.Stock) })
	return out
}

// StockSeries returns the stock of one unit per period. Values of files
// sharing a period are summed.
func StockSeries(recs []dataset.StockRecord, unit string) []Point {
	return series(recs, func(r dataset.StockRecord) (period.Period, float64, bool) {
		return r.Period, float64(r.Stock), r.Unit == unit
	}, false)
}

// RateSeries returns the rate of one unit code per period. Files sharing a
// period keep the last value, since rates do not add up.
func RateSeries(recs []dataset.RateRecord, code string) []Point {
	return series(recs, func(r dataset.RateRecord) (period.Period, float64, bool) {
		return r.Period, r.Rate, r.Code == code
	}, true)
}

// LayoffSeries returns the monthly total of a metric.
func LayoffSeries(recs []dataset.LayoffRecord, m Metric) []Point {
	return series(recs, func(r dataset.LayoffRecord) (period.Period, float64, bool) {
		return r.Period, float64(m.of(r)), true
	}, false)
}

func series[T any](recs []T, f func(T) (period.Period, float64, bool), replace bool) []Point {
	byKey := make(map[int]*Point)
	for _, r := range recs {
		p, v, ok := f(r)
		if !ok {
			continue
		}
		pt, seen := byKey[p.SortKey]
		switch {
		case !seen:
			byKey[p.SortKey] = &Point{Period: p, Value: v}
		case replace:
			pt.Value = v
		default:
			pt.Value += v
		}
	}
	out := make([]Point, 0, len(byKey))
	for _, pt := range byKey {
		out = append(out, *pt)
	}
	slices.SortFunc(out, func(a, b Point) int { return cmp.Compare(a.SortKey, b.SortKey) })
	return out
}

// ProvinceRateCode is the Tabl.1a code of the province aggregate.
const ProvinceRateCode = "1400"

// WarsawRateCode is the Tabl.1a code of the capital city.
const WarsawRateCode = "1465"

// RateKPIs are the headline rates of the latest period.
type RateKPIs struct {
	period.Period
	Province *dataset.RateRecord `json:"province,omitempty"`
	Warsaw   *dataset.RateRecord `json:"warsaw,omitempty"`
	Highest  *dataset.RateRecord `json:"highest_district,omitempty"`
	Lowest   *dataset.RateRecord `json:"lowest_district,omitempty"`
}

// LatestRateKPIs picks the province and Warsaw rates and the district
// extremes of the latest period.
func LatestRateKPIs(recs []dataset.RateRecord) (RateKPIs, bool) {
	latest, ok := LatestPeriod(recs, RateKey)
	if !ok {
		return RateKPIs{}, false
	}
	var k RateKPIs
	for i := range recs {
		r := &recs[i]
		if r.SortKey != latest {
			continue
		}
		k.Period = r.Period
		switch r.Code {
		case ProvinceRateCode:
			k.Province = r
		case WarsawRateCode:
			k.Warsaw = r
		}
		if r.Level != dataset.LevelDistrict {
			continue
		}
		if k.Highest == nil || r.Rate > k.Highest.Rate {
			k.Highest = r
		}
		if k.Lowest == nil || r.Rate < k.Lowest.Rate {
			k.Lowest = r
		}
	}
	return k, true
}

// StockKPIs are the headline unemployment figures of the latest period.
type StockKPIs struct {
	period.Period
	Stock         int  `json:"stock"`
	StockFemale   *int `json:"stock_female,omitempty"`
	Registrations *int `json:"registrations,omitempty"`
	Previous      *int `json:"previous_stock,omitempty"`
}

// LatestStockKPIs reports the province stock of the latest period and the
// stock of the period before it.
func LatestStockKPIs(recs []dataset.StockRecord) (StockKPIs, bool) {
	var province []dataset.StockRecord
	for _, r := range recs {
		if r.Level == dataset.LevelProvince {
			province = append(province, r)
		}
	}
	pts := series(province, func(r dataset.StockRecord) (period.Period, float64, bool) {
		return r.Period, float64(r.Stock), true
	}, true)
	if len(pts) == 0 {
		return StockKPIs{}, false
	}

	last := pts[len(pts)-1]
	k := StockKPIs{Period: last.Period, Stock: int(last.Value)}
	for i := len(province) - 1; i >= 0; i-- {
		if province[i].SortKey == last.SortKey {
			k.StockFemale = province[i].StockFemale
			k.Registrations = province[i].Registrations
			break
		}
	}
	if len(pts) > 1 {
		prev := int(pts[len(pts)-2].Value)
		k.Previous = &prev
	}
	return k, true
}
