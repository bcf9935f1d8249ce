// Package dataset holds the canonical records the extractors produce, the
// per-run processing report and the per-file extraction runner they share.
package dataset

import "github.com/wupmaz/labordash/internal/period"

// Kind names one of the three datasets.
type Kind string

const (
	Layoffs      Kind = "layoffs"
	Unemployment Kind = "unemployment"
	Rates        Kind = "rates"
)

// Kinds lists every dataset in display order.
var Kinds = []Kind{Layoffs, Unemployment, Rates}

// ParseKind validates a dataset name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Level is an administrative-level classification.
type Level string

const (
	LevelProvince       Level = "province"
	LevelProvinceSubset Level = "province-subset"
	LevelRegion         Level = "region"
	LevelSubRegion      Level = "sub-region"
	LevelDistrict       Level = "district"
)

// LayoffRecord is one employer's group-layoff notification in one period.
type LayoffRecord struct {
	period.Period
	Source        string `json:"source"`
	District      string `json:"district"`
	Employer      string `json:"employer"`
	IndustryCode  string `json:"industry_code"`
	IndustryDesc  string `json:"industry_desc"`
	Notified      int    `json:"notified"`
	ModifiedTerms int    `json:"modified_terms"`
	LaidOff       int    `json:"laid_off"`
	Monitored     int    `json:"monitored"`
	Liquidation   bool   `json:"liquidation"`
}

// Category is a demographic breakdown of the unemployment stock.
type Category string

const (
	CatRural      Category = "rural"
	CatForeigners Category = "foreigners"
	CatNoQual     Category = "no_qualifications"
	CatUnder30    Category = "under_30"
	CatUnder25    Category = "under_25"
	CatOver50     Category = "over_50"
	CatLongTerm   Category = "long_term"
	CatDisabled   Category = "disabled"
	CatDismissed  Category = "dismissed"
)

// Categories lists every category in export column order.
var Categories = []Category{
	CatRural, CatForeigners, CatNoQual, CatUnder30, CatUnder25,
	CatOver50, CatLongTerm, CatDisabled, CatDismissed,
}

// StockRecord is one unit's registered-unemployment snapshot for one period.
// A missing key in Categories means the category row was not found, which is
// different from a zero count.
type StockRecord struct {
	period.Period
	Source          string           `json:"source"`
	Unit            string           `json:"unit"`
	Sheet           string           `json:"sheet"`
	Level           Level            `json:"level"`
	Stock           int              `json:"stock"`
	StockFemale     *int             `json:"stock_female,omitempty"`
	Registrations   *int             `json:"registrations,omitempty"`
	Deregistrations *int             `json:"deregistrations,omitempty"`
	Benefit         *int             `json:"benefit,omitempty"`
	Categories      map[Category]int `json:"categories,omitempty"`
}

// Category returns the count for c and whether it was present.
func (r StockRecord) Category(c Category) (int, bool) {
	n, ok := r.Categories[c]
	return n, ok
}

// RateRecord is one unit's unemployment rate for one period.
type RateRecord struct {
	period.Period
	Source    string   `json:"source"`
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Level     Level    `json:"level"`
	Thousands *float64 `json:"unemployed_thousands,omitempty"`
	Rate      float64  `json:"rate"`
	GeoName   *string  `json:"geo_name,omitempty"`
}

// Set is the result of one dataset run.
type Set[T any] struct {
	Records []T     `json:"records"`
	Report  *Report `json:"report"`
}
