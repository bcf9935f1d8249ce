// Package export writes datasets as CSV for spreadsheet users.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/wupmaz/labordash/internal/dataset"
)

// bom is the UTF-8 byte-order mark spreadsheet tools use to detect encoding.
var bom = []byte{0xEF, 0xBB, 0xBF}

// Options controls CSV output.
type Options struct {
	BOM bool
}

var (
	layoffHeader = []string{
		"period", "year", "month", "sort_key", "district", "employer",
		"industry_code", "industry_desc", "notified", "modified_terms",
		"laid_off", "monitored", "liquidation", "source",
	}
	stockHeader = append([]string{
		"period", "year", "month", "sort_key", "unit", "sheet", "level",
		"stock", "stock_female", "registrations", "deregistrations", "benefit",
	}, categoryColumns()...)
	rateHeader = []string{
		"period", "year", "month", "sort_key", "code", "name", "level",
		"unemployed_thousands", "rate", "geo_name",
	}
)

func categoryColumns() []string {
	cols := make([]string, len(dataset.Categories))
	for i, c := range dataset.Categories {
		cols[i] = string(c)
	}
	return cols
}

// Layoffs writes layoff records.
func Layoffs(w io.Writer, recs []dataset.LayoffRecord, opts Options) error {
	return write(w, opts, layoffHeader, len(recs), func(i int) []string {
		r := recs[i]
		return append(periodCells(r.Label, r.Year, r.Month, r.SortKey),
			r.District, r.Employer, r.IndustryCode, r.IndustryDesc,
			strconv.Itoa(r.Notified), strconv.Itoa(r.ModifiedTerms),
			strconv.Itoa(r.LaidOff), strconv.Itoa(r.Monitored),
			strconv.FormatBool(r.Liquidation), r.Source,
		)
	})
}

// Stock writes unemployment-stock records. Absent optional values and
// categories are empty cells.
func Stock(w io.Writer, recs []dataset.StockRecord, opts Options) error {
	return write(w, opts, stockHeader, len(recs), func(i int) []string {
		r := recs[i]
		row := append(periodCells(r.Label, r.Year, r.Month, r.SortKey),
			r.Unit, r.Sheet, string(r.Level), strconv.Itoa(r.Stock),
			intCell(r.StockFemale), intCell(r.Registrations),
			intCell(r.Deregistrations), intCell(r.Benefit),
		)
		for _, c := range dataset.Categories {
			if n, ok := r.Category(c); ok {
				row = append(row, strconv.Itoa(n))
			} else {
				row = append(row, "")
			}
		}
		return row
	})
}

// Rates writes unemployment-rate records.
func Rates(w io.Writer, recs []dataset.RateRecord, opts Options) error {
	return write(w, opts, rateHeader, len(recs), func(i int) []string {
		r := recs[i]
		geo := ""
		if r.GeoName != nil {
			geo = *r.GeoName
		}
		return append(periodCells(r.Label, r.Year, r.Month, r.SortKey),
			r.Code, r.Name, string(r.Level), floatCell(r.Thousands),
			strconv.FormatFloat(r.Rate, 'f', -1, 64), geo,
		)
	})
}

func write(w io.Writer, opts Options, header []string, n int, row func(int) []string) error {
	if opts.BOM {
		if _, err := w.Write(bom); err != nil {
			return fmt.Errorf("writing BOM: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func periodCells(label string, year, month, key int) []string {
	return []string{label, strconv.Itoa(year), strconv.Itoa(month), strconv.Itoa(key)}
}

func intCell(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func floatCell(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
