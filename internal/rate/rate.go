// Package rate extracts unemployment rates from the GUS "Pow" workbooks:
// NUTS units from Tabl.1 and Mazowieckie districts from Tabl.1a.
package rate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/geo"
	"github.com/wupmaz/labordash/internal/sheet"
)

const (
	UnitsSheet     = "Tabl.1"
	DistrictsSheet = "Tabl.1a"
)

// Tabl.1 columns.
const (
	unitCode      = 0
	unitName      = 4
	unitThousands = 5
	unitRate      = 6
)

// Tabl.1a columns.
const (
	distProvince  = 0
	distCode      = 1
	distName      = 2
	distThousands = 3
	distRate      = 4

	provinceAggregate = "00"
)

// macroCode is the NUTS macroregion that equals the province.
const macroCode = "PL9"

// namePrefixes are stripped from Tabl.1 names, longest first.
var namePrefixes = []string{"MAKROREGION ", "PODREGION: ", "REGION: "}

// Extractor parses rate workbooks.
type Extractor struct {
	Logger *zap.Logger
}

// formatVersion changes whenever the records read from a workbook change.
const formatVersion = 1

// Variant names the extractor version for the parse cache.
func (e Extractor) Variant() string {
	return fmt.Sprintf("%s/%d", dataset.Rates, formatVersion)
}

// Extract parses every catalogued file.
func (e Extractor) Extract(ctx context.Context, files []catalog.SourceFile, opts dataset.Options) (dataset.Set[dataset.RateRecord], error) {
	if e.Logger == nil {
		e.Logger = opts.Logger
	}
	opts.Variant = e.Variant()
	return dataset.Run(ctx, dataset.Rates, files, opts, e.ExtractFile)
}

// ExtractFile reads both tables of one workbook. A missing table is noted,
// not an error.
func (e Extractor) ExtractFile(src catalog.SourceFile) (dataset.FileResult[dataset.RateRecord], error) {
	var res dataset.FileResult[dataset.RateRecord]

	book, err := sheet.Open(src.Path)
	if err != nil {
		return res, err
	}
	defer book.Close()

	for _, t := range []struct {
		name  string
		parse func(sheet.Grid, catalog.SourceFile) []dataset.RateRecord
	}{
		{UnitsSheet, Units},
		{DistrictsSheet, Districts},
	} {
		out := dataset.SheetOutcome{Name: t.name}
		if !book.HasSheet(t.name) {
			out.Skipped = "sheet missing"
			res.Sheets = append(res.Sheets, out)
			continue
		}
		g, err := book.Grid(t.name)
		if err != nil {
			out.Skipped = err.Error()
			e.logger().Warn("rate sheet skipped",
				zap.String("op", "rate.ExtractFile"),
				zap.String("file", src.Name()),
				zap.String("sheet", t.name),
				zap.Error(err))
			res.Sheets = append(res.Sheets, out)
			continue
		}
		recs := t.parse(g, src)
		out.Records = len(recs)
		res.Records = append(res.Records, recs...)
		res.Sheets = append(res.Sheets, out)
	}
	return res, nil
}

func (e Extractor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Units reads NUTS-coded rows of Tabl.1.
func Units(g sheet.Grid, src catalog.SourceFile) []dataset.RateRecord {
	var out []dataset.RateRecord
	for r := 0; r < g.Len(); r++ {
		code := strings.ToUpper(g.Cell(r, unitCode))
		if !strings.HasPrefix(code, "PL") {
			continue
		}
		level, ok := ClassifyCode(code)
		if !ok {
			continue
		}
		rate, ok := g.Number(r, unitRate)
		if !ok {
			continue
		}

		rec := dataset.RateRecord{
			Period:    src.Period,
			Source:    src.Path,
			Code:      code,
			Name:      CleanName(g.Cell(r, unitName)),
			Level:     level,
			Thousands: floatPtr(g.Number(r, unitThousands)),
			Rate:      rate,
		}
		if level == dataset.LevelProvince || level == dataset.LevelProvinceSubset {
			if name, ok := geo.ProvinceGeoName(code); ok {
				rec.GeoName = &name
			}
		}
		out = append(out, rec)
	}
	return out
}

// ClassifyCode maps a NUTS code to a level. The two-letter country code and
// codes outside the known shapes are rejected.
func ClassifyCode(code string) (dataset.Level, bool) {
	switch {
	case len(code) == 2:
		return "", false
	case code == macroCode:
		return dataset.LevelProvinceSubset, true
	case strings.HasPrefix(code, macroCode) && len(code) == 4:
		return dataset.LevelRegion, true
	case strings.HasPrefix(code, macroCode) && len(code) == 5:
		return dataset.LevelSubRegion, true
	case len(code) == 4:
		return dataset.LevelProvince, true
	}
	return "", false
}

// CleanName strips the unit-type prefix and title-cases the remainder.
func CleanName(name string) string {
	n := strings.TrimSpace(name)
	for _, p := range namePrefixes {
		if strings.HasPrefix(strings.ToUpper(n), p) {
			n = n[len(p):]
			break
		}
	}
	return sheet.Title(strings.TrimSpace(n))
}

// Districts reads the province's rows of Tabl.1a.
func Districts(g sheet.Grid, src catalog.SourceFile) []dataset.RateRecord {
	var out []dataset.RateRecord
	for r := 0; r < g.Len(); r++ {
		if normalizeCode(g.Cell(r, distProvince)) != geo.ProvinceCode {
			continue
		}
		rate, ok := g.Number(r, distRate)
		if !ok {
			continue
		}

		sub := normalizeCode(g.Cell(r, distCode))
		name := strings.ToLower(g.Cell(r, distName))
		rec := dataset.RateRecord{
			Period:    src.Period,
			Source:    src.Path,
			Code:      geo.ProvinceCode + sub,
			Name:      sheet.Title(name),
			Level:     dataset.LevelDistrict,
			Thousands: floatPtr(g.Number(r, distThousands)),
			Rate:      rate,
		}
		if sub == provinceAggregate {
			rec.Level = dataset.LevelProvince
			n := geo.ProvinceName
			rec.GeoName = &n
		} else if gn, ok := geo.DistrictGeoName(name); ok {
			rec.GeoName = &gn
		}
		out = append(out, rec)
	}
	return out
}

// normalizeCode zero-pads numeric codes to two digits, so a cell stored as
// the number 14 or 1 matches "14" and "01".
func normalizeCode(s string) string {
	if n, ok := sheet.ParseNumber(s); ok && n >= 0 && n < 100 && n == float64(int(n)) {
		return twoDigits(int(n))
	}
	return s
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func floatPtr(f float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &f
}
