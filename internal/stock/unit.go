package stock

import (
	"fmt"
	"strings"

	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/sheet"
)

// Positional layout of a per-unit sheet.
const (
	MinRows = 20

	colRegistrations   = 8
	colDeregistrations = 10
	colStock           = 12
	colStockFemale     = 13
	colBenefit         = 14
	colCategory        = colStock

	totalLabel       = "Ogółem"
	totalFallbackRow = 15

	provinceSheet = "WOJEWÓDZTWO OGÓŁEM"
)

var (
	totalWindow    = sheet.Window{FirstRow: 10, EndRow: 25, Cols: 1}
	categoryWindow = sheet.Window{FirstRow: 15, EndRow: 50, Cols: 5}
)

// categoryLabels are the row labels searched for each demographic category.
var categoryLabels = map[dataset.Category]string{
	dataset.CatRural:      "Zamieszkali na wsi",
	dataset.CatForeigners: "Cudzoziemcy",
	dataset.CatNoQual:     "bez kwalifikacji",
	dataset.CatUnder30:    "do 30 roku",
	dataset.CatUnder25:    "do 25 roku",
	dataset.CatOver50:     "powyżej 50",
	dataset.CatLongTerm:   "długotrwale",
	dataset.CatDisabled:   "niepełnosprawni",
	dataset.CatDismissed:  "zwolnione z przyczyn dotyczących",
}

// Unit reads one per-unit sheet. The record is rejected when the sheet is
// too short or its stock cell is not numeric.
func Unit(g sheet.Grid, sheetName string, src catalog.SourceFile) (dataset.StockRecord, error) {
	if g.Len() < MinRows {
		return dataset.StockRecord{}, fmt.Errorf("%w: %d rows", ErrTooShort, g.Len())
	}

	label := UnitLabel(g, sheetName)
	total := TotalRow(g)

	stock, ok := g.Int(total, colStock)
	if !ok {
		return dataset.StockRecord{}, fmt.Errorf("%w at row %d", ErrNoStock, total+1)
	}

	rec := dataset.StockRecord{
		Period:          src.Period,
		Source:          src.Path,
		Unit:            sheet.Title(label),
		Sheet:           sheetName,
		Level:           Classify(sheetName, label),
		Stock:           stock,
		StockFemale:     g.IntPtr(total, colStockFemale),
		Registrations:   g.IntPtr(total, colRegistrations),
		Deregistrations: g.IntPtr(total, colDeregistrations),
		Benefit:         g.IntPtr(total, colBenefit),
		Categories:      Categories(g),
	}
	return rec, nil
}

// UnitLabel is the title cell of the sheet, or the sheet name when the title
// is blank or is the reporting-month caption.
func UnitLabel(g sheet.Grid, sheetName string) string {
	label := g.Cell(0, 0)
	if label == "" || strings.HasPrefix(strings.ToLower(label), "za miesiąc") {
		return sheetName
	}
	return label
}

// Classify assigns the administrative level from the sheet name and label.
func Classify(sheetName, label string) dataset.Level {
	if sheetName == provinceSheet {
		return dataset.LevelProvince
	}
	upper := strings.ToUpper(label)
	if strings.Contains(upper, "REGION") && !strings.Contains(upper, "PODREGION") {
		return dataset.LevelRegion
	}
	lower := strings.ToLower(sheetName)
	if strings.Contains(upper, "PODREGION") ||
		strings.HasPrefix(sheetName, "R.") ||
		strings.HasPrefix(lower, "podregion") ||
		strings.HasPrefix(lower, "warszawski") {
		return dataset.LevelSubRegion
	}
	return dataset.LevelDistrict
}

// TotalRow finds the "Ogółem" anchor in the first column, falling back to a
// fixed row. The anchor is case-sensitive: upper-case "OGÓŁEM" headings are
// not totals.
func TotalRow(g sheet.Grid) int {
	if r, ok := sheet.NewLocator(g, totalWindow).LocateExact(totalLabel); ok {
		return r
	}
	return totalFallbackRow
}

// Categories looks up each category label independently. Categories whose label
// is missing, or whose value is not numeric, are left out.
func Categories(g sheet.Grid) map[dataset.Category]int {
	rows := sheet.LocateAll(sheet.NewLocator(g, categoryWindow), categoryLabels)
	out := make(map[dataset.Category]int, len(rows))
	for c, r := range rows {
		if n, ok := g.Int(r, colCategory); ok {
			out[c] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
