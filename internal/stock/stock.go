// Package stock extracts registered-unemployment counts from the monthly
// MRPiPS-01 workbooks. Per-unit sheets are read positionally; district
// figures come from the long-format "dbf" sheet when it is present.
package stock

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/sheet"
)

// DBFSheet is the name of the long-format district sheet.
const DBFSheet = "dbf"

// ErrNoStock is reported when the end-of-period stock cell is not a number.
var ErrNoStock = errors.New("end-of-period stock not numeric")

// ErrTooShort is reported for sheets below MinRows.
var ErrTooShort = errors.New("sheet too short")

// ignoredSheets are never read as per-unit sheets.
var ignoredSheets = map[string]bool{
	DBFSheet:  true,
	"Arkusz2": true,
}

// Extractor parses unemployment-stock workbooks.
type Extractor struct {
	Logger *zap.Logger
}

// formatVersion changes whenever the records read from a workbook change.
const formatVersion = 1

// Variant names the extractor version for the parse cache.
func (e Extractor) Variant() string {
	return fmt.Sprintf("%s/%d", dataset.Unemployment, formatVersion)
}

// Extract parses every catalogued file.
func (e Extractor) Extract(ctx context.Context, files []catalog.SourceFile, opts dataset.Options) (dataset.Set[dataset.StockRecord], error) {
	if e.Logger == nil {
		e.Logger = opts.Logger
	}
	opts.Variant = e.Variant()
	return dataset.Run(ctx, dataset.Unemployment, files, opts, e.ExtractFile)
}

// ExtractFile parses one workbook. Sheets that fail are skipped and noted.
func (e Extractor) ExtractFile(src catalog.SourceFile) (dataset.FileResult[dataset.StockRecord], error) {
	var res dataset.FileResult[dataset.StockRecord]

	book, err := sheet.Open(src.Path)
	if err != nil {
		return res, err
	}
	defer book.Close()

	var districts []dataset.StockRecord
	if book.HasSheet(DBFSheet) {
		out := dataset.SheetOutcome{Name: DBFSheet}
		g, err := book.Grid(DBFSheet)
		if err == nil {
			var notes []string
			districts, notes, err = DBF(g, src)
			if len(notes) > 0 {
				out.Note = fmt.Sprintf("%d districts without stock", len(notes))
			}
		}
		if err != nil {
			out.Skipped = err.Error()
			e.logger().Warn("dbf sheet skipped",
				zap.String("op", "stock.ExtractFile"),
				zap.String("file", src.Name()),
				zap.Error(err))
		}
		out.Records = len(districts)
		res.Sheets = append(res.Sheets, out)
	}
	superseded := len(districts) > 0

	for _, name := range book.SheetNames() {
		if ignoredSheets[name] {
			continue
		}
		out := dataset.SheetOutcome{Name: name}

		rec, err := e.unitSheet(book, name, src)
		switch {
		case err != nil:
			out.Skipped = err.Error()
		case superseded && rec.Level == dataset.LevelDistrict:
			out.Skipped = "superseded by dbf sheet"
		default:
			out.Records = 1
			res.Records = append(res.Records, rec)
		}
		res.Sheets = append(res.Sheets, out)
	}

	res.Records = append(res.Records, districts...)
	return res, nil
}

func (e Extractor) unitSheet(book *sheet.Book, name string, src catalog.SourceFile) (dataset.StockRecord, error) {
	g, err := book.Grid(name)
	if err != nil {
		return dataset.StockRecord{}, err
	}
	return Unit(g, name, src)
}

func (e Extractor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
