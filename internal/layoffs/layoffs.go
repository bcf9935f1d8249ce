// Package layoffs extracts group-layoff notifications from the monthly
// layoffs workbooks.
package layoffs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/industry"
	"github.com/wupmaz/labordash/internal/sheet"
)

// DataSheet is the preferred sheet name; the first sheet is used otherwise.
const DataSheet = "dane"

// MaxEmployerLen caps employer names, in runes.
const MaxEmployerLen = 70

// ErrUnknownTemplate is returned in strict mode when no template fingerprint
// matches the header block.
var ErrUnknownTemplate = errors.New("unrecognized layoffs template")

// ErrNoSheets is returned for a workbook without any sheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// sentinels mark subtotal and heading rows in the district column.
var sentinels = []string{"powiat", "suma", "ogółem", "razem"}

// Extractor parses layoffs workbooks.
type Extractor struct {
	// Strict skips files whose header matches no known template instead of
	// assuming the current layout.
	Strict bool
	Logger *zap.Logger
}

// formatVersion changes whenever the records read from a workbook change.
const formatVersion = 1

// Variant names the extractor version and template mode for the parse cache.
func (e Extractor) Variant() string {
	return fmt.Sprintf("layoffs/%d strict=%t", formatVersion, e.Strict)
}

// Extract parses every catalogued file.
func (e Extractor) Extract(ctx context.Context, files []catalog.SourceFile, opts dataset.Options) (dataset.Set[dataset.LayoffRecord], error) {
	if e.Logger == nil {
		e.Logger = opts.Logger
	}
	opts.Variant = e.Variant()
	return dataset.Run(ctx, dataset.Layoffs, files, opts, e.ExtractFile)
}

// ExtractFile parses one workbook.
func (e Extractor) ExtractFile(src catalog.SourceFile) (dataset.FileResult[dataset.LayoffRecord], error) {
	var res dataset.FileResult[dataset.LayoffRecord]

	book, err := sheet.Open(src.Path)
	if err != nil {
		return res, err
	}
	defer book.Close()

	name := DataSheet
	if !book.HasSheet(name) {
		names := book.SheetNames()
		if len(names) == 0 {
			return res, ErrNoSheets
		}
		name = names[0]
	}

	g, err := book.Grid(name)
	if err != nil {
		return res, err
	}

	outcome := dataset.SheetOutcome{Name: name}
	tpl, ok := Detect(g)
	if !ok {
		if e.Strict {
			return res, fmt.Errorf("sheet %q: %w", name, ErrUnknownTemplate)
		}
		tpl = V3
		outcome.Note = "header not recognized, assumed template " + V3.Name
		e.logger().Warn("unrecognized layoffs header, assuming current template",
			zap.String("op", "layoffs.ExtractFile"),
			zap.String("file", src.Name()),
			zap.String("sheet", name),
			zap.String("template", V3.Name))
	}

	res.Records = Rows(g, tpl, src)
	outcome.Records = len(res.Records)
	res.Sheets = []dataset.SheetOutcome{outcome}
	return res, nil
}

func (e Extractor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Rows turns every company row of g into a record using the given layout.
func Rows(g sheet.Grid, t Template, src catalog.SourceFile) []dataset.LayoffRecord {
	var out []dataset.LayoffRecord
	for r := firstDataRow; r < g.Len(); r++ {
		district := g.Cell(r, t.District)
		if !isCompanyRow(district) {
			continue
		}
		code := industry.Normalize(g.Cell(r, t.IndustryCode))
		out = append(out, dataset.LayoffRecord{
			Period:        src.Period,
			Source:        src.Path,
			District:      district,
			Employer:      sheet.Truncate(sheet.CollapseSpaces(g.Cell(r, t.Employer)), MaxEmployerLen),
			IndustryCode:  code,
			IndustryDesc:  industry.Describe(code),
			Notified:      count(g, r, t.Notified),
			ModifiedTerms: count(g, r, t.ModifiedTerms),
			LaidOff:       count(g, r, t.LaidOff),
			Monitored:     count(g, r, t.Monitored),
			Liquidation:   strings.EqualFold(g.Cell(r, t.Liquidation), "tak"),
		})
	}
	return out
}

// isCompanyRow accepts text district names of at least two characters that
// are not subtotal or heading rows.
func isCompanyRow(district string) bool {
	if utf8.RuneCountInString(district) < 2 || sheet.IsNumeric(district) {
		return false
	}
	return !sheet.ContainsFold(district, sentinels...)
}

// count reads an optional count; blanks and text read as zero.
func count(g sheet.Grid, r, c int) int {
	n, _ := g.Int(r, c)
	return n
}
