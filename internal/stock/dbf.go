package stock

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wupmaz/labordash/internal/catalog"
	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/geo"
	"github.com/wupmaz/labordash/internal/sheet"
)

// ErrNoDBFHeader is returned when no row of the dbf sheet carries the unit,
// table and row columns.
var ErrNoDBFHeader = errors.New("dbf header not found")

const dbfHeaderScan = 10

// Header aliases, compared after folding.
var (
	codeAliases  = []string{"kod", "kod_jedn", "kod_pup", "teryt", "jednostka", "id_jedn"}
	tableAliases = []string{"tabela", "tab", "tablica", "nr_tab", "id_tab"}
	rowAliases   = []string{"wiersz", "wiersz_id", "nr_wiersza", "nr_wier", "id_wiersza"}

	resultColumn = regexp.MustCompile(`^[wk](\d+)$`)
)

// Table 1 row 001 carries the movement (first block) and end-of-period stock
// (last block) totals.
const (
	totalsTable = "1"
	totalsRow   = "001"

	// first block
	resRegistrations   = 1
	resDeregistrations = 3
	resBenefit         = 7

	// last block
	resStock       = 1
	resStockFemale = 2

	resCategory = 1
)

// categoryRows are the table 1 row ids holding each demographic category.
var categoryRows = map[dataset.Category]string{
	dataset.CatDismissed:  "004",
	dataset.CatRural:      "007",
	dataset.CatUnder25:    "009",
	dataset.CatUnder30:    "010",
	dataset.CatLongTerm:   "012",
	dataset.CatOver50:     "015",
	dataset.CatNoQual:     "016",
	dataset.CatDisabled:   "019",
	dataset.CatForeigners: "021",
}

type dbfLayout struct {
	header  int
	code    int
	table   int
	row     int
	results map[int]int
}

type dbfRow struct {
	table string
	row   string
	line  int
}

// DBF reads district records from the long-format sheet. Districts whose
// stock cell is not numeric are dropped and returned as notes.
func DBF(g sheet.Grid, src catalog.SourceFile) ([]dataset.StockRecord, []string, error) {
	lay, err := locateDBFHeader(g)
	if err != nil {
		return nil, nil, err
	}

	blocks := make(map[string][]dbfRow)
	for r := lay.header + 1; r < g.Len(); r++ {
		key, ok := geo.DistrictKey(g.Cell(r, lay.code))
		if !ok {
			continue
		}
		blocks[key] = append(blocks[key], dbfRow{
			table: normalizeTable(g.Cell(r, lay.table)),
			row:   normalizeRow(g.Cell(r, lay.row)),
			line:  r,
		})
	}

	var (
		out   []dataset.StockRecord
		notes []string
	)
	for _, code := range geo.DistrictCodes() {
		rows := blocks[code]
		first, last, ok := totalsBlocks(rows)
		if !ok {
			continue
		}
		name, _ := geo.DistrictByCode(code)

		stock, ok := lay.int(g, last, resStock)
		if !ok {
			notes = append(notes, fmt.Sprintf("%s: %v", name, ErrNoStock))
			continue
		}
		out = append(out, dataset.StockRecord{
			Period:          src.Period,
			Source:          src.Path,
			Unit:            sheet.Title(name),
			Sheet:           DBFSheet,
			Level:           dataset.LevelDistrict,
			Stock:           stock,
			StockFemale:     lay.intPtr(g, last, resStockFemale),
			Registrations:   lay.intPtr(g, first, resRegistrations),
			Deregistrations: lay.intPtr(g, first, resDeregistrations),
			Benefit:         lay.intPtr(g, first, resBenefit),
			Categories:      lay.categories(g, rows),
		})
	}
	return out, notes, nil
}

func totalsBlocks(rows []dbfRow) (first, last int, ok bool) {
	for _, r := range rows {
		if r.table != totalsTable || r.row != totalsRow {
			continue
		}
		if !ok {
			first, ok = r.line, true
		}
		last = r.line
	}
	return first, last, ok
}

func (l dbfLayout) categories(g sheet.Grid, rows []dbfRow) map[dataset.Category]int {
	out := make(map[dataset.Category]int)
	for c, id := range categoryRows {
		line := -1
		for _, r := range rows {
			if r.table == totalsTable && r.row == id {
				line = r.line
			}
		}
		if line < 0 {
			continue
		}
		if n, ok := l.int(g, line, resCategory); ok {
			out[c] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (l dbfLayout) int(g sheet.Grid, line, result int) (int, bool) {
	col, ok := l.results[result]
	if !ok {
		return 0, false
	}
	return g.Int(line, col)
}

func (l dbfLayout) intPtr(g sheet.Grid, line, result int) *int {
	n, ok := l.int(g, line, result)
	if !ok {
		return nil
	}
	return &n
}

func locateDBFHeader(g sheet.Grid) (dbfLayout, error) {
	for r := 0; r < min(dbfHeaderScan, g.Len()); r++ {
		lay := dbfLayout{header: r, code: -1, table: -1, row: -1, results: map[int]int{}}
		for c := 0; c < len(g[r]); c++ {
			h := sheet.Fold(g.Cell(r, c))
			switch {
			case lay.code < 0 && isAlias(h, codeAliases):
				lay.code = c
			case lay.table < 0 && isAlias(h, tableAliases):
				lay.table = c
			case lay.row < 0 && isAlias(h, rowAliases):
				lay.row = c
			default:
				if m := resultColumn.FindStringSubmatch(h); m != nil {
					n, _ := strconv.Atoi(m[1])
					if _, dup := lay.results[n]; !dup {
						lay.results[n] = c
					}
				}
			}
		}
		if lay.code >= 0 && lay.table >= 0 && lay.row >= 0 && len(lay.results) > 0 {
			return lay, nil
		}
	}
	return dbfLayout{}, ErrNoDBFHeader
}

func isAlias(h string, aliases []string) bool {
	for _, a := range aliases {
		if h == a {
			return true
		}
	}
	return false
}

// normalizeTable drops leading zeros: "01" and "1" name the same table.
func normalizeTable(s string) string {
	if n, ok := sheet.ParseNumber(s); ok {
		return strconv.Itoa(int(n))
	}
	return strings.TrimLeft(s, "0")
}

// normalizeRow zero-pads numeric row ids to three digits.
func normalizeRow(s string) string {
	if n, ok := sheet.ParseNumber(s); ok {
		return fmt.Sprintf("%03d", int(n))
	}
	return s
}
