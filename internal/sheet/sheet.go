// Package sheet wraps workbook access for the extractors: raw positional
// grids, lenient number parsing and label search over bounded windows.
package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrLegacyFormat is returned for BIFF .xls workbooks, which cannot be read.
	ErrLegacyFormat = errors.New("legacy .xls workbook not supported")
	// ErrSheetNotFound is returned when a named sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
)

// Book is an open workbook.
type Book struct {
	file *excelize.File
	path string
}

// Open opens the workbook at path.
func Open(path string) (*Book, error) {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrLegacyFormat)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	return &Book{file: f, path: path}, nil
}

// Close releases the workbook.
func (b *Book) Close() error {
	return b.file.Close()
}

// Path returns the file the workbook was opened from.
func (b *Book) Path() string {
	return b.path
}

// SheetNames returns sheet names in workbook order.
func (b *Book) SheetNames() []string {
	return b.file.GetSheetList()
}

// HasSheet reports whether a sheet with exactly this name exists.
func (b *Book) HasSheet(name string) bool {
	for _, s := range b.SheetNames() {
		if s == name {
			return true
		}
	}
	return false
}

// Grid reads a whole sheet without any header interpretation. Cell values
// are raw, so numbers come back unformatted.
func (b *Book) Grid(name string) (Grid, error) {
	if !b.HasSheet(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrSheetNotFound)
	}
	rows, err := b.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	return Grid(rows), nil
}

// Grid is a sheet's cells addressed by zero-based row and column. Rows may
// be ragged; out-of-range cells read as empty.
type Grid [][]string

// Len returns the number of rows.
func (g Grid) Len() int {
	return len(g)
}

// Width returns the length of the longest row.
func (g Grid) Width() int {
	w := 0
	for _, r := range g {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Raw returns the untrimmed cell value.
func (g Grid) Raw(r, c int) string {
	if r < 0 || r >= len(g) || c < 0 || c >= len(g[r]) {
		return ""
	}
	return g[r][c]
}

// Cell returns the trimmed cell value.
func (g Grid) Cell(r, c int) string {
	return strings.TrimSpace(g.Raw(r, c))
}

// Number parses the cell as a number.
func (g Grid) Number(r, c int) (float64, bool) {
	return ParseNumber(g.Raw(r, c))
}

// Int parses the cell as a number and rounds it to the nearest integer.
func (g Grid) Int(r, c int) (int, bool) {
	f, ok := g.Number(r, c)
	if !ok {
		return 0, false
	}
	return round(f), true
}

// IntPtr is Int with absence expressed as nil.
func (g Grid) IntPtr(r, c int) *int {
	n, ok := g.Int(r, c)
	if !ok {
		return nil
	}
	return &n
}
