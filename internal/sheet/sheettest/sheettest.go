// Package sheettest builds small workbooks on disk for extractor tests.
package sheettest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet is one named sheet with positional rows. A nil cell leaves the
// position empty.
type Sheet struct {
	Name string
	Rows [][]any
}

// Write saves a workbook with the given sheets, in order, to dir/name and
// returns the full path.
func Write(t testing.TB, dir, name string, sheets ...Sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				t.Fatalf("rename first sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("new sheet %q: %v", s.Name, err)
		}
		for r, row := range s.Rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("cell name: %v", err)
				}
				if err := f.SetCellValue(s.Name, cell, v); err != nil {
					t.Fatalf("set %s!%s: %v", s.Name, cell, err)
				}
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

// Blank returns n empty rows, handy for padding header blocks.
func Blank(n int) [][]any {
	return make([][]any, n)
}

// Row builds a row of width cells with values placed at the given columns.
func Row(width int, cells map[int]any) []any {
	row := make([]any, width)
	for c, v := range cells {
		row[c] = v
	}
	return row
}

// Strings renders rows the way the workbook reader returns them: every
// value formatted with fmt.Sprint, nil cells empty. The result converts
// directly to sheet.Grid.
func Strings(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				out[i][j] = fmt.Sprint(v)
			}
		}
	}
	return out
}
