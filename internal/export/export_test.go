package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/wupmaz/labordash/internal/dataset"
	"github.com/wupmaz/labordash/internal/period"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v\n%s", err, data)
	}
	return rows
}

func TestLayoffs(t *testing.T) {
	var buf bytes.Buffer
	recs := []dataset.LayoffRecord{{
		Period: period.New(2025, 1), District: "otwocki", Employer: `ACME "Polska", Sp. z o.o.`,
		IndustryCode: "6201Z", IndustryDesc: "Oprogramowanie", Notified: 120, LaidOff: 100, Liquidation: true,
	}}
	if err := Layoffs(&buf, recs, Options{}); err != nil {
		t.Fatal(err)
	}
	rows := readCSV(t, buf.Bytes())
	if len(rows) != 2 || len(rows[0]) != len(layoffHeader) {
		t.Fatalf("rows = %v", rows)
	}
	r := rows[1]
	if r[0] != "Styczeń 2025" || r[3] != "202501" || r[5] != `ACME "Polska", Sp. z o.o.` || r[12] != "true" {
		t.Errorf("row = %v", r)
	}
}

func TestStockOptionalCells(t *testing.T) {
	var buf bytes.Buffer
	female := 0
	recs := []dataset.StockRecord{{
		Period: period.New(2025, 2), Unit: "Otwocki", Sheet: "dbf", Level: dataset.LevelDistrict,
		Stock: 4000, StockFemale: &female,
		Categories: map[dataset.Category]int{dataset.CatRural: 1500, dataset.CatDisabled: 0},
	}}
	if err := Stock(&buf, recs, Options{BOM: true}); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), bom) {
		t.Fatal("missing BOM")
	}
	rows := readCSV(t, buf.Bytes()[len(bom):])
	header, row := rows[0], rows[1]
	cell := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("no column %q", name)
		return ""
	}
	if cell("stock_female") != "0" || cell("registrations") != "" {
		t.Errorf("optional counts: female=%q registrations=%q", cell("stock_female"), cell("registrations"))
	}
	if cell("rural") != "1500" || cell("disabled") != "0" || cell("foreigners") != "" {
		t.Errorf("categories: %v", row)
	}
}

func TestRates(t *testing.T) {
	var buf bytes.Buffer
	geo := "powiat Warszawa"
	th := 20.5
	recs := []dataset.RateRecord{
		{Period: period.New(2025, 3), Code: "1465", Name: "M. Warszawa", Level: dataset.LevelDistrict, Thousands: &th, Rate: 1.4, GeoName: &geo},
		{Period: period.New(2025, 3), Code: "1499", Name: "Nieznany", Level: dataset.LevelDistrict, Rate: 2},
	}
	if err := Rates(&buf, recs, Options{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "1465,M. Warszawa,district,20.5,1.4,powiat Warszawa") {
		t.Errorf("row 1 wrong:\n%s", out)
	}
	if !strings.Contains(out, "1499,Nieznany,district,,2,\n") {
		t.Errorf("absent optionals should be empty:\n%s", out)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteError(t *testing.T) {
	if err := Rates(failingWriter{}, nil, Options{BOM: true}); err == nil {
		t.Error("expected write error")
	}
	if err := Rates(failingWriter{}, nil, Options{}); err == nil {
		t.Error("expected flush error")
	}
}
