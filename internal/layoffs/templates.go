package layoffs

import (
	"github.com/wupmaz/labordash/internal/sheet"
)

// Template is one known column layout of the layoffs form. The fingerprint
// maps a column to a folded substring that must appear in that column
// somewhere in the header block.
type Template struct {
	Name        string
	Fingerprint map[int]string

	District      int
	Employer      int
	IndustryCode  int
	Notified      int
	ModifiedTerms int
	Liquidation   int
	LaidOff       int
	Monitored     int
}

const (
	headerRows   = 7
	firstDataRow = 7
)

// V3 is the current form with separate modified-terms and liquidation columns
// after the notified count.
var V3 = Template{
	Name:          "v3",
	Fingerprint:   map[int]string{5: "pkd", 8: "zmieniaj", 9: "likwid"},
	District:      1,
	Employer:      3,
	IndustryCode:  5,
	Notified:      6,
	ModifiedTerms: 8,
	Liquidation:   9,
	LaidOff:       10,
	Monitored:     11,
}

// V2 is the older form, one column to the left for modified terms and
// liquidation.
var V2 = Template{
	Name:          "v2",
	Fingerprint:   map[int]string{5: "pkd", 7: "zmieniaj", 8: "likwid"},
	District:      1,
	Employer:      3,
	IndustryCode:  5,
	Notified:      6,
	ModifiedTerms: 7,
	Liquidation:   8,
	LaidOff:       10,
	Monitored:     11,
}

// Templates lists known layouts in detection order.
var Templates = []Template{V3, V2}

// Detect returns the first template whose fingerprint matches the header
// block of g.
func Detect(g sheet.Grid) (Template, bool) {
	for _, t := range Templates {
		if t.matches(g) {
			return t, true
		}
	}
	return Template{}, false
}

func (t Template) matches(g sheet.Grid) bool {
	for col, want := range t.Fingerprint {
		if !headerHas(g, col, want) {
			return false
		}
	}
	return true
}

func headerHas(g sheet.Grid, col int, want string) bool {
	for r := 0; r < headerRows; r++ {
		if sheet.ContainsFold(g.Cell(r, col), want) {
			return true
		}
	}
	return false
}
