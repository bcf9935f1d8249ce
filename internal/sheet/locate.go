package sheet

import "strings"

// Window bounds a search: rows [FirstRow, EndRow) and columns [0, Cols).
type Window struct {
	FirstRow int
	EndRow   int
	Cols     int
}

// Locator searches a bounded window of a grid for text labels.
type Locator struct {
	grid Grid
	win  Window
}

// NewLocator returns a locator over g clipped to w.
func NewLocator(g Grid, w Window) *Locator {
	return &Locator{grid: g, win: w}
}

// Locate returns the first row in the window where any cell contains label,
// compared case-insensitively. ok is false when the label is absent, which
// callers must keep distinct from a zero value.
func (l *Locator) Locate(label string) (row int, ok bool) {
	needle := strings.ToLower(label)
	end := min(l.win.EndRow, l.grid.Len())
	for r := max(l.win.FirstRow, 0); r < end; r++ {
		for c := 0; c < l.win.Cols; c++ {
			if strings.Contains(strings.ToLower(l.grid.Raw(r, c)), needle) {
				return r, true
			}
		}
	}
	return 0, false
}

// LocateExact is Locate with a case-sensitive comparison.
func (l *Locator) LocateExact(label string) (row int, ok bool) {
	end := min(l.win.EndRow, l.grid.Len())
	for r := max(l.win.FirstRow, 0); r < end; r++ {
		for c := 0; c < l.win.Cols; c++ {
			if strings.Contains(l.grid.Raw(r, c), label) {
				return r, true
			}
		}
	}
	return 0, false
}

// LocateAll runs Locate for each label and returns only the keys that were
// found.
func LocateAll[K comparable](l *Locator, labels map[K]string) map[K]int {
	found := make(map[K]int, len(labels))
	for k, label := range labels {
		if r, ok := l.Locate(label); ok {
			found[k] = r
		}
	}
	return found
}
