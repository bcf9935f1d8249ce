package sheet

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseNumber coerces a cell value to a float. It accepts thousands
// separators (spaces, non-breaking spaces, commas alongside a decimal point),
// a decimal comma and a trailing percent sign. Blank, dash and text cells
// are reported as not parsable.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ",") {
		switch {
		case strings.Contains(s, "."):
			s = strings.ReplaceAll(s, ",", "")
		case strings.Count(s, ",") == 1:
			s = strings.Replace(s, ",", ".", 1)
		default:
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsNumeric reports whether s parses as a number.
func IsNumeric(s string) bool {
	_, ok := ParseNumber(s)
	return ok
}

func round(f float64) int {
	return int(math.Round(f))
}
