package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Year bounds accepted by Valid.
const (
	MinYear = 2000
	MaxYear = 2100
)

// Period identifies one monthly release. It is the only join key shared by
// the layoff, unemployment-stock and unemployment-rate records.
type Period struct {
	Label   string `json:"period"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	SortKey int    `json:"sort_key"`
}

var monthNames = [...]string{
	"Styczeń", "Luty", "Marzec", "Kwiecień", "Maj", "Czerwiec",
	"Lipiec", "Sierpień", "Wrzesień", "Październik", "Listopad", "Grudzień",
}

var romanMonths = map[string]int{
	"I": 1, "II": 2, "III": 3, "IV": 4, "V": 5, "VI": 6,
	"VII": 7, "VIII": 8, "IX": 9, "X": 10, "XI": 11, "XII": 12,
}

// monthWords accepts the usual spellings with and without Polish diacritics.
var monthWords = map[string]int{
	"styczen":     1,
	"styczeń":     1,
	"luty":        2,
	"marzec":      3,
	"kwiecien":    4,
	"kwiecień":    4,
	"maj":         5,
	"czerwiec":    6,
	"lipiec":      7,
	"sierpien":    8,
	"sierpień":    8,
	"wrzesien":    9,
	"wrzesień":    9,
	"pazdziernik": 10,
	"październik": 10,
	"listopad":    11,
	"grudzien":    12,
	"grudzień":    12,
}

var (
	yearFirst  = regexp.MustCompile(`^(\d{4})[-_.](\d{1,2})$`)
	monthFirst = regexp.MustCompile(`^(\d{1,2})[-_.](\d{4})$`)
	romanFirst = regexp.MustCompile(`^([IVXivx]+)[-_.](\d{4})$`)
	wordFirst  = regexp.MustCompile(`^(\p{L}+)[-_.](\d{4})$`)
)

// Resolve parses a bare filename stem (extension already stripped) into a
// year and month. Forms are tried in order and the first match wins:
//
//	2025-01, 2025_1, 2025.01   year first
//	01-2025, 1_2025            month first
//	I_2025, xii-2025           roman numeral month
//	styczeń-2025, Styczen_2025 Polish month name
//
// Range checks are left to Valid.
func Resolve(stem string) (year, month int, ok bool) {
	stem = strings.TrimSpace(stem)

	if m := yearFirst.FindStringSubmatch(stem); m != nil {
		return atoi(m[1]), atoi(m[2]), true
	}
	if m := monthFirst.FindStringSubmatch(stem); m != nil {
		return atoi(m[2]), atoi(m[1]), true
	}
	if m := romanFirst.FindStringSubmatch(stem); m != nil {
		if mon, found := romanMonths[strings.ToUpper(m[1])]; found {
			return atoi(m[2]), mon, true
		}
	}
	if m := wordFirst.FindStringSubmatch(stem); m != nil {
		if mon, found := monthWords[strings.ToLower(m[1])]; found {
			return atoi(m[2]), mon, true
		}
	}
	return 0, 0, false
}

// Valid reports whether a resolved pair is inside the accepted range.
func Valid(year, month int) bool {
	return month >= 1 && month <= 12 && year >= MinYear && year <= MaxYear
}

// MonthName returns the Polish name of month (1-12).
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return strconv.Itoa(month)
	}
	return monthNames[month-1]
}

// Label formats the display label, e.g. "Styczeń 2025".
func Label(year, month int) string {
	return fmt.Sprintf("%s %d", MonthName(month), year)
}

// SortKey returns year*100+month.
func SortKey(year, month int) int {
	return year*100 + month
}

// New builds a Period from a validated year and month.
func New(year, month int) Period {
	return Period{
		Label:   Label(year, month),
		Year:    year,
		Month:   month,
		SortKey: SortKey(year, month),
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
