// Package aggregate derives the dashboard summaries from extracted records.
package aggregate

import "fmt"

// Policy decides what happens when two files resolve to the same period.
type Policy string

const (
	// KeepAll sums every file of a period.
	KeepAll Policy = "all"
	// KeepLatest keeps only the last catalogued file of a period.
	KeepLatest Policy = "latest"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case KeepAll, KeepLatest:
		return Policy(s), nil
	case "":
		return KeepAll, nil
	}
	return "", fmt.Errorf("unknown duplicate-period policy %q", s)
}

// Dedupe applies p to records in catalog order. key returns a record's period
// sort key and source file.
func Dedupe[T any](recs []T, p Policy, key func(T) (int, string)) []T {
	if p != KeepLatest {
		return recs
	}
	latest := make(map[int]string)
	for _, r := range recs {
		k, src := key(r)
		latest[k] = src
	}
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		k, src := key(r)
		if latest[k] == src {
			out = append(out, r)
		}
	}
	return out
}
