package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SheetOutcome records what happened to one sheet of a file.
type SheetOutcome struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
	Skipped string `json:"skipped,omitempty"`
	Note    string `json:"note,omitempty"`
}

// FileOutcome records what happened to one catalogued file.
type FileOutcome struct {
	Path    string         `json:"path"`
	Period  string         `json:"period"`
	Records int            `json:"records"`
	Cached  bool           `json:"cached"`
	Err     string         `json:"error,omitempty"`
	Sheets  []SheetOutcome `json:"sheets,omitempty"`
}

// Failed reports whether the file was skipped.
func (f FileOutcome) Failed() bool {
	return f.Err != ""
}

// Report is the processing report for one dataset run.
type Report struct {
	Dataset  Kind          `json:"dataset"`
	RunID    string        `json:"run_id"`
	Dir      string        `json:"dir"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Files    []FileOutcome `json:"files"`
}

// Records returns the total number of records across files.
func (r *Report) Records() int {
	n := 0
	for _, f := range r.Files {
		n += f.Records
	}
	return n
}

// FailedFiles returns the number of skipped files.
func (r *Report) FailedFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Failed() {
			n++
		}
	}
	return n
}

// CachedFiles returns the number of files served from the on-disk cache.
func (r *Report) CachedFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Cached {
			n++
		}
	}
	return n
}

// Summary is a one-line description for logs and step results.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d records from %d files (%d cached, %d skipped)",
		r.Records(), len(r.Files), r.CachedFiles(), r.FailedFiles())
}

// Markdown renders the report as a markdown section.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", r.Dataset)
	fmt.Fprintf(&b, "%s.", capitalize(r.Summary()))
	if !r.Finished.IsZero() {
		fmt.Fprintf(&b, " Finished %s in %s.", r.Finished.Format("2006-01-02 15:04"),
			r.Finished.Sub(r.Started).Round(time.Millisecond))
	}
	b.WriteString("\n\n")

	if len(r.Files) == 0 {
		b.WriteString("_No files catalogued._\n")
		return b.String()
	}

	b.WriteString("| File | Period | Records | Status |\n")
	b.WriteString("|---|---|---:|---|\n")
	for _, f := range r.Files {
		status := "ok"
		switch {
		case f.Failed():
			status = "skipped: " + escapeCell(f.Err)
		case f.Cached:
			status = "cached"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", filepath.Base(f.Path), f.Period, f.Records, status)
	}

	var notes []string
	for _, f := range r.Files {
		for _, s := range f.Sheets {
			switch {
			case s.Skipped != "":
				notes = append(notes, fmt.Sprintf("- `%s` / %s: skipped, %s", filepath.Base(f.Path), s.Name, s.Skipped))
			case s.Note != "":
				notes = append(notes, fmt.Sprintf("- `%s` / %s: %s", filepath.Base(f.Path), s.Name, s.Note))
			}
		}
	}
	if len(notes) > 0 {
		b.WriteString("\nSheet notes:\n\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
