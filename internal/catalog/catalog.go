package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wupmaz/labordash/internal/period"
)

// Extensions lists the spreadsheet extensions picked up by Build, compared
// case-insensitively.
var Extensions = []string{".xlsx", ".xlsm", ".xls"}

// SourceFile is one cataloged spreadsheet. Values are rebuilt on every scan.
type SourceFile struct {
	period.Period
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// Name returns the base file name.
func (f SourceFile) Name() string {
	return filepath.Base(f.Path)
}

// Build scans dir and returns every spreadsheet whose name resolves to a
// valid period, sorted ascending by sort key. Files sharing a period are all
// kept in enumeration order. Directory errors yield an empty catalog.
func Build(dir string, logger *zap.Logger) []SourceFile {
	if logger == nil {
		logger = zap.NewNop()
	}

	paths, err := candidates(dir)
	if err != nil {
		logger.Warn("cannot scan directory",
			zap.String("op", "catalog.Build"),
			zap.String("dir", dir),
			zap.Error(err),
		)
		return nil
	}

	var files []SourceFile
	for _, p := range paths {
		stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		year, month, ok := period.Resolve(stem)
		if !ok || !period.Valid(year, month) {
			logger.Debug("skipping file without a recognizable period",
				zap.String("op", "catalog.Build"),
				zap.String("file", filepath.Base(p)),
			)
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			logger.Debug("skipping unreadable file",
				zap.String("op", "catalog.Build"),
				zap.String("file", p),
				zap.Error(err),
			)
			continue
		}

		files = append(files, SourceFile{
			Period:  period.New(year, month),
			Path:    p,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].SortKey < files[j].SortKey
	})
	return files
}

// Fingerprint hashes the name, size and modification time of every
// catalogable file in dir. It changes whenever a file is added, removed,
// renamed or rewritten.
func Fingerprint(dir string) (string, error) {
	paths, err := candidates(dir)
	if err != nil {
		return "", err
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", filepath.Base(p), info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// candidates lists spreadsheet files in dir, deduplicated by lower-cased
// absolute path so case-insensitive filesystems do not double count.
func candidates(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(entries))
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !hasSpreadsheetExt(e.Name()) {
			continue
		}
		p := filepath.Join(abs, e.Name())
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		paths = append(paths, p)
	}
	return paths, nil
}

func hasSpreadsheetExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
