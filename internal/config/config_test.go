package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wupmaz/labordash/internal/dataset"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Data.LayoffsDir != "./dane/zwolnienia" {
		t.Errorf("expected default layoffs dir, got %q", cfg.Data.LayoffsDir)
	}
	if cfg.Extraction.StrictTemplates {
		t.Error("expected lenient template matching by default")
	}
	if cfg.Extraction.DuplicatePeriods != DuplicatesAll {
		t.Errorf("expected duplicate policy 'all', got %q", cfg.Extraction.DuplicatePeriods)
	}
	if !cfg.Cache.Disk || !cfg.Output.CSVBOM {
		t.Error("expected disk cache and CSV BOM enabled")
	}
	if cfg.Server.Port != 8050 {
		t.Errorf("expected port 8050, got %d", cfg.Server.Port)
	}
	if cfg.Data.BoundariesFile != "" || cfg.Data.ProvinceBoundariesFile != "" {
		t.Error("expected no boundary files by default")
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
data:
  rates_dir: /srv/gus
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Data.RatesDir != "/srv/gus" {
		t.Errorf("expected rates dir '/srv/gus', got %q", cfg.Data.RatesDir)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Data.UnemploymentDir != "./dane/bezrobocie" {
		t.Errorf("expected default unemployment dir, got %q", cfg.Data.UnemploymentDir)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level, got %q", cfg.Logging.Level)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LABORDASH_DATA_LAYOFFS_DIR", "/mnt/zwolnienia")
	t.Setenv("LABORDASH_SERVER_PORT", "9100")
	t.Setenv("LABORDASH_EXTRACTION_STRICT_TEMPLATES", "true")
	t.Setenv("LABORDASH_DATA_PROVINCE_BOUNDARIES_FILE", "/srv/wojewodztwa.geojson")

	cfg, err := parse([]byte("data:\n  layoffs_dir: ./ignored\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Data.LayoffsDir != "/mnt/zwolnienia" {
		t.Errorf("env should win over file, got %q", cfg.Data.LayoffsDir)
	}
	if cfg.Server.Port != 9100 || !cfg.Extraction.StrictTemplates {
		t.Errorf("env overrides not applied: port=%d strict=%v", cfg.Server.Port, cfg.Extraction.StrictTemplates)
	}
	if cfg.Data.ProvinceBoundariesFile != "/srv/wojewodztwa.geojson" {
		t.Errorf("province boundaries = %q", cfg.Data.ProvinceBoundariesFile)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, data := range []string{
		"extraction:\n  duplicate_periods: newest\n",
		"server:\n  port: 0\n",
		"server: [",
	} {
		if _, err := parse([]byte(data)); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Data.RatesDir == "" {
		t.Error("expected rates dir to be populated from file")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DBPath() != filepath.Join("/custom/path", "labordash.db") {
		t.Errorf("unexpected db path %q", cfg.DBPath())
	}
}

func TestSourceDirAndYAML(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SourceDir(dataset.Unemployment) != cfg.Data.UnemploymentDir || cfg.SourceDir("other") != "" {
		t.Error("SourceDir mismatch")
	}

	out, err := cfg.YAML()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "duplicate_periods: all") {
		t.Errorf("effective config missing policy:\n%s", out)
	}
}
