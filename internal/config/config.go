package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wupmaz/labordash/internal/dataset"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "LABORDASH"

// Duplicate-period policies.
const (
	DuplicatesAll    = "all"
	DuplicatesLatest = "latest"
)

type Config struct {
	Data       Data       `mapstructure:"data" yaml:"data"`
	Extraction Extraction `mapstructure:"extraction" yaml:"extraction"`
	Cache      Cache      `mapstructure:"cache" yaml:"cache"`
	Output     Output     `mapstructure:"output" yaml:"output"`
	Server     Server     `mapstructure:"server" yaml:"server"`
	Logging    Logging    `mapstructure:"logging" yaml:"logging"`
}

type Data struct {
	LayoffsDir      string `mapstructure:"layoffs_dir" yaml:"layoffs_dir"`
	UnemploymentDir string `mapstructure:"unemployment_dir" yaml:"unemployment_dir"`
	RatesDir        string `mapstructure:"rates_dir" yaml:"rates_dir"`
	BoundariesFile  string `mapstructure:"boundaries_file" yaml:"boundaries_file"`

	ProvinceBoundariesFile string `mapstructure:"province_boundaries_file" yaml:"province_boundaries_file"`
}

type Extraction struct {
	StrictTemplates  bool   `mapstructure:"strict_templates" yaml:"strict_templates"`
	DuplicatePeriods string `mapstructure:"duplicate_periods" yaml:"duplicate_periods"`
}

type Cache struct {
	Disk bool `mapstructure:"disk" yaml:"disk"`
}

type Output struct {
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	CSVBOM  bool   `mapstructure:"csv_bom" yaml:"csv_bom"`
}

type Server struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type Logging struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// defaults apply to keys missing from the file. Every key is registered so
// environment overrides reach Unmarshal.
var defaults = map[string]any{
	"data.layoffs_dir":              "./dane/zwolnienia",
	"data.unemployment_dir":         "./dane/bezrobocie",
	"data.rates_dir":                "./dane/stopa",
	"data.boundaries_file":          "",
	"data.province_boundaries_file": "",
	"extraction.strict_templates":   false,
	"extraction.duplicate_periods":  DuplicatesAll,
	"cache.disk":                    true,
	"output.data_dir":               "",
	"output.csv_bom":                true,
	"server.host":                   "127.0.0.1",
	"server.port":                   8050,
	"logging.level":                 "info",
	"logging.format":                "console",
}

// ConfigDir returns the XDG config directory for labordash.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "labordash")
}

// DataDir returns the XDG data directory for labordash.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "labordash")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/labordash/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'labordash init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file. Environment variables override
// file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the embedded configuration with environment overrides.
func Default() (*Config, error) {
	return parse(DefaultConfigYAML)
}

// parse parses YAML bytes into a Config, applying defaults and environment
// overrides.
func parse(data []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Extraction.DuplicatePeriods {
	case DuplicatesAll, DuplicatesLatest:
	default:
		return fmt.Errorf("extraction.duplicate_periods: unknown policy %q", c.Extraction.DuplicatePeriods)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath returns the cache database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "labordash.db")
}

// SourceDir returns the input directory for a dataset.
func (c *Config) SourceDir(kind dataset.Kind) string {
	switch kind {
	case dataset.Layoffs:
		return c.Data.LayoffsDir
	case dataset.Unemployment:
		return c.Data.UnemploymentDir
	case dataset.Rates:
		return c.Data.RatesDir
	}
	return ""
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
