// Package config loads extractor settings from a YAML file.
//
// The file path comes from the --config flag or the FURNI_CONFIG
// environment variable. Without either, Default is used as is. Command
// line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path
const EnvVar = "FURNI_CONFIG"

// Config is the extractor configuration
type Config struct {
	// DataPath is the root of downloaded and extracted data.
	DataPath string `yaml:"data_path"`

	// Zones lists the hotel zones to process, e.g. com or com.br.
	Zones []string `yaml:"zones"`

	// VersionPin selects a revision directory. Empty means "latest".
	VersionPin string `yaml:"version_pin"`

	// CacheTime is how long a downloaded catalog stays valid.
	CacheTime time.Duration `yaml:"cache_time"`

	// CatalogURL is the furnidata location. {zone} is replaced.
	CatalogURL string `yaml:"catalog_url"`

	// BundleURL is the bundle location. {revision} and {name} are replaced.
	BundleURL string `yaml:"bundle_url"`

	UserAgent string `yaml:"user_agent"`
	Accept    string `yaml:"accept"`

	// IOWorkers bounds concurrent downloads.
	IOWorkers int `yaml:"io_workers"`

	// CPUWorkers bounds concurrent bundle extraction. Zero means NumCPU.
	CPUWorkers int `yaml:"cpu_workers"`

	RequestTimeout time.Duration `yaml:"request_timeout"`

	Log LogConfig `yaml:"log"`

	// Report enables report.json per zone.
	Report bool `yaml:"report"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataPath:       "./data/",
		CacheTime:      240 * time.Hour,
		CatalogURL:     "https://www.habbo.{zone}/gamedata/furnidata_xml/0",
		BundleURL:      "https://images.habbo.com/dcr/hof_furni/{revision}/{name}.swf",
		UserAgent:      "furni-extractor/1.0",
		Accept:         "*/*",
		IOWorkers:      50,
		RequestTimeout: 60 * time.Second,
		Log:            LogConfig{Level: "info"},
		Report:         true,
	}
}

// Load loads configuration from the FURNI_CONFIG environment variable,
// or returns Default when it is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path on top of Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Revision is the data directory name for this run
func (c *Config) Revision() string {
	if c.VersionPin == "" {
		return "latest"
	}
	return c.VersionPin
}

// SetCacheTime parses a duration such as "240h" into CacheTime
func (c *Config) SetCacheTime(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("cache time: %w", err)
	}
	c.CacheTime = d
	return nil
}

// CatalogURLFor expands CatalogURL for zone
func (c *Config) CatalogURLFor(zone string) string {
	return strings.ReplaceAll(c.CatalogURL, "{zone}", zone)
}

// BundleURLFor expands BundleURL for one bundle
func (c *Config) BundleURLFor(revision uint32, name string) string {
	return strings.NewReplacer(
		"{revision}", fmt.Sprint(revision),
		"{name}", name,
	).Replace(c.BundleURL)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.DataPath == "" {
		errs = append(errs, fmt.Errorf("data_path is required"))
	}
	if strings.ContainsAny(c.VersionPin, `/\`) || c.VersionPin == "." || c.VersionPin == ".." {
		errs = append(errs, fmt.Errorf("version_pin must be a plain directory name: %q", c.VersionPin))
	}
	if c.CacheTime < 0 {
		errs = append(errs, fmt.Errorf("cache_time must not be negative"))
	}
	if !strings.Contains(c.CatalogURL, "{zone}") {
		errs = append(errs, fmt.Errorf("catalog_url must contain {zone}"))
	}
	if !strings.Contains(c.BundleURL, "{name}") {
		errs = append(errs, fmt.Errorf("bundle_url must contain {name}"))
	}
	if c.IOWorkers < 1 {
		errs = append(errs, fmt.Errorf("io_workers must be at least 1"))
	}
	if c.CPUWorkers < 0 {
		errs = append(errs, fmt.Errorf("cpu_workers must not be negative"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request_timeout must not be negative"))
	}
	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	for _, zone := range c.Zones {
		if !contains(AllZones, zone) {
			errs = append(errs, fmt.Errorf("unknown zone %q in zones", zone))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
