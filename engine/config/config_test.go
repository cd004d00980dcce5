package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DataPath != "./data/" {
		t.Errorf("expected data_path=./data/, got %s", cfg.DataPath)
	}
	if cfg.CacheTime != 240*time.Hour {
		t.Errorf("expected cache_time=240h, got %s", cfg.CacheTime)
	}
	if cfg.IOWorkers != 50 || cfg.CPUWorkers != 0 {
		t.Errorf("expected workers 50/0, got %d/%d", cfg.IOWorkers, cfg.CPUWorkers)
	}
	if cfg.Revision() != "latest" {
		t.Errorf("expected revision latest, got %s", cfg.Revision())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "furni.yaml")
	content := `
data_path: /srv/furni
zones: [com, de]
version_pin: "2024"
cache_time: 1h30m
io_workers: 8
request_timeout: 5s
log:
  level: debug
report: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.DataPath != "/srv/furni" || len(cfg.Zones) != 2 || cfg.Zones[1] != "de" {
		t.Errorf("paths/zones = %s %v", cfg.DataPath, cfg.Zones)
	}
	if cfg.CacheTime != 90*time.Minute || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("durations = %s %s", cfg.CacheTime, cfg.RequestTimeout)
	}
	if cfg.IOWorkers != 8 || cfg.Log.Level != "debug" || cfg.Report {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Revision() != "2024" {
		t.Errorf("revision = %s", cfg.Revision())
	}
	// Unset keys keep their defaults.
	if cfg.BundleURL != Default().BundleURL {
		t.Errorf("bundle_url = %s", cfg.BundleURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("cache_time: soon\n"), 0644)
	if _, err := LoadFile(bad); err == nil {
		t.Error("bad duration should fail")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg, err := Load()
	if err != nil || cfg.DataPath != "./data/" {
		t.Fatalf("Load without %s = %+v, %v", EnvVar, cfg, err)
	}

	path := filepath.Join(t.TempDir(), "furni.yaml")
	os.WriteFile(path, []byte("data_path: /tmp/x\n"), 0644)
	t.Setenv(EnvVar, path)
	cfg, err = Load()
	if err != nil || cfg.DataPath != "/tmp/x" {
		t.Fatalf("Load with %s = %+v, %v", EnvVar, cfg, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty data path", func(c *Config) { c.DataPath = "" }, "data_path"},
		{"pin with slash", func(c *Config) { c.VersionPin = "../x" }, "version_pin"},
		{"catalog url", func(c *Config) { c.CatalogURL = "http://x/" }, "catalog_url"},
		{"bundle url", func(c *Config) { c.BundleURL = "http://x/" }, "bundle_url"},
		{"io workers", func(c *Config) { c.IOWorkers = 0 }, "io_workers"},
		{"cpu workers", func(c *Config) { c.CPUWorkers = -1 }, "cpu_workers"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"zone", func(c *Config) { c.Zones = []string{"xx"} }, "unknown zone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestURLs(t *testing.T) {
	cfg := Default()
	if got := cfg.CatalogURLFor("com.br"); got != "https://www.habbo.com.br/gamedata/furnidata_xml/0" {
		t.Errorf("CatalogURLFor = %s", got)
	}
	if got := cfg.BundleURLFor(45508, "chair_norja"); got != "https://images.habbo.com/dcr/hof_furni/45508/chair_norja.swf" {
		t.Errorf("BundleURLFor = %s", got)
	}
}

func TestParseZones(t *testing.T) {
	all, err := ParseZones("all")
	if err != nil || len(all) != 9 || all[0] != "com" || all[8] != "com.tr" {
		t.Errorf("ParseZones(all) = %v, %v", all, err)
	}
	all[0] = "mutated"
	if AllZones[0] != "com" {
		t.Error("ParseZones(all) aliases AllZones")
	}
	if one, err := ParseZones("fi"); err != nil || len(one) != 1 || one[0] != "fi" {
		t.Errorf("ParseZones(fi) = %v, %v", one, err)
	}
	for _, bad := range []string{"", "xx", "COM"} {
		if _, err := ParseZones(bad); err == nil {
			t.Errorf("ParseZones(%q) should fail", bad)
		}
	}
}
