package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Thresholds.MinJointCount != 20 {
		t.Errorf("expected MinJointCount=20, got %d", cfg.Thresholds.MinJointCount)
	}
	if cfg.Thresholds.MinRatio != 0.94 {
		t.Errorf("expected MinRatio=0.94, got %v", cfg.Thresholds.MinRatio)
	}
	if cfg.Paths.Taxonomy != DefaultTaxonomyPath {
		t.Errorf("expected default taxonomy path, got %s", cfg.Paths.Taxonomy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("TAGKB_MIN_RATIO", "")
	t.Setenv("TAGKB_DB", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "tagkb.yaml")

	cfg := DefaultConfig()
	cfg.Thresholds.MinRatio = 0.9
	cfg.Filter.Ignore = []string{"win*", "generic"}
	cfg.Store.DatabasePath = filepath.Join(tmpDir, "runs.db")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Thresholds.MinRatio != 0.9 {
		t.Errorf("expected MinRatio=0.9, got %v", loaded.Thresholds.MinRatio)
	}
	if len(loaded.Filter.Ignore) != 2 || loaded.Filter.Ignore[0] != "win*" {
		t.Errorf("unexpected ignore list: %v", loaded.Filter.Ignore)
	}
	if loaded.Store.DatabasePath != cfg.Store.DatabasePath {
		t.Errorf("expected database path %s, got %s", cfg.Store.DatabasePath, loaded.Store.DatabasePath)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Thresholds.MinJointCount != 20 {
		t.Errorf("expected defaults, got %+v", cfg.Thresholds)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagkb.yaml")
	if err := os.WriteFile(path, []byte("thresholds:\n  min_joint_count: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Thresholds.MinJointCount != 5 {
		t.Errorf("expected MinJointCount=5, got %d", cfg.Thresholds.MinJointCount)
	}
	if cfg.Thresholds.MinRatio != 0.94 {
		t.Errorf("expected default MinRatio, got %v", cfg.Thresholds.MinRatio)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagkb.yaml")
	if err := os.WriteFile(path, []byte("thresholds: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative joint count", func(c *Config) { c.Thresholds.MinJointCount = -1 }},
		{"ratio above one", func(c *Config) { c.Thresholds.MinRatio = 1.5 }},
		{"missing taxonomy", func(c *Config) { c.Paths.Taxonomy = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{Categories: map[string]bool{"loader": false}}
	if c.IsCategoryEnabled("loader") {
		t.Error("loader should be disabled")
	}
	if !c.IsCategoryEnabled("updater") {
		t.Error("unlisted categories should be enabled")
	}
}
