package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default knowledge base file locations, relative to the working directory.
const (
	DefaultTaxonomyPath  = "data/default.taxonomy"
	DefaultTaggingPath   = "data/default.tagging"
	DefaultExpansionPath = "data/default.expansion"
)

// Config holds all tagkb configuration.
type Config struct {
	// Relation strength thresholds
	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Knowledge base files
	Paths PathsConfig `yaml:"paths"`

	// Extra relation filtering
	Filter FilterConfig `yaml:"filter"`

	// Optional SQLite run ledger
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ThresholdConfig decides which relations are strong enough to process.
type ThresholdConfig struct {
	MinJointCount int     `yaml:"min_joint_count"` // n: minimum times two tokens were seen together
	MinRatio      float64 `yaml:"min_ratio"`       // t: minimum |t1^t2|/|t1|, also the alias threshold
}

// PathsConfig locates the taxonomy, tagging and expansion files.
type PathsConfig struct {
	Taxonomy  string `yaml:"taxonomy"`
	Tagging   string `yaml:"tagging"`
	Expansion string `yaml:"expansion"`
}

// FilterConfig adds tokens to ignore on top of the taxonomy platform tags.
type FilterConfig struct {
	// Ignore holds glob patterns (e.g. "win*") matched against both tokens.
	Ignore []string `yaml:"ignore"`
}

// StoreConfig configures the run ledger.
type StoreConfig struct {
	// DatabasePath enables the ledger when non-empty.
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns a config with the labeler's default thresholds.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: ThresholdConfig{
			MinJointCount: 20,
			MinRatio:      0.94,
		},
		Paths: PathsConfig{
			Taxonomy:  DefaultTaxonomyPath,
			Tagging:   DefaultTaggingPath,
			Expansion: DefaultExpansionPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config from path on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the config as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets TAGKB_* variables override file values.
// Unparseable numbers are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TAGKB_MIN_JOINT_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Thresholds.MinJointCount = n
		}
	}
	if v := os.Getenv("TAGKB_MIN_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Thresholds.MinRatio = f
		}
	}

	if p := os.Getenv("TAGKB_TAXONOMY"); p != "" {
		c.Paths.Taxonomy = p
	}
	if p := os.Getenv("TAGKB_TAGGING"); p != "" {
		c.Paths.Tagging = p
	}
	if p := os.Getenv("TAGKB_EXPANSION"); p != "" {
		c.Paths.Expansion = p
	}
	if p := os.Getenv("TAGKB_DB"); p != "" {
		c.Store.DatabasePath = p
	}
	if v := os.Getenv("TAGKB_IGNORE"); v != "" {
		c.Filter.Ignore = splitList(v)
	}

	if lvl := os.Getenv("TAGKB_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks thresholds and paths.
func (c *Config) Validate() error {
	if c.Thresholds.MinJointCount < 0 {
		return fmt.Errorf("min_joint_count must be >= 0, got %d", c.Thresholds.MinJointCount)
	}
	if c.Thresholds.MinRatio < 0 || c.Thresholds.MinRatio > 1 {
		return fmt.Errorf("min_ratio must be in [0,1], got %v", c.Thresholds.MinRatio)
	}
	if c.Paths.Taxonomy == "" {
		return fmt.Errorf("taxonomy path not configured")
	}
	return c.Logging.Validate()
}
