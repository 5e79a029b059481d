// Package config loads the JSON run configuration for the gmpe tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/banshee-data/groundmotion/internal/coeffs"
	"github.com/banshee-data/groundmotion/internal/imt"
	"github.com/banshee-data/groundmotion/internal/stddev"
)

// Defaults used when a field is omitted.
const (
	DefaultTableDir         = "tables"
	DefaultModel            = "AbrahamsonSilva1997"
	DefaultIMT              = "PGA"
	DefaultMetricsNamespace = "groundmotion"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root configuration. Fields are pointers so an omitted key
// can be told apart from a zero value; the Get* methods supply defaults.
type Config struct {
	TableDir    *string  `json:"table_dir,omitempty"`
	Model       *string  `json:"model,omitempty"`
	IMT         *string  `json:"imt,omitempty"`
	StdDevTypes []string `json:"stddev_types,omitempty"`

	// PeriodPolicy maps a model name to "strict" or "clamp".
	PeriodPolicy map[string]string `json:"period_policy,omitempty"`

	MetricsNamespace *string `json:"metrics_namespace,omitempty"`
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads and validates a Config from a JSON file. Omitted fields keep
// their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every set field parses.
func (c *Config) Validate() error {
	if c.Model != nil && *c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.IMT != nil {
		if _, err := imt.Parse(*c.IMT); err != nil {
			return fmt.Errorf("invalid imt: %w", err)
		}
	}
	for _, s := range c.StdDevTypes {
		if _, err := stddev.Parse(s); err != nil {
			return fmt.Errorf("invalid stddev_types: %w", err)
		}
	}
	names := make([]string, 0, len(c.PeriodPolicy))
	for name := range c.PeriodPolicy {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := coeffs.ParsePolicy(c.PeriodPolicy[name]); err != nil {
			return fmt.Errorf("period_policy[%s]: %w", name, err)
		}
	}
	return nil
}

// GetTableDir returns the table_dir value or the default.
func (c *Config) GetTableDir() string {
	if c.TableDir == nil || *c.TableDir == "" {
		return DefaultTableDir
	}
	return *c.TableDir
}

// GetModel returns the model value or the default.
func (c *Config) GetModel() string {
	if c.Model == nil {
		return DefaultModel
	}
	return *c.Model
}

// GetIMT returns the parsed imt value or the default PGA.
func (c *Config) GetIMT() imt.IMT {
	if c.IMT == nil {
		return imt.MustParse(DefaultIMT)
	}
	m, err := imt.Parse(*c.IMT)
	if err != nil {
		return imt.MustParse(DefaultIMT)
	}
	return m
}

// GetStdDevTypes returns the parsed stddev_types, defaulting to total.
// Unparseable entries are skipped; Validate reports them.
func (c *Config) GetStdDevTypes() []stddev.Component {
	if len(c.StdDevTypes) == 0 {
		return []stddev.Component{stddev.Total}
	}
	out := make([]stddev.Component, 0, len(c.StdDevTypes))
	for _, s := range c.StdDevTypes {
		if comp, err := stddev.Parse(s); err == nil {
			out = append(out, comp)
		}
	}
	return out
}

// GetPeriodPolicy returns the configured policy for model, or nil when the
// model's own default applies.
func (c *Config) GetPeriodPolicy(model string) *coeffs.Policy {
	s, ok := c.PeriodPolicy[model]
	if !ok {
		return nil
	}
	p, err := coeffs.ParsePolicy(s)
	if err != nil {
		return nil
	}
	return &p
}

// GetMetricsNamespace returns the metrics_namespace value or the default.
func (c *Config) GetMetricsNamespace() string {
	if c.MetricsNamespace == nil || *c.MetricsNamespace == "" {
		return DefaultMetricsNamespace
	}
	return *c.MetricsNamespace
}
