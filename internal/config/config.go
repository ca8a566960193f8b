// Package config loads the external-tool configuration the checker needs:
// paths to the compilers and analysis binaries, the test-generator runtime
// include directory, default flags, and per-stage timeouts.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shao-hua-li/diopter/pkg/check"
)

// Timeouts holds per-stage limits in seconds as stored on disk.
type Timeouts struct {
	Compile   int `yaml:"compile"`
	Execute   int `yaml:"execute"`
	Interp    int `yaml:"interp"`
	CallChain int `yaml:"call_chain"`
}

// Config describes every external collaborator of the checker.
type Config struct {
	// Sane reference toolchains used for warning screening, sanitizer
	// instrumentation and include-path discovery.
	Clang string `yaml:"clang"`
	GCC   string `yaml:"gcc"`
	// CompCert, used as the formal-semantics interpreter.
	CComp string `yaml:"ccomp"`
	// Call-graph query tool (main -> marker reachability).
	CallChainTool string `yaml:"ccc"`
	// Source annotator that gives globals internal linkage.
	StaticAnnotator string `yaml:"static_annotator"`
	// Directory with the generator runtime headers (csmith.h).
	IncludeDir string `yaml:"include_dir"`

	// Flags applied when a case is built from a bare source file.
	DefaultFlags []string `yaml:"default_flags"`
	// Opt levels used to expand setting overrides that do not pin one.
	DefaultOptLevels []string `yaml:"default_opt_levels"`

	Timeouts Timeouts `yaml:"timeouts"`
}

// Default returns a configuration that assumes the tools are on PATH.
func Default() *Config {
	return &Config{
		Clang:            "clang",
		GCC:              "gcc",
		CComp:            "ccomp",
		CallChainTool:    "ccc",
		StaticAnnotator:  "static-annotator",
		IncludeDir:       "/usr/include/csmith",
		DefaultOptLevels: []string{"O3"},
		Timeouts: Timeouts{
			Compile:   8,
			Execute:   2,
			Interp:    16,
			CallChain: 8,
		},
	}
}

// Load reads a YAML configuration file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	named := map[string]string{
		"clang": c.Clang,
		"gcc":   c.GCC,
		"ccomp": c.CComp,
		"ccc":   c.CallChainTool,
	}
	for name, v := range named {
		if v == "" {
			return fmt.Errorf("missing tool path for %q", name)
		}
	}
	if len(c.DefaultOptLevels) == 0 {
		return fmt.Errorf("default_opt_levels must not be empty")
	}
	return nil
}

// Tools converts the configuration into the checker's tool table.
func (c *Config) Tools() check.Tools {
	return check.Tools{
		Clang:           c.Clang,
		GCC:             c.GCC,
		CComp:           c.CComp,
		CallChainTool:   c.CallChainTool,
		StaticAnnotator: c.StaticAnnotator,
		IncludeDir:      c.IncludeDir,
	}
}

// CheckTimeouts converts the on-disk second counts into durations.
func (c *Config) CheckTimeouts() check.Timeouts {
	t := check.DefaultTimeouts()
	if c.Timeouts.Compile > 0 {
		t.Compile = time.Duration(c.Timeouts.Compile) * time.Second
	}
	if c.Timeouts.Execute > 0 {
		t.Execute = time.Duration(c.Timeouts.Execute) * time.Second
	}
	if c.Timeouts.Interp > 0 {
		t.Interp = time.Duration(c.Timeouts.Interp) * time.Second
	}
	if c.Timeouts.CallChain > 0 {
		t.CallChain = time.Duration(c.Timeouts.CallChain) * time.Second
	}
	return t
}
