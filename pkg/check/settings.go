package check

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CompilerSetting identifies one compiler invocation flavor: the
// executable, the optimization level and any additional flags. It is a
// value type; identical (code, setting) pairs must compile identically so
// Builder results stay cacheable.
type CompilerSetting struct {
	Compiler        string   `yaml:"compiler"`
	OptLevel        string   `yaml:"opt_level"`
	AdditionalFlags []string `yaml:"additional_flags"`
}

// Flags returns the full flag list for an invocation, opt level first.
func (s CompilerSetting) Flags() []string {
	flags := make([]string, 0, len(s.AdditionalFlags)+1)
	if s.OptLevel != "" {
		flags = append(flags, "-"+s.OptLevel)
	}
	return append(flags, s.AdditionalFlags...)
}

// WithFlags returns a copy of s whose additional flags are replaced.
// Neither s nor the argument slice is aliased by the result.
func (s CompilerSetting) WithFlags(flags []string) CompilerSetting {
	cpy := s
	cpy.AdditionalFlags = append([]string(nil), flags...)
	return cpy
}

func (s CompilerSetting) String() string {
	return strings.Join(append([]string{s.Compiler}, s.Flags()...), " ")
}

// ReduceCase is the unit of judgment: one candidate program, the marker
// under investigation, the setting believed to exhibit the divergence and
// the reference settings believed not to.
type ReduceCase struct {
	Code         string
	Marker       string
	BadSetting   CompilerSetting
	GoodSettings []CompilerSetting
}

// MarkerPrefix strips the trailing numeric id from a marker identifier.
// Markers are of the form <prefix><digits>_ (e.g. DCEMarker123_), so the
// optional trailing underscore is removed before the digits.
func MarkerPrefix(marker string) string {
	trimmed := strings.TrimRight(marker, "_")
	return strings.TrimRight(trimmed, "0123456789")
}

// CopyFlags copies the additional flags of from onto each setting in to,
// returning fresh values. The inputs are left untouched.
func CopyFlags(from CompilerSetting, to []CompilerSetting) []CompilerSetting {
	res := make([]CompilerSetting, 0, len(to))
	for _, s := range to {
		res = append(res, s.WithFlags(from.AdditionalFlags))
	}
	return res
}

// OverrideBad derives one case per override setting. Each derived case
// shares code and marker with the base case; the override takes the base
// bad setting's additional flags.
func OverrideBad(c ReduceCase, overrides []CompilerSetting) []ReduceCase {
	settings := CopyFlags(c.BadSetting, overrides)
	res := make([]ReduceCase, 0, len(settings))
	for _, s := range settings {
		cpy := c
		cpy.BadSetting = s
		cpy.GoodSettings = append([]CompilerSetting(nil), c.GoodSettings...)
		res = append(res, cpy)
	}
	return res
}

// OverrideGood derives one case whose good settings are replaced by the
// overrides, each carrying the flags of the base case's first good
// setting. A base case without good settings has no flags to source and
// is reported as an error.
func OverrideGood(c ReduceCase, overrides []CompilerSetting) (ReduceCase, error) {
	if len(c.GoodSettings) == 0 {
		return ReduceCase{}, errors.New("base case has no good settings to source flags from")
	}
	cpy := c
	cpy.GoodSettings = CopyFlags(c.GoodSettings[0], overrides)
	return cpy, nil
}

// ExpandSettings builds one setting per (compiler, opt level) pair. An
// entry of the form "name:Ox" pins its own opt level and skips the cross
// product.
func ExpandSettings(compilers, optLevels []string) []CompilerSetting {
	var res []CompilerSetting
	for _, entry := range compilers {
		if name, level, ok := strings.Cut(entry, ":"); ok {
			res = append(res, CompilerSetting{Compiler: name, OptLevel: level})
			continue
		}
		for _, level := range optLevels {
			res = append(res, CompilerSetting{Compiler: entry, OptLevel: level})
		}
	}
	return res
}

type caseFile struct {
	Code         string            `yaml:"code"`
	File         string            `yaml:"file"`
	Marker       string            `yaml:"marker"`
	BadSetting   CompilerSetting   `yaml:"bad_setting"`
	GoodSettings []CompilerSetting `yaml:"good_settings"`
}

// LoadCase reads a stored case from a YAML file. The program source is
// either inline under "code" or referenced under "file" relative to the
// case file.
func LoadCase(path string) (ReduceCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ReduceCase{}, fmt.Errorf("read case %s: %w", path, err)
	}
	var cf caseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return ReduceCase{}, fmt.Errorf("parse case %s: %w", path, err)
	}
	code := cf.Code
	if code == "" {
		if cf.File == "" {
			return ReduceCase{}, fmt.Errorf("case %s: neither code nor file given", path)
		}
		ref := cf.File
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(filepath.Dir(path), ref)
		}
		raw, err := os.ReadFile(ref)
		if err != nil {
			return ReduceCase{}, fmt.Errorf("read case source %s: %w", ref, err)
		}
		code = string(raw)
	}
	if len(cf.GoodSettings) == 0 {
		return ReduceCase{}, fmt.Errorf("case %s: good_settings must not be empty", path)
	}
	return ReduceCase{
		Code:         code,
		Marker:       cf.Marker,
		BadSetting:   cf.BadSetting,
		GoodSettings: cf.GoodSettings,
	}, nil
}
