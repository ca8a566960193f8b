package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shao-hua-li/diopter/internal/config"
)

func writeCaseFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "case.yaml")
	doc := `
marker: DCEMarker5_
code: |
  void DCEMarker5_(void);
  int main(){ DCEMarker5_(); }
bad_setting: {compiler: gcc-13, opt_level: O3, additional_flags: [-Iinc]}
good_settings:
  - {compiler: clang-16, opt_level: O3, additional_flags: [-Iinc]}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeSourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.c")
	if err := os.WriteFile(path, []byte("int main(){}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildCases_BothOverridden(t *testing.T) {
	opts := rootOptions{
		file:         writeSourceFile(t),
		marker:       "DCEMarker0_",
		badSettings:  []string{"gcc-12", "gcc-13"},
		goodSettings: []string{"clang-16"},
	}
	cases, err := buildCases(opts, config.Default())
	if err != nil {
		t.Fatalf("buildCases: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected one case per bad setting, got %d", len(cases))
	}
	for _, c := range cases {
		if c.Marker != "DCEMarker0_" {
			t.Errorf("marker = %q", c.Marker)
		}
		if len(c.GoodSettings) != 1 || c.GoodSettings[0].Compiler != "clang-16" {
			t.Errorf("good settings = %+v", c.GoodSettings)
		}
	}
	if cases[0].BadSetting.Compiler != "gcc-12" || cases[1].BadSetting.Compiler != "gcc-13" {
		t.Errorf("bad settings = %+v, %+v", cases[0].BadSetting, cases[1].BadSetting)
	}
}

func TestBuildCases_BothOverriddenRequiresMarker(t *testing.T) {
	opts := rootOptions{
		file:         writeSourceFile(t),
		badSettings:  []string{"gcc-12"},
		goodSettings: []string{"clang-16"},
	}
	if _, err := buildCases(opts, config.Default()); err == nil {
		t.Fatal("expected marker-required error")
	}
}

func TestBuildCases_BadOnly(t *testing.T) {
	opts := rootOptions{
		file:         writeCaseFile(t),
		badSettings:  []string{"gcc-12:O2"},
		badOptLevels: []string{"O3"},
	}
	cases, err := buildCases(opts, config.Default())
	if err != nil {
		t.Fatalf("buildCases: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 case, got %d", len(cases))
	}
	c := cases[0]
	if c.BadSetting.Compiler != "gcc-12" || c.BadSetting.OptLevel != "O2" {
		t.Errorf("bad setting = %+v", c.BadSetting)
	}
	// The override inherits the stored bad setting's flags.
	if len(c.BadSetting.AdditionalFlags) != 1 || c.BadSetting.AdditionalFlags[0] != "-Iinc" {
		t.Errorf("bad flags = %v", c.BadSetting.AdditionalFlags)
	}
	if c.Marker != "DCEMarker5_" {
		t.Errorf("marker = %q", c.Marker)
	}
}

func TestBuildCases_GoodOnly(t *testing.T) {
	opts := rootOptions{
		file:          writeCaseFile(t),
		goodSettings:  []string{"clang-15", "clang-16"},
		goodOptLevels: []string{"O2"},
	}
	cases, err := buildCases(opts, config.Default())
	if err != nil {
		t.Fatalf("buildCases: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 case, got %d", len(cases))
	}
	goods := cases[0].GoodSettings
	if len(goods) != 2 {
		t.Fatalf("expected 2 good settings, got %d", len(goods))
	}
	if goods[0].Compiler != "clang-15" || goods[1].Compiler != "clang-16" {
		t.Errorf("good settings = %+v", goods)
	}
}

func TestBuildCases_AsStored(t *testing.T) {
	opts := rootOptions{file: writeCaseFile(t)}
	cases, err := buildCases(opts, config.Default())
	if err != nil {
		t.Fatalf("buildCases: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 case, got %d", len(cases))
	}
	if cases[0].Marker != "DCEMarker5_" {
		t.Errorf("marker = %q", cases[0].Marker)
	}
	if cases[0].BadSetting.Compiler != "gcc-13" {
		t.Errorf("bad setting = %+v", cases[0].BadSetting)
	}
}

func TestBuildCases_MarkerFlagOverridesStored(t *testing.T) {
	opts := rootOptions{file: writeCaseFile(t), marker: "DCEMarker9_"}
	cases, err := buildCases(opts, config.Default())
	if err != nil {
		t.Fatalf("buildCases: %v", err)
	}
	if cases[0].Marker != "DCEMarker9_" {
		t.Errorf("marker = %q, want override", cases[0].Marker)
	}
}
