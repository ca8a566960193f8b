// Package check decides whether a candidate program still exhibits a
// divergent dead-code-elimination signature: the marker under
// investigation must survive the bad compiler setting, vanish under
// every good one, and the divergence must not be an artifact of
// undefined behavior or an unreachable call path.
package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrMissingMarker reports a case submitted for judgment without a
// marker. This is a misconfiguration of the invocation, not an
// uninteresting candidate, so it surfaces as an error.
var ErrMissingMarker = errors.New("case has no marker")

// Tools names the external executables the checker drives.
type Tools struct {
	// Clang and GCC are sane reference toolchains for warning
	// screening; Clang additionally builds the sanitizer binary and
	// answers include-path probes.
	Clang string
	GCC   string
	// CComp is the CompCert formal-semantics interpreter.
	CComp string
	// CallChainTool answers main -> marker reachability queries.
	CallChainTool string
	// StaticAnnotator rewrites applicable globals to internal linkage.
	StaticAnnotator string
	// IncludeDir holds the generator runtime headers (csmith.h).
	IncludeDir string
}

// predicate is one named stage of a short-circuit AND chain. A false
// verdict stops the chain; an error aborts it.
type predicate struct {
	name string
	eval func() (bool, error)
}

func evalChain(log *slog.Logger, preds []predicate) (bool, error) {
	for _, p := range preds {
		ok, err := p.eval()
		if err != nil {
			return false, fmt.Errorf("%s: %w", p.name, err)
		}
		if !ok {
			log.Debug("candidate rejected", slog.String("stage", p.name))
			return false, nil
		}
	}
	return true, nil
}

// Checker is the top-level interestingness oracle. All methods are pure
// functions of the case modulo the Builder's cache; the Checker itself
// holds no mutable state and is safe to call in a tight reduction loop.
type Checker struct {
	tools    Tools
	builder  Builder
	runner   CmdRunner
	includes IncludeResolver
	san      *Sanitizer
	timeouts Timeouts
	log      *slog.Logger
}

// NewChecker wires a Checker over the given Builder with real process
// execution and include resolution.
func NewChecker(tools Tools, b Builder, t Timeouts) *Checker {
	runner := ExecRunner{}
	return &Checker{
		tools:    tools,
		builder:  b,
		runner:   runner,
		includes: ExecIncludeResolver{Runner: runner},
		san:      NewSanitizer(tools, runner, t),
		timeouts: t,
		log:      slog.Default().With(slog.String("component", "checker")),
	}
}

// IsInteresting evaluates the four oracles cheapest-first with
// short-circuit semantics; the first reject wins and the remaining,
// more expensive oracles are skipped.
func (c *Checker) IsInteresting(rc ReduceCase) (bool, error) {
	if rc.Marker == "" {
		return false, ErrMissingMarker
	}
	return evalChain(c.log, []predicate{
		{"marker-liveness", func() (bool, error) { return c.IsInterestingWrtMarker(rc) }},
		{"call-chain", func() (bool, error) { return c.IsInterestingWrtCallChain(rc) }},
		{"static-globals", func() (bool, error) { return c.IsInterestingWithStaticGlobals(rc) }},
		{"empty-marker-bodies", func() (bool, error) { return c.IsInterestingWithEmptyMarkerBodies(rc) }},
	})
}

// IsInterestingWrtMarker checks that the marker is alive under the bad
// setting and dead under every good one. Evaluation over good settings
// stops at the first counterexample.
func (c *Checker) IsInterestingWrtMarker(rc ReduceCase) (bool, error) {
	prefix := MarkerPrefix(rc.Marker)
	aliveBad, err := c.builder.AliveMarkers(rc.Code, rc.BadSetting, prefix)
	if err != nil {
		return c.builderFailure(rc.BadSetting, err)
	}
	if !aliveBad[rc.Marker] {
		c.log.Debug("marker dead under bad setting",
			slog.String("marker", rc.Marker),
			slog.String("setting", rc.BadSetting.String()))
		return false, nil
	}
	for _, good := range rc.GoodSettings {
		aliveGood, err := c.builder.AliveMarkers(rc.Code, good, prefix)
		if err != nil {
			return c.builderFailure(good, err)
		}
		if aliveGood[rc.Marker] {
			c.log.Debug("marker alive under good setting",
				slog.String("marker", rc.Marker),
				slog.String("setting", good.String()))
			return false, nil
		}
	}
	return true, nil
}

// IsInterestingWrtCallChain asks the call-graph tool whether a call
// chain exists from main to the marker. The tool's reply must match the
// canonical phrase exactly; any failure or timeout degrades to a reject.
func (c *Checker) IsInterestingWrtCallChain(rc ReduceCase) (bool, error) {
	file, cleanup, err := scratchFile(rc.Code, ".c")
	if err != nil {
		return false, err
	}
	defer cleanup()

	paths, err := c.resolveIncludes(file)
	if err != nil {
		c.log.Debug("include resolution failed", slog.Any("err", err))
		return false, nil
	}

	args := []string{file, "--from=main", "--to=" + rc.Marker}
	for _, p := range paths {
		args = append(args, "--extra-arg=-isystem"+p)
	}
	out, err := runBounded(c.runner, c.timeouts.CallChain, RunOpts{}, c.tools.CallChainTool, args...)
	if err != nil {
		c.log.Debug("call-chain tool failed",
			slog.Bool("timeout", timedOut(err)), slog.Any("err", err))
		return false, nil
	}
	want := fmt.Sprintf("call chain exists between main -> %s", rc.Marker)
	return strings.TrimSpace(out) == strings.TrimSpace(want), nil
}

// IsInterestingWithStaticGlobals re-runs the liveness comparison after
// promoting applicable globals to internal linkage, this time searching
// the raw assembly text for the marker. This guards against a marker
// surviving purely through external-linkage visibility.
func (c *Checker) IsInterestingWithStaticGlobals(rc ReduceCase) (bool, error) {
	file, cleanup, err := scratchFile(rc.Code, ".c")
	if err != nil {
		return false, err
	}
	defer cleanup()

	paths, err := c.resolveIncludes(file)
	if err != nil {
		c.log.Debug("include resolution failed", slog.Any("err", err))
		return false, nil
	}

	// The annotator rewrites the file in place.
	args := []string{file}
	for _, p := range paths {
		args = append(args, "--extra-arg=-isystem"+p)
	}
	if out, err := runBounded(c.runner, c.timeouts.Compile, RunOpts{}, c.tools.StaticAnnotator, args...); err != nil {
		c.log.Debug("static annotator failed",
			slog.Any("err", err), slog.String("output", firstLine(out)))
		return false, nil
	}
	annotated, err := os.ReadFile(file)
	if err != nil {
		return false, fmt.Errorf("read annotated source: %w", err)
	}
	staticCode := string(annotated)

	asmBad, err := c.builder.AssemblyText(staticCode, rc.BadSetting)
	if err != nil {
		return c.builderFailure(rc.BadSetting, err)
	}
	if !strings.Contains(asmBad, rc.Marker) {
		return false, nil
	}
	for _, good := range rc.GoodSettings {
		asmGood, err := c.builder.AssemblyText(staticCode, good)
		if err != nil {
			return c.builderFailure(good, err)
		}
		if strings.Contains(asmGood, rc.Marker) {
			return false, nil
		}
	}
	return true, nil
}

// IsInterestingWithEmptyMarkerBodies turns every marker forward
// declaration into an empty-bodied definition and requires the result to
// pass the sanitize pipeline. A candidate whose well-definedness depends
// on the marker bodies is not a valid reduction target.
func (c *Checker) IsInterestingWithEmptyMarkerBodies(rc ReduceCase) (bool, error) {
	code := EmptyMarkerBodies(rc.Code, MarkerPrefix(rc.Marker))
	file, cleanup, err := scratchFile(code, ".c")
	if err != nil {
		return false, err
	}
	defer cleanup()

	return c.san.Sanitize(file, []string{"-I" + c.tools.IncludeDir})
}

func (c *Checker) resolveIncludes(file string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeouts.Compile)
	defer cancel()
	return c.includes.SystemIncludes(ctx, c.tools.Clang, file, "-I"+c.tools.IncludeDir)
}

// builderFailure classifies a Builder error: a candidate the compiler
// rejects is merely uninteresting, anything else is a fault.
func (c *Checker) builderFailure(s CompilerSetting, err error) (bool, error) {
	if errors.Is(err, ErrCompile) {
		c.log.Debug("candidate failed to compile",
			slog.String("setting", s.String()), slog.Any("err", err))
		return false, nil
	}
	return false, err
}
