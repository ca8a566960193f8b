package check

import (
	"log/slog"
	"time"
)

// Timeouts bounds every class of external invocation. A timeout always
// degrades to a reject verdict, never a crash.
type Timeouts struct {
	// Compile bounds a single compiler invocation.
	Compile time.Duration
	// Execute bounds a sanitizer-instrumented binary run.
	Execute time.Duration
	// Interp bounds the formal-semantics interpreter.
	Interp time.Duration
	// CallChain bounds the call-graph query tool.
	CallChain time.Duration
}

// DefaultTimeouts returns the stock limits.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Compile:   8 * time.Second,
		Execute:   2 * time.Second,
		Interp:    16 * time.Second,
		CallChain: 8 * time.Second,
	}
}

// Sanitizer decides whether a candidate's behavior is well defined. It
// chains three gates: warning screening under two independent compilers,
// a UB/address-sanitizer run, and CompCert's reference interpreter.
type Sanitizer struct {
	clang    string
	gcc      string
	ccomp    string
	runner   CmdRunner
	timeouts Timeouts
	log      *slog.Logger
}

// NewSanitizer wires a sanitize pipeline over the given tools.
func NewSanitizer(tools Tools, r CmdRunner, t Timeouts) *Sanitizer {
	return &Sanitizer{
		clang:    tools.Clang,
		gcc:      tools.GCC,
		ccomp:    tools.CComp,
		runner:   r,
		timeouts: t,
		log:      slog.Default().With(slog.String("component", "sanitize")),
	}
}

// Sanitize reports whether the program in file exhibits well-defined
// behavior. The stages run cheapest first and short-circuit: a candidate
// rejected by warning screening is never executed, one that fails under
// sanitizers is never interpreted.
func (s *Sanitizer) Sanitize(file string, flags []string) (bool, error) {
	return evalChain(s.log, []predicate{
		{"compiler-warnings", func() (bool, error) { return s.checkCompilerWarnings(file, flags) }},
		{"dynamic-sanitizers", func() (bool, error) { return s.runDynamicSanitizers(file, flags) }},
		{"ccomp-interp", func() (bool, error) { return s.verifyWithCComp(file, flags) }},
	})
}

// ccOutput compiles file object-only with diagnostics enabled and
// returns the combined output. The returned error carries both non-zero
// exits and timeouts.
func (s *Sanitizer) ccOutput(cc, file string, flags []string) (string, error) {
	args := []string{
		file,
		"-c",
		"-o/dev/null",
		"-Wall",
		"-Wextra",
		"-Wpedantic",
		"-O1",
		"-Wno-builtin-declaration-mismatch",
	}
	args = append(args, flags...)
	return runBounded(s.runner, s.timeouts.Compile, RunOpts{}, cc, args...)
}

func (s *Sanitizer) checkCompilerWarnings(file string, flags []string) (bool, error) {
	clangOut, clangErr := s.ccOutput(s.clang, file, flags)
	gccOut, gccErr := s.ccOutput(s.gcc, file, flags)
	if clangErr != nil || gccErr != nil {
		s.log.Debug("compiler rejected candidate",
			slog.Any("clang", clangErr), slog.Any("gcc", gccErr))
		return false, nil
	}
	if found := matchWarnings(clangOut, gccOut); len(found) > 0 {
		for _, w := range found {
			s.log.Debug("compiler warning found",
				slog.String("signature", w.Substring),
				slog.String("category", w.Category))
		}
		return false, nil
	}
	return true, nil
}

// runDynamicSanitizers compiles file with UBSan+ASan and requires a
// clean run. The instrumented binary lives in a scoped scratch file and
// is removed on every path.
func (s *Sanitizer) runDynamicSanitizers(file string, flags []string) (bool, error) {
	exe, cleanup, err := scratchExe()
	if err != nil {
		return false, err
	}
	defer cleanup()

	args := []string{file, "-O1", "-fsanitize=undefined,address"}
	args = append(args, flags...)
	args = append(args, "-o"+exe)
	if _, err := runBounded(s.runner, s.timeouts.Compile, RunOpts{}, s.clang, args...); err != nil {
		s.log.Debug("sanitizer build failed", slog.Any("err", err))
		return false, nil
	}
	if _, err := runBounded(s.runner, s.timeouts.Execute, RunOpts{}, exe); err != nil {
		s.log.Debug("sanitizer run failed",
			slog.Bool("timeout", timedOut(err)), slog.Any("err", err))
		return false, nil
	}
	return true, nil
}

// verifyWithCComp interprets file under CompCert with all undefined
// behavior flagged. The interpreter drops scratch files of its own, so
// TMPDIR points at a scoped directory.
func (s *Sanitizer) verifyWithCComp(file string, flags []string) (bool, error) {
	dir, cleanup, err := scratchDir()
	if err != nil {
		return false, err
	}
	defer cleanup()

	args := []string{file, "-interp", "-fall"}
	args = append(args, flags...)
	opts := RunOpts{Env: []string{"TMPDIR=" + dir}}
	if _, err := runBounded(s.runner, s.timeouts.Interp, opts, s.ccomp, args...); err != nil {
		s.log.Debug("ccomp rejected candidate",
			slog.Bool("timeout", timedOut(err)), slog.Any("err", err))
		return false, nil
	}
	return true, nil
}
