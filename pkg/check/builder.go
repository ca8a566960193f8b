package check

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ErrCompile marks a failed compilation of a candidate program. Reduction
// regularly produces programs a compiler rejects, so callers treat this
// class as an uninteresting candidate rather than a fault.
var ErrCompile = errors.New("compilation failed")

// Builder compiles candidate programs and reports what survives
// optimization. Results must be deterministic per (code, setting) pair;
// the Builder owns whatever caching and locking it does.
type Builder interface {
	// AliveMarkers returns the marker-family identifiers (sharing prefix)
	// still reachable in the optimized output of code under s.
	AliveMarkers(code string, s CompilerSetting, prefix string) (map[string]bool, error)
	// AssemblyText returns the raw assembly of code compiled under s.
	AssemblyText(code string, s CompilerSetting) (string, error)
}

// CompileBuilder is the exec-backed Builder. It compiles to assembly in
// scoped scratch files and memoizes the assembly keyed by the content
// hash of (code, setting).
type CompileBuilder struct {
	runner  CmdRunner
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]string
}

// NewCompileBuilder returns a Builder running real compilers through r,
// each invocation bounded by timeout.
func NewCompileBuilder(r CmdRunner, timeout time.Duration) *CompileBuilder {
	return &CompileBuilder{
		runner:  r,
		timeout: timeout,
		cache:   make(map[string]string),
	}
}

func cacheKey(code string, s CompilerSetting) string {
	h := sha256.New()
	h.Write([]byte(code))
	h.Write([]byte{0})
	h.Write([]byte(s.String()))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *CompileBuilder) lookup(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	asm, ok := b.cache[key]
	return asm, ok
}

func (b *CompileBuilder) store(key, asm string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache[key] = asm
}

// AssemblyText compiles code with -S under s and returns the assembly.
// Compiler rejection or timeout wraps ErrCompile.
func (b *CompileBuilder) AssemblyText(code string, s CompilerSetting) (string, error) {
	key := cacheKey(code, s)
	if asm, ok := b.lookup(key); ok {
		return asm, nil
	}

	src, cleanSrc, err := scratchFile(code, ".c")
	if err != nil {
		return "", err
	}
	defer cleanSrc()
	asmOut, cleanAsm, err := scratchFile("", ".s")
	if err != nil {
		return "", err
	}
	defer cleanAsm()

	args := append([]string{"-S", src, "-o", asmOut}, s.Flags()...)
	if out, err := runBounded(b.runner, b.timeout, RunOpts{}, s.Compiler, args...); err != nil {
		return "", fmt.Errorf("%w: %s %s: %s", ErrCompile, s.Compiler, err, firstLine(out))
	}
	data, err := os.ReadFile(asmOut)
	if err != nil {
		return "", fmt.Errorf("read assembly: %w", err)
	}
	asm := string(data)
	b.store(key, asm)
	return asm, nil
}

// AliveMarkers compiles code under s and collects the marker identifiers
// that are still referenced as branch targets in the assembly. A marker
// whose call was eliminated leaves no such reference.
func (b *CompileBuilder) AliveMarkers(code string, s CompilerSetting, prefix string) (map[string]bool, error) {
	asm, err := b.AssemblyText(code, s)
	if err != nil {
		return nil, err
	}
	return scanAliveMarkers(asm, prefix), nil
}

func scanAliveMarkers(asm, prefix string) map[string]bool {
	re := regexp.MustCompile(`\b(?:call|jmp)[a-z]*\s+.*?(` + regexp.QuoteMeta(prefix) + `[0-9]+_?)`)
	alive := make(map[string]bool)
	for _, line := range strings.Split(asm, "\n") {
		if m := re.FindStringSubmatch(line); m != nil {
			alive[m[1]] = true
		}
	}
	return alive
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
