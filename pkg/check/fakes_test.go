package check

import (
	"context"
	"path/filepath"
	"strings"
)

// fakeBuilder scripts Builder answers per setting and records every
// query so tests can assert short-circuit behavior.
type fakeBuilder struct {
	alive map[string]map[string]bool // setting string -> alive markers
	asm   map[string]string          // setting string -> assembly text
	errs  map[string]error           // setting string -> forced error

	aliveCalls []string
	asmCalls   []string
}

func (b *fakeBuilder) AliveMarkers(code string, s CompilerSetting, prefix string) (map[string]bool, error) {
	key := s.String()
	b.aliveCalls = append(b.aliveCalls, key)
	if err := b.errs[key]; err != nil {
		return nil, err
	}
	return b.alive[key], nil
}

func (b *fakeBuilder) AssemblyText(code string, s CompilerSetting) (string, error) {
	key := s.String()
	b.asmCalls = append(b.asmCalls, key)
	if err := b.errs[key]; err != nil {
		return "", err
	}
	return b.asm[key], nil
}

type fakeResponse struct {
	out string
	err error
}

// fakeRunner scripts CmdRunner answers by executable name. Scratch
// sanitizer binaries get the synthetic key "exe" since their names are
// random.
type fakeRunner struct {
	responses map[string]fakeResponse
	calls     []string
}

func runnerKey(name string) string {
	base := filepath.Base(name)
	if strings.Contains(base, ".exe") {
		return "exe"
	}
	return base
}

func (r *fakeRunner) Run(ctx context.Context, opts RunOpts, name string, args ...string) (string, error) {
	key := runnerKey(name)
	r.calls = append(r.calls, key)
	if resp, ok := r.responses[key]; ok {
		return resp.out, resp.err
	}
	return "", nil
}

func (r *fakeRunner) callCount(key string) int {
	n := 0
	for _, c := range r.calls {
		if c == key {
			n++
		}
	}
	return n
}

// fakeResolver returns a fixed include-path answer.
type fakeResolver struct {
	paths []string
	err   error
}

func (f fakeResolver) SystemIncludes(ctx context.Context, compiler, file, extraArg string) ([]string, error) {
	return f.paths, f.err
}
