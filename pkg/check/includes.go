package check

import (
	"context"
	"os"
	"strings"
)

// IncludeResolver discovers the system include directories needed to
// parse a candidate standalone. It is an interface so the call-chain and
// static-global oracles can be tested without a real toolchain.
type IncludeResolver interface {
	// SystemIncludes returns the compiler's default include search
	// directories for file, with extraArg (e.g. -I<generator headers>)
	// added to the probe invocation.
	SystemIncludes(ctx context.Context, compiler, file, extraArg string) ([]string, error)
}

// ExecIncludeResolver probes a real compiler with -v and parses the
// search-list block it prints.
type ExecIncludeResolver struct {
	Runner CmdRunner
}

const (
	searchListStart = "#include <...> search starts here:"
	searchListEnd   = "End of search list."
)

func (r ExecIncludeResolver) SystemIncludes(ctx context.Context, compiler, file, extraArg string) ([]string, error) {
	args := []string{file, "-c", "-o", os.DevNull, "-v"}
	if extraArg != "" {
		args = append(args, extraArg)
	}
	// The search list is printed even when compilation fails, so the
	// output is parsed regardless of the exit status.
	out, err := r.Runner.Run(ctx, RunOpts{}, compiler, args...)
	paths := parseSearchList(out)
	if len(paths) == 0 && err != nil {
		return nil, err
	}
	return paths, nil
}

func parseSearchList(out string) []string {
	var paths []string
	collecting := false
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, searchListStart):
			collecting = true
		case strings.HasPrefix(line, searchListEnd):
			return paths
		case collecting:
			p := strings.TrimSpace(line)
			if p == "" {
				continue
			}
			if st, err := os.Stat(p); err == nil && st.IsDir() {
				paths = append(paths, p)
			}
		}
	}
	return paths
}
