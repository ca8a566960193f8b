package check

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// RunOpts carries the optional parts of an external invocation.
type RunOpts struct {
	// Dir is the working directory; empty means inherit.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
}

// CmdRunner executes an external tool and returns its combined
// stdout+stderr. The context bounds the process lifetime; expiry surfaces
// as context.DeadlineExceeded. A non-zero exit returns the output
// together with the *exec.ExitError.
type CmdRunner interface {
	Run(ctx context.Context, opts RunOpts, name string, args ...string) (string, error)
}

// ExecRunner is the real CmdRunner backed by os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, opts RunOpts, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	// Compiler drivers fork helpers (gcc runs cc1) and a candidate that
	// loops during optimization loops in the helper, not the driver.
	// Killing only the direct child would leave descendants holding the
	// output pipe and block CombinedOutput past the deadline, so the
	// whole process group goes down together, with WaitDelay as a
	// backstop for anything that escaped the group.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	// A killed process reports "signal: killed"; the deadline is the
	// actual cause and callers switch on it.
	if ctx.Err() != nil {
		return string(out), ctx.Err()
	}
	return string(out), err
}

// runBounded runs name with a fresh deadline of d.
func runBounded(r CmdRunner, d time.Duration, opts RunOpts, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return r.Run(ctx, opts, name, args...)
}

// timedOut reports whether an error from a CmdRunner is a deadline expiry.
func timedOut(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
