package check

import (
	"fmt"
	"os"
)

// The checker runs at very high frequency inside reduction loops, so
// every materialized file is scoped: helpers hand back an explicit path
// plus a cleanup func and never touch the process-wide temp default.

// scratchFile writes content to a fresh temporary file with the given
// suffix. The cleanup func removes it and is safe to call once on every
// exit path.
func scratchFile(content, suffix string) (string, func(), error) {
	f, err := os.CreateTemp("", "checker-*"+suffix)
	if err != nil {
		return "", nil, fmt.Errorf("create scratch file: %w", err)
	}
	name := f.Name()
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(name)
		return "", nil, fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", nil, fmt.Errorf("close scratch file: %w", err)
	}
	return name, func() { os.Remove(name) }, nil
}

// scratchExe reserves a fresh executable path (mode 0755) for a compiler
// to fill in.
func scratchExe() (string, func(), error) {
	f, err := os.CreateTemp("", "checker-*.exe")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch executable: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", nil, fmt.Errorf("close scratch executable: %w", err)
	}
	if err := os.Chmod(name, 0o755); err != nil {
		os.Remove(name)
		return "", nil, fmt.Errorf("chmod scratch executable: %w", err)
	}
	return name, func() { os.Remove(name) }, nil
}

// scratchDir creates a fresh temporary directory for tools that drop
// their own scratch files.
func scratchDir() (string, func(), error) {
	dir, err := os.MkdirTemp("", "checker-*")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}
