// Package emit holds what the artifact writers share: per-artifact results
// and atomic file output.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
)

// Result reports the outcome of one artifact.
type Result struct {
	Name string
	Path string
	Err  error
}

// OK reports whether the artifact was written.
func (r Result) OK() bool { return r.Err == nil }

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// WriteFile writes data to path through a temporary file in the same
// directory and renames it into place. Parent directories are created.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(name, 0o644); err != nil { //nolint:gosec // artifacts are meant to be shared
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
