// Package state persists the pipeline's run artifacts and delivery state as
// JSON files.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads a JSON snapshot into a value of type T.
// A missing file is reported as an error wrapping fs.ErrNotExist so callers
// can tell "not produced yet" apart from corruption.
func Load[T any](path string) (T, error) {
	var v T
	raw, err := os.ReadFile(path) //nolint:gosec // paths come from configuration
	if err != nil {
		return v, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return v, nil
}

// Save writes a value as an indented JSON snapshot, replacing any previous
// file atomically (write to a temp file, then rename) so a crash mid-write
// never leaves a truncated snapshot.
func Save[T any](path string, v T) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
