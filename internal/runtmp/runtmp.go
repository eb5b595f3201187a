// internal/runtmp/runtmp.go
package runtmp

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Dir is the run-scoped scratch directory: generated command lists and
// per-unit manifest-line files live here and are reclaimed when the run
// ends, cancelled or not.
type Dir struct {
	Path  string
	RunID string
}

// New creates a uniquely named scratch directory under base (os.TempDir()
// when base is empty).
func New(base string) (*Dir, error) {
	if base == "" {
		base = os.TempDir()
	}
	id := uuid.NewString()
	path := filepath.Join(base, "varbatch-"+id)
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, err
	}
	return &Dir{Path: path, RunID: id}, nil
}

// CommandListPath is where the planned-invocation list is written.
func (d *Dir) CommandListPath() string { return filepath.Join(d.Path, "commands.tsv") }

// ScratchManifestPath is the scratch copy of the frozen manifest.
func (d *Dir) ScratchManifestPath() string { return filepath.Join(d.Path, "manifest.tsv") }

// Remove reclaims the scratch directory and everything under it.
func (d *Dir) Remove() error { return os.RemoveAll(d.Path) }
