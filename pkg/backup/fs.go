package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSTarget stores snapshots as files in a local directory.
type FSTarget struct {
	dir string
}

// NewFSTarget creates a target rooted at dir, creating it if needed.
func NewFSTarget(dir string) (*FSTarget, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &FSTarget{dir: dir}, nil
}

// Put writes the snapshot to a temporary file and renames it into place so a
// crashed export never leaves a half-written snapshot under the final name.
func (t *FSTarget) Put(ctx context.Context, name string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(t.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(t.dir, name))
}
