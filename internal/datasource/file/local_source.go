// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFile is returned when the path exists but is not a regular file.
var ErrNotFile = errors.New("not a regular file")

// Local reads one input file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the configured path.
func (l *Local) Name() string { return l.path }

// Open opens the path for reading. A done ctx short-circuits before any
// filesystem access. Errors carry the path and still match os.ErrNotExist,
// os.ErrPermission or ErrNotFile.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	if !fi.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("open %s: %w (mode %s)", l.path, ErrNotFile, fi.Mode().Type())
	}
	return f, nil
}
