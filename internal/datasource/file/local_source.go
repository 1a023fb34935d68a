// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"ditools/internal/datasource"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct {
	path     string
	resolver datasource.Resolver
}

// NewLocal returns a new Local data source bound to the provided filesystem
// path.
func NewLocal(path string) *Local { return &Local{path: path} }

// WithResolver returns a copy of l whose relative path is passed through r
// before opening.
func (l *Local) WithResolver(r datasource.Resolver) *Local {
	return &Local{path: l.path, resolver: r}
}

// Path returns the configured (unresolved) path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading and returns an io.ReadCloser.
//
// Behavior:
//   - If the context is already canceled or its deadline exceeded at the time
//     of the call, Open returns the context error immediately without touching
//     the filesystem.
//   - Relative paths go through the resolver, if one is set.
//   - The kernel is told the file will be read sequentially (where supported).
//   - Any filesystem error is wrapped with the path for context, while still
//     permitting errors.Is/As checks by callers (e.g., errors.Is(err, os.ErrNotExist)).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	path, err := datasource.ResolvePath(l.resolver, l.path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	adviseSequential(f)
	return f, nil
}

var _ datasource.Source = (*Local)(nil)
