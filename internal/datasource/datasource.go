// Package datasource defines where raw bytes come from and how logical file
// names are mapped to paths on disk.
package datasource

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
)

// Source opens a byte stream.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Resolver maps a logical file name to the path that should actually be
// opened (for example the newest of several files differing only in case).
type Resolver interface {
	Resolve(name string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) (string, error)

// Resolve calls f(name).
func (f ResolverFunc) Resolve(name string) (string, error) { return f(name) }

// ResolvePath returns name unchanged when r is nil or name is absolute;
// otherwise it asks r.
func ResolvePath(r Resolver, name string) (string, error) {
	if r == nil || filepath.IsAbs(name) {
		return name, nil
	}
	p, err := r.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	return p, nil
}
