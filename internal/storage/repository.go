// Package storage holds the backend-agnostic database contract used by join
// jobs: database sources read their rows through Repository.Query, and
// database outputs write joined records through Repository.CopyFrom.
//
// Backends (sqlite, postgres, mysql, mssql) register a Factory from init;
// import ditools/internal/storage/all to enable every one of them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and parameterises a backend.
type Config struct {
	Kind string // registered backend name
	DSN  string // driver-specific connection string

	// Table and Columns describe the destination of CopyFrom. They are unused
	// when the repository only serves queries.
	Table   string
	Columns []string
}

// Repository is the contract every backend implements.
type Repository interface {
	// Query runs query and returns its rows as delimited lines.
	Query(ctx context.Context, query string, args ...any) (*Lines, error)

	// CopyFrom bulk-inserts rows (aligned to columns) into Config.Table and
	// returns the number of rows written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Exec runs a statement without results, typically DDL.
	Exec(ctx context.Context, sql string) error

	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind, replacing any earlier
// registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered backend names, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
