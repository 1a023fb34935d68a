package storage

import (
	"context"
	"fmt"
	"sync"
)

// DDLFunc renders a statement that creates table with every column typed as
// text, doing nothing when the table already exists. Joined records carry
// only strings, so no type inference is involved.
type DDLFunc func(table string, columns []string) string

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLFunc{}
)

// RegisterDDL registers (or replaces) the DDLFunc for a storage kind. It is
// typically called from a backend's init.
func RegisterDDL(kind string, fn DDLFunc) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates cfg.Table with cfg.Columns through repo when it does
// not exist yet.
func EnsureTable(ctx context.Context, repo Repository, cfg Config) error {
	ddlMu.RLock()
	fn, ok := ddlFns[cfg.Kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL registered for storage.kind=%q", cfg.Kind)
	}
	if cfg.Table == "" || len(cfg.Columns) == 0 {
		return fmt.Errorf("ensure table: table and columns are required")
	}
	if err := repo.Exec(ctx, fn(cfg.Table, cfg.Columns)); err != nil {
		return fmt.Errorf("ensure table %s: %w", cfg.Table, err)
	}
	return nil
}
