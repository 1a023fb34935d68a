package mssql

import (
	"context"
	"testing"

	"ditools/internal/storage"
)

// TestRegistrationUsesNewRepositoryHook verifies that the "mssql" backend
// registered in init goes through the newRepository hook and that
// wrappedRepo propagates configuration and close behaviour.
func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	ctx := context.Background()

	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		called   bool
		gotCfg   Config
		closed   bool
		fakeRepo = &Repository{}
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		called = true
		gotCfg = cfg
		return fakeRepo, func() { closed = true }, nil
	}

	cfg := storage.Config{
		Kind:    "mssql",
		DSN:     "sqlserver://example",
		Table:   "dbo.joined",
		Columns: []string{"id", "name"},
	}
	repo, err := storage.New(ctx, cfg)
	if err != nil {
		t.Fatalf("storage.New() error = %v, want nil", err)
	}
	if !called {
		t.Fatalf("newRepository hook was not called")
	}
	if gotCfg.DSN != cfg.DSN || gotCfg.Table != cfg.Table || len(gotCfg.Columns) != len(cfg.Columns) {
		t.Errorf("hook cfg = %+v, want fields from %+v", gotCfg, cfg)
	}

	w, ok := repo.(*wrappedRepo)
	if !ok {
		t.Fatalf("storage.New() type = %T, want *wrappedRepo", repo)
	}
	if w.Repository != fakeRepo {
		t.Fatalf("wrappedRepo.Repository = %p, want %p", w.Repository, fakeRepo)
	}

	repo.Close()
	if !closed {
		t.Fatalf("wrappedRepo.Close() did not invoke closeFn")
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{DSN: "server=localhost;port=notaport"}); err == nil {
		t.Fatalf("NewRepository with malformed DSN error = nil")
	}
}

// BenchmarkStorageNew measures constructing an MSSQL repository through
// storage.New with the hook replaced by a fake.
func BenchmarkStorageNew(b *testing.B) {
	ctx := context.Background()

	orig := newRepository
	defer func() { newRepository = orig }()
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		return &Repository{cfg: cfg}, func() {}, nil
	}

	cfg := storage.Config{Kind: "mssql", DSN: "sqlserver://example", Table: "dbo.joined", Columns: []string{"id", "name", "city"}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		repo, err := storage.New(ctx, cfg)
		if err != nil {
			b.Fatalf("storage.New() error = %v", err)
		}
		repo.Close()
	}
}
