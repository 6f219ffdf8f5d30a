// Package storage contains the backend-agnostic SQL repository contract, a
// factory keyed by backend kind, and a batched loader. Concrete backends
// register themselves from init; import storage/all to enable them all.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is a connection to one destination table.
type Repository interface {
	// CopyFrom inserts rows aligned to columns and returns the number inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Reset removes every row from the configured table.
	Reset(ctx context.Context) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
	// Table is the destination table, optionally schema-qualified.
	Table      string
	Columns    []string
	KeyColumns []string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
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

// ListKinds returns the registered kinds, sorted.
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
