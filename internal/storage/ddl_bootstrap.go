package storage

import (
	"context"
	"fmt"
	"sync"

	"datalake/internal/model"
)

// DDLBootstrapper creates the destination table for t, named fqn, through
// repo.Exec. Backends register one per kind.
type DDLBootstrapper func(ctx context.Context, repo Repository, t *model.Table, fqn string) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates the table for t if it does not exist, using the
// bootstrapper registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, t *model.Table, fqn string) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, t, fqn)
}
