// Package ddl renders SQLite CREATE TABLE statements for output tables.
package ddl

import (
	"context"
	"strings"

	gddl "datalake/internal/ddl"
	"datalake/internal/model"
	"datalake/internal/storage"
)

// MapType maps a logical column type onto a SQLite type affinity.
// Timestamps are stored as ISO-8601 TEXT.
func MapType(t model.ColumnType) string {
	switch t {
	case model.TypeInt64:
		return "INTEGER"
	case model.TypeFloat64:
		return "REAL"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL returns CREATE TABLE IF NOT EXISTS with double-quoted
// identifiers.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(t, quoteIdent, true)
}

// EnsureTable creates the table for t, named fqn, if it does not exist.
func EnsureTable(ctx context.Context, repo storage.Repository, t *model.Table, fqn string) error {
	td, err := gddl.FromTable(t, fqn, MapType)
	if err != nil {
		return err
	}
	sql, err := BuildCreateTableSQL(td)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}

func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
