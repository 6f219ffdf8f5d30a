// Package ddl renders MySQL CREATE TABLE statements for output tables.
package ddl

import (
	"context"
	"strings"

	gddl "datalake/internal/ddl"
	"datalake/internal/model"
	"datalake/internal/storage"
)

// MapType maps a logical column type onto a MySQL type. TEXT cannot be a
// primary key without a prefix length, so BuildCreateTableSQL narrows string
// keys to VARCHAR(255).
func MapType(t model.ColumnType) string {
	switch t {
	case model.TypeInt64:
		return "BIGINT"
	case model.TypeFloat64:
		return "DOUBLE"
	case model.TypeTimestamp:
		return "DATETIME(6)"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL returns CREATE TABLE IF NOT EXISTS with backtick-quoted
// identifiers.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	t.Columns = append([]gddl.ColumnDef(nil), t.Columns...)
	for i, c := range t.Columns {
		if c.PrimaryKey && strings.EqualFold(c.SQLType, "TEXT") {
			t.Columns[i].SQLType = "VARCHAR(255)"
		}
	}
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

func quoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
