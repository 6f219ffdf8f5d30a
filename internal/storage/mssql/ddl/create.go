// Package ddl provides MSSQL-specific helpers for generating CREATE TABLE
// statements from the generic ddl.TableDef model.
//
// The builder here:
//   - Uses SQL Server-style identifier quoting: [schema].[table], [col].
//   - Wraps CREATE TABLE in an IF OBJECT_ID(...) IS NULL guard since T-SQL
//     does not support CREATE TABLE IF NOT EXISTS.
//   - Renders PRIMARY KEY constraints as a separate clause.
package ddl

import (
	"context"
	"fmt"
	"strings"

	gddl "datalake/internal/ddl"
	"datalake/internal/model"
	"datalake/internal/storage"
)

// keyStringType bounds string key columns; NVARCHAR(MAX) cannot be indexed.
const keyStringType = "NVARCHAR(450)"

// MapType maps a logical column type into a SQL Server column type.
func MapType(t model.ColumnType) string {
	switch t {
	case model.TypeInt64:
		return "BIGINT"
	case model.TypeFloat64:
		return "FLOAT"
	case model.TypeTimestamp:
		return "DATETIMEOFFSET"
	default:
		return "NVARCHAR(MAX)"
	}
}

// BuildCreateTableSQL returns a T-SQL script that creates a table matching
// the provided definition if it does not already exist:
//
//	IF OBJECT_ID(N'[schema].[table]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [schema].[table] (
//	    [col1] TYPE [NOT NULL],
//	    PRIMARY KEY ([pk1])
//	  );
//	END;
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("mssql ddl: table FQN must not be empty")
	}
	t.Columns = append([]gddl.ColumnDef(nil), t.Columns...)
	for i, c := range t.Columns {
		if c.PrimaryKey && strings.EqualFold(c.SQLType, "NVARCHAR(MAX)") {
			t.Columns[i].SQLType = keyStringType
		}
	}
	create, err := gddl.BuildCreateTableSQL(t, quoteIdent, false)
	if err != nil {
		return "", fmt.Errorf("mssql %w", err)
	}
	quoted := gddl.QuoteFQN(fqn, quoteIdent)
	body := strings.ReplaceAll(create, "\n", "\n  ")
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  %s\nEND;", quoted, body), nil
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

// quoteIdent quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
