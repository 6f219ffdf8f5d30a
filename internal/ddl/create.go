// Package ddl defines a small, dialect-agnostic model for CREATE TABLE
// statements. Backend packages render it with their own quoting and guards.
package ddl

import (
	"fmt"
	"strings"

	"datalake/internal/model"
)

// TypeMapper maps a logical column type onto a dialect's SQL type.
type TypeMapper func(model.ColumnType) string

// FromTable derives a TableDef named fqn from t's columns. Key columns become
// the primary key.
func FromTable(t *model.Table, fqn string, mapType TypeMapper) (TableDef, error) {
	if t == nil {
		return TableDef{}, fmt.Errorf("ddl: nil table")
	}
	if mapType == nil {
		return TableDef{}, fmt.Errorf("ddl: nil type mapper")
	}
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(t.Columns))}
	for _, c := range t.Columns {
		td.Columns = append(td.Columns, ColumnDef{
			Name:       c.Name,
			SQLType:    mapType(c.Type),
			Nullable:   c.Nullable,
			PrimaryKey: c.Key,
		})
	}
	return td, nil
}

// Quoter quotes one identifier segment.
type Quoter func(string) string

// BuildCreateTableSQL renders
//
//	CREATE TABLE <prefix><FQN> (
//	  <col> <type> [NOT NULL] [DEFAULT expr],
//	  PRIMARY KEY (<pk cols>)
//	);
//
// using quote for identifiers (nil means unquoted). ifNotExists adds
// IF NOT EXISTS for dialects that support it.
func BuildCreateTableSQL(t TableDef, quote Quoter, ifNotExists bool) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	if quote == nil {
		quote = func(s string) string { return s }
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	head := "CREATE TABLE "
	if ifNotExists {
		head += "IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s (\n  %s\n);", head, QuoteFQN(fqn, quote), strings.Join(cols, ",\n  ")), nil
}

// QuoteFQN quotes each dot-separated segment of fqn.
func QuoteFQN(fqn string, quote Quoter) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, quote(p))
		}
	}
	return strings.Join(out, ".")
}
