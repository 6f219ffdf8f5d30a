package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// maxPlaceholders is MySQL's prepared statement parameter limit.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	DSN        string
	Table      string
	Columns    []string
	KeyColumns []string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, opens a pool and pings it. The returned
// function closes the pool.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	// DATETIME columns round-trip as time.Time.
	mc.ParseTime = true
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// CopyFrom inserts rows with multi-row INSERT statements, chunked to stay
// under the placeholder limit, in a single transaction.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	perStmt := rowsPerStatement(len(columns))
	var inserted int64
	for start := 0; start < len(rows); start += perStmt {
		end := min(start+perStmt, len(rows))
		chunk := rows[start:end]

		query := buildInsert(r.cfg.Table, columns, len(chunk))
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if len(row) != len(columns) {
				rollback()
				return 0, fmt.Errorf("row %d: length %d != columns length %d", start+i, len(row), len(columns))
			}
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			rollback()
			return 0, fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// Reset deletes every row of the configured table.
func (r *Repository) Reset(ctx context.Context) error {
	if err := r.Exec(ctx, "DELETE FROM "+myFQN(r.cfg.Table)); err != nil {
		return fmt.Errorf("reset %s: %w", r.cfg.Table, err)
	}
	return nil
}

func rowsPerStatement(ncols int) int {
	n := maxPlaceholders / ncols
	if n < 1 {
		n = 1
	}
	return n
}

// buildInsert renders INSERT INTO t (c1,c2) VALUES (?,?),(?,?)... for nrows.
func buildInsert(table string, columns []string, nrows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = myIdent(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", myFQN(table), strings.Join(quoted, ","))
	for i := 0; i < nrows; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(tuple)
	}
	return sb.String()
}

// myIdent quotes a MySQL identifier with backticks, escaping embedded ones.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// myFQN quotes a possibly database-qualified name like "lake.songs_table".
func myFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = myIdent(p)
	}
	return strings.Join(parts, ".")
}
