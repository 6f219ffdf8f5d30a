package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"datalake/internal/model"
	"datalake/internal/storage"
)

func openTable(t *testing.T, tbl *model.Table) storage.Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{
		Kind:    "sqlite",
		DSN:     filepath.Join(t.TempDir(), "lake.db"),
		Table:   tbl.Name,
		Columns: tbl.ColumnNames(),
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(repo.Close)
	if err := storage.EnsureTable(ctx, "sqlite", repo, tbl, tbl.Name); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	return repo
}

func count(t *testing.T, repo storage.Repository, table string) int {
	t.Helper()
	var n int
	w := repo.(*wrappedRepo)
	if err := w.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCopyFromAndReset(t *testing.T) {
	lat := 30.2
	tbl := model.ArtistsTable([]model.Artist{
		{ArtistID: "AR1", Name: "Muse", Location: "Teignmouth", Latitude: &lat},
		{ArtistID: "AR2", Name: "Blur"},
	})
	repo := openTable(t, tbl)
	ctx := context.Background()

	n, err := repo.CopyFrom(ctx, tbl.ColumnNames(), tbl.Rows)
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 2 || count(t, repo, tbl.Name) != 2 {
		t.Fatalf("inserted=%d count=%d, want 2", n, count(t, repo, tbl.Name))
	}

	var lon any
	w := repo.(*wrappedRepo)
	if err := w.db.QueryRowContext(ctx, `SELECT "longitude" FROM "artists_table" WHERE "artist_id"='AR1'`).Scan(&lon); err != nil {
		t.Fatalf("select: %v", err)
	}
	if lon != nil {
		t.Fatalf("longitude=%v want NULL", lon)
	}

	if err := repo.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := count(t, repo, tbl.Name); got != 0 {
		t.Fatalf("count after reset=%d", got)
	}
}

func TestCopyFrom_Timestamps(t *testing.T) {
	tbl := model.SongplaysTable([]model.Songplay{{
		SongplayID: 1,
		StartTime:  time.UnixMilli(1542242826796).UTC(),
		UserID:     "26",
		ArtistID:   "AR1",
	}})
	repo := openTable(t, tbl)
	if _, err := repo.CopyFrom(context.Background(), tbl.ColumnNames(), tbl.Rows); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}

	var st string
	w := repo.(*wrappedRepo)
	if err := w.db.QueryRow(`SELECT "start_time" FROM "songplays_table"`).Scan(&st); err != nil {
		t.Fatalf("select: %v", err)
	}
	if st != "2018-11-15T00:47:06.796Z" {
		t.Fatalf("start_time=%q", st)
	}
	if _, ok := tbl.Rows[0][1].(time.Time); !ok {
		t.Fatalf("CopyFrom must not mutate the caller's rows")
	}
}

func TestCopyFrom_RowLengthMismatch(t *testing.T) {
	tbl := model.UsersTable(nil)
	repo := openTable(t, tbl)
	if _, err := repo.CopyFrom(context.Background(), tbl.ColumnNames(), [][]any{{"1", "a"}}); err == nil {
		t.Fatalf("expected row length error")
	}
	if got := count(t, repo, tbl.Name); got != 0 {
		t.Fatalf("failed batch must roll back, count=%d", got)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
