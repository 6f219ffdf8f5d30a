package mysql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"datalake/internal/storage"
)

func TestBuildInsert(t *testing.T) {
	got := buildInsert("lake.users_table", []string{"user_id", "level"}, 3)
	want := "INSERT INTO `lake`.`users_table` (`user_id`,`level`) VALUES (?,?),(?,?),(?,?)"
	if got != want {
		t.Fatalf("buildInsert:\n got %s\nwant %s", got, want)
	}
}

func TestRowsPerStatement(t *testing.T) {
	cases := []struct {
		ncols int
		want  int
	}{
		{1, 65535},
		{11, 5957},
		{70000, 1},
	}
	for _, tc := range cases {
		if got := rowsPerStatement(tc.ncols); got != tc.want {
			t.Errorf("rowsPerStatement(%d)=%d want %d", tc.ncols, got, tc.want)
		}
	}
}

func TestMyIdent(t *testing.T) {
	if got := myIdent("we`ird"); got != "`we``ird`" {
		t.Fatalf("myIdent=%s", got)
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	_, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn"})
	if err == nil || !strings.Contains(err.Error(), "mysql dsn") {
		t.Fatalf("want dsn error, got %v", err)
	}
}

func TestFactoryUsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var got Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{
		Kind:       "mysql",
		DSN:        "u:p@tcp(127.0.0.1:3306)/lake",
		Table:      "users_table",
		Columns:    []string{"user_id"},
		KeyColumns: []string{"user_id"},
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if got.Table != "users_table" || len(got.KeyColumns) != 1 {
		t.Fatalf("unexpected config: %+v", got)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close did not call cleanup")
	}
}

func TestFactoryPropagatesError(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	boom := errors.New("dial failed")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, boom }
	if _, err := storage.New(context.Background(), storage.Config{Kind: "mysql"}); !errors.Is(err, boom) {
		t.Fatalf("want %v, got %v", boom, err)
	}
}
