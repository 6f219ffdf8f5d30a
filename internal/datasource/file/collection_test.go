package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"datalake/internal/datasource"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

func TestCollectionKeys(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "A/B/b.json", "A/A/a.json", "A/A/notes.txt", "c.json")

	cases := []struct {
		name     string
		location string
		want     []string
	}{
		{"directory_walk", root, []string{"A/A/a.json", "A/B/b.json", "c.json"}},
		{"glob", filepath.Join(root, "A", "*", "*.json"), []string{"A/A/a.json", "A/B/b.json"}},
		{"single_file", filepath.Join(root, "c.json"), []string{"c.json"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewCollection(tc.location).Keys(context.Background())
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			want := make([]string, len(tc.want))
			for i, w := range tc.want {
				want[i] = filepath.Join(root, filepath.FromSlash(w))
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %v want %v", got, want)
			}
		})
	}
}

func TestCollectionKeys_Empty(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if _, err := NewCollection(root).Keys(context.Background()); !errors.Is(err, datasource.ErrEmpty) {
		t.Fatalf("empty dir: expected ErrEmpty, got %v", err)
	}
	if _, err := NewCollection(filepath.Join(root, "*.json")).Keys(context.Background()); !errors.Is(err, datasource.ErrEmpty) {
		t.Fatalf("empty glob: expected ErrEmpty, got %v", err)
	}
	if _, err := NewCollection(filepath.Join(root, "missing")).Keys(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing path: expected ErrNotExist, got %v", err)
	}
}

func TestCollectionOpen(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "x.json")
	rc, err := NewCollection(root).Open(context.Background(), filepath.Join(root, "x.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "{}" {
		t.Fatalf("content=%q", b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal(filepath.Join(root, "x.json")).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
