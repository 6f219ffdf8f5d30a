package file

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"datalake/internal/datasource"
)

// Collection resolves a local location into a sorted list of files.
//
// The location may be:
//   - a directory: walked recursively for files ending in Suffix
//   - a glob such as "data/song_data/*/*/*/*.json"
//   - a single file path
type Collection struct {
	Location string
	// Suffix filters directory walks; defaults to ".json".
	Suffix string
}

// NewCollection returns a Collection for location with the ".json" suffix.
func NewCollection(location string) *Collection {
	return &Collection{Location: location, Suffix: ".json"}
}

var _ datasource.Collection = (*Collection)(nil)

// Keys returns the matching file paths in lexical order. A location that
// matches nothing yields datasource.ErrEmpty.
func (c *Collection) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	switch {
	case strings.ContainsAny(c.Location, "*?["):
		m, err := filepath.Glob(c.Location)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", c.Location, err)
		}
		for _, p := range m {
			if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
				keys = append(keys, p)
			}
		}

	default:
		fi, err := os.Stat(c.Location)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", c.Location, err)
		}
		if !fi.IsDir() {
			keys = []string{c.Location}
			break
		}
		suffix := c.Suffix
		if suffix == "" {
			suffix = ".json"
		}
		err = filepath.WalkDir(c.Location, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && strings.HasSuffix(d.Name(), suffix) {
				keys = append(keys, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", c.Location, err)
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: %w", c.Location, datasource.ErrEmpty)
	}
	sort.Strings(keys)
	return keys, nil
}

// Open opens one file returned by Keys.
func (c *Collection) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return NewLocal(key).Open(ctx)
}
