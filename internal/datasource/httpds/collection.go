package httpds

import (
	"context"
	"fmt"
	"io"
	"sort"

	"datalake/internal/datasource"
)

// Collection is a fixed set of URLs. Keys are the URLs themselves, sorted.
type Collection struct {
	c    *Client
	urls []string
}

var _ datasource.Collection = (*Collection)(nil)

// NewCollection returns a Collection over urls fetched through c.
func NewCollection(c *Client, urls ...string) *Collection {
	cp := append([]string(nil), urls...)
	sort.Strings(cp)
	return &Collection{c: c, urls: cp}
}

// Keys implements datasource.Collection.
func (h *Collection) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(h.urls) == 0 {
		return nil, fmt.Errorf("httpds: %w", datasource.ErrEmpty)
	}
	return append([]string(nil), h.urls...), nil
}

// Open implements datasource.Collection.
func (h *Collection) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return NewSource(h.c, key).Open(ctx)
}
