// Package datasource abstracts where raw JSON documents come from. A location
// (local path, glob, directory, s3:// URI or http(s):// URL) resolves to a
// Collection: an ordered set of named objects.
package datasource

import (
	"context"
	"errors"
	"io"
)

// ErrEmpty is returned when a location resolves to no objects at all.
var ErrEmpty = errors.New("datasource: location matched no objects")

// Source opens a single byte stream.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Collection is an ordered set of named objects behind one location.
//
// Keys must return the same keys in the same order for the same underlying
// data, so that downstream derivations are reproducible.
type Collection interface {
	Keys(ctx context.Context) ([]string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
