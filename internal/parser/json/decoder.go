// Package json decodes JSON documents into typed records.
//
// A document may hold a single object, newline-delimited objects, a top-level
// array of objects, or any mix of these:
//
//	{"song_id":"S1"}
//	{"song_id":"S2"}
//	[{"song_id":"S3"},{"song_id":"S4"}]
//
// A leading UTF-8 byte order mark is ignored.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"datalake/internal/config"
)

// Options controls decoding.
type Options struct {
	// AllowArrays expands top-level arrays into their elements.
	AllowArrays bool
}

// DefaultOptions accepts every supported layout.
var DefaultOptions = Options{AllowArrays: true}

// FromConfigOptions builds Options from a generic option map.
func FromConfigOptions(o config.Options) Options {
	return Options{AllowArrays: o.Bool("allow_arrays", true)}
}

// ErrSyntax marks a document that cannot be tokenized any further. Records
// decoded before the failure are still valid.
var ErrSyntax = errors.New("json parser: malformed document")

// Decoder yields raw top-level objects from a stream.
type Decoder struct {
	dec     *json.Decoder
	opt     Options
	pending []json.RawMessage
}

// NewDecoder wraps r. A UTF-8 BOM is stripped.
func NewDecoder(r io.Reader, opt Options) *Decoder {
	r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	return &Decoder{dec: json.NewDecoder(r), opt: opt}
}

// Next returns the next raw JSON object, or io.EOF when the stream is
// exhausted. A non-object value is returned as an error; the decoder can
// continue past it. A tokenization failure wraps ErrSyntax and ends the stream.
func (d *Decoder) Next() (json.RawMessage, error) {
	if len(d.pending) > 0 {
		raw := d.pending[0]
		d.pending = d.pending[1:]
		return checkObject(raw)
	}

	var raw json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		if !d.opt.AllowArrays {
			return nil, fmt.Errorf("json parser: top-level array encountered but allow_arrays=false")
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		d.pending = elems
		return d.Next()
	}
	return checkObject(raw)
}

func checkObject(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("json parser: expected object, got %.20s", raw)
	}
	return raw, nil
}

// DecodeAll decodes every object in r into T. Values that fail to decode
// are returned in errs along with their zero-based position and do not stop
// the scan; a syntax error ends the scan and is reported last.
func DecodeAll[T any](r io.Reader, opt Options) (out []T, errs []IndexedError) {
	d := NewDecoder(r, opt)
	for i := 0; ; i++ {
		raw, err := d.Next()
		if err == io.EOF {
			return out, errs
		}
		if err != nil {
			errs = append(errs, IndexedError{Index: i, Err: err})
			if errors.Is(err, ErrSyntax) {
				return out, errs
			}
			continue
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			errs = append(errs, IndexedError{Index: i, Err: fmt.Errorf("json parser: decode: %w", err)})
			continue
		}
		out = append(out, v)
	}
}

// IndexedError is a per-value decode failure.
type IndexedError struct {
	Index int
	Err   error
}
