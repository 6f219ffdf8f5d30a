package json

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"datalake/internal/datasource"
	"datalake/internal/model"
)

// Source reads every document of a Collection and decodes it into T.
type Source[T any] struct {
	Coll    datasource.Collection
	Options Options
	// Workers bounds concurrent fetches; <=0 means 4.
	Workers int
	// Stage labels RecordErrors, e.g. "song_data".
	Stage string
}

type docResult[T any] struct {
	recs []T
	errs []IndexedError
}

// Read fetches documents concurrently and decodes them, then concatenates
// the records in key order, so output order depends only on the data.
// Per-record failures go to report. Failing to list or open any document
// is returned as an error and no records are returned.
func (s *Source[T]) Read(ctx context.Context, report model.Reporter) ([]T, error) {
	keys, err := s.Coll.Keys(ctx)
	if err != nil {
		return nil, err
	}

	workers := s.Workers
	if workers <= 0 {
		workers = 4
	}

	results := make([]docResult[T], len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, key := range keys {
		g.Go(func() error {
			rc, err := s.Coll.Open(gctx, key)
			if err != nil {
				return fmt.Errorf("open %s: %w", key, err)
			}
			defer rc.Close()
			recs, errs := DecodeAll[T](rc, s.Options)
			results[i] = docResult[T]{recs: recs, errs: errs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []T
	bad := 0
	for i, r := range results {
		out = append(out, r.recs...)
		for _, e := range r.errs {
			bad++
			report.Report(&model.RecordError{Stage: s.Stage, Key: keys[i], Index: e.Index, Err: e.Err})
		}
	}
	if out == nil {
		out = []T{}
	}
	log.Printf("json: stage=%s documents=%d records=%d rejected=%d", s.Stage, len(keys), len(out), bad)
	return out, nil
}
