// Package dbsink loads tables into a SQL database through the storage
// repository factory. Each Write fully replaces the destination table.
package dbsink

import (
	"context"
	"fmt"
	"log"
	"time"

	"datalake/internal/metrics"
	"datalake/internal/model"
	"datalake/internal/sink"
	"datalake/internal/storage"
)

// Options configures a Sink.
type Options struct {
	// Kind is a registered storage kind: postgres, mssql, mysql or sqlite.
	Kind string
	DSN  string
	// TablePrefix is prepended to every table name, e.g. "lake." for a
	// schema or "dl_" for a name prefix.
	TablePrefix string
	// AutoCreate issues CREATE TABLE IF NOT EXISTS before loading.
	AutoCreate bool
	BatchSize  int
	Job        string
}

// Sink writes tables into a database.
type Sink struct {
	opts Options
}

var _ sink.Sink = (*Sink)(nil)

// New validates opts and returns a Sink.
func New(opts Options) (*Sink, error) {
	if opts.Kind == "" {
		return nil, fmt.Errorf("database sink: kind must not be empty")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5000
	}
	return &Sink{opts: opts}, nil
}

// TableName returns the destination table for name.
func (s *Sink) TableName(name string) string { return s.opts.TablePrefix + name }

// Write deletes every row of the destination table and loads t in batches.
// Delete and load are separate statements; a failed load leaves a partially
// filled table that the next successful Write replaces.
func (s *Sink) Write(ctx context.Context, t *model.Table) error {
	if t == nil {
		return sink.Permanent(fmt.Errorf("database sink: nil table"))
	}
	start := time.Now()
	fqn := s.TableName(t.Name)

	// Stops the row feeder when the load returns early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cols := t.ColumnNames()

	repo, err := storage.New(ctx, storage.Config{
		Kind:       s.opts.Kind,
		DSN:        s.opts.DSN,
		Table:      fqn,
		Columns:    cols,
		KeyColumns: keyColumns(t),
	})
	if err != nil {
		return fmt.Errorf("database sink: open %s: %w", fqn, err)
	}
	defer repo.Close()

	if s.opts.AutoCreate {
		if err := storage.EnsureTable(ctx, s.opts.Kind, repo, t, fqn); err != nil {
			return fmt.Errorf("database sink: create %s: %w", fqn, err)
		}
	}
	if err := repo.Reset(ctx); err != nil {
		return fmt.Errorf("database sink: reset %s: %w", fqn, err)
	}

	total, batches, err := storage.LoadBatches(ctx, cols, storage.Feed(ctx, t.Rows), s.opts.BatchSize, repo.CopyFrom)
	metrics.RecordBatches(s.opts.Job, batches)
	if err != nil {
		return fmt.Errorf("database sink: load %s: %w", fqn, err)
	}
	log.Printf("dbsink: table=%s kind=%s rows=%d batches=%d elapsed=%s",
		fqn, s.opts.Kind, total, batches, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func keyColumns(t *model.Table) []string {
	var out []string
	for _, c := range t.Columns {
		if c.Key {
			out = append(out, c.Name)
		}
	}
	return out
}
