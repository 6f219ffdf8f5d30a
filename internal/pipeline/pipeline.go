// Package pipeline runs the catalog and event pipelines that turn song
// catalog and activity log records into the five star-schema tables.
//
// The catalog pipeline runs first and materializes the artists table; the
// event pipeline borrows it read-only for the songplays join. Derivation is
// single-threaded; sources and sinks may parallelize internally.
package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"datalake/internal/metrics"
	"datalake/internal/model"
	"datalake/internal/sink"
	"datalake/internal/transform"
)

// Input names used in SourceError and metrics.
const (
	SongDataInput = "song_data"
	LogDataInput  = "log_data"
)

// Options configures a run. The zero value derives timestamps in UTC and
// keeps 20 warning messages.
type Options struct {
	Job string
	// Location is the calendar used for start_time and its parts. Nil means UTC.
	Location *time.Location
	// MaxWarnings bounds how many record error messages are logged per
	// pipeline. Zero means 20; negative means none.
	MaxWarnings int
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) maxWarnings() int {
	switch {
	case o.MaxWarnings == 0:
		return 20
	case o.MaxWarnings < 0:
		return 0
	}
	return o.MaxWarnings
}

// Catalog is the output of the catalog pipeline.
type Catalog struct {
	Songs   []model.Song
	Artists []model.Artist
}

// Summary counts what a run read, rejected and wrote.
type Summary struct {
	// Read is the number of decoded records per input.
	Read map[string]int
	// RecordErrors is the number of skipped records.
	RecordErrors int
	// Filtered is the number of events that were not plays.
	Filtered int
	// Unmatched is the number of plays whose artist joined no artist row.
	Unmatched int
	// Tables is the number of rows written per table.
	Tables map[string]int
}

func newSummary() *Summary {
	return &Summary{Read: map[string]int{}, Tables: map[string]int{}}
}

// DeriveCatalog reads catalog records and derives the songs and artists
// tables without writing them.
func DeriveCatalog(ctx context.Context, src RecordSource[model.SongRecord], opts Options) (*Catalog, error) {
	w := newWarnings(opts.maxWarnings())
	defer w.logSummary("catalog")
	return deriveCatalog(ctx, src, opts, newSummary(), w)
}

// RunCatalogPipeline derives songs_table and artists_table from src and
// writes both to snk. The returned Catalog is what the event pipeline joins
// against.
func RunCatalogPipeline(ctx context.Context, src RecordSource[model.SongRecord], snk sink.Sink, opts Options) (*Catalog, error) {
	return runCatalog(ctx, src, snk, opts, newSummary())
}

// RunEventPipeline derives users_table, time_table and songplays_table from
// src and writes them to snk. cat may be nil, in which case no play joins an
// artist and songplays_table is empty.
func RunEventPipeline(ctx context.Context, src RecordSource[model.EventRecord], snk sink.Sink, cat *Catalog, opts Options) error {
	return runEvents(ctx, src, snk, cat, opts, newSummary())
}

// Run executes the catalog pipeline and then the event pipeline. When snk is
// a sink.Committer, the run is committed only if both succeed and aborted
// otherwise, so either all five tables become visible or none do.
func Run(
	ctx context.Context,
	songs RecordSource[model.SongRecord],
	events RecordSource[model.EventRecord],
	snk sink.Sink,
	opts Options,
) (*Summary, error) {
	start := time.Now()
	sum := newSummary()

	err := func() error {
		cat, err := runCatalog(ctx, songs, snk, opts, sum)
		if err != nil {
			return err
		}
		return runEvents(ctx, events, snk, cat, opts, sum)
	}()

	if c, ok := snk.(sink.Committer); ok {
		if err != nil {
			if aerr := c.Abort(context.WithoutCancel(ctx)); aerr != nil {
				log.Printf("pipeline: abort failed: %v", aerr)
			}
		} else if cerr := c.Commit(ctx); cerr != nil {
			err = &SinkError{Err: cerr}
		}
	}
	metrics.RecordStep(opts.Job, "run", err, time.Since(start))
	if err != nil {
		return sum, err
	}
	log.Printf("pipeline: done job=%s elapsed=%s tables=%v record_errors=%d",
		opts.Job, time.Since(start).Truncate(time.Millisecond), sum.Tables, sum.RecordErrors)
	return sum, nil
}

func readAll[T any](ctx context.Context, opts Options, input string, src RecordSource[T], w *warnings) ([]T, error) {
	if src == nil {
		return nil, &SourceError{Input: input, Err: errors.New("no source configured")}
	}
	start := time.Now()
	recs, err := src.Read(ctx, w.reporter())
	metrics.RecordStep(opts.Job, "read_"+input, err, time.Since(start))
	if err != nil {
		return nil, &SourceError{Input: input, Err: err}
	}
	metrics.RecordRow(opts.Job, "read", int64(len(recs)))
	return recs, nil
}

func deriveCatalog(ctx context.Context, src RecordSource[model.SongRecord], opts Options, sum *Summary, w *warnings) (*Catalog, error) {
	recs, err := readAll(ctx, opts, SongDataInput, src, w)
	if err != nil {
		return nil, err
	}
	sum.Read[SongDataInput] = len(recs)

	start := time.Now()
	cat := &Catalog{
		Songs:   transform.DeriveSongsTable(recs, w.reporter()),
		Artists: transform.DeriveArtistsTable(recs, w.reporter()),
	}
	metrics.RecordStep(opts.Job, "derive_catalog", nil, time.Since(start))
	log.Printf("catalog: records=%d songs=%d artists=%d", len(recs), len(cat.Songs), len(cat.Artists))
	return cat, nil
}

func runCatalog(ctx context.Context, src RecordSource[model.SongRecord], snk sink.Sink, opts Options, sum *Summary) (*Catalog, error) {
	w := newWarnings(opts.maxWarnings())
	defer func() {
		sum.RecordErrors += w.total()
		metrics.RecordRow(opts.Job, "record_errors", int64(w.total()))
		w.logSummary("catalog")
	}()

	cat, err := deriveCatalog(ctx, src, opts, sum, w)
	if err != nil {
		return nil, err
	}
	for _, t := range []*model.Table{model.SongsTable(cat.Songs), model.ArtistsTable(cat.Artists)} {
		if err := write(ctx, snk, t, opts, sum); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func runEvents(ctx context.Context, src RecordSource[model.EventRecord], snk sink.Sink, cat *Catalog, opts Options, sum *Summary) error {
	w := newWarnings(opts.maxWarnings())
	defer func() {
		sum.RecordErrors += w.total()
		metrics.RecordRow(opts.Job, "record_errors", int64(w.total()))
		w.logSummary("events")
	}()
	if cat == nil {
		cat = &Catalog{}
	}

	recs, err := readAll(ctx, opts, LogDataInput, src, w)
	if err != nil {
		return err
	}
	sum.Read[LogDataInput] = len(recs)

	start := time.Now()
	plays := transform.FilterPlays(recs)
	filtered := len(recs) - len(plays)
	sum.Filtered += filtered
	metrics.RecordRow(opts.Job, "filtered", int64(filtered))

	users := transform.DeriveUsersTable(plays, w.reporter())
	stamped := transform.StampEvents(plays, opts.location(), w.reporter())
	times := transform.DeriveTimeTable(stamped)
	songplays, stats := transform.DeriveSongplaysTable(stamped, cat.Artists, cat.Songs)
	sum.Unmatched += stats.Unmatched
	metrics.RecordRow(opts.Job, "unmatched", int64(stats.Unmatched))
	metrics.RecordStep(opts.Job, "derive_events", nil, time.Since(start))
	log.Printf("events: records=%d plays=%d users=%d times=%d songplays=%d unmatched=%d song_ids=%d",
		len(recs), len(plays), len(users), len(times), len(songplays), stats.Unmatched, stats.SongsResolved)

	for _, t := range []*model.Table{
		model.UsersTable(users),
		model.TimeTable(times),
		model.SongplaysTable(songplays),
	} {
		if err := write(ctx, snk, t, opts, sum); err != nil {
			return err
		}
	}
	return nil
}

func write(ctx context.Context, snk sink.Sink, t *model.Table, opts Options, sum *Summary) error {
	if snk == nil {
		return &SinkError{Table: t.Name, Err: errors.New("no sink configured")}
	}
	start := time.Now()
	err := snk.Write(ctx, t)
	metrics.RecordStep(opts.Job, "write_"+t.Name, err, time.Since(start))
	if err != nil {
		return &SinkError{Table: t.Name, Err: err}
	}
	sum.Tables[t.Name] = t.Len()
	metrics.RecordTable(opts.Job, t.Name, int64(t.Len()))
	metrics.RecordRow(opts.Job, "written", int64(t.Len()))
	return nil
}
