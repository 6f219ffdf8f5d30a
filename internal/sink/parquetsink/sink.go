// Package parquetsink writes tables as hive-partitioned parquet files under
// a local output root. Writes are staged under _staging/<run-id>/ and only
// become visible on Commit, which moves each table into place and writes the
// run manifest last.
package parquetsink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"datalake/internal/model"
	"datalake/internal/sink"
)

// StagingDir is the directory under the output root that holds uncommitted
// runs.
const StagingDir = "_staging"

// Options configures a Sink.
type Options struct {
	// Root is the output directory.
	Root string
	Job  string
	// Compression is one of snappy, gzip, zstd or none. Empty means snappy.
	Compression string
	// Workers bounds concurrent partition writes. <=0 means 4.
	Workers int
	// RunID names the staging directory and data files. Empty means a new UUID.
	RunID string
}

// Sink is a staged, all-or-nothing parquet table writer.
type Sink struct {
	opts    Options
	codec   compress.Codec
	ext     string
	started time.Time

	mu        sync.Mutex
	tables    map[string]*TableEntry
	order     []string
	committed bool
	aborted   bool
	manifest  *Manifest
}

var (
	_ sink.Sink      = (*Sink)(nil)
	_ sink.Committer = (*Sink)(nil)
)

// New validates opts and returns a Sink. Nothing is created on disk until the
// first Write.
func New(opts Options) (*Sink, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("parquet sink: root must not be empty")
	}
	codec, ext, err := codecFor(opts.Compression)
	if err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Sink{
		opts:    opts,
		codec:   codec,
		ext:     ext,
		started: time.Now().UTC(),
		tables:  map[string]*TableEntry{},
	}, nil
}

func codecFor(name string) (compress.Codec, string, error) {
	switch name {
	case "", "snappy":
		return &parquet.Snappy, ".snappy.parquet", nil
	case "gzip":
		return &parquet.Gzip, ".gz.parquet", nil
	case "zstd":
		return &parquet.Zstd, ".zstd.parquet", nil
	case "none", "uncompressed":
		return &parquet.Uncompressed, ".parquet", nil
	}
	return nil, "", fmt.Errorf("parquet sink: unsupported compression %q", name)
}

// RunID returns the run identifier used for staging and file names.
func (s *Sink) RunID() string { return s.opts.RunID }

// Root returns the output directory.
func (s *Sink) Root() string { return s.opts.Root }

func (s *Sink) stageRoot() string {
	return filepath.Join(s.opts.Root, StagingDir, s.opts.RunID)
}

// Write stages t. Writing the same table twice replaces the staged copy.
func (s *Sink) Write(ctx context.Context, t *model.Table) error {
	if t == nil {
		return sink.Permanent(errors.New("parquet sink: nil table"))
	}
	s.mu.Lock()
	done := s.committed || s.aborted
	s.mu.Unlock()
	if done {
		return sink.Permanent(fmt.Errorf("parquet sink: write %s after commit or abort", t.Name))
	}

	var (
		partIdx  []int
		skip     = map[int]bool{}
		colNames = t.ColumnNames()
	)
	for _, name := range t.PartitionBy {
		ci := t.ColumnIndex(name)
		if ci < 0 {
			return sink.Permanent(fmt.Errorf("parquet sink: table %s: unknown partition column %q", t.Name, name))
		}
		partIdx = append(partIdx, ci)
		skip[ci] = true
	}
	for r, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return sink.Permanent(fmt.Errorf("parquet sink: table %s row %d: %d values for %d columns", t.Name, r, len(row), len(t.Columns)))
		}
	}
	lay, err := newLayout(t, skip)
	if err != nil {
		return sink.Permanent(fmt.Errorf("parquet sink: %w", err))
	}

	dir := filepath.Join(s.stageRoot(), t.Name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("parquet sink: clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("parquet sink: %w", err)
	}

	parts := splitPartitions(t.PartitionBy, partIdx, t.Rows)
	files := make([]FileEntry, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, p := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rel := path.Join(p.dir, fmt.Sprintf("part-%05d-%s%s", i, s.opts.RunID, s.ext))
			fe, err := s.writeFile(filepath.Join(dir, filepath.FromSlash(rel)), lay, t, p.rows)
			if err != nil {
				return fmt.Errorf("parquet sink: table %s file %s: %w", t.Name, rel, err)
			}
			fe.Path = path.Join(t.Name, rel)
			files[i] = fe
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	entry := &TableEntry{
		Name:        t.Name,
		RunID:       s.opts.RunID,
		Rows:        int64(t.Len()),
		Columns:     colNames,
		PartitionBy: append([]string(nil), t.PartitionBy...),
		Files:       files,
	}
	s.mu.Lock()
	if _, ok := s.tables[t.Name]; !ok {
		s.order = append(s.order, t.Name)
	}
	s.tables[t.Name] = entry
	s.mu.Unlock()

	log.Printf("parquet: staged table=%s rows=%d files=%d run=%s", t.Name, entry.Rows, len(files), s.opts.RunID)
	return nil
}

func (s *Sink) writeFile(name string, lay *layout, t *model.Table, rows []int) (FileEntry, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return FileEntry{}, err
	}
	f, err := os.Create(name)
	if err != nil {
		return FileEntry{}, err
	}
	defer f.Close()

	h := xxh3.New()
	cw := &countingWriter{w: io.MultiWriter(f, h)}
	w := parquet.NewWriter(cw, lay.schema, parquet.Compression(s.codec))

	const chunk = 1024
	buf := make([]parquet.Row, 0, chunk)
	for _, r := range rows {
		pr, err := lay.row(t, t.Rows[r])
		if err != nil {
			return FileEntry{}, sink.Permanent(fmt.Errorf("row %d: %w", r, err))
		}
		buf = append(buf, pr)
		if len(buf) == chunk {
			if _, err := w.WriteRows(buf); err != nil {
				return FileEntry{}, err
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if _, err := w.WriteRows(buf); err != nil {
			return FileEntry{}, err
		}
	}
	if err := w.Close(); err != nil {
		return FileEntry{}, err
	}
	if err := f.Close(); err != nil {
		return FileEntry{}, err
	}
	return FileEntry{
		Rows:  int64(len(rows)),
		Bytes: cw.n,
		XXH3:  fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}

// Commit moves every staged table into place, replacing any previous copy,
// then writes the manifest and removes the staging directory.
func (s *Sink) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return fmt.Errorf("parquet sink: commit after abort")
	}
	if s.committed {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := &Manifest{
		RunID:       s.opts.RunID,
		Job:         s.opts.Job,
		Compression: compressionName(s.opts.Compression),
		StartedAt:   s.started,
	}
	if err := os.MkdirAll(s.opts.Root, 0o755); err != nil {
		return fmt.Errorf("parquet sink: %w", err)
	}
	prev, err := ReadManifest(s.opts.Root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("parquet: ignoring unreadable manifest under %s: %v", s.opts.Root, err)
	}
	// A stale manifest must not describe a partially replaced tree.
	if err := os.Remove(filepath.Join(s.opts.Root, ManifestName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("parquet sink: remove old manifest: %w", err)
	}
	for _, name := range s.order {
		dst := filepath.Join(s.opts.Root, name)
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("parquet sink: replace %s: %w", name, err)
		}
		if err := os.Rename(filepath.Join(s.stageRoot(), name), dst); err != nil {
			return fmt.Errorf("parquet sink: publish %s: %w", name, err)
		}
		m.Tables = append(m.Tables, *s.tables[name])
	}
	m.Carry(prev, func(t TableEntry) bool {
		_, err := os.Stat(filepath.Join(s.opts.Root, t.Name))
		return err == nil
	})
	m.FinishedAt = time.Now().UTC()
	if err := WriteManifest(s.opts.Root, m); err != nil {
		return fmt.Errorf("parquet sink: write manifest: %w", err)
	}
	s.committed = true
	s.manifest = m
	s.cleanupStaging()

	log.Printf("parquet: committed run=%s tables=%d root=%s", s.opts.RunID, len(m.Tables), s.opts.Root)
	return nil
}

// Abort discards everything staged by this run.
func (s *Sink) Abort(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed || s.aborted {
		return nil
	}
	s.aborted = true
	if err := os.RemoveAll(s.stageRoot()); err != nil {
		return fmt.Errorf("parquet sink: abort: %w", err)
	}
	s.cleanupStaging()
	log.Printf("parquet: aborted run=%s", s.opts.RunID)
	return nil
}

// Manifest returns the manifest written by Commit, or nil before Commit.
func (s *Sink) Manifest() *Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifest
}

func (s *Sink) cleanupStaging() {
	_ = os.RemoveAll(s.stageRoot())
	// Fails while other runs are staged; that is fine.
	_ = os.Remove(filepath.Join(s.opts.Root, StagingDir))
}

func compressionName(c string) string {
	if c == "" {
		return "snappy"
	}
	return c
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
