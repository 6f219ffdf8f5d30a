// Package s3sink publishes tables to S3. Tables are written and committed by
// a local parquet sink first; Commit then uploads the committed tree and the
// manifest last, so readers that wait for the manifest never see a partial
// run.
package s3sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"datalake/internal/model"
	"datalake/internal/objstore"
	"datalake/internal/sink"
	"datalake/internal/sink/parquetsink"
)

// Sink stages tables locally and uploads them on Commit.
type Sink struct {
	api     objstore.API
	dest    objstore.URI
	local   *parquetsink.Sink
	workDir string
	workers int
}

var (
	_ sink.Sink      = (*Sink)(nil)
	_ sink.Committer = (*Sink)(nil)
)

// New returns a Sink uploading under dest. opts.Root is ignored; a temporary
// work directory is used instead and removed on Commit or Abort.
func New(api objstore.API, dest objstore.URI, opts parquetsink.Options) (*Sink, error) {
	if api == nil {
		return nil, fmt.Errorf("s3 sink: nil client")
	}
	if dest.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: missing bucket")
	}
	dir, err := os.MkdirTemp("", "datalake-s3-")
	if err != nil {
		return nil, fmt.Errorf("s3 sink: %w", err)
	}
	opts.Root = dir
	local, err := parquetsink.New(opts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Sink{api: api, dest: dest, local: local, workDir: dir, workers: workers}, nil
}

// Write implements sink.Sink.
func (s *Sink) Write(ctx context.Context, t *model.Table) error {
	return s.local.Write(ctx, t)
}

// Commit publishes the run. Objects of each table left by earlier runs are
// deleted first; the manifest is uploaded after every data file. Tables the
// run did not write stay listed in the manifest.
func (s *Sink) Commit(ctx context.Context) error {
	defer os.RemoveAll(s.workDir)

	if err := s.local.Commit(ctx); err != nil {
		return err
	}
	m := s.local.Manifest()

	prev, err := s.remoteManifest(ctx)
	if err != nil {
		return err
	}
	m.Carry(prev, nil)
	if err := parquetsink.WriteManifest(s.workDir, m); err != nil {
		return fmt.Errorf("s3 sink: %w", err)
	}

	if err := s.delete(ctx, s.dest.Join(parquetsink.ManifestName).Key); err != nil {
		return err
	}
	for _, t := range m.Tables {
		if err := s.deletePrefix(ctx, s.dest.Join(t.Name).Key+"/"); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, rel := range m.Files() {
		g.Go(func() error { return s.upload(gctx, rel) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := s.upload(ctx, parquetsink.ManifestName); err != nil {
		return err
	}
	log.Printf("s3: committed run=%s files=%d dest=%s", m.RunID, len(m.Files()), s.dest)
	return nil
}

// Abort discards the local staging area. Nothing has been uploaded yet.
func (s *Sink) Abort(ctx context.Context) error {
	defer os.RemoveAll(s.workDir)
	return s.local.Abort(ctx)
}

func (s *Sink) upload(ctx context.Context, rel string) error {
	f, err := os.Open(filepath.Join(s.workDir, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("s3 sink: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("s3 sink: %w", err)
	}

	key := s.dest.Join(rel).Key
	contentType := "application/vnd.apache.parquet"
	if path.Ext(rel) == ".json" {
		contentType = "application/json"
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.dest.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 sink: put s3://%s/%s: %w", s.dest.Bucket, key, err)
	}
	return nil
}

// remoteManifest returns the manifest currently published under dest, or nil
// when there is none.
func (s *Sink) remoteManifest(ctx context.Context) (*parquetsink.Manifest, error) {
	key := s.dest.Join(parquetsink.ManifestName).Key
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.dest.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		return nil, fmt.Errorf("s3 sink: get s3://%s/%s: %w", s.dest.Bucket, key, err)
	}
	defer out.Body.Close()

	var m parquetsink.Manifest
	if err := json.NewDecoder(out.Body).Decode(&m); err != nil {
		log.Printf("s3: ignoring unreadable manifest s3://%s/%s: %v", s.dest.Bucket, key, err)
		return nil, nil
	}
	return &m, nil
}

func (s *Sink) delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.dest.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 sink: delete s3://%s/%s: %w", s.dest.Bucket, key, err)
	}
	return nil
}

func (s *Sink) deletePrefix(ctx context.Context, prefix string) error {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.dest.Bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 sink: list s3://%s/%s: %w", s.dest.Bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if err := s.delete(ctx, aws.ToString(obj.Key)); err != nil {
				return err
			}
		}
	}
	return nil
}
