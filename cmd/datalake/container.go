package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"datalake/internal/config"
	"datalake/internal/datasource"
	"datalake/internal/datasource/file"
	"datalake/internal/datasource/httpds"
	"datalake/internal/datasource/s3source"
	"datalake/internal/metrics"
	"datalake/internal/metrics/datadog"
	"datalake/internal/metrics/prompush"
	"datalake/internal/model"
	"datalake/internal/objstore"
	jsonparser "datalake/internal/parser/json"
	"datalake/internal/pipeline"
	"datalake/internal/sink"
	"datalake/internal/sink/dbsink"
	"datalake/internal/sink/parquetsink"
	"datalake/internal/sink/s3sink"
)

// container wires configuration into sources, sinks and metrics for one
// invocation.
type container struct {
	cfg config.Config

	// s3 is created on first use; tests may preset it.
	s3   objstore.API
	http *httpds.Client
}

func newContainer(cfg config.Config) *container {
	return &container{cfg: cfg}
}

func (c *container) s3Client(ctx context.Context) (objstore.API, error) {
	if c.s3 != nil {
		return c.s3, nil
	}
	client, err := objstore.NewClient(ctx, objstore.Config{
		Region:          c.cfg.AWS.Region,
		AccessKeyID:     c.cfg.AWS.AccessKeyID,
		SecretAccessKey: c.cfg.AWS.SecretAccessKey,
		SessionToken:    c.cfg.AWS.SessionToken,
		Endpoint:        c.cfg.AWS.Endpoint,
		ForcePathStyle:  c.cfg.AWS.ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}
	var api objstore.API = client
	c.s3 = api
	return api, nil
}

func (c *container) httpClient() *httpds.Client {
	if c.http == nil {
		c.http = httpds.NewClient(httpds.Config{
			Timeout:            c.cfg.HTTP.Timeout,
			MaxRetries:         c.cfg.HTTP.MaxRetries,
			InsecureSkipVerify: c.cfg.HTTP.InsecureSkipVerify,
		})
	}
	return c.http
}

// openCollection picks a collection by the location's scheme: s3:// and
// s3a:// list a bucket prefix, http(s):// fetches one or more comma-separated
// URLs, anything else is a local path, directory or glob.
func (c *container) openCollection(ctx context.Context, loc string) (datasource.Collection, error) {
	switch {
	case objstore.IsURI(loc):
		api, err := c.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		return s3source.New(api, loc)
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		var urls []string
		for _, u := range strings.Split(loc, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		return httpds.NewCollection(c.httpClient(), urls...), nil
	default:
		return file.NewCollection(loc), nil
	}
}

func newJSONSource[T any](c *container, coll datasource.Collection, stage string) *jsonparser.Source[T] {
	return &jsonparser.Source[T]{
		Coll:    coll,
		Options: jsonparser.FromConfigOptions(c.cfg.JSON),
		Workers: c.cfg.Runtime.ReadWorkers,
		Stage:   stage,
	}
}

func (c *container) songSource(ctx context.Context) (pipeline.RecordSource[model.SongRecord], error) {
	loc := c.cfg.Active().SongData
	coll, err := c.openCollection(ctx, loc)
	if err != nil {
		return nil, &pipeline.SourceError{Input: pipeline.SongDataInput, Err: err}
	}
	return newJSONSource[model.SongRecord](c, coll, pipeline.SongDataInput), nil
}

func (c *container) eventSource(ctx context.Context) (pipeline.RecordSource[model.EventRecord], error) {
	loc := c.cfg.Active().LogData
	coll, err := c.openCollection(ctx, loc)
	if err != nil {
		return nil, &pipeline.SourceError{Input: pipeline.LogDataInput, Err: err}
	}
	return newJSONSource[model.EventRecord](c, coll, pipeline.LogDataInput), nil
}

// newSink builds the configured sink wrapped with bounded retries.
func (c *container) newSink(ctx context.Context) (sink.Sink, error) {
	var (
		s   sink.Sink
		err error
	)
	switch strings.ToLower(c.cfg.Sink.Kind) {
	case config.SinkMemory:
		s = sink.NewMemory()
	case config.SinkDatabase:
		db := c.cfg.Sink.Database
		s, err = dbsink.New(dbsink.Options{
			Kind:        db.Kind,
			DSN:         db.DSN,
			TablePrefix: db.TablePrefix,
			AutoCreate:  db.AutoCreateTable,
			BatchSize:   db.BatchSize,
			Job:         c.cfg.Job,
		})
	case config.SinkParquet, "":
		s, err = c.parquetSink(ctx)
	default:
		err = fmt.Errorf("unsupported sink.kind=%s", c.cfg.Sink.Kind)
	}
	if err != nil {
		return nil, err
	}
	return sink.NewRetrying(s, c.cfg.Runtime.SinkRetries), nil
}

func (c *container) parquetSink(ctx context.Context) (sink.Sink, error) {
	out := c.cfg.Active().Output
	opts := parquetsink.Options{
		Root:        out,
		Job:         c.cfg.Job,
		Compression: c.cfg.Sink.Compression,
		Workers:     c.cfg.Runtime.WriteWorkers,
	}
	if !objstore.IsURI(out) {
		return parquetsink.New(opts)
	}
	dest, err := objstore.ParseURI(out)
	if err != nil {
		return nil, err
	}
	api, err := c.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	return s3sink.New(api, dest, opts)
}

// setupMetrics installs the configured backend and returns a function that
// flushes it.
func (c *container) setupMetrics() func() {
	m := c.cfg.Metrics
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(m.Backend) {
	case "prometheus", "prom", "pushgateway":
		b, err = prompush.NewBackend(c.cfg.Job, m.PushgatewayURL)
	case "datadog", "dogstatsd":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			GlobalTags: []string{"job:" + c.cfg.Job},
		})
	case "", "none":
		return func() {}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", m.Backend)
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", m.Backend, err)
		return func() {}
	}
	log.Printf("metrics: backend=%s job=%s", m.Backend, c.cfg.Job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
		metrics.SetBackend(nil)
	}
}

func (c *container) pipelineOptions() (pipeline.Options, error) {
	loc, err := c.cfg.Location()
	if err != nil {
		return pipeline.Options{}, err
	}
	maxWarnings := c.cfg.Runtime.MaxWarnings
	if maxWarnings == 0 {
		maxWarnings = -1
	}
	return pipeline.Options{Job: c.cfg.Job, Location: loc, MaxWarnings: maxWarnings}, nil
}

// finish commits s when err is nil and aborts it otherwise.
func finish(ctx context.Context, s sink.Sink, err error) error {
	c, ok := s.(sink.Committer)
	if !ok {
		return err
	}
	if err != nil {
		if aerr := c.Abort(context.WithoutCancel(ctx)); aerr != nil {
			log.Printf("sink: abort failed: %v", aerr)
		}
		return err
	}
	if cerr := c.Commit(ctx); cerr != nil {
		return &pipeline.SinkError{Err: cerr}
	}
	return nil
}
