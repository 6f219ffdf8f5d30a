// Package objstore builds S3 clients and parses s3:// locations. It is shared
// by the s3 input collection and the s3 output sink.
package objstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// API is the subset of the S3 client used by this module. Tests substitute
// an in-memory implementation.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds connection settings. Empty credentials fall back to the
// default AWS chain (env, shared profile, instance role).
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint overrides the S3 endpoint, e.g. for MinIO or localstack.
	Endpoint       string
	ForcePathStyle bool
	MaxRetries     int
}

// NewClient builds an S3 client from cfg.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	if cfg.MaxRetries > 0 {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("objstore: load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// URI is a parsed s3://bucket/key location.
type URI struct {
	Bucket string
	Key    string
}

// String renders u back to s3://bucket/key form.
func (u URI) String() string {
	if u.Key == "" {
		return "s3://" + u.Bucket
	}
	return "s3://" + u.Bucket + "/" + u.Key
}

// Join appends slash-separated elements to u.Key.
func (u URI) Join(elem ...string) URI {
	parts := make([]string, 0, len(elem)+1)
	if k := strings.Trim(u.Key, "/"); k != "" {
		parts = append(parts, k)
	}
	for _, e := range elem {
		if e = strings.Trim(e, "/"); e != "" {
			parts = append(parts, e)
		}
	}
	return URI{Bucket: u.Bucket, Key: strings.Join(parts, "/")}
}

// IsURI reports whether loc uses the s3 or s3a scheme.
func IsURI(loc string) bool {
	return strings.HasPrefix(loc, "s3://") || strings.HasPrefix(loc, "s3a://")
}

// ParseURI parses s3://bucket/key (s3a:// is accepted as an alias).
func ParseURI(loc string) (URI, error) {
	u, err := url.Parse(loc)
	if err != nil {
		return URI{}, fmt.Errorf("objstore: parse %q: %w", loc, err)
	}
	if u.Scheme != "s3" && u.Scheme != "s3a" {
		return URI{}, fmt.Errorf("objstore: %q: unsupported scheme %q", loc, u.Scheme)
	}
	if u.Host == "" {
		return URI{}, fmt.Errorf("objstore: %q: missing bucket", loc)
	}
	return URI{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
}
