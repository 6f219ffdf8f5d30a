package objstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Memory is an in-process API implementation keyed by bucket and key. It
// backs tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var _ API = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory { return &Memory{objects: map[string][]byte{}} }

func memKey(bucket, key string) string { return bucket + "/" + key }

// Put stores body under bucket/key.
func (m *Memory) Put(bucket, key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memKey(bucket, key)] = append([]byte(nil), body...)
}

// Get returns the bytes stored under bucket/key.
func (m *Memory) Get(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[memKey(bucket, key)]
	return b, ok
}

// Keys lists every key in bucket, sorted.
func (m *Memory) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		if rest, ok := strings.CutPrefix(k, bucket+"/"); ok {
			out = append(out, rest)
		}
	}
	sort.Strings(out)
	return out
}

// GetObject implements API.
func (m *Memory) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := m.Get(aws.ToString(in.Bucket), aws.ToString(in.Key))
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String(aws.ToString(in.Key))}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(b)),
		ContentLength: aws.Int64(int64(len(b))),
	}, nil
}

// PutObject implements API.
func (m *Memory) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	var b []byte
	if in.Body != nil {
		var err error
		if b, err = io.ReadAll(in.Body); err != nil {
			return nil, err
		}
	}
	m.Put(aws.ToString(in.Bucket), aws.ToString(in.Key), b)
	return &s3.PutObjectOutput{}, nil
}

// DeleteObject implements API.
func (m *Memory) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, memKey(aws.ToString(in.Bucket), aws.ToString(in.Key)))
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 implements API. Results are returned in a single page.
func (m *Memory) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range m.Keys(aws.ToString(in.Bucket)) {
		if strings.HasPrefix(k, prefix) {
			b, _ := m.Get(aws.ToString(in.Bucket), k)
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(b)))})
		}
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))
	return out, nil
}
