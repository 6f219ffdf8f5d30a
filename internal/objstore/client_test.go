package objstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		in      string
		want    URI
		wantErr bool
	}{
		{in: "s3://udacity-dend/song_data", want: URI{Bucket: "udacity-dend", Key: "song_data"}},
		{in: "s3a://lake/out/", want: URI{Bucket: "lake", Key: "out/"}},
		{in: "s3://bucket", want: URI{Bucket: "bucket"}},
		{in: "http://bucket/x", wantErr: true},
		{in: "s3:///key", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseURI(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURIJoin(t *testing.T) {
	u := URI{Bucket: "b", Key: "out/"}
	assert.Equal(t, "s3://b/out/songs_table/part-0.parquet", u.Join("songs_table", "/part-0.parquet").String())
	assert.Equal(t, "s3://b/x", URI{Bucket: "b"}.Join("x").String())
	assert.True(t, IsURI("s3a://b/k"))
	assert.False(t, IsURI("/tmp/b"))
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.PutObject(ctx, &s3.PutObjectInput{Bucket: aws.String("b"), Key: aws.String("a/1.json"), Body: strings.NewReader("{}")})
	require.NoError(t, err)
	m.Put("b", "z/2.json", []byte("[]"))

	out, err := m.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String("b"), Prefix: aws.String("a/")})
	require.NoError(t, err)
	require.Len(t, out.Contents, 1)
	assert.Equal(t, "a/1.json", aws.ToString(out.Contents[0].Key))

	got, err := m.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String("b"), Key: aws.String("a/1.json")})
	require.NoError(t, err)
	b, _ := io.ReadAll(got.Body)
	assert.Equal(t, "{}", string(b))

	_, err = m.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String("b"), Key: aws.String("a/1.json")})
	require.NoError(t, err)
	_, err = m.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String("b"), Key: aws.String("a/1.json")})
	assert.Error(t, err)
}
