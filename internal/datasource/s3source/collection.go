// Package s3source lists and opens JSON objects under an s3:// location.
package s3source

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"datalake/internal/datasource"
	"datalake/internal/objstore"
)

// Collection resolves an s3:// location to a sorted set of object keys.
//
// The key part may be a prefix ("song_data/") or contain glob wildcards
// ("song_data/*/*/*/*.json"). Listing uses the longest wildcard-free prefix
// and filters with path.Match. Prefix listings keep keys ending in Suffix.
type Collection struct {
	api    objstore.API
	uri    objstore.URI
	Suffix string
}

var _ datasource.Collection = (*Collection)(nil)

// New returns a Collection for location using api.
func New(api objstore.API, location string) (*Collection, error) {
	uri, err := objstore.ParseURI(location)
	if err != nil {
		return nil, err
	}
	return &Collection{api: api, uri: uri, Suffix: ".json"}, nil
}

// Keys lists matching object keys in lexical order.
func (c *Collection) Keys(ctx context.Context) ([]string, error) {
	pattern := c.uri.Key
	prefix := pattern
	glob := false
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		prefix = pattern[:i]
		glob = true
	}

	var keys []string
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.uri.Bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3source: list %s: %w", c.uri, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if strings.HasSuffix(k, "/") {
				continue
			}
			if glob {
				if ok, _ := path.Match(pattern, k); !ok {
					continue
				}
			} else if c.Suffix != "" && !strings.HasSuffix(k, c.Suffix) {
				continue
			}
			keys = append(keys, k)
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: %w", c.uri, datasource.ErrEmpty)
	}
	sort.Strings(keys)
	return keys, nil
}

// Open fetches one object returned by Keys.
func (c *Collection) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.uri.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3source: get s3://%s/%s: %w", c.uri.Bucket, key, err)
	}
	return out.Body, nil
}
