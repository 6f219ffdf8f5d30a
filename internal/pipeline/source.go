package pipeline

import (
	"context"

	"datalake/internal/model"
)

// RecordSource yields input records in a deterministic order. Per-record
// failures go to report; a returned error means the input as a whole could
// not be read.
type RecordSource[T any] interface {
	Read(ctx context.Context, report model.Reporter) ([]T, error)
}

// SliceSource serves records from memory.
type SliceSource[T any] []T

// Read implements RecordSource.
func (s SliceSource[T]) Read(ctx context.Context, _ model.Reporter) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]T{}, s...), nil
}
