package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CopyFn inserts one batch of rows aligned to columns.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn per non-empty batch. It returns the total reported by copyFn,
// the number of batches flushed, and the first error.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (total, batches int64, err error) {
	if batchSize <= 0 {
		return 0, 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Printf("loader: copy failed after=%d total=%d err=%v", n, total, err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		log.Printf(
			"loader: batch #%d rps=%.0f inserted=%d total_inserted=%d elapsed=%s",
			batches, rps, n, total, now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, batches, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, batches, err
				}
				return total, batches, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, batches, err
				}
			}
		}
	}
}

// Feed sends rows on a new channel from a goroutine and closes it when done
// or when ctx is canceled.
func Feed(ctx context.Context, rows [][]any) <-chan []any {
	ch := make(chan []any)
	go func() {
		defer close(ch)
		for _, r := range rows {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
