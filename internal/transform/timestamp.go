package transform

import (
	"fmt"
	"time"
)

// DatetimeLayout is the start_time string format: YYYY-MM-DD HH:MM:SS.
const DatetimeLayout = "2006-01-02 15:04:05"

// Timestamp is the result of deriving an event's epoch-millisecond ts. Both
// fields come from the same parsed instant and can never disagree.
type Timestamp struct {
	// Instant is ts at millisecond precision, in the derivation location.
	Instant time.Time
	// Datetime is Instant formatted with DatetimeLayout, so it drops the
	// milliseconds.
	Datetime string
}

// DeriveTimestamp converts an epoch-millisecond value into a Timestamp in
// loc (UTC when loc is nil). Instant keeps the milliseconds; Datetime is
// whole seconds. Non-positive values are rejected.
func DeriveTimestamp(tsMillis int64, loc *time.Location) (Timestamp, error) {
	if tsMillis <= 0 {
		return Timestamp{}, fmt.Errorf("invalid ts %d: want positive epoch milliseconds", tsMillis)
	}
	if loc == nil {
		loc = time.UTC
	}
	instant := time.UnixMilli(tsMillis).In(loc)
	return Timestamp{
		Instant:  instant,
		Datetime: instant.Format(DatetimeLayout),
	}, nil
}
