package model

import "fmt"

// RecordError describes one malformed input record. Record errors never fail
// a run: the record is skipped and the error is reported.
type RecordError struct {
	// Stage names where the record was rejected, e.g. "decode", "songs",
	// "timestamp".
	Stage string
	// Key identifies the input object (file path or object key), if known.
	Key string
	// Index is the record's position in its input sequence (0-based), or -1.
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	switch {
	case e.Key != "" && e.Index >= 0:
		return fmt.Sprintf("%s: %s record %d: %v", e.Stage, e.Key, e.Index, e.Err)
	case e.Index >= 0:
		return fmt.Sprintf("%s: record %d: %v", e.Stage, e.Index, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
}

func (e *RecordError) Unwrap() error { return e.Err }

// Reporter receives record errors. A nil Reporter discards them.
type Reporter func(*RecordError)

// Report calls r when it is non-nil.
func (r Reporter) Report(err *RecordError) {
	if r != nil {
		r(err)
	}
}
