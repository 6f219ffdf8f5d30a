package pipeline

import "fmt"

// SourceError reports that an input location could not be listed, opened
// or read. The pipeline reading it aborts.
type SourceError struct {
	// Input names the source, e.g. "song_data" or "log_data".
	Input string
	Err   error
}

func (e *SourceError) Error() string { return fmt.Sprintf("source %s: %v", e.Input, e.Err) }

func (e *SourceError) Unwrap() error { return e.Err }

// SinkError reports that a table could not be written, or that the run could
// not be committed (Table is empty then).
type SinkError struct {
	Table string
	Err   error
}

func (e *SinkError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("sink commit: %v", e.Err)
	}
	return fmt.Sprintf("sink write %s: %v", e.Table, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
