package config

import (
	"fmt"
	"sort"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "sink.database.dsn").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over c. It does not touch the network or
// the filesystem.
func Validate(c Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels metrics and the run manifest")
	}

	mode := strings.ToLower(c.Mode)
	if mode != ModeLocal && mode != ModeRemote {
		add(SeverityError, "mode", "mode must be %q or %q, got %q", ModeLocal, ModeRemote, c.Mode)
	} else {
		issues = append(issues, validateLocations(mode, c.Active())...)
	}

	issues = append(issues, validateSink(c.Sink, c.Active())...)

	if _, err := c.Location(); err != nil {
		add(SeverityError, "runtime.timezone", "%v", err)
	}
	if c.Runtime.ReadWorkers < 0 || c.Runtime.WriteWorkers < 0 {
		add(SeverityWarning, "runtime", "negative worker counts are treated as defaults")
	}
	if c.Runtime.SinkRetries < 0 {
		add(SeverityError, "runtime.sink_retries", "sink_retries must be >= 0")
	}

	switch strings.ToLower(c.Metrics.Backend) {
	case "", "none":
	case "prometheus", "prom", "pushgateway":
		if strings.TrimSpace(c.Metrics.PushgatewayURL) == "" {
			add(SeverityError, "metrics.pushgateway_url", "prometheus backend requires a pushgateway url")
		}
	case "datadog", "dogstatsd":
		if strings.TrimSpace(c.Metrics.DatadogAddr) == "" {
			add(SeverityWarning, "metrics.datadog_addr", "empty address; the client default is used")
		}
	default:
		add(SeverityError, "metrics.backend", "unknown metrics backend %q", c.Metrics.Backend)
	}

	if usesS3(c.Active()) && c.AWS.Region == "" {
		add(SeverityWarning, "aws.region", "no region configured; the default AWS chain or us-east-1 is used")
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		add(SeverityError, "aws", "access_key_id and secret_access_key must be set together")
	}

	return issues
}

func validateLocations(mode string, l Locations) []Issue {
	var issues []Issue
	for path, v := range map[string]string{
		mode + ".song_data": l.SongData,
		mode + ".log_data":  l.LogData,
		mode + ".output":    l.Output,
	} {
		if strings.TrimSpace(v) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: "location must not be empty"})
		}
	}
	if strings.HasPrefix(l.Output, "http://") || strings.HasPrefix(l.Output, "https://") {
		issues = append(issues, Issue{Severity: SeverityError, Path: mode + ".output", Message: "http output is not supported"})
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues
}

func validateSink(s Sink, l Locations) []Issue {
	var issues []Issue
	switch strings.ToLower(s.Kind) {
	case SinkParquet:
		switch strings.ToLower(s.Compression) {
		case "", "snappy", "gzip", "zstd", "none", "uncompressed":
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.compression",
				Message:  fmt.Sprintf("unsupported compression %q", s.Compression),
			})
		}
	case SinkDatabase:
		if strings.TrimSpace(s.Database.DSN) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: "sink.database.dsn", Message: "database sink requires a dsn"})
		}
		switch s.Database.Kind {
		case "postgres", "sqlite", "mssql", "mysql":
		case "":
			issues = append(issues, Issue{Severity: SeverityError, Path: "sink.database.kind", Message: "database sink requires a kind"})
		default:
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "sink.database.kind",
				Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Database.Kind),
			})
		}
		if s.Database.BatchSize < 0 {
			issues = append(issues, Issue{Severity: SeverityError, Path: "sink.database.batch_size", Message: "batch_size must be >= 0"})
		}
	case SinkMemory:
		issues = append(issues, Issue{Severity: SeverityWarning, Path: "sink.kind", Message: "memory sink discards all output"})
	default:
		issues = append(issues, Issue{Severity: SeverityError, Path: "sink.kind", Message: fmt.Sprintf("unknown sink kind %q", s.Kind)})
	}
	return issues
}

func usesS3(l Locations) bool {
	for _, v := range []string{l.SongData, l.LogData, l.Output} {
		if strings.HasPrefix(v, "s3://") || strings.HasPrefix(v, "s3a://") {
			return true
		}
	}
	return false
}
