package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validConfig() Config {
	return Config{
		Job:  "sparkify",
		Mode: ModeLocal,
		Local: Locations{
			SongData: "data/song_data",
			LogData:  "data/log_data",
			Output:   "out",
		},
		Sink:    Sink{Kind: SinkParquet, Compression: "snappy"},
		Runtime: Runtime{Timezone: "UTC", SinkRetries: 2},
	}
}

func TestValidate_ValidMinimal(t *testing.T) {
	if issues := Validate(validConfig()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidate_Issues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		sev    IssueSeverity
		path   string
		substr string
	}{
		{"missing_job", func(c *Config) { c.Job = " " }, SeverityError, "job", "must not be empty"},
		{"bad_mode", func(c *Config) { c.Mode = "cluster" }, SeverityError, "mode", "cluster"},
		{"missing_output", func(c *Config) { c.Local.Output = "" }, SeverityError, "local.output", "must not be empty"},
		{"remote_uses_remote_block", func(c *Config) { c.Mode = ModeRemote }, SeverityError, "remote.song_data", "must not be empty"},
		{"http_output", func(c *Config) { c.Local.Output = "https://x" }, SeverityError, "local.output", "not supported"},
		{"bad_sink", func(c *Config) { c.Sink.Kind = "csv" }, SeverityError, "sink.kind", "unknown sink"},
		{"bad_compression", func(c *Config) { c.Sink.Compression = "lz4" }, SeverityError, "sink.compression", "lz4"},
		{"db_without_dsn", func(c *Config) {
			c.Sink.Kind = SinkDatabase
			c.Sink.Database.Kind = "postgres"
		}, SeverityError, "sink.database.dsn", "requires a dsn"},
		{"db_unknown_kind", func(c *Config) {
			c.Sink.Kind = SinkDatabase
			c.Sink.Database = Database{Kind: "oracle", DSN: "x"}
		}, SeverityWarning, "sink.database.kind", "oracle"},
		{"bad_timezone", func(c *Config) { c.Runtime.Timezone = "Mars/Olympus" }, SeverityError, "runtime.timezone", "Mars/Olympus"},
		{"prom_without_url", func(c *Config) { c.Metrics.Backend = "prometheus" }, SeverityError, "metrics.pushgateway_url", "pushgateway"},
		{"half_credentials", func(c *Config) { c.AWS.AccessKeyID = "AKIA" }, SeverityError, "aws", "together"},
		{"s3_without_region", func(c *Config) { c.Local.SongData = "s3a://bucket/song_data" }, SeverityWarning, "aws.region", "region"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			issues := Validate(c)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.substr) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tc.sev, tc.path, tc.substr, issues)
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatalf("warnings alone must not count as errors")
	}
	if !HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatalf("expected HasErrors=true")
	}
}
