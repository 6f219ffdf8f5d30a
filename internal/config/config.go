// Package config defines the configuration of a data lake build and loads it
// from a file, the environment and command-line flags.
//
// Example (YAML):
//
//	job: sparkify
//	mode: remote
//	remote:
//	  song_data: s3a://udacity-dend/song_data/*/*/*/*.json
//	  log_data:  s3a://udacity-dend/log_data/*/*/*.json
//	  output:    s3a://my-lake/
//	aws:
//	  region: us-west-2
//	sink:
//	  kind: parquet
//
// The legacy INI layout ([AWS] AWS_ACCESS_KEY_ID=...) is also accepted.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Modes select which Locations block is active.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Sink kinds.
const (
	SinkParquet  = "parquet"
	SinkDatabase = "database"
	SinkMemory   = "memory"
)

// Config is the full configuration of one build.
type Config struct {
	// Job labels metrics and the run manifest.
	Job  string `mapstructure:"job"`
	Mode string `mapstructure:"mode"`

	Local  Locations `mapstructure:"local"`
	Remote Locations `mapstructure:"remote"`

	AWS     AWS     `mapstructure:"aws"`
	HTTP    HTTP    `mapstructure:"http"`
	JSON    Options `mapstructure:"json"`
	Sink    Sink    `mapstructure:"sink"`
	Runtime Runtime `mapstructure:"runtime"`
	Metrics Metrics `mapstructure:"metrics"`
}

// Locations addresses the two inputs and the output root. Each may be a local
// path or glob, an s3:// URI, or (inputs only) an http(s):// URL.
type Locations struct {
	SongData string `mapstructure:"song_data"`
	LogData  string `mapstructure:"log_data"`
	Output   string `mapstructure:"output"`
}

// AWS holds S3 connection settings. Empty keys use the default AWS chain.
type AWS struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	Endpoint        string `mapstructure:"endpoint"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// HTTP configures http(s):// input fetching.
type HTTP struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// Sink selects where tables are written.
type Sink struct {
	Kind string `mapstructure:"kind"`
	// Compression is the parquet codec: snappy, gzip, zstd or none.
	Compression string   `mapstructure:"compression"`
	Database    Database `mapstructure:"database"`
}

// Database configures the "database" sink.
type Database struct {
	// Kind is a registered storage backend: postgres, sqlite, mssql, mysql.
	Kind            string `mapstructure:"kind"`
	DSN             string `mapstructure:"dsn"`
	TablePrefix     string `mapstructure:"table_prefix"`
	AutoCreateTable bool   `mapstructure:"auto_create_table"`
	BatchSize       int    `mapstructure:"batch_size"`
}

// Runtime controls concurrency, retries and the derivation timezone.
type Runtime struct {
	// Timezone is an IANA name used for start_time derivation. Default UTC.
	Timezone     string `mapstructure:"timezone"`
	ReadWorkers  int    `mapstructure:"read_workers"`
	WriteWorkers int    `mapstructure:"write_workers"`
	SinkRetries  int    `mapstructure:"sink_retries"`
	// MaxWarnings caps how many record warnings are logged verbatim.
	MaxWarnings int `mapstructure:"max_warnings"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is one of "", "none", "prometheus", "datadog".
	Backend        string `mapstructure:"backend"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	DatadogAddr    string `mapstructure:"datadog_addr"`
}

// Active returns the Locations for c.Mode.
func (c Config) Active() Locations {
	if strings.EqualFold(c.Mode, ModeRemote) {
		return c.Remote
	}
	return c.Local
}

// Location resolves Runtime.Timezone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Runtime.Timezone)
	if tz == "" || strings.EqualFold(tz, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: runtime.timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs only minimal coercion and returns the default when a key is absent
// or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def. The strings "true" and "false"
// are accepted since environment overrides arrive as text.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			switch strings.ToLower(b) {
			case "true":
				return true
			case "false":
				return false
			}
		}
	}
	return def
}

// Int returns the int value for key or def. Decoded numbers may be float64.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}
