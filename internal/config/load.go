package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DATALAKE_SINK_KIND.
const EnvPrefix = "DATALAKE"

var defaults = map[string]any{
	"job":                             "datalake",
	"mode":                            ModeLocal,
	"local.song_data":                 "data/song_data",
	"local.log_data":                  "data/log_data",
	"local.output":                    "output",
	"remote.song_data":                "",
	"remote.log_data":                 "",
	"remote.output":                   "",
	"aws.region":                      "",
	"aws.access_key_id":               "",
	"aws.secret_access_key":           "",
	"aws.session_token":               "",
	"aws.endpoint":                    "",
	"aws.force_path_style":            false,
	"http.timeout":                    "30s",
	"http.max_retries":                3,
	"http.insecure_skip_verify":       false,
	"json.allow_arrays":               true,
	"sink.kind":                       SinkParquet,
	"sink.compression":                "snappy",
	"sink.database.kind":              "",
	"sink.database.dsn":               "",
	"sink.database.table_prefix":      "",
	"sink.database.auto_create_table": true,
	"sink.database.batch_size":        5000,
	"runtime.timezone":                "UTC",
	"runtime.read_workers":            8,
	"runtime.write_workers":           4,
	"runtime.sink_retries":            2,
	"runtime.max_warnings":            20,
	"metrics.backend":                 "none",
	"metrics.pushgateway_url":         "",
	"metrics.datadog_addr":            "127.0.0.1:8125",
}

// NewViper returns a viper instance with defaults and environment overrides
// (DATALAKE_ prefix, dots become underscores) registered.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (when non-empty) into v and decodes the result. Files with
// a .cfg or .ini extension are read as INI; others by extension.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".cfg", ".ini":
			v.SetConfigType("ini")
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading configuration file '%s': %w", path, err)
		}
		applyLegacyKeys(v)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return c, nil
}

// legacyKeys maps the dl.cfg INI layout onto config keys: credentials in
// [AWS], and the input/output location sets in [LOCAL] and [AWS] that mode
// selects between.
var legacyKeys = map[string]string{
	"aws.aws_access_key_id":            "aws.access_key_id",
	"aws.aws_secret_access_key":        "aws.secret_access_key",
	"aws.aws_session_token":            "aws.session_token",
	"local.input_data_song_data_local": "local.song_data",
	"local.input_data_log_data_local":  "local.log_data",
	"local.output_data_local":          "local.output",
	"aws.input_data_song_data_aws":     "remote.song_data",
	"aws.input_data_log_data_aws":      "remote.log_data",
	"aws.output_data_aws":              "remote.output",
}

// applyLegacyKeys copies legacy values onto their keys unless the file or
// the environment sets the key directly.
func applyLegacyKeys(v *viper.Viper) {
	for from, to := range legacyKeys {
		if !v.InConfig(from) || v.InConfig(to) {
			continue
		}
		if _, ok := os.LookupEnv(envName(to)); ok {
			continue
		}
		v.Set(to, v.GetString(from))
	}
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}
