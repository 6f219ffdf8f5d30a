package main

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"datalake/internal/config"
)

// flagKeys maps persistent flags onto configuration keys so a flag that is
// set wins over the environment and the config file.
var flagKeys = map[string]string{
	"mode":            "mode",
	"metrics-backend": "metrics.backend",
	"pushgateway-url": "metrics.pushgateway_url",
}

// options carries what the persistent flags resolve to.
type options struct {
	cfgPath string
	verbose bool
	cfg     config.Config
	issues  []config.Issue
}

// NewRootCommand builds the datalake command tree.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &options{}
	rc := &cobra.Command{
		Use:   "datalake",
		Short: "datalake - build star-schema tables from song catalog and play logs",
		Long: `Reads song catalog JSON and user activity log JSON from local paths,
s3:// locations or http(s):// URLs and writes five tables: songs_table,
artists_table, users_table, time_table and songplays_table.

Configuration comes from --config (YAML, JSON, TOML or INI), DATALAKE_*
environment variables and flags, in increasing priority.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd.Flags())
		},
	}
	rc.SetOut(stdout)
	rc.SetErr(stderr)

	pf := rc.PersistentFlags()
	pf.StringVar(&o.cfgPath, "config", "", "config file path (yaml, json, toml, or the legacy dl.cfg ini)")
	pf.String("mode", "", "input/output location set: local or remote")
	pf.String("metrics-backend", "", "metrics backend: none, prometheus or datadog")
	pf.String("pushgateway-url", "", "Prometheus Pushgateway base URL")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose logs")

	rc.AddCommand(
		newRunCommand(o),
		newCatalogCommand(o),
		newEventsCommand(o),
		newValidateCommand(o),
	)
	return rc
}

func (o *options) load(flags *pflag.FlagSet) error {
	v := config.NewViper()
	if err := bindFlags(v, flags); err != nil {
		return err
	}
	cfg, err := config.Load(v, o.cfgPath)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.issues = config.Validate(cfg)
	if o.verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		log.Printf("config: path=%q mode=%s sink=%s", o.cfgPath, cfg.Mode, cfg.Sink.Kind)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// printIssues writes every issue to w and returns an error when any of them
// is an error.
func printIssues(w io.Writer, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}
