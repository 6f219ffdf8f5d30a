package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"datalake/internal/pipeline"
)

func newRunCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the catalog and event pipelines and commit all five tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, c *container) error {
				songs, err := c.songSource(ctx)
				if err != nil {
					return err
				}
				events, err := c.eventSource(ctx)
				if err != nil {
					return err
				}
				s, err := c.newSink(ctx)
				if err != nil {
					return err
				}
				opts, err := c.pipelineOptions()
				if err != nil {
					return err
				}
				sum, err := pipeline.Run(ctx, songs, events, s, opts)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), sum)
				return nil
			})
		},
	}
}

func newCatalogCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "write songs_table and artists_table only",
		Long: `Writes the two catalog tables. Tables already published by an earlier
run, such as the event tables, stay in place and stay listed in the manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, c *container) error {
				songs, err := c.songSource(ctx)
				if err != nil {
					return err
				}
				s, err := c.newSink(ctx)
				if err != nil {
					return err
				}
				opts, err := c.pipelineOptions()
				if err != nil {
					return err
				}
				cat, err := pipeline.RunCatalogPipeline(ctx, songs, s, opts)
				if err := finish(ctx, s, err); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "songs_table\t%d\nartists_table\t%d\n", len(cat.Songs), len(cat.Artists))
				return nil
			})
		},
	}
}

func newEventsCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "write users_table, time_table and songplays_table",
		Long: `Derives the catalog in memory (without writing it) so songplays can join
artists, then writes the three event tables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, c *container) error {
				songs, err := c.songSource(ctx)
				if err != nil {
					return err
				}
				events, err := c.eventSource(ctx)
				if err != nil {
					return err
				}
				opts, err := c.pipelineOptions()
				if err != nil {
					return err
				}
				cat, err := pipeline.DeriveCatalog(ctx, songs, opts)
				if err != nil {
					return err
				}
				s, err := c.newSink(ctx)
				if err != nil {
					return err
				}
				err = pipeline.RunEventPipeline(ctx, events, s, cat, opts)
				return finish(ctx, s, err)
			})
		},
	}
}

func newValidateCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := printIssues(cmd.ErrOrStderr(), o.issues); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid (mode=%s sink=%s)\n", o.cfg.Mode, o.cfg.Sink.Kind)
			return nil
		},
	}
}

// run validates the loaded configuration, sets up metrics and calls fn.
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, c *container) error) error {
	if err := printIssues(cmd.ErrOrStderr(), o.issues); err != nil {
		return err
	}
	c := newContainer(o.cfg)
	flush := c.setupMetrics()
	defer flush()

	start := time.Now()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx, c); err != nil {
		log.Printf("%s: failed after %s: %v", cmd.Name(), time.Since(start).Truncate(time.Millisecond), err)
		return err
	}
	if o.verbose {
		log.Printf("%s: completed in %s", cmd.Name(), time.Since(start).Truncate(time.Millisecond))
	}
	return nil
}

func printSummary(w io.Writer, sum *pipeline.Summary) {
	names := make([]string, 0, len(sum.Tables))
	for n := range sum.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "%s\t%d\n", n, sum.Tables[n])
	}
	fmt.Fprintf(w, "record_errors\t%d\nfiltered\t%d\nunmatched\t%d\n", sum.RecordErrors, sum.Filtered, sum.Unmatched)
}
