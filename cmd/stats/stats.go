// Package stats provides the stats command for scenestore
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/scenestore/internal/app"
	"github.com/tphakala/scenestore/internal/buildinfo"
	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore"
)

// Output formats
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

type options struct {
	format      string
	withMetrics bool
	audit       bool
}

// Command creates and returns the stats command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print row counts and split sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != FormatYAML && opts.format != FormatJSON {
				return fmt.Errorf("unsupported format %q, use yaml or json", opts.format)
			}
			return app.Run(cmd.Context(), settings, build, func(ctx context.Context, a *app.App) error {
				return run(ctx, cmd.OutOrStdout(), a, opts)
			})
		},
	}

	setupFlags(cmd, &opts)

	return cmd
}

func setupFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVarP(&opts.format, "format", "f", FormatYAML, "Output format: yaml, json")
	cmd.Flags().BoolVar(&opts.withMetrics, "with-metrics", false, "Append Prometheus metrics in text format")
	cmd.Flags().BoolVar(&opts.audit, "audit", false, "Verify split exclusivity and coverage")
}

func run(ctx context.Context, w io.Writer, a *app.App, opts options) error {
	st, err := a.Store.Stats(ctx)
	if err != nil {
		return err
	}
	if err := encode(w, opts.format, st); err != nil {
		return err
	}

	if opts.audit {
		report, err := a.Partitions.Audit(ctx, nil)
		if err != nil {
			return err
		}
		if !report.Valid() {
			return fmt.Errorf("split audit failed: %d overlapping split pairs", len(report.Overlaps))
		}
		fmt.Fprintln(w, "split audit passed")
	}

	if opts.withMetrics && a.Metrics != nil {
		return a.Metrics.WriteText(w)
	}
	return nil
}

func encode(w io.Writer, format string, st *datastore.Stats) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(st); err != nil {
		return err
	}
	return enc.Close()
}
