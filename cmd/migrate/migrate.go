// Package migrate provides the migrate command for scenestore
package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/scenestore/internal/app"
	"github.com/tphakala/scenestore/internal/buildinfo"
	"github.com/tphakala/scenestore/internal/conf"
)

// Command creates and returns the migrate command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long:  `Migrate opens the configured database, creates missing tables and indexes, and reports the stored row counts.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), settings, build, func(ctx context.Context, a *app.App) error {
				st, err := a.Store.Stats(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Schema is up to date (%s)\n", a.Store.Manager().Path())
				fmt.Fprintf(out, "scenes: %d, detections: %d, descriptions: %d, annotations: %d, memberships: %d\n",
					st.Scenes, st.Detections, st.Descriptions, st.Annotations, st.Memberships)
				return nil
			})
		},
	}

	return cmd
}
