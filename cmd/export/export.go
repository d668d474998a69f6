// Package export provides the export command for scenestore
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/scenestore/internal/app"
	"github.com/tphakala/scenestore/internal/buildinfo"
	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/partition"
)

type options struct {
	output      string
	trainingSet string
}

// Command creates and returns the export command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the split manifest or a training set",
		Long: `Export writes the current split assignment as a YAML manifest that split
--from-manifest can apply to another database. With --training-set the scenes
of one split are written as JSON lines together with their descriptions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), settings, build, func(ctx context.Context, a *app.App) error {
				w, closeOutput, err := openOutput(cmd.OutOrStdout(), opts.output)
				if err != nil {
					return err
				}
				if err := run(ctx, w, a, settings.Partition.Seed, opts); err != nil {
					_ = closeOutput()
					return err
				}
				return closeOutput()
			})
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file, default stdout")
	cmd.Flags().StringVar(&opts.trainingSet, "training-set", "", "Export the scenes of this split as JSON lines")

	return cmd
}

func run(ctx context.Context, w io.Writer, a *app.App, seed int64, opts options) error {
	if opts.trainingSet == "" {
		m, err := a.Partitions.BuildManifest(ctx)
		if err != nil {
			return err
		}
		m.Seed = &seed
		return partition.WriteManifest(w, m)
	}

	dt, err := entities.ParseDatasetType(opts.trainingSet)
	if err != nil {
		return err
	}
	return writeTrainingSet(w, a.Partitions.TrainingSet(ctx, dt))
}

// example is one JSON line of a training set export.
type example struct {
	SceneID      uint64        `json:"scene_id"`
	CapturedAt   time.Time     `json:"captured_at"`
	CameraID     string        `json:"camera_id"`
	MediaPath    string        `json:"media_path"`
	Latitude     *float64      `json:"latitude,omitempty"`
	Longitude    *float64      `json:"longitude,omitempty"`
	Resolution   *string       `json:"resolution,omitempty"`
	Descriptions []description `json:"descriptions"`
}

type description struct {
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"model_version"`
}

func writeTrainingSet(w io.Writer, seq iter.Seq2[partition.TrainingExample, error]) error {
	enc := json.NewEncoder(w)
	for ex, err := range seq {
		if err != nil {
			return err
		}
		if err := enc.Encode(toExample(ex)); err != nil {
			return fmt.Errorf("failed to write training example: %w", err)
		}
	}
	return nil
}

func toExample(ex partition.TrainingExample) example {
	s := ex.Scene
	out := example{
		SceneID:      s.ID,
		CapturedAt:   s.Timestamp().UTC(),
		CameraID:     s.CameraID,
		MediaPath:    s.MediaPath,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		Resolution:   s.Resolution,
		Descriptions: make([]description, 0, len(ex.Descriptions)),
	}
	for _, d := range ex.Descriptions {
		out.Descriptions = append(out.Descriptions, description{
			Text:         d.Description,
			Confidence:   d.Confidence,
			ModelVersion: d.ModelVersion,
		})
	}
	return out
}

func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}
