// Package split provides the split command for scenestore
package split

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/scenestore/internal/app"
	"github.com/tphakala/scenestore/internal/buildinfo"
	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore"
	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/partition"
)

type options struct {
	ratios       string
	to           string
	all          bool
	unassigned   bool
	reassign     bool
	fromManifest string
}

// Command creates and returns the split command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "split [scene-id...]",
		Short: "Assign scenes to the train, val and test splits",
		Long: `Split assigns the given scenes to dataset splits. With --to every scene goes
to one split, otherwise scenes are partitioned by the configured ratios and
seed. A batch either assigns every scene or none.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sceneIDs, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := opts.check(len(sceneIDs)); err != nil {
				return err
			}
			return app.Run(cmd.Context(), settings, build, func(ctx context.Context, a *app.App) error {
				return run(ctx, cmd.OutOrStdout(), a, settings.Partition, sceneIDs, opts)
			})
		},
	}

	setupFlags(cmd, &opts)

	return cmd
}

func setupFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVar(&opts.ratios, "ratios", "", "Train,val,test fractions, for example 0.8,0.1,0.1")
	cmd.Flags().StringVar(&opts.to, "to", "", "Assign every scene to this split: train, val or test")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Partition every stored scene")
	cmd.Flags().BoolVar(&opts.unassigned, "unassigned", false, "Partition every stored scene without a split")
	cmd.Flags().BoolVar(&opts.reassign, "reassign", false, "Replace existing split memberships")
	cmd.Flags().StringVar(&opts.fromManifest, "from-manifest", "", "Apply a split manifest written by export")
	cmd.MarkFlagsMutuallyExclusive("all", "unassigned", "from-manifest")
	cmd.MarkFlagsMutuallyExclusive("to", "ratios", "from-manifest")
}

func (o options) check(explicit int) error {
	selectors := 0
	for _, set := range []bool{explicit > 0, o.all, o.unassigned, o.fromManifest != ""} {
		if set {
			selectors++
		}
	}
	if selectors != 1 {
		return fmt.Errorf("give scene ids or exactly one of --all, --unassigned, --from-manifest")
	}
	return nil
}

func run(ctx context.Context, w io.Writer, a *app.App, defaults conf.PartitionSettings, sceneIDs []uint64, opts options) error {
	var assignOpts []partition.AssignOption
	if opts.reassign {
		assignOpts = append(assignOpts, partition.WithReassign())
	}

	if opts.fromManifest != "" {
		m, err := readManifest(opts.fromManifest)
		if err != nil {
			return err
		}
		result, err := a.Partitions.ApplyManifest(ctx, m, assignOpts...)
		if err != nil {
			return err
		}
		return report(ctx, w, a, result)
	}

	sceneIDs, err := selectScenes(ctx, a, sceneIDs, opts)
	if err != nil {
		return err
	}
	if len(sceneIDs) == 0 {
		fmt.Fprintln(w, "no scenes to assign")
		return nil
	}

	if opts.to != "" {
		dt, err := entities.ParseDatasetType(opts.to)
		if err != nil {
			return err
		}
		result, err := a.Partitions.AssignSplitBatch(ctx, sceneIDs, single(dt), defaults.Seed, assignOpts...)
		if err != nil {
			return err
		}
		return report(ctx, w, a, result)
	}

	ratios := defaults.Ratios
	if opts.ratios != "" {
		if ratios, err = ParseRatios(opts.ratios); err != nil {
			return err
		}
	}
	result, err := a.Partitions.AssignSplitBatch(ctx, sceneIDs, ratios, defaults.Seed, assignOpts...)
	if err != nil {
		return err
	}
	return report(ctx, w, a, result)
}

func selectScenes(ctx context.Context, a *app.App, explicit []uint64, opts options) ([]uint64, error) {
	if !opts.all && !opts.unassigned {
		return explicit, nil
	}
	var all []uint64
	for scene, err := range a.Store.ListScenes(ctx, datastore.SceneFilter{}) {
		if err != nil {
			return nil, err
		}
		all = append(all, scene.ID)
	}
	if opts.all || len(all) == 0 {
		return all, nil
	}
	audit, err := a.Partitions.Audit(ctx, all)
	if err != nil {
		return nil, err
	}
	return audit.Unassigned, nil
}

func report(ctx context.Context, w io.Writer, a *app.App, result *partition.BatchResult) error {
	counts := result.Counts()
	fmt.Fprintf(w, "assigned %d scenes: train %d, val %d, test %d",
		result.Plan.Len(), counts[entities.DatasetTrain], counts[entities.DatasetVal], counts[entities.DatasetTest])
	if result.Replaced > 0 {
		fmt.Fprintf(w, " (%d reassigned)", result.Replaced)
	}
	fmt.Fprintln(w)

	audit, err := a.Partitions.Audit(ctx, nil)
	if err != nil {
		return err
	}
	if !audit.Valid() {
		return fmt.Errorf("split audit failed: %d overlapping split pairs", len(audit.Overlaps))
	}
	return nil
}

func readManifest(path string) (*partition.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return partition.ReadManifest(f)
}

// single puts every scene into dt.
func single(dt entities.DatasetType) conf.SplitRatios {
	switch dt {
	case entities.DatasetVal:
		return conf.SplitRatios{Val: 1}
	case entities.DatasetTest:
		return conf.SplitRatios{Test: 1}
	default:
		return conf.SplitRatios{Train: 1}
	}
}

// ParseRatios parses "train,val,test" fractions.
func ParseRatios(s string) (conf.SplitRatios, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return conf.SplitRatios{}, fmt.Errorf("ratios need three comma separated values, got %q", s)
	}
	var values [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return conf.SplitRatios{}, fmt.Errorf("invalid ratio %q: %w", p, err)
		}
		values[i] = v
	}
	ratios := conf.SplitRatios{Train: values[0], Val: values[1], Test: values[2]}
	if err := conf.ValidateRatios(ratios); err != nil {
		return conf.SplitRatios{}, err
	}
	return ratios, nil
}

func parseIDs(args []string) ([]uint64, error) {
	sceneIDs := make([]uint64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid scene id %q", arg)
		}
		sceneIDs = append(sceneIDs, id)
	}
	return sceneIDs, nil
}
