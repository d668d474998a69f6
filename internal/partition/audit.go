package partition

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/logger"
)

// Overlap lists scenes found in two splits at once.
type Overlap struct {
	A, B     entities.DatasetType
	SceneIDs []uint64
}

// AuditReport is the result of checking that the splits partition the
// assigned scenes.
type AuditReport struct {
	Counts map[entities.DatasetType]uint64
	// Overlaps is empty unless rows were written around the store, for
	// example directly into a shared MySQL database.
	Overlaps []Overlap
	// Unassigned lists requested scenes that belong to no split.
	Unassigned []uint64
}

// Valid reports whether the splits are disjoint and cover every requested
// scene.
func (r *AuditReport) Valid() bool {
	return len(r.Overlaps) == 0 && len(r.Unassigned) == 0
}

// Audit checks split disjointness from one snapshot. When covering is
// non-empty it also reports which of those scenes have no split. Split size
// gauges are refreshed from the result.
func (pm *Manager) Audit(ctx context.Context, covering []uint64) (*AuditReport, error) {
	splits := entities.DatasetTypes()
	bitmaps := make(map[entities.DatasetType]*roaring64.Bitmap, len(splits))

	err := pm.store.View(ctx, "audit_splits", func(ctx context.Context, repos *repository.Set) error {
		for _, dt := range splits {
			sceneIDs, err := repos.Memberships.SceneIDsBySplit(ctx, dt)
			if err != nil {
				return err
			}
			bitmaps[dt] = roaring64.BitmapOf(sceneIDs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &AuditReport{Counts: make(map[entities.DatasetType]uint64, len(splits))}
	union := roaring64.New()
	for i, a := range splits {
		report.Counts[a] = bitmaps[a].GetCardinality()
		union.Or(bitmaps[a])
		for _, b := range splits[i+1:] {
			if !bitmaps[a].Intersects(bitmaps[b]) {
				continue
			}
			shared := roaring64.And(bitmaps[a], bitmaps[b])
			report.Overlaps = append(report.Overlaps, Overlap{A: a, B: b, SceneIDs: shared.ToArray()})
		}
	}

	if len(covering) > 0 {
		requested := roaring64.BitmapOf(covering...)
		requested.AndNot(union)
		report.Unassigned = requested.ToArray()
	}

	for dt, n := range report.Counts {
		pm.metrics.UpdateSplitSize(string(dt), n)
	}

	log := pm.logger.WithContext(ctx)
	if !report.Valid() {
		log.Warn("split audit failed",
			logger.Int("overlaps", len(report.Overlaps)),
			logger.Int("unassigned", len(report.Unassigned)))
	} else {
		log.Debug("split audit passed",
			logger.Uint64("train", report.Counts[entities.DatasetTrain]),
			logger.Uint64("val", report.Counts[entities.DatasetVal]),
			logger.Uint64("test", report.Counts[entities.DatasetTest]))
	}
	return report, nil
}
