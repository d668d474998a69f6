package datastore

import (
	"context"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
)

// Capture is one frame together with the detector and captioner output
// produced for it.
type Capture struct {
	Scene        NewScene
	Detections   []NewDetection
	Descriptions []NewDescription
}

type normalizedCapture struct {
	scene        NewScene
	detections   []NewDetection
	descriptions []NewDescription
}

func (c Capture) normalize() (normalizedCapture, error) {
	out := normalizedCapture{scene: c.Scene}
	if err := c.Scene.validate(); err != nil {
		return out, err
	}

	var err error
	if len(c.Detections) > 0 {
		if out.detections, err = normalizeDetections(c.Detections); err != nil {
			return out, err
		}
	}
	out.descriptions = make([]NewDescription, len(c.Descriptions))
	for i, d := range c.Descriptions {
		if out.descriptions[i], err = d.normalize(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Ingest stores a batch of captures in a single transaction. Every input is
// validated before anything is written; if any record is rejected the
// whole batch is.
func (s *Store) Ingest(ctx context.Context, captures []Capture) ([]*entities.Scene, error) {
	if len(captures) == 0 {
		return nil, validationError("ingest batch is empty", "captures", 0)
	}

	normalized := make([]normalizedCapture, len(captures))
	for i, c := range captures {
		n, err := c.normalize()
		if err != nil {
			err = errors.New(err).
				Component("datastore").
				Category(errors.CategoryValidation).
				Context("capture_index", i).
				Build()
			s.metrics.RecordOperation("ingest", categoryLabel(err), 0)
			return nil, err
		}
		normalized[i] = n
	}

	scenes := make([]*entities.Scene, 0, len(captures))
	var detectionCount int
	err := s.Transaction(ctx, "ingest", func(tx *Tx) error {
		scenes = scenes[:0]
		detectionCount = 0

		for _, c := range normalized {
			scene, err := newSceneRecord(tx, c.scene)
			if err != nil {
				return err
			}
			if err := tx.Repos().Scenes.Create(tx.Context(), scene); err != nil {
				return err
			}
			scenes = append(scenes, scene)
			tx.Emit(events.NewEvent(events.SceneCreated, scene.ID))

			if len(c.detections) > 0 {
				rows, err := insertDetections(tx, scene.ID, c.detections)
				if err != nil {
					return err
				}
				detectionCount += len(rows)
				ev := events.NewEvent(events.DetectionsAdded, scene.ID)
				ev.RecordIDs = detectionIDs(rows)
				tx.Emit(ev)
			}

			for _, d := range c.descriptions {
				row, err := insertDescription(tx, scene.ID, d)
				if err != nil {
					return err
				}
				ev := events.NewEvent(events.DescriptionAdded, scene.ID)
				ev.RecordIDs = []uint64{row.ID}
				tx.Emit(ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("captures ingested",
		logger.Int("scenes", len(scenes)),
		logger.Int("detections", detectionCount))
	return scenes, nil
}
