package datastore

import (
	"context"
	"iter"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/datastore/labels"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
)

// DefaultClassConfidence is the conventional floor for class queries.
// DetectionQuery.MinConfidence itself defaults to 0.
const DefaultClassConfidence = 0.5

// NewDetection is a machine-produced bounding box classification.
//
// ClassLabel is stored in canonical form: Unicode NFC with surrounding
// whitespace trimmed and inner runs collapsed to one space (see
// labels.Normalize). "Traffic  light " is stored and queried as
// "Traffic light"; letter case is kept.
type NewDetection struct {
	ClassLabel string
	Confidence float64
	Box        entities.Box
}

// DetectionQuery selects detections across all scenes by class.
type DetectionQuery struct {
	ClassLabel    string
	MinConfidence float64 // inclusive, 0 returns every confidence
}

// normalize validates in and returns it with a canonical class label.
func (in NewDetection) normalize() (NewDetection, error) {
	label, err := labels.ClassLabel(in.ClassLabel)
	if err != nil {
		return in, err
	}
	if err := entities.ValidateConfidence(in.Confidence); err != nil {
		return in, err
	}
	if err := in.Box.Validate(); err != nil {
		return in, err
	}
	in.ClassLabel = label
	return in, nil
}

func normalizeDetections(in []NewDetection) ([]NewDetection, error) {
	out := make([]NewDetection, len(in))
	for i, d := range in {
		n, err := d.normalize()
		if err != nil {
			return nil, errors.New(err).
				Component("datastore").
				Category(errors.CategoryValidation).
				Context("index", i).
				Build()
		}
		out[i] = n
	}
	return out, nil
}

func insertDetections(tx *Tx, sceneID uint64, in []NewDetection) ([]*entities.Detection, error) {
	rows := make([]*entities.Detection, len(in))
	for i, d := range in {
		id, err := tx.NextID(ids.KindDetection)
		if err != nil {
			return nil, err
		}
		rows[i] = &entities.Detection{
			ID:         id,
			SceneID:    sceneID,
			ClassLabel: d.ClassLabel,
			Confidence: d.Confidence,
			XMin:       d.Box.XMin,
			YMin:       d.Box.YMin,
			XMax:       d.Box.XMax,
			YMax:       d.Box.YMax,
		}
	}
	if err := tx.Repos().Detections.CreateBatch(tx.Context(), rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func detectionIDs(rows []*entities.Detection) []uint64 {
	out := make([]uint64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

// AddDetection attaches one detection to an existing scene. Detections are
// write-once; corrections are recorded as annotations.
func (s *Store) AddDetection(ctx context.Context, sceneID uint64, in NewDetection) (*entities.Detection, error) {
	rows, err := s.addDetections(ctx, "add_detection", sceneID, []NewDetection{in})
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// AddDetections attaches a batch of detections to one scene. Either every
// detection is stored or none is.
func (s *Store) AddDetections(ctx context.Context, sceneID uint64, in []NewDetection) ([]*entities.Detection, error) {
	if len(in) == 0 {
		return nil, validationError("detection batch is empty", "detections", 0)
	}
	return s.addDetections(ctx, "add_detections", sceneID, in)
}

func (s *Store) addDetections(ctx context.Context, operation string, sceneID uint64, in []NewDetection) ([]*entities.Detection, error) {
	normalized, err := normalizeDetections(in)
	if err != nil {
		s.metrics.RecordOperation(operation, categoryLabel(err), 0)
		return nil, err
	}

	var rows []*entities.Detection
	err = s.Transaction(ctx, operation, func(tx *Tx) error {
		if err := requireScene(tx, sceneID); err != nil {
			return err
		}
		var err error
		if rows, err = insertDetections(tx, sceneID, normalized); err != nil {
			return err
		}
		ev := events.NewEvent(events.DetectionsAdded, sceneID)
		ev.RecordIDs = detectionIDs(rows)
		tx.Emit(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetDetection returns the detection with id.
func (s *Store) GetDetection(ctx context.Context, id uint64) (*entities.Detection, error) {
	var detection *entities.Detection
	err := s.Read(ctx, "get_detection", func(ctx context.Context, repos *repository.Set) error {
		var err error
		detection, err = repos.Detections.GetByID(ctx, id)
		if errors.Is(err, repository.ErrDetectionNotFound) {
			return notFound(repository.ErrDetectionNotFound, id)
		}
		return err
	})
	return detection, err
}

// ListDetections returns the detections of a scene in id order. An unknown
// scene has no detections.
func (s *Store) ListDetections(ctx context.Context, sceneID uint64) ([]*entities.Detection, error) {
	var detections []*entities.Detection
	err := s.Read(ctx, "list_detections", func(ctx context.Context, repos *repository.Set) error {
		var err error
		detections, err = repos.Detections.ListByScene(ctx, sceneID)
		return err
	})
	return detections, err
}

// ListByClass returns detections of one class across all scenes, in id
// order, as a lazy restartable sequence.
func (s *Store) ListByClass(ctx context.Context, q DetectionQuery) iter.Seq2[*entities.Detection, error] {
	label, err := labels.ClassLabel(q.ClassLabel)
	if err != nil {
		return failed[*entities.Detection](err)
	}
	if err := entities.ValidateConfidence(q.MinConfidence); err != nil {
		return failed[*entities.Detection](err)
	}

	return Paginate(ctx, s, "list_by_class",
		func(ctx context.Context, repos *repository.Set, after *uint64, limit int) ([]*entities.Detection, error) {
			var afterID uint64
			if after != nil {
				afterID = *after
			}
			return repos.Detections.ListByClassPage(ctx, label, q.MinConfidence, afterID, limit)
		},
		func(d *entities.Detection) *uint64 { return &d.ID })
}
