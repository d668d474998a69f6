package datastore

import (
	"context"
	"time"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/datastore/labels"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
)

// NewAnnotation is a human or ground-truth review of a scene. It may carry a
// textual correction, a box correction, or both. ClassLabel is canonicalised
// like NewDetection.ClassLabel and a blank one is stored as absent.
type NewAnnotation struct {
	LabelType   entities.LabelType
	Description *string
	ClassLabel  *string
	// Box fields are all-or-nothing
	Box         entities.PartialBox
	AnnotatedBy *string
	// AnnotationTime defaults to the creation instant
	AnnotationTime time.Time
}

type resolvedAnnotation struct {
	NewAnnotation
	classLabel *string
	box        *entities.Box
}

func (in NewAnnotation) resolve() (resolvedAnnotation, error) {
	out := resolvedAnnotation{NewAnnotation: in}

	if !in.LabelType.Valid() {
		return out, validationError("label_type must be manual or ground_truth", "label_type", string(in.LabelType))
	}
	box, err := in.Box.Resolve()
	if err != nil {
		return out, err
	}
	label, err := labels.OptionalClassLabel(in.ClassLabel)
	if err != nil {
		return out, err
	}
	if in.AnnotatedBy != nil && len(*in.AnnotatedBy) > labels.MaxLength {
		return out, validationError("annotated_by exceeds 255 bytes", "annotated_by", len(*in.AnnotatedBy))
	}

	out.box = box
	out.classLabel = label
	return out, nil
}

// AddAnnotation records a review. Annotations are additive: concurrent
// annotators each add their own record and nothing is merged.
func (s *Store) AddAnnotation(ctx context.Context, sceneID uint64, in NewAnnotation) (*entities.Annotation, error) {
	resolved, err := in.resolve()
	if err != nil {
		s.metrics.RecordOperation("add_annotation", categoryLabel(err), 0)
		return nil, err
	}

	var row *entities.Annotation
	err = s.Transaction(ctx, "add_annotation", func(tx *Tx) error {
		if err := requireScene(tx, sceneID); err != nil {
			return err
		}

		id, err := tx.NextID(ids.KindAnnotation)
		if err != nil {
			return err
		}

		annotatedAt := resolved.AnnotationTime
		if annotatedAt.IsZero() {
			annotatedAt = tx.Now()
		}

		row = &entities.Annotation{
			ID:             id,
			SceneID:        sceneID,
			LabelType:      resolved.LabelType,
			Description:    resolved.Description,
			ClassLabel:     resolved.classLabel,
			AnnotatedBy:    resolved.AnnotatedBy,
			AnnotationTime: annotatedAt,
		}
		if b := resolved.box; b != nil {
			fields := entities.BoxFields(*b)
			row.XMin, row.YMin, row.XMax, row.YMax = fields.XMin, fields.YMin, fields.XMax, fields.YMax
		}

		if err := tx.Repos().Annotations.Create(tx.Context(), row); err != nil {
			return err
		}

		ev := events.NewEvent(events.AnnotationAdded, sceneID)
		ev.RecordIDs = []uint64{row.ID}
		tx.Emit(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetAnnotation returns the annotation with id.
func (s *Store) GetAnnotation(ctx context.Context, id uint64) (*entities.Annotation, error) {
	var row *entities.Annotation
	err := s.Read(ctx, "get_annotation", func(ctx context.Context, repos *repository.Set) error {
		var err error
		row, err = repos.Annotations.GetByID(ctx, id)
		if errors.Is(err, repository.ErrAnnotationNotFound) {
			return notFound(repository.ErrAnnotationNotFound, id)
		}
		return err
	})
	return row, err
}

// ListAnnotations returns the annotations of a scene in id order, optionally
// restricted to one label type.
func (s *Store) ListAnnotations(ctx context.Context, sceneID uint64, labelType *entities.LabelType) ([]*entities.Annotation, error) {
	if labelType != nil && !labelType.Valid() {
		return nil, validationError("label_type must be manual or ground_truth", "label_type", string(*labelType))
	}

	var rows []*entities.Annotation
	err := s.Read(ctx, "list_annotations", func(ctx context.Context, repos *repository.Set) error {
		var err error
		rows, err = repos.Annotations.ListByScene(ctx, sceneID, labelType)
		return err
	})
	return rows, err
}
