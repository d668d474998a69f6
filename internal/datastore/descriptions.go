package datastore

import (
	"context"
	"strings"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/datastore/labels"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
)

// NewDescription is a machine-generated caption of a scene. ModelVersion is
// stored in the canonical form of labels.Normalize; Text is stored as given.
type NewDescription struct {
	Text         string
	Confidence   float64
	ModelVersion string
}

func (in NewDescription) normalize() (NewDescription, error) {
	if strings.TrimSpace(in.Text) == "" {
		return in, validationError("description text must not be empty", "description", in.Text)
	}
	if err := entities.ValidateConfidence(in.Confidence); err != nil {
		return in, err
	}
	version, err := labels.ModelVersion(in.ModelVersion)
	if err != nil {
		return in, err
	}
	in.ModelVersion = version
	return in, nil
}

func insertDescription(tx *Tx, sceneID uint64, in NewDescription) (*entities.SceneDescription, error) {
	id, err := tx.NextID(ids.KindDescription)
	if err != nil {
		return nil, err
	}
	row := &entities.SceneDescription{
		ID:           id,
		SceneID:      sceneID,
		Description:  in.Text,
		Confidence:   in.Confidence,
		ModelVersion: in.ModelVersion,
	}
	if err := tx.Repos().Descriptions.Create(tx.Context(), row); err != nil {
		return nil, err
	}
	return row, nil
}

// AddDescription attaches a caption to an existing scene. A scene may carry
// any number of descriptions, typically one per model version.
func (s *Store) AddDescription(ctx context.Context, sceneID uint64, in NewDescription) (*entities.SceneDescription, error) {
	normalized, err := in.normalize()
	if err != nil {
		s.metrics.RecordOperation("add_description", categoryLabel(err), 0)
		return nil, err
	}

	var row *entities.SceneDescription
	err = s.Transaction(ctx, "add_description", func(tx *Tx) error {
		if err := requireScene(tx, sceneID); err != nil {
			return err
		}
		var err error
		if row, err = insertDescription(tx, sceneID, normalized); err != nil {
			return err
		}
		ev := events.NewEvent(events.DescriptionAdded, sceneID)
		ev.RecordIDs = []uint64{row.ID}
		tx.Emit(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetDescription returns the description with id.
func (s *Store) GetDescription(ctx context.Context, id uint64) (*entities.SceneDescription, error) {
	var row *entities.SceneDescription
	err := s.Read(ctx, "get_description", func(ctx context.Context, repos *repository.Set) error {
		var err error
		row, err = repos.Descriptions.GetByID(ctx, id)
		if errors.Is(err, repository.ErrDescriptionNotFound) {
			return notFound(repository.ErrDescriptionNotFound, id)
		}
		return err
	})
	return row, err
}

// ListDescriptions returns the descriptions of a scene in id order.
func (s *Store) ListDescriptions(ctx context.Context, sceneID uint64) ([]*entities.SceneDescription, error) {
	var rows []*entities.SceneDescription
	err := s.Read(ctx, "list_descriptions", func(ctx context.Context, repos *repository.Set) error {
		var err error
		rows, err = repos.Descriptions.ListByScene(ctx, sceneID)
		return err
	})
	return rows, err
}
