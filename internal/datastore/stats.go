package datastore

import (
	"context"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/repository"
)

// Stats summarises the store contents at one point in time.
type Stats struct {
	Scenes       int64 `json:"scenes" yaml:"scenes"`
	Detections   int64 `json:"detections" yaml:"detections"`
	Descriptions int64 `json:"descriptions" yaml:"descriptions"`
	Annotations  int64 `json:"annotations" yaml:"annotations"`
	Memberships  int64 `json:"memberships" yaml:"memberships"`

	Splits            map[entities.DatasetType]int64 `json:"splits" yaml:"splits"`
	AnnotationsByType map[entities.LabelType]int64   `json:"annotations_by_type" yaml:"annotations_by_type"`
}

// Unassigned returns the number of scenes without a split.
func (st *Stats) Unassigned() int64 {
	return st.Scenes - st.Memberships
}

// Stats counts the rows of every table from one consistent snapshot and
// refreshes the table row gauges.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.View(ctx, "stats", func(ctx context.Context, repos *repository.Set) error {
		counters := []struct {
			dst   *int64
			count func(context.Context) (int64, error)
		}{
			{&st.Scenes, repos.Scenes.Count},
			{&st.Detections, repos.Detections.Count},
			{&st.Descriptions, repos.Descriptions.Count},
			{&st.Annotations, repos.Annotations.Count},
			{&st.Memberships, repos.Memberships.Count},
		}
		for _, c := range counters {
			n, err := c.count(ctx)
			if err != nil {
				return err
			}
			*c.dst = n
		}

		var err error
		if st.Splits, err = repos.Memberships.CountBySplit(ctx); err != nil {
			return err
		}
		st.AnnotationsByType, err = repos.Annotations.CountByType(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.UpdateTableRowCount("scenes", st.Scenes)
	s.metrics.UpdateTableRowCount("detections", st.Detections)
	s.metrics.UpdateTableRowCount("scene_descriptions", st.Descriptions)
	s.metrics.UpdateTableRowCount("annotations", st.Annotations)
	s.metrics.UpdateTableRowCount("dataset_memberships", st.Memberships)
	return st, nil
}
