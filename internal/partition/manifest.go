package partition

import (
	"context"
	"io"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/errors"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

// Manifest is a portable snapshot of the split assignment, read by training
// pipelines and replayable into another store.
type Manifest struct {
	Version     int       `yaml:"version"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Seed        *int64    `yaml:"seed,omitempty"`
	Splits      Plan      `yaml:"splits"`
}

// BuildManifest snapshots the current assignment.
func (pm *Manager) BuildManifest(ctx context.Context) (*Manifest, error) {
	m := &Manifest{
		Version:     ManifestVersion,
		GeneratedAt: pm.store.Now().UTC(),
		Splits:      make(Plan, 3),
	}
	err := pm.store.View(ctx, "build_manifest", func(ctx context.Context, repos *repository.Set) error {
		for _, dt := range entities.DatasetTypes() {
			sceneIDs, err := repos.Memberships.SceneIDsBySplit(ctx, dt)
			if err != nil {
				return err
			}
			if sceneIDs == nil {
				sceneIDs = []uint64{}
			}
			m.Splits[dt] = sceneIDs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ApplyManifest assigns every scene listed in m in one transaction.
func (pm *Manager) ApplyManifest(ctx context.Context, m *Manifest, opts ...AssignOption) (*BatchResult, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Splits.Len() == 0 {
		return nil, manifestError("manifest assigns no scenes")
	}
	return pm.applyPlan(ctx, "apply_manifest", m.Splits, collectOptions(opts))
}

// Validate checks the version, the split names and that no scene appears
// twice.
func (m *Manifest) Validate() error {
	if m.Version != ManifestVersion {
		return manifestError("unsupported manifest version")
	}
	seen := roaring64.New()
	for dt, sceneIDs := range m.Splits {
		if !dt.Valid() {
			return invalidDatasetType(dt)
		}
		for _, id := range sceneIDs {
			if seen.Contains(id) {
				return errors.Newf("scene %d is listed more than once", id).
					Component("partition").
					Category(errors.CategoryValidation).
					Context("scene_id", id).
					Build()
			}
			seen.Add(id)
		}
	}
	return nil
}

// WriteManifest encodes m as YAML.
func WriteManifest(w io.Writer, m *Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return errors.New(err).
			Component("partition").
			Category(errors.CategoryFileIO).
			Build()
	}
	return enc.Close()
}

// ReadManifest decodes and validates a YAML manifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.New(err).
			Component("partition").
			Category(errors.CategoryValidation).
			Context("source", "manifest").
			Build()
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func manifestError(message string) error {
	return errors.New(errors.NewStd(message)).
		Component("partition").
		Category(errors.CategoryValidation).
		Build()
}
