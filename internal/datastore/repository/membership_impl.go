package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// membershipRepository implements MembershipRepository.
type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Create(ctx context.Context, membership *entities.DatasetMembership) error {
	return r.db.WithContext(ctx).Omit("Scene").Create(membership).Error
}

func (r *membershipRepository) CreateBatch(ctx context.Context, memberships []*entities.DatasetMembership) error {
	if len(memberships) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Scene").CreateInBatches(memberships, insertBatchSize).Error
}

// GetByScene retrieves the membership of a scene.
func (r *membershipRepository) GetByScene(ctx context.Context, sceneID uint64) (*entities.DatasetMembership, error) {
	var membership entities.DatasetMembership
	err := r.db.WithContext(ctx).Where("scene_id = ?", sceneID).First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *membershipRepository) GetByScenes(ctx context.Context, sceneIDs []uint64) (map[uint64]*entities.DatasetMembership, error) {
	result := make(map[uint64]*entities.DatasetMembership, len(sceneIDs))
	for start := 0; start < len(sceneIDs); start += idBatchSize {
		end := min(start+idBatchSize, len(sceneIDs))
		var chunk []*entities.DatasetMembership
		err := r.db.WithContext(ctx).
			Where("scene_id IN ?", sceneIDs[start:end]).
			Find(&chunk).Error
		if err != nil {
			return nil, err
		}
		for _, m := range chunk {
			result[m.SceneID] = m
		}
	}
	return result, nil
}

func (r *membershipRepository) DeleteByScene(ctx context.Context, sceneID uint64) (int64, error) {
	return deleteByScene(ctx, r.db, &entities.DatasetMembership{}, sceneID)
}

func (r *membershipRepository) DeleteByScenes(ctx context.Context, sceneIDs []uint64) (int64, error) {
	var total int64
	for start := 0; start < len(sceneIDs); start += idBatchSize {
		end := min(start+idBatchSize, len(sceneIDs))
		result := r.db.WithContext(ctx).
			Where("scene_id IN ?", sceneIDs[start:end]).
			Delete(&entities.DatasetMembership{})
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
	return total, nil
}

// ScenesBySplitPage joins through the membership table so the scene rows come
// back in one query.
func (r *membershipRepository) ScenesBySplitPage(ctx context.Context, datasetType entities.DatasetType, afterID uint64, limit int) ([]*entities.Scene, error) {
	var scenes []*entities.Scene
	err := r.db.WithContext(ctx).
		Table(tableScenes).
		Select(tableScenes+".*").
		Joins("JOIN "+tableMemberships+" ON "+tableMemberships+".scene_id = "+tableScenes+".id").
		Where(tableMemberships+".dataset_type = ?", datasetType).
		Where(tableScenes+".id > ?", afterID).
		Order(tableScenes + ".id ASC").
		Limit(limit).
		Find(&scenes).Error
	return scenes, err
}

func (r *membershipRepository) SceneIDsBySplit(ctx context.Context, datasetType entities.DatasetType) ([]uint64, error) {
	var sceneIDs []uint64
	err := r.db.WithContext(ctx).Model(&entities.DatasetMembership{}).
		Where("dataset_type = ?", datasetType).
		Order("scene_id ASC").
		Pluck("scene_id", &sceneIDs).Error
	return sceneIDs, err
}

func (r *membershipRepository) CountBySplit(ctx context.Context) (map[entities.DatasetType]int64, error) {
	var rows []struct {
		DatasetType entities.DatasetType
		Total       int64
	}
	err := r.db.WithContext(ctx).Model(&entities.DatasetMembership{}).
		Select("dataset_type, COUNT(*) AS total").
		Group("dataset_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entities.DatasetType]int64, len(rows))
	for _, row := range rows {
		counts[row.DatasetType] = row.Total
	}
	return counts, nil
}

func (r *membershipRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, tableMemberships)
}

func (r *membershipRepository) MaxID(ctx context.Context) (uint64, error) {
	return maxID(ctx, r.db, tableMemberships)
}
