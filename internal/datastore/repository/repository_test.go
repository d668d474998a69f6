package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "repo.db") + "?_foreign_keys=ON&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entities.All()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedScene(t *testing.T, repos *Set, id uint64, capturedAt int64, camera string) *entities.Scene {
	t.Helper()
	scene := &entities.Scene{ID: id, CapturedAt: capturedAt, CameraID: camera, MediaPath: "/m/" + camera}
	require.NoError(t, repos.Scenes.Create(context.Background(), scene))
	return scene
}

func TestSceneRepositoryCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := NewSet(setupTestDB(t))

	seedScene(t, repos, 1, 100, "cam-1")

	got, err := repos.Scenes.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "cam-1", got.CameraID)
	assert.False(t, got.Processed)

	_, err = repos.Scenes.GetByID(ctx, 99)
	require.ErrorIs(t, err, ErrSceneNotFound)

	require.NoError(t, repos.Scenes.MarkProcessed(ctx, 1))
	require.NoError(t, repos.Scenes.MarkProcessed(ctx, 1), "idempotent")
	require.ErrorIs(t, repos.Scenes.MarkProcessed(ctx, 99), ErrSceneNotFound)

	got, err = repos.Scenes.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.Processed)

	require.NoError(t, repos.Scenes.Delete(ctx, 1))
	require.ErrorIs(t, repos.Scenes.Delete(ctx, 1), ErrSceneNotFound)
}

func TestSceneRepositoryListPageKeyset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := NewSet(setupTestDB(t))

	// two scenes share a timestamp so the id tiebreak is exercised
	seedScene(t, repos, 3, 200, "cam-1")
	seedScene(t, repos, 1, 100, "cam-1")
	seedScene(t, repos, 2, 200, "cam-2")
	seedScene(t, repos, 4, 300, "cam-1")

	var order []uint64
	var cursor *SceneCursor
	for {
		page, err := repos.Scenes.ListPage(ctx, SceneFilter{}, cursor, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, s := range page {
			order = append(order, s.ID)
		}
		cursor = CursorOf(page[len(page)-1])
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, order)

	from := time.Unix(0, 200)
	processed := false
	page, err := repos.Scenes.ListPage(ctx, SceneFilter{CameraID: "cam-1", From: &from, Processed: &processed}, nil, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].ID)
	assert.Equal(t, uint64(4), page[1].ID)

	recent, err := repos.Scenes.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(4), recent[0].ID)
	assert.Equal(t, uint64(3), recent[1].ID)
}

func TestSceneRepositoryExistingIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := NewSet(setupTestDB(t))

	for id := uint64(1); id <= 5; id++ {
		seedScene(t, repos, id, int64(id), "cam")
	}

	found, err := repos.Scenes.ExistingIDs(ctx, []uint64{5, 9, 1, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3, 5}, found)

	maxID, err := repos.Scenes.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), maxID)
}

func TestDetectionRepositoryListByClassPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := NewSet(setupTestDB(t))

	seedScene(t, repos, 1, 1, "cam")
	seedScene(t, repos, 2, 2, "cam")

	detections := []*entities.Detection{
		{ID: 1, SceneID: 1, ClassLabel: "car", Confidence: 0.9, XMin: 0, YMin: 0, XMax: 1, YMax: 1},
		{ID: 2, SceneID: 1, ClassLabel: "person", Confidence: 0.8, XMin: 0, YMin: 0, XMax: 1, YMax: 1},
		{ID: 3, SceneID: 2, ClassLabel: "car", Confidence: 0.3, XMin: 0, YMin: 0, XMax: 1, YMax: 1},
		{ID: 4, SceneID: 2, ClassLabel: "car", Confidence: 0.7, XMin: 0, YMin: 0, XMax: 1, YMax: 1},
	}
	require.NoError(t, repos.Detections.CreateBatch(ctx, detections))

	page, err := repos.Detections.ListByClassPage(ctx, "car", 0, 0, 10)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	page, err = repos.Detections.ListByClassPage(ctx, "car", 0.5, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(1), page[0].ID)

	page, err = repos.Detections.ListByClassPage(ctx, "car", 0.5, page[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(4), page[0].ID)

	removed, err := repos.Detections.DeleteByScene(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestForeignKeysRejectUnknownScene(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := NewSet(setupTestDB(t))

	err := repos.Detections.Create(ctx, &entities.Detection{
		ID: 1, SceneID: 42, ClassLabel: "car", Confidence: 0.5, XMax: 1, YMax: 1,
	})
	require.Error(t, err)
}

func TestSceneDeleteRestrictedWhileChildrenExist(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := NewSet(setupTestDB(t))

	seedScene(t, repos, 1, 1, "cam")
	require.NoError(t, repos.Descriptions.Create(ctx, &entities.SceneDescription{
		ID: 1, SceneID: 1, Description: "a street", Confidence: 0.5, ModelVersion: "v1",
	}))

	require.Error(t, repos.Scenes.Delete(ctx, 1))

	_, err := repos.Descriptions.DeleteByScene(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repos.Scenes.Delete(ctx, 1))
}

func TestMembershipRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := NewSet(setupTestDB(t))

	for id := uint64(1); id <= 4; id++ {
		seedScene(t, repos, id, int64(id), "cam")
	}

	now := time.Now()
	require.NoError(t, repos.Memberships.CreateBatch(ctx, []*entities.DatasetMembership{
		{ID: 1, SceneID: 1, DatasetType: entities.DatasetTrain, AddedDate: now},
		{ID: 2, SceneID: 2, DatasetType: entities.DatasetTrain, AddedDate: now},
		{ID: 3, SceneID: 3, DatasetType: entities.DatasetTest, AddedDate: now},
	}))

	err := repos.Memberships.Create(ctx, &entities.DatasetMembership{
		ID: 4, SceneID: 1, DatasetType: entities.DatasetVal, AddedDate: now,
	})
	require.Error(t, err, "unique scene_id index")

	m, err := repos.Memberships.GetByScene(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, entities.DatasetTest, m.DatasetType)

	_, err = repos.Memberships.GetByScene(ctx, 4)
	require.ErrorIs(t, err, ErrMembershipNotFound)

	scenes, err := repos.Memberships.ScenesBySplitPage(ctx, entities.DatasetTrain, 1, 10)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, uint64(2), scenes[0].ID)
	assert.Equal(t, "cam", scenes[0].CameraID)

	ids, err := repos.Memberships.SceneIDsBySplit(ctx, entities.DatasetTrain)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)

	counts, err := repos.Memberships.CountBySplit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[entities.DatasetTrain])
	assert.Equal(t, int64(1), counts[entities.DatasetTest])
	assert.Zero(t, counts[entities.DatasetVal])

	byScene, err := repos.Memberships.GetByScenes(ctx, []uint64{1, 3, 4})
	require.NoError(t, err)
	assert.Len(t, byScene, 2)

	removed, err := repos.Memberships.DeleteByScenes(ctx, []uint64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestAnnotationRepositoryFilterByType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := NewSet(setupTestDB(t))

	seedScene(t, repos, 1, 1, "cam")
	now := time.Now()
	for i, lt := range []entities.LabelType{entities.LabelTypeManual, entities.LabelTypeGroundTruth, entities.LabelTypeManual} {
		require.NoError(t, repos.Annotations.Create(ctx, &entities.Annotation{
			ID: uint64(i + 1), SceneID: 1, LabelType: lt, AnnotationTime: now,
		}))
	}

	all, err := repos.Annotations.ListByScene(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	gt := entities.LabelTypeGroundTruth
	onlyGT, err := repos.Annotations.ListByScene(ctx, 1, &gt)
	require.NoError(t, err)
	require.Len(t, onlyGT, 1)
	assert.Equal(t, uint64(2), onlyGT[0].ID)

	counts, err := repos.Annotations.CountByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[entities.LabelTypeManual])
}

func TestSequenceRepositoryRaise(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repos := NewSet(setupTestDB(t))

	require.NoError(t, repos.Sequences.Ensure(ctx, []string{"scene", "detection"}))
	require.NoError(t, repos.Sequences.Ensure(ctx, []string{"scene"}), "ensure is repeatable")

	require.NoError(t, repos.Sequences.Raise(ctx, "scene", 10))
	require.NoError(t, repos.Sequences.Raise(ctx, "scene", 4))

	hw, err := repos.Sequences.HighWater(ctx, "scene")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), hw)

	_, err = repos.Sequences.HighWater(ctx, "annotation")
	require.ErrorIs(t, err, ErrSequenceNotFound)
}
