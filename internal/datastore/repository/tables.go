package repository

import (
	"context"

	"gorm.io/gorm"
)

// Table name constants.
const (
	tableScenes       = "scenes"
	tableDetections   = "detections"
	tableDescriptions = "scene_descriptions"
	tableAnnotations  = "annotations"
	tableMemberships  = "dataset_memberships"
	tableSequences    = "id_sequences"
)

// idBatchSize keeps IN lists under SQLite's 999 parameter limit.
const idBatchSize = 500

// insertBatchSize is the row count per INSERT for batch creates.
const insertBatchSize = 100

func maxID(ctx context.Context, db *gorm.DB, table string) (uint64, error) {
	var result uint64
	err := db.WithContext(ctx).Table(table).Select("COALESCE(MAX(id), 0)").Scan(&result).Error
	return result, err
}

func count(ctx context.Context, db *gorm.DB, table string) (int64, error) {
	var result int64
	err := db.WithContext(ctx).Table(table).Count(&result).Error
	return result, err
}

// deleteByScene removes every row of model's table that references sceneID.
func deleteByScene(ctx context.Context, db *gorm.DB, model any, sceneID uint64) (int64, error) {
	result := db.WithContext(ctx).Where("scene_id = ?", sceneID).Delete(model)
	return result.RowsAffected, result.Error
}
