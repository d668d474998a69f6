package entities

import "time"

// DatasetMembership assigns a scene to one dataset split. The unique index on
// scene_id makes a second membership for the same scene a constraint
// violation.
type DatasetMembership struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement:false"`
	SceneID uint64 `gorm:"not null;uniqueIndex:idx_dataset_memberships_scene"`

	DatasetType DatasetType `gorm:"size:8;not null;index"`
	AddedDate   time.Time   `gorm:"not null"`

	Scene *Scene `gorm:"foreignKey:SceneID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM.
func (DatasetMembership) TableName() string {
	return "dataset_memberships"
}
