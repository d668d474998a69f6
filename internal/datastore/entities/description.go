package entities

import "time"

// SceneDescription is a caption generated by a description model. Several
// may exist per scene, one for each model run.
type SceneDescription struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement:false"`
	SceneID uint64 `gorm:"not null;index"`

	Description  string  `gorm:"type:text;not null"`
	Confidence   float64 `gorm:"not null"`
	ModelVersion string  `gorm:"size:255;not null;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`

	Scene *Scene `gorm:"foreignKey:SceneID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM.
func (SceneDescription) TableName() string {
	return "scene_descriptions"
}
