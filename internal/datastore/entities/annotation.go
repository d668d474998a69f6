package entities

import "time"

// Annotation is a human or ground-truth review of a scene. It may carry a
// textual correction, a box correction, or both. Box fields are stored
// all-or-nothing.
type Annotation struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement:false"`
	SceneID uint64 `gorm:"not null;index"`

	LabelType   LabelType `gorm:"size:20;not null;index"`
	Description *string   `gorm:"type:text"`
	ClassLabel  *string   `gorm:"size:255"`

	XMin *float64
	YMin *float64
	XMax *float64
	YMax *float64

	AnnotatedBy    *string   `gorm:"size:255"`
	AnnotationTime time.Time `gorm:"not null"`

	Scene *Scene `gorm:"foreignKey:SceneID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM.
func (Annotation) TableName() string {
	return "annotations"
}

// Box returns the annotation's bounding box, or nil when it carries none.
func (a *Annotation) Box() *Box {
	if a.XMin == nil || a.YMin == nil || a.XMax == nil || a.YMax == nil {
		return nil
	}
	return &Box{XMin: *a.XMin, YMin: *a.YMin, XMax: *a.XMax, YMax: *a.YMax}
}
