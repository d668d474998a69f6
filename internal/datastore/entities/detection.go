package entities

import "time"

// Detection is a bounding box classification produced by a detector.
// Detections are never updated; corrections are recorded as annotations.
type Detection struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement:false"`
	SceneID uint64 `gorm:"not null;index"`

	ClassLabel string  `gorm:"size:255;not null;index"`
	Confidence float64 `gorm:"not null"`

	XMin float64 `gorm:"not null"`
	YMin float64 `gorm:"not null"`
	XMax float64 `gorm:"not null"`
	YMax float64 `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`

	Scene *Scene `gorm:"foreignKey:SceneID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM.
func (Detection) TableName() string {
	return "detections"
}

// Box returns the detection's bounding box.
func (d *Detection) Box() Box {
	return Box{XMin: d.XMin, YMin: d.YMin, XMax: d.XMax, YMax: d.YMax}
}
