package entities

import "time"

// Scene is one captured frame. It owns every detection, description,
// annotation and dataset membership that references it.
type Scene struct {
	ID uint64 `gorm:"primaryKey;autoIncrement:false;index:idx_scenes_captured_at,priority:2"`

	// Unix nanoseconds; (captured_at, id) is the listing order and cursor
	CapturedAt int64 `gorm:"not null;index:idx_scenes_captured_at,priority:1"`

	// Location is absent for indoor and non-GPS captures
	Latitude  *float64
	Longitude *float64

	Resolution *string `gorm:"size:64"`
	CameraID   string  `gorm:"size:255;not null;index"`
	MediaPath  string  `gorm:"size:1024;not null"` // opaque reference into the media store

	// Set once the detection and description pipelines have run
	Processed bool `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (Scene) TableName() string {
	return "scenes"
}

// Timestamp returns the capture instant.
func (s *Scene) Timestamp() time.Time {
	return time.Unix(0, s.CapturedAt)
}
