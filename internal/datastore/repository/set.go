package repository

import "gorm.io/gorm"

// Set bundles one repository per table over the same handle.
type Set struct {
	Scenes       SceneRepository
	Detections   DetectionRepository
	Descriptions DescriptionRepository
	Annotations  AnnotationRepository
	Memberships  MembershipRepository
	Sequences    SequenceRepository
}

// NewSet creates repositories bound to db. Pass a transaction handle to run
// every repository inside that transaction.
func NewSet(db *gorm.DB) *Set {
	return &Set{
		Scenes:       NewSceneRepository(db),
		Detections:   NewDetectionRepository(db),
		Descriptions: NewDescriptionRepository(db),
		Annotations:  NewAnnotationRepository(db),
		Memberships:  NewMembershipRepository(db),
		Sequences:    NewSequenceRepository(db),
	}
}
