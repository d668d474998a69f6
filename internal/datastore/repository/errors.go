package repository

import "github.com/tphakala/scenestore/internal/errors"

// Sentinel errors for repository operations.
var (
	// ErrSceneNotFound indicates the requested scene does not exist.
	ErrSceneNotFound = errors.NewStd("scene not found")

	// ErrDetectionNotFound indicates the requested detection does not exist.
	ErrDetectionNotFound = errors.NewStd("detection not found")

	// ErrDescriptionNotFound indicates the requested description does not exist.
	ErrDescriptionNotFound = errors.NewStd("description not found")

	// ErrAnnotationNotFound indicates the requested annotation does not exist.
	ErrAnnotationNotFound = errors.NewStd("annotation not found")

	// ErrMembershipNotFound indicates the scene has no dataset membership.
	ErrMembershipNotFound = errors.NewStd("dataset membership not found")

	// ErrSequenceNotFound indicates the id_sequences row for a kind is missing.
	ErrSequenceNotFound = errors.NewStd("identifier sequence not found")
)
