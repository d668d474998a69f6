// Package entities defines the GORM models for the scenestore schema.
//
// # Ownership
//
//   - Scene: root record, one captured frame
//   - Detection: machine-produced bounding box classification, write-once
//   - SceneDescription: machine-produced caption, one per model run
//   - Annotation: human or ground-truth review, additive
//   - DatasetMembership: train/val/test assignment, at most one per scene
//
// Children reference their scene through a RESTRICT foreign key. The engine
// never cascades; scene deletion removes children explicitly inside one
// transaction.
//
// # Bookkeeping
//
//   - IDSequence: persisted identifier high-water mark per entity kind
package entities
