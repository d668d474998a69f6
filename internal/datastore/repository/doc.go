// Package repository provides table-level access to the scenestore schema.
//
// A repository wraps a *gorm.DB, which may be the root handle or a
// transaction. NewSet binds one repository per table to the same handle so a
// unit of work uses a single connection for every table it touches.
//
// # Error Handling
//
// Point lookups return sentinel errors (ErrSceneNotFound, etc.) instead of
// gorm.ErrRecordNotFound. Driver errors are returned unchanged; the datastore
// package classifies them.
//
// # Listing
//
// List*Page methods use keyset pagination: callers pass the last key of the
// previous page and a limit, so long listings never use OFFSET.
package repository
