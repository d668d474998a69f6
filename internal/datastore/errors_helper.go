package datastore

import (
	"context"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/errors"
)

// MySQL server error numbers.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
)

var notFoundSentinels = []error{
	repository.ErrSceneNotFound,
	repository.ErrDetectionNotFound,
	repository.ErrDescriptionNotFound,
	repository.ErrAnnotationNotFound,
	repository.ErrMembershipNotFound,
	repository.ErrSequenceNotFound,
	gorm.ErrRecordNotFound,
}

// classifyError maps an error from a repository call or transaction body to
// the store's error taxonomy. Errors that already carry a category pass
// through unchanged.
func classifyError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.Category != errors.CategoryGeneric && ee.Category != "" {
		return err
	}

	return errors.New(err).
		Component("datastore").
		Category(categoryOf(err)).
		Context("operation", operation).
		Build()
}

func categoryOf(err error) errors.ErrorCategory {
	for _, sentinel := range notFoundSentinels {
		if errors.Is(err, sentinel) {
			return errors.CategoryNotFound
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.CategoryTimeout
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errors.CategoryConflict
		case sqlite3.ErrConstraintForeignKey:
			// a child insert raced a scene deletion
			return errors.CategoryNotFound
		}
		return errors.CategoryStorageUnavailable
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateEntry:
			return errors.CategoryConflict
		case mysqlErrNoReferencedRow, mysqlErrRowIsReferenced:
			return errors.CategoryNotFound
		}
	}

	return errors.CategoryStorageUnavailable
}

// categoryLabel returns the metrics label for err, empty on success.
func categoryLabel(err error) string {
	if err == nil {
		return ""
	}
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return string(ee.Category)
	}
	return string(errors.CategoryGeneric)
}

// validationError creates a validation error for a rejected input field.
func validationError(message, field string, value any) error {
	return errors.New(errors.NewStd(message)).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", value).
		Build()
}

// notFound reports a missing record, keeping the repository sentinel
// matchable with errors.Is.
func notFound(sentinel error, id uint64) error {
	return errors.New(sentinel).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("id", id).
		Build()
}
