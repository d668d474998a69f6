package datastore

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/errors"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want errors.ErrorCategory
	}{
		{"repository sentinel", fmt.Errorf("lookup: %w", repository.ErrSceneNotFound), errors.CategoryNotFound},
		{"gorm record not found", gorm.ErrRecordNotFound, errors.CategoryNotFound},
		{"deadline", context.DeadlineExceeded, errors.CategoryTimeout},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, errors.CategoryConflict},
		{"sqlite foreign key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, errors.CategoryNotFound},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, errors.CategoryStorageUnavailable},
		{"mysql duplicate", &mysql.MySQLError{Number: mysqlErrDuplicateEntry}, errors.CategoryConflict},
		{"mysql missing parent", &mysql.MySQLError{Number: mysqlErrNoReferencedRow}, errors.CategoryNotFound},
		{"mysql server gone", &mysql.MySQLError{Number: 2006}, errors.CategoryStorageUnavailable},
		{"unknown", errors.NewStd("disk I/O error"), errors.CategoryStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := classifyError("test", tt.err)
			assert.True(t, errors.IsCategory(err, tt.want), "got %v", err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyErrorKeepsCategorizedErrors(t *testing.T) {
	t.Parallel()

	original := validationError("bad", "field", 1)
	assert.Same(t, original, classifyError("test", original))
	assert.NoError(t, classifyError("test", nil))
	assert.Empty(t, categoryLabel(nil))
	assert.Equal(t, string(errors.CategoryValidation), categoryLabel(original))
}
