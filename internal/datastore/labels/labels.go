// Package labels canonicalises the free-text identifiers that scenestore
// indexes: detection and annotation class labels, and description model
// versions.
//
// Input from different detector pipelines and annotation clients arrives with
// inconsistent whitespace and Unicode composition ("café" as one or two code
// points). Canonical forms keep the class-label index exact.
package labels

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/tphakala/scenestore/internal/errors"
)

// MaxLength is the column size for class labels and model versions.
const MaxLength = 255

// Normalize trims surrounding whitespace, collapses inner whitespace runs to
// one space and converts to Unicode NFC.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	if !strings.ContainsFunc(s, unicode.IsSpace) {
		return s
	}
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// ClassLabel returns the canonical form of a required class label.
func ClassLabel(raw string) (string, error) {
	return required("class_label", raw)
}

// OptionalClassLabel canonicalises an optional class label. Blank input
// becomes nil.
func OptionalClassLabel(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	label := Normalize(*raw)
	if label == "" {
		return nil, nil
	}
	if err := checkLength("class_label", label); err != nil {
		return nil, err
	}
	return &label, nil
}

// ModelVersion returns the canonical form of a required model version.
func ModelVersion(raw string) (string, error) {
	return required("model_version", raw)
}

func required(field, raw string) (string, error) {
	value := Normalize(raw)
	if value == "" {
		return "", errors.Newf("%s must not be empty", field).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("field", field).
			Build()
	}
	if err := checkLength(field, value); err != nil {
		return "", err
	}
	return value, nil
}

func checkLength(field, value string) error {
	if n := utf8.RuneCountInString(value); n > MaxLength {
		return errors.Newf("%s is %d characters, limit is %d", field, n, MaxLength).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("field", field).
			Build()
	}
	return nil
}
