package entities

import (
	"math"

	"github.com/tphakala/scenestore/internal/errors"
)

func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", value).
		Build()
}

// ValidateConfidence checks 0.0 <= c <= 1.0. NaN is rejected.
func ValidateConfidence(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return validationError("confidence must be between 0.0 and 1.0", "confidence", c)
	}
	return nil
}

// Box is an axis-aligned bounding box in image coordinates.
type Box struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// Validate checks that every coordinate is finite and that the box has
// positive width and height.
func (b Box) Validate() error {
	for _, v := range [...]struct {
		field string
		value float64
	}{
		{"x_min", b.XMin}, {"y_min", b.YMin}, {"x_max", b.XMax}, {"y_max", b.YMax},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return validationError("bounding box coordinates must be finite", v.field, v.value)
		}
	}
	if b.XMin >= b.XMax {
		return validationError("bounding box requires x_min < x_max", "x_min", b.XMin)
	}
	if b.YMin >= b.YMax {
		return validationError("bounding box requires y_min < y_max", "y_min", b.YMin)
	}
	return nil
}

// PartialBox carries optional box fields. All four must be present or none.
type PartialBox struct {
	XMin *float64
	YMin *float64
	XMax *float64
	YMax *float64
}

// Resolve returns the complete box, nil when no field is set, or a
// validation error when only some fields are set or the box is malformed.
func (p PartialBox) Resolve() (*Box, error) {
	set := 0
	for _, f := range [...]*float64{p.XMin, p.YMin, p.XMax, p.YMax} {
		if f != nil {
			set++
		}
	}

	switch set {
	case 0:
		return nil, nil
	case 4:
		box := Box{XMin: *p.XMin, YMin: *p.YMin, XMax: *p.XMax, YMax: *p.YMax}
		if err := box.Validate(); err != nil {
			return nil, err
		}
		return &box, nil
	default:
		return nil, validationError("bounding box fields must be all present or all absent", "box", set)
	}
}

// BoxFields converts b to the optional form used by annotations.
func BoxFields(b Box) PartialBox {
	return PartialBox{XMin: &b.XMin, YMin: &b.YMin, XMax: &b.XMax, YMax: &b.YMax}
}
