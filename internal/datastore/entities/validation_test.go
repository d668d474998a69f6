package entities

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/scenestore/internal/errors"
)

func ptr(v float64) *float64 { return &v }

func TestValidateConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value float64
		valid bool
	}{
		{0.0, true},
		{1.0, true},
		{0.92, true},
		{-0.01, false},
		{1.01, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}

	for _, tt := range tests {
		err := ValidateConfidence(tt.value)
		if tt.valid {
			assert.NoError(t, err, "confidence %v", tt.value)
		} else {
			require.Error(t, err, "confidence %v", tt.value)
			assert.True(t, errors.IsValidation(err))
		}
	}
}

func TestBoxValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		box   Box
		valid bool
	}{
		{"ordered", Box{10, 10, 50, 50}, true},
		{"negative coordinates", Box{-5, -5, -1, -1}, true},
		{"zero width", Box{10, 10, 10, 50}, false},
		{"inverted x", Box{50, 10, 10, 50}, false},
		{"inverted y", Box{10, 50, 50, 10}, false},
		{"nan", Box{math.NaN(), 0, 1, 1}, false},
		{"infinite max", Box{0, 0, math.Inf(1), 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.box.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestPartialBoxResolve(t *testing.T) {
	t.Parallel()

	box, err := PartialBox{}.Resolve()
	require.NoError(t, err)
	assert.Nil(t, box)

	box, err = BoxFields(Box{1, 2, 3, 4}).Resolve()
	require.NoError(t, err)
	assert.Equal(t, &Box{1, 2, 3, 4}, box)

	// one to three fields set is rejected regardless of values
	for _, partial := range []PartialBox{
		{XMin: ptr(1)},
		{XMin: ptr(1), YMin: ptr(1)},
		{XMin: ptr(5), YMin: ptr(5), XMax: ptr(3)},
	} {
		_, err := partial.Resolve()
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	}

	_, err = PartialBox{XMin: ptr(5), YMin: ptr(5), XMax: ptr(3), YMax: ptr(9)}.Resolve()
	require.Error(t, err, "complete but inverted box")
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	lt, err := ParseLabelType("ground_truth")
	require.NoError(t, err)
	assert.Equal(t, LabelTypeGroundTruth, lt)

	_, err = ParseLabelType("automatic")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.False(t, LabelType("").Valid())

	dt, err := ParseDatasetType("val")
	require.NoError(t, err)
	assert.Equal(t, DatasetVal, dt)

	_, err = ParseDatasetType("validation")
	assert.True(t, errors.IsValidation(err))

	assert.Equal(t, []DatasetType{DatasetTrain, DatasetVal, DatasetTest}, DatasetTypes())
}

func TestAnnotationBox(t *testing.T) {
	t.Parallel()

	a := Annotation{}
	assert.Nil(t, a.Box())

	fields := BoxFields(Box{1, 2, 3, 4})
	a.XMin, a.YMin, a.XMax, a.YMax = fields.XMin, fields.YMin, fields.XMax, fields.YMax
	assert.Equal(t, &Box{1, 2, 3, 4}, a.Box())
}
