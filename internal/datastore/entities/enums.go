package entities

// LabelType is the provenance of an annotation. Only the declared constants
// are valid; construct values from input with ParseLabelType.
type LabelType string

const (
	LabelTypeManual      LabelType = "manual"
	LabelTypeGroundTruth LabelType = "ground_truth"
)

// ParseLabelType converts s to a LabelType.
func ParseLabelType(s string) (LabelType, error) {
	t := LabelType(s)
	if !t.Valid() {
		return "", validationError("label_type must be manual or ground_truth", "label_type", s)
	}
	return t, nil
}

// Valid reports whether t is one of the declared label types.
func (t LabelType) Valid() bool {
	switch t {
	case LabelTypeManual, LabelTypeGroundTruth:
		return true
	default:
		return false
	}
}

func (t LabelType) String() string {
	return string(t)
}

// DatasetType is a dataset split. Only the declared constants are valid.
type DatasetType string

const (
	DatasetTrain DatasetType = "train"
	DatasetVal   DatasetType = "val"
	DatasetTest  DatasetType = "test"
)

// DatasetTypes returns the splits in remainder-assignment order.
func DatasetTypes() []DatasetType {
	return []DatasetType{DatasetTrain, DatasetVal, DatasetTest}
}

// ParseDatasetType converts s to a DatasetType.
func ParseDatasetType(s string) (DatasetType, error) {
	t := DatasetType(s)
	if !t.Valid() {
		return "", validationError("dataset_type must be train, val or test", "dataset_type", s)
	}
	return t, nil
}

// Valid reports whether t is one of the declared splits.
func (t DatasetType) Valid() bool {
	switch t {
	case DatasetTrain, DatasetVal, DatasetTest:
		return true
	default:
		return false
	}
}

func (t DatasetType) String() string {
	return string(t)
}
