package entities

// IDSequence persists the highest identifier issued for an entity kind, so
// identifiers are never reused after the newest rows are deleted.
type IDSequence struct {
	Kind      string `gorm:"primaryKey;size:32"`
	HighWater uint64 `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (IDSequence) TableName() string {
	return "id_sequences"
}

// All returns every model in migration order, parents first.
func All() []any {
	return []any{
		&Scene{},
		&Detection{},
		&SceneDescription{},
		&Annotation{},
		&DatasetMembership{},
		&IDSequence{},
	}
}
