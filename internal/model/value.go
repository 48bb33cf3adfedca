package model

// DataObjectValue is one attribute of a resource. For arrays the items are
// stored in ValueArrayItem rows and SerializedValue holds the id list.
type DataObjectValue struct {
	DataObjectID           string  `gorm:"primaryKey;uuid;not null"`
	AttributeKey           string  `gorm:"primaryKey;not null"`
	ValueType              string  `gorm:"not null"`
	IsArray                bool    `gorm:"not null;default:false"`
	SerializedValue        string  `gorm:"not null"`
	ReferencedDataObjectID *string `gorm:"uuid;index"`
}

func (DataObjectValue) TableName() string {
	return "data_object_values"
}

// ValueArrayItem is one element of an array attribute, ordered by Position.
type ValueArrayItem struct {
	ParentDataObjectID     string  `gorm:"primaryKey;uuid;not null"`
	ParentKey              string  `gorm:"primaryKey;not null"`
	Position               int     `gorm:"primaryKey;not null"`
	SerializedValue        string  `gorm:"not null"`
	ReferencedDataObjectID *string `gorm:"uuid;index"`
}

func (ValueArrayItem) TableName() string {
	return "value_array_items"
}
