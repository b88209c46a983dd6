package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TemplateItemType represents the input type of a template item.
type TemplateItemType string

const (
	ItemCheckbox TemplateItemType = "checkbox"
	ItemText     TemplateItemType = "text"
	ItemNumber   TemplateItemType = "number"
)

// TemplateItem is a single inspection point within a template section.
type TemplateItem struct {
	ID          string           `bson:"id" json:"id"`
	Description string           `bson:"description" json:"description"`
	Type        TemplateItemType `bson:"type" json:"type"`
	Required    bool             `bson:"required" json:"required"`
}

// TemplateSection groups related inspection items.
type TemplateSection struct {
	ID    string         `bson:"id" json:"id"`
	Title string         `bson:"title" json:"title"`
	Items []TemplateItem `bson:"items" json:"items"`
}

// ReportTemplate defines the shape of a report sheet. Reports capture a copy
// of this shape when they are created.
type ReportTemplate struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type        string             `bson:"type" json:"type"`
	Name        string             `bson:"name" json:"name"`
	SheetNumber int                `bson:"sheet_number" json:"sheet_number"`
	Sections    []TemplateSection  `bson:"sections" json:"sections"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// IsValidTemplateType checks a report template type value.
func IsValidTemplateType(t string) bool {
	switch t {
	case "type1", "type2", "type3":
		return true
	default:
		return false
	}
}
