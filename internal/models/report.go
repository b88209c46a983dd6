package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportStatus represents the lifecycle state of an inspection report.
type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportSubmitted ReportStatus = "submitted"
	ReportApproved  ReportStatus = "approved"
)

// IsValidReportStatus checks if a report status value is valid.
func IsValidReportStatus(status ReportStatus) bool {
	switch status {
	case ReportDraft, ReportSubmitted, ReportApproved:
		return true
	default:
		return false
	}
}

// ReportItemData is a single captured item value inside a report section.
// Value mirrors whatever the template item asked for (bool, text, number).
type ReportItemData struct {
	ItemID      string      `bson:"item_id" json:"item_id"`
	Description string      `bson:"description" json:"description"`
	Value       interface{} `bson:"value" json:"value"`
}

// ReportSectionData is a captured section of a report. Sections are copied
// from the template's shape at submission time and are not re-validated
// against the template afterwards.
type ReportSectionData struct {
	SectionID string           `bson:"section_id" json:"section_id"`
	Title     string           `bson:"title" json:"title"`
	Items     []ReportItemData `bson:"items" json:"items"`
}

// Report represents a technician's maintenance or inspection write-up
// against a template.
type Report struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TechnicianID   primitive.ObjectID  `bson:"technician_id" json:"technician_id"`
	TechnicianName string              `bson:"technician_name,omitempty" json:"technician_name,omitempty"`
	TemplateID     primitive.ObjectID  `bson:"template_id" json:"template_id"`
	TemplateType   string              `bson:"template_type" json:"template_type"`
	SheetNumber    int                 `bson:"sheet_number" json:"sheet_number"`
	BuildingName   string              `bson:"building_name" json:"building_name"`
	ElevatorBrand  string              `bson:"elevator_brand" json:"elevator_brand"`
	ElevatorCount  int                 `bson:"elevator_count" json:"elevator_count"`
	FloorCount     int                 `bson:"floor_count" json:"floor_count"`
	ClockInTime    string              `bson:"clock_in_time" json:"clock_in_time"`
	ClockOutTime   string              `bson:"clock_out_time,omitempty" json:"clock_out_time,omitempty"`
	Date           string              `bson:"date" json:"date"`
	Sections       []ReportSectionData `bson:"sections" json:"sections"`
	Observations   string              `bson:"observations,omitempty" json:"observations,omitempty"`
	TechSignature  string              `bson:"technician_signature,omitempty" json:"technician_signature,omitempty"`
	ClientSig      string              `bson:"client_signature,omitempty" json:"client_signature,omitempty"`
	Status         ReportStatus        `bson:"status" json:"status"`
	PDFUrl         string              `bson:"pdf_url,omitempty" json:"pdf_url,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}
