package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaintenanceStatus represents the lifecycle state of a maintenance visit.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in-progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
)

// IsValidMaintenanceStatus checks if a maintenance status value is valid.
func IsValidMaintenanceStatus(status MaintenanceStatus) bool {
	switch status {
	case MaintenanceScheduled, MaintenanceInProgress, MaintenanceCompleted:
		return true
	default:
		return false
	}
}

// Coordinates represents the geographical location of a maintenance site.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Maintenance represents a scheduled technician visit to a client site.
// StartTime is set when the visit moves to in-progress; CompletionDate and
// Duration are set when it completes. Duration is only computed when a
// start time was recorded.
type Maintenance struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ClientID       primitive.ObjectID  `bson:"client_id" json:"client_id"`
	ClientName     string              `bson:"client_name" json:"client_name"`
	Address        string              `bson:"address" json:"address"`
	Coordinates    Coordinates         `bson:"coordinates" json:"coordinates"`
	Status         MaintenanceStatus   `bson:"status" json:"status"`
	AssignedTechID *primitive.ObjectID `bson:"assigned_tech_id,omitempty" json:"assigned_tech_id,omitempty"`
	TechnicianName string              `bson:"technician_name,omitempty" json:"technician_name,omitempty"`
	ScheduledDate  time.Time           `bson:"scheduled_date" json:"scheduled_date"`
	Type           string              `bson:"type,omitempty" json:"type,omitempty"`
	StartTime      *time.Time          `bson:"start_time,omitempty" json:"start_time,omitempty"`
	CompletionDate *time.Time          `bson:"completion_date,omitempty" json:"completion_date,omitempty"`
	Duration       *time.Duration      `bson:"duration,omitempty" json:"duration,omitempty"`
	Notes          string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}

// CreateMaintenanceRequest is the payload for creating a maintenance visit.
type CreateMaintenanceRequest struct {
	ClientID       string      `json:"client_id"`
	AssignedTechID string      `json:"assigned_tech_id"`
	Address        string      `json:"address"`
	Coordinates    Coordinates `json:"coordinates"`
	ScheduledDate  time.Time   `json:"scheduled_date"`
	Type           string      `json:"type"`
	Notes          string      `json:"notes"`
}

// StatusChangeRequest is the payload shared by the status endpoints.
type StatusChangeRequest struct {
	Status string `json:"status"`
}

// AssignTechnicianRequest is the payload for assigning a technician.
type AssignTechnicianRequest struct {
	TechnicianID string `json:"technician_id"`
}
