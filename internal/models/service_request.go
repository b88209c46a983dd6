package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceRequestStatus represents the lifecycle state of a service request.
type ServiceRequestStatus string

const (
	RequestPending    ServiceRequestStatus = "pending"
	RequestApproved   ServiceRequestStatus = "approved"
	RequestInProgress ServiceRequestStatus = "in-progress"
	RequestCompleted  ServiceRequestStatus = "completed"
	RequestCancelled  ServiceRequestStatus = "cancelled"
)

// IsValidServiceRequestStatus checks a service request status value.
func IsValidServiceRequestStatus(status ServiceRequestStatus) bool {
	switch status {
	case RequestPending, RequestApproved, RequestInProgress, RequestCompleted, RequestCancelled:
		return true
	default:
		return false
	}
}

// RequestType is the category a client asked for.
type RequestType string

const (
	RequestMaintenance  RequestType = "maintenance"
	RequestInstallation RequestType = "installation"
	RequestConsultation RequestType = "consultation"
)

// IsValidRequestType checks a service request type value.
func IsValidRequestType(t RequestType) bool {
	switch t {
	case RequestMaintenance, RequestInstallation, RequestConsultation:
		return true
	default:
		return false
	}
}

// UrgencyLevel represents how urgent the client marked the request.
type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyNormal UrgencyLevel = "normal"
	UrgencyHigh   UrgencyLevel = "high"
)

// ContactMethod is how the client wants to be reached.
type ContactMethod string

const (
	ContactPhone    ContactMethod = "phone"
	ContactEmail    ContactMethod = "email"
	ContactWhatsapp ContactMethod = "whatsapp"
)

// IsValidContactMethod checks a contact method value.
func IsValidContactMethod(m ContactMethod) bool {
	switch m {
	case ContactPhone, ContactEmail, ContactWhatsapp:
		return true
	default:
		return false
	}
}

// ServiceRequest represents a client-initiated ask for maintenance,
// installation or consultation. Only administrators may change its status;
// clients own the non-status fields of their requests.
type ServiceRequest struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ClientID          primitive.ObjectID   `bson:"client_id" json:"client_id"`
	RequestType       RequestType          `bson:"request_type" json:"request_type"`
	ServiceType       string               `bson:"service_type" json:"service_type"`
	UrgencyLevel      UrgencyLevel         `bson:"urgency_level" json:"urgency_level"`
	Description       string               `bson:"description" json:"description"`
	AvailableDays     []string             `bson:"available_days,omitempty" json:"available_days,omitempty"`
	PreferredTimeSlot string               `bson:"preferred_time_slot,omitempty" json:"preferred_time_slot,omitempty"`
	PreferredDate     time.Time            `bson:"preferred_date" json:"preferred_date"`
	PreferredTime     time.Time            `bson:"preferred_time" json:"preferred_time"`
	ContactMethod     ContactMethod        `bson:"contact_method" json:"contact_method"`
	Images            []string             `bson:"images,omitempty" json:"images,omitempty"`
	Status            ServiceRequestStatus `bson:"status" json:"status"`
	CreatedAt         time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at" json:"updated_at"`
}
