package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType represents the severity of a notification.
type NotificationType string

const (
	NotificationInfo      NotificationType = "info"
	NotificationTask      NotificationType = "task"
	NotificationEmergency NotificationType = "emergency"
)

// IsValidNotificationType checks a notification type value.
func IsValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationInfo, NotificationTask, NotificationEmergency:
		return true
	default:
		return false
	}
}

// Notification is a message stored for a user and pushed over the real-time
// channel when the user is connected.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Type      NotificationType   `bson:"type" json:"type"`
	Read      bool               `bson:"read" json:"read"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// CreateNotificationRequest is the payload for creating a notification.
type CreateNotificationRequest struct {
	UserID  string           `json:"user_id"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
}

// BulkNotificationRequest is the payload for notifying several users at once.
type BulkNotificationRequest struct {
	UserIDs []string         `json:"user_ids"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
}
