package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/middleware"
	"github.com/vertilift/lift-maintenance/internal/models"
	"github.com/vertilift/lift-maintenance/internal/notify"
)

// NotificationHandler handles stored notification endpoints. Real-time
// delivery goes through the hub; these endpoints serve the inbox.
type NotificationHandler struct {
	notifications db.NotificationCollection
	notifier      notify.Notifier
	log           *logrus.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notifications db.NotificationCollection, notifier notify.Notifier, log *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, notifier: notifier, log: log}
}

// List returns the authenticated user's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	notifications, err := h.notifications.FindNotificationsByUser(r.Context(), claims.UserID)
	if err != nil {
		h.log.WithError(err).Error("Failed to list notifications")
		respondError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}
	respondList(w, notifications, len(notifications))
}

// Get returns a single notification owned by the caller.
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	n, err := h.notifications.FindNotificationByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Notification not found")
		return
	}
	if n.UserID.Hex() != claims.UserID && claims.Role != models.RoleAdmin {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}
	respondData(w, http.StatusOK, n)
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	n, err := h.notifications.FindNotificationByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Notification not found")
		return
	}
	if n.UserID.Hex() != claims.UserID && claims.Role != models.RoleAdmin {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	updated, err := h.notifications.MarkAsRead(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Notification not found")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.notifications.MarkAllAsRead(r.Context(), claims.UserID); err != nil {
		h.log.WithError(err).Error("Failed to mark notifications read")
		respondError(w, http.StatusInternalServerError, "Failed to mark notifications read")
		return
	}
	respondMessage(w, http.StatusOK, "All notifications marked as read")
}

// Create stores and pushes a notification to a single user.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNotificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user_id")
		return
	}
	if req.Title == "" || req.Message == "" {
		respondError(w, http.StatusBadRequest, "title and message are required")
		return
	}
	if req.Type == "" {
		req.Type = models.NotificationInfo
	}
	if !models.IsValidNotificationType(req.Type) {
		respondError(w, http.StatusBadRequest, "Invalid notification type")
		return
	}

	h.notifier.Notify(userID, req.Title, req.Message, req.Type)
	respondMessage(w, http.StatusAccepted, "Notification queued")
}

// CreateBulk stores and pushes a notification to several users.
func (h *NotificationHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var req models.BulkNotificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.UserIDs) == 0 || req.Title == "" || req.Message == "" {
		respondError(w, http.StatusBadRequest, "user_ids, title and message are required")
		return
	}
	if req.Type == "" {
		req.Type = models.NotificationInfo
	}
	if !models.IsValidNotificationType(req.Type) {
		respondError(w, http.StatusBadRequest, "Invalid notification type")
		return
	}

	queued := 0
	for _, raw := range req.UserIDs {
		userID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			continue
		}
		h.notifier.Notify(userID, req.Title, req.Message, req.Type)
		queued++
	}
	respondData(w, http.StatusAccepted, map[string]int{"queued": queued})
}

// Delete removes one of the caller's notifications.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	n, err := h.notifications.FindNotificationByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Notification not found")
		return
	}
	if n.UserID.Hex() != claims.UserID && claims.Role != models.RoleAdmin {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := h.notifications.DeleteNotification(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "Notification not found")
		return
	}
	respondMessage(w, http.StatusOK, "Notification deleted")
}
