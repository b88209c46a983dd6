package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/middleware"
	"github.com/vertilift/lift-maintenance/internal/models"
	"github.com/vertilift/lift-maintenance/internal/notify"
	"github.com/vertilift/lift-maintenance/internal/rules"
	"github.com/vertilift/lift-maintenance/internal/storage"
)

// ServiceRequestHandler handles client service request endpoints.
type ServiceRequestHandler struct {
	engine   *rules.Engine
	requests db.ServiceRequestCollection
	actors   *ActorResolver
	notifier notify.Notifier
	store    storage.ObjectStore
	log      *logrus.Logger
}

// NewServiceRequestHandler creates a new service request handler.
func NewServiceRequestHandler(engine *rules.Engine, requests db.ServiceRequestCollection, users db.UserCollection, notifier notify.Notifier, store storage.ObjectStore, log *logrus.Logger) *ServiceRequestHandler {
	return &ServiceRequestHandler{engine: engine, requests: requests, actors: NewActorResolver(users), notifier: notifier, store: store, log: log}
}

// Create files a new service request for the authenticated client and
// alerts administrators.
func (h *ServiceRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var sr models.ServiceRequest
	if !decodeBody(w, r, &sr) {
		return
	}
	if !models.IsValidRequestType(sr.RequestType) {
		respondError(w, http.StatusBadRequest, "Invalid request type")
		return
	}
	if sr.ContactMethod != "" && !models.IsValidContactMethod(sr.ContactMethod) {
		respondError(w, http.StatusBadRequest, "Invalid contact method")
		return
	}

	clientID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	// Admins may file on behalf of a client; everyone else files their own.
	if claims.Role != models.RoleAdmin || sr.ClientID.IsZero() {
		sr.ClientID = clientID
	}

	now := time.Now()
	sr.ID = primitive.NilObjectID
	sr.Status = models.RequestPending
	sr.CreatedAt = now
	sr.UpdatedAt = now

	id, err := h.requests.InsertServiceRequest(r.Context(), sr)
	if err != nil {
		h.log.WithError(err).Error("Failed to insert service request")
		respondError(w, http.StatusInternalServerError, "Failed to create service request")
		return
	}
	sr.ID = id

	severity := models.NotificationTask
	if sr.UrgencyLevel == models.UrgencyHigh {
		severity = models.NotificationEmergency
	}
	h.notifier.NotifyRole(models.RoleAdmin, "New Service Request",
		"A client has filed a new service request", severity)

	respondData(w, http.StatusCreated, sr)
}

// List returns service requests: all for admins and technicians, own for
// clients.
func (h *ServiceRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter := bson.M{}
	if claims.Role == models.RoleClient {
		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		filter["client_id"] = id
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	requests, err := h.requests.FindServiceRequests(r.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Failed to list service requests")
		respondError(w, http.StatusInternalServerError, "Failed to list service requests")
		return
	}
	respondList(w, requests, len(requests))
}

// Get returns a single service request if the caller may see it.
func (h *ServiceRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, sr, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, sr)
}

// Update lets the owning client (or an admin) edit the request details.
// Status never changes through this endpoint.
func (h *ServiceRequestHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, existing, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}

	var updated models.ServiceRequest
	if !decodeBody(w, r, &updated) {
		return
	}
	if !models.IsValidRequestType(updated.RequestType) {
		respondError(w, http.StatusBadRequest, "Invalid request type")
		return
	}

	updated.ID = existing.ID
	updated.ClientID = existing.ClientID
	updated.Status = existing.Status
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()

	if err := h.requests.UpdateServiceRequest(r.Context(), existing.ID.Hex(), updated); err != nil {
		h.log.WithError(err).Error("Failed to update service request")
		respondError(w, http.StatusInternalServerError, "Failed to update service request")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// UploadImages attaches site photos to a service request, up to five per
// upload. Only the owning client or an admin may add them.
func (h *ServiceRequestHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	claims, existing, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	if claims.Role == models.RoleTechnician {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		respondError(w, http.StatusBadRequest, "No image files provided")
		return
	}
	if len(headers) > maxRequestImages {
		respondError(w, http.StatusBadRequest, "At most five images per upload")
		return
	}

	refs := make([]string, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		data, err := readImagePart(file, header.Filename)
		file.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		ref, err := h.store.Upload(r.Context(), "requests", header.Filename, data)
		if err != nil {
			h.log.WithError(err).Error("Failed to store request image")
			respondError(w, http.StatusInternalServerError, "Failed to store image")
			return
		}
		refs = append(refs, ref)
	}

	existing.Images = append(existing.Images, refs...)
	existing.UpdatedAt = time.Now()
	if err := h.requests.UpdateServiceRequest(r.Context(), existing.ID.Hex(), *existing); err != nil {
		h.log.WithError(err).Error("Failed to update service request images")
		respondError(w, http.StatusInternalServerError, "Failed to update service request")
		return
	}
	respondData(w, http.StatusOK, existing)
}

// UpdateStatus runs an admin status transition through the rule engine and
// notifies the owning client.
func (h *ServiceRequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req models.StatusChangeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := mux.Vars(r)["id"]
	sr, err := h.requests.FindServiceRequestByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Service request not found")
		return
	}

	actor, err := h.actors.Resolve(r.Context(), claims)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Acting account is not valid")
		return
	}
	decision := h.engine.ServiceRequestStatusChange(actor, sr, req.Status)
	if !decision.Authorized {
		respondError(w, decision.Reason.HTTPStatus(), statusChangeMessage(decision.Reason))
		return
	}

	updated, err := h.requests.UpdateServiceRequestStatusFields(r.Context(), id, sr.Status, decision.Mutations)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Service request not found")
			return
		}
		h.log.WithError(err).Error("Failed to persist service request status")
		respondError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	if updated == nil {
		respondError(w, http.StatusConflict, "Service request was modified concurrently, retry")
		return
	}

	dispatchEffects(h.notifier, decision.SideEffects)
	respondData(w, http.StatusOK, updated)
}

// Delete removes a service request.
func (h *ServiceRequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, sr, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	if err := h.requests.DeleteServiceRequest(r.Context(), sr.ID.Hex()); err != nil {
		respondError(w, http.StatusNotFound, "Service request not found")
		return
	}
	respondMessage(w, http.StatusOK, "Service request deleted")
}

// loadAccessible fetches the request in the path and enforces access:
// admins and technicians always, clients only their own.
func (h *ServiceRequestHandler) loadAccessible(w http.ResponseWriter, r *http.Request) (*models.Claims, *models.ServiceRequest, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, nil, false
	}

	sr, err := h.requests.FindServiceRequestByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Service request not found")
		return nil, nil, false
	}
	if claims.Role == models.RoleClient && sr.ClientID.Hex() != claims.UserID {
		respondError(w, http.StatusForbidden, "Forbidden")
		return nil, nil, false
	}
	return claims, sr, true
}
