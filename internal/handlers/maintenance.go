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
)

// MaintenanceHandler handles maintenance visit endpoints.
type MaintenanceHandler struct {
	engine       *rules.Engine
	maintenances db.MaintenanceCollection
	users        db.UserCollection
	actors       *ActorResolver
	notifier     notify.Notifier
	log          *logrus.Logger
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(engine *rules.Engine, maintenances db.MaintenanceCollection, users db.UserCollection, notifier notify.Notifier, log *logrus.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		engine:       engine,
		maintenances: maintenances,
		users:        users,
		actors:       NewActorResolver(users),
		notifier:     notifier,
		log:          log,
	}
}

// List returns maintenances scoped by role: admins see everything,
// technicians their assignments, clients their own visits.
func (h *MaintenanceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter := bson.M{}
	switch claims.Role {
	case models.RoleAdmin:
	case models.RoleTechnician:
		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		filter["assigned_tech_id"] = id
	default:
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

	maintenances, err := h.maintenances.FindMaintenances(r.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Failed to list maintenances")
		respondError(w, http.StatusInternalServerError, "Failed to list maintenances")
		return
	}
	respondList(w, maintenances, len(maintenances))
}

// Get returns a single maintenance if the caller may see it.
func (h *MaintenanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	m, err := h.maintenances.FindMaintenanceByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Maintenance not found")
		return
	}
	if !canSeeMaintenance(claims, m) {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}
	respondData(w, http.StatusOK, m)
}

func canSeeMaintenance(claims *models.Claims, m *models.Maintenance) bool {
	switch claims.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTechnician:
		return m.AssignedTechID != nil && m.AssignedTechID.Hex() == claims.UserID
	default:
		return m.ClientID.Hex() == claims.UserID
	}
}

// Create schedules a maintenance visit. The client reference must resolve to
// a user holding the client role; the optional technician reference must
// resolve to a technician.
func (h *MaintenanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMaintenanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID == "" || req.ScheduledDate.IsZero() {
		respondError(w, http.StatusBadRequest, "client_id and scheduled_date are required")
		return
	}

	client, kind := h.resolveReference(r, req.ClientID, rules.ValidateClientReference)
	if kind != rules.ErrNone {
		respondError(w, kind.HTTPStatus(), "Client reference is invalid")
		return
	}

	now := time.Now()
	m := models.Maintenance{
		ClientID:      client.ID,
		ClientName:    client.Name,
		Address:       req.Address,
		Coordinates:   req.Coordinates,
		Status:        models.MaintenanceScheduled,
		ScheduledDate: req.ScheduledDate,
		Type:          req.Type,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if m.Address == "" {
		m.Address = client.Address
	}

	if req.AssignedTechID != "" {
		tech, kind := h.resolveReference(r, req.AssignedTechID, rules.ValidateTechnicianReference)
		if kind != rules.ErrNone {
			respondError(w, kind.HTTPStatus(), "Technician reference is invalid")
			return
		}
		m.AssignedTechID = &tech.ID
		m.TechnicianName = tech.Name
	}

	id, err := h.maintenances.InsertMaintenance(r.Context(), m)
	if err != nil {
		h.log.WithError(err).Error("Failed to insert maintenance")
		respondError(w, http.StatusInternalServerError, "Failed to create maintenance")
		return
	}
	m.ID = id

	h.notifier.Notify(m.ClientID, "Maintenance Scheduled",
		"A maintenance visit has been scheduled for your building", models.NotificationInfo)
	if m.AssignedTechID != nil {
		h.notifier.Notify(*m.AssignedTechID, "New Maintenance Assigned",
			"You have been assigned a new maintenance visit", models.NotificationTask)
	}

	respondData(w, http.StatusCreated, m)
}

func (h *MaintenanceHandler) resolveReference(r *http.Request, id string, validate func(*models.User) rules.ErrorKind) (*models.User, rules.ErrorKind) {
	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, rules.ErrNotFound
		}
		return nil, rules.ErrDependencyFailure
	}
	if kind := validate(user); kind != rules.ErrNone {
		return nil, kind
	}
	return user, rules.ErrNone
}

// Update modifies the schedulable fields of a maintenance.
func (h *MaintenanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMaintenanceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fields := map[string]interface{}{"updated_at": time.Now()}
	if req.Address != "" {
		fields["address"] = req.Address
	}
	if req.Coordinates != (models.Coordinates{}) {
		fields["coordinates"] = req.Coordinates
	}
	if !req.ScheduledDate.IsZero() {
		fields["scheduled_date"] = req.ScheduledDate
	}
	if req.Type != "" {
		fields["type"] = req.Type
	}
	if req.Notes != "" {
		fields["notes"] = req.Notes
	}

	m, err := h.maintenances.UpdateMaintenanceFields(r.Context(), mux.Vars(r)["id"], fields)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Maintenance not found")
			return
		}
		h.log.WithError(err).Error("Failed to update maintenance")
		respondError(w, http.StatusInternalServerError, "Failed to update maintenance")
		return
	}
	respondData(w, http.StatusOK, m)
}

// UpdateStatus runs a status transition through the rule engine and
// persists it with a compare-and-set on the current status. A lost race
// returns 409 so the client can re-read and retry.
func (h *MaintenanceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	m, err := h.maintenances.FindMaintenanceByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Maintenance not found")
		return
	}

	actor, err := h.actors.Resolve(r.Context(), claims)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Acting account is not valid")
		return
	}
	decision := h.engine.MaintenanceStatusChange(actor, m, req.Status)
	if !decision.Authorized {
		respondError(w, decision.Reason.HTTPStatus(), statusChangeMessage(decision.Reason))
		return
	}

	updated, err := h.maintenances.UpdateMaintenanceStatusFields(r.Context(), id, m.Status, decision.Mutations)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Maintenance not found")
			return
		}
		h.log.WithError(err).Error("Failed to persist maintenance status")
		respondError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	if updated == nil {
		respondError(w, http.StatusConflict, "Maintenance was modified concurrently, retry")
		return
	}

	dispatchEffects(h.notifier, decision.SideEffects)
	respondData(w, http.StatusOK, updated)
}

// AssignTechnician sets or replaces the assigned technician.
func (h *MaintenanceHandler) AssignTechnician(w http.ResponseWriter, r *http.Request) {
	var req models.AssignTechnicianRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TechnicianID == "" {
		respondError(w, http.StatusBadRequest, "technician_id is required")
		return
	}

	tech, kind := h.resolveReference(r, req.TechnicianID, rules.ValidateTechnicianReference)
	if kind != rules.ErrNone {
		respondError(w, kind.HTTPStatus(), "Technician reference is invalid")
		return
	}

	fields := map[string]interface{}{
		"assigned_tech_id": tech.ID,
		"technician_name":  tech.Name,
		"updated_at":       time.Now(),
	}
	m, err := h.maintenances.UpdateMaintenanceFields(r.Context(), mux.Vars(r)["id"], fields)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Maintenance not found")
			return
		}
		h.log.WithError(err).Error("Failed to assign technician")
		respondError(w, http.StatusInternalServerError, "Failed to assign technician")
		return
	}

	h.notifier.Notify(tech.ID, "New Maintenance Assigned",
		"You have been assigned a new maintenance visit", models.NotificationTask)
	respondData(w, http.StatusOK, m)
}

// Delete cancels a maintenance visit and notifies the affected users.
func (h *MaintenanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := h.maintenances.FindMaintenanceByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Maintenance not found")
		return
	}

	if err := h.maintenances.DeleteMaintenance(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "Maintenance not found")
		return
	}

	h.notifier.Notify(m.ClientID, "Maintenance Cancelled",
		"A scheduled maintenance visit has been cancelled", models.NotificationInfo)
	if m.AssignedTechID != nil {
		h.notifier.Notify(*m.AssignedTechID, "Maintenance Cancelled",
			"A maintenance visit assigned to you has been cancelled", models.NotificationInfo)
	}
	respondMessage(w, http.StatusOK, "Maintenance deleted")
}

func statusChangeMessage(kind rules.ErrorKind) string {
	switch kind {
	case rules.ErrInvalidStatus:
		return "Invalid status value"
	case rules.ErrForbidden:
		return "You are not allowed to perform this status change"
	case rules.ErrNotFound:
		return "Not found"
	case rules.ErrInvalidReference:
		return "Referenced user is invalid"
	default:
		return "Status change failed"
	}
}
