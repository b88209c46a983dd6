package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/models"
	"github.com/vertilift/lift-maintenance/internal/rules"
)

func maintenanceFixture() (*models.Maintenance, primitive.ObjectID, primitive.ObjectID) {
	clientID := primitive.NewObjectID()
	techID := primitive.NewObjectID()
	m := &models.Maintenance{
		ID:             primitive.NewObjectID(),
		ClientID:       clientID,
		ClientName:     "Torre Norte",
		Status:         models.MaintenanceScheduled,
		AssignedTechID: &techID,
		TechnicianName: "Ana",
	}
	return m, clientID, techID
}

func newMaintenanceHandler(maintenances *fakeMaintenances, notifier *fakeNotifier, actors ...*models.Claims) *MaintenanceHandler {
	return NewMaintenanceHandler(rules.NewEngine(), maintenances, storeWithActors(actors...), notifier, quietLogger())
}

func TestMaintenanceStatusAssignedTechStartsWork(t *testing.T) {
	m, clientID, techID := maintenanceFixture()
	maintenances := &fakeMaintenances{byID: map[string]*models.Maintenance{m.ID.Hex(): m}}
	notifier := &fakeNotifier{}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newMaintenanceHandler(maintenances, notifier, claims)

	r := authedRequest(t, http.MethodPut, "/api/maintenances/"+m.ID.Hex()+"/status",
		models.StatusChangeRequest{Status: "in-progress"}, claims, map[string]string{"id": m.ID.Hex()})
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, maintenances.lastFields, "start_time")
	if assert.Len(t, notifier.direct, 1) {
		assert.Equal(t, clientID, notifier.direct[0].userID)
		assert.Equal(t, "Maintenance Started", notifier.direct[0].title)
	}
}

func TestMaintenanceStatusUnassignedTechForbidden(t *testing.T) {
	m, _, _ := maintenanceFixture()
	maintenances := &fakeMaintenances{byID: map[string]*models.Maintenance{m.ID.Hex(): m}}
	notifier := &fakeNotifier{}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleTechnician}
	h := newMaintenanceHandler(maintenances, notifier, claims)

	r := authedRequest(t, http.MethodPut, "/api/maintenances/"+m.ID.Hex()+"/status",
		models.StatusChangeRequest{Status: "in-progress"}, claims, map[string]string{"id": m.ID.Hex()})
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, maintenances.updateCalls, "a rejected decision must not touch storage")
	assert.Empty(t, notifier.direct)
}

func TestMaintenanceStatusInvalidValue(t *testing.T) {
	m, _, _ := maintenanceFixture()
	maintenances := &fakeMaintenances{byID: map[string]*models.Maintenance{m.ID.Hex(): m}}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}
	h := newMaintenanceHandler(maintenances, &fakeNotifier{}, claims)

	r := authedRequest(t, http.MethodPut, "/api/maintenances/"+m.ID.Hex()+"/status",
		models.StatusChangeRequest{Status: "paused"}, claims, map[string]string{"id": m.ID.Hex()})
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
}

func TestMaintenanceStatusNotFound(t *testing.T) {
	maintenances := &fakeMaintenances{byID: map[string]*models.Maintenance{}}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}
	h := newMaintenanceHandler(maintenances, &fakeNotifier{}, claims)

	id := primitive.NewObjectID().Hex()
	r := authedRequest(t, http.MethodPut, "/api/maintenances/"+id+"/status",
		models.StatusChangeRequest{Status: "completed"}, claims, map[string]string{"id": id})
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMaintenanceStatusStaleRoleRejected(t *testing.T) {
	m, _, techID := maintenanceFixture()
	maintenances := &fakeMaintenances{byID: map[string]*models.Maintenance{m.ID.Hex(): m}}
	// The token still claims technician but the account no longer exists.
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newMaintenanceHandler(maintenances, &fakeNotifier{})

	r := authedRequest(t, http.MethodPut, "/api/maintenances/"+m.ID.Hex()+"/status",
		models.StatusChangeRequest{Status: "in-progress"}, claims, map[string]string{"id": m.ID.Hex()})
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, maintenances.updateCalls)
}

func TestMaintenanceStatusLostRaceConflicts(t *testing.T) {
	m, _, techID := maintenanceFixture()
	maintenances := &fakeMaintenances{byID: map[string]*models.Maintenance{m.ID.Hex(): m}, conflict: true}
	notifier := &fakeNotifier{}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newMaintenanceHandler(maintenances, notifier, claims)

	r := authedRequest(t, http.MethodPut, "/api/maintenances/"+m.ID.Hex()+"/status",
		models.StatusChangeRequest{Status: "in-progress"}, claims, map[string]string{"id": m.ID.Hex()})
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, notifier.direct, "a lost race must not notify anyone")
}

func TestMaintenanceCompletionBroadcastsToAdmins(t *testing.T) {
	m, clientID, techID := maintenanceFixture()
	start := m.CreatedAt
	m.Status = models.MaintenanceInProgress
	m.StartTime = &start
	maintenances := &fakeMaintenances{byID: map[string]*models.Maintenance{m.ID.Hex(): m}}
	notifier := &fakeNotifier{}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newMaintenanceHandler(maintenances, notifier, claims)

	r := authedRequest(t, http.MethodPut, "/api/maintenances/"+m.ID.Hex()+"/status",
		models.StatusChangeRequest{Status: "completed"}, claims, map[string]string{"id": m.ID.Hex()})
	w := httptest.NewRecorder()

	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, maintenances.lastFields, "completion_date")
	assert.Contains(t, maintenances.lastFields, "duration")
	if assert.Len(t, notifier.direct, 1) {
		assert.Equal(t, clientID, notifier.direct[0].userID)
	}
	if assert.Len(t, notifier.broadcast, 1) {
		assert.Equal(t, models.RoleAdmin, notifier.broadcast[0].role)
	}
}
