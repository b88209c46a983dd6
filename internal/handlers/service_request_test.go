package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/models"
	"github.com/vertilift/lift-maintenance/internal/rules"
)

type fakeServiceRequests struct {
	db.ServiceRequestCollection
	byID        map[string]*models.ServiceRequest
	updateCalls int
	lastUpdate  *models.ServiceRequest
}

func (f *fakeServiceRequests) UpdateServiceRequest(_ context.Context, id string, sr models.ServiceRequest) error {
	if _, ok := f.byID[id]; !ok {
		return db.ErrNotFound
	}
	f.lastUpdate = &sr
	return nil
}

func (f *fakeServiceRequests) FindServiceRequestByID(_ context.Context, id string) (*models.ServiceRequest, error) {
	if sr, ok := f.byID[id]; ok {
		copied := *sr
		return &copied, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeServiceRequests) UpdateServiceRequestStatusFields(_ context.Context, id string, expected models.ServiceRequestStatus, fields map[string]interface{}) (*models.ServiceRequest, error) {
	f.updateCalls++
	sr, ok := f.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if sr.Status != expected {
		return nil, nil
	}
	updated := *sr
	if s, ok := fields["status"].(models.ServiceRequestStatus); ok {
		updated.Status = s
	}
	return &updated, nil
}

func serviceRequestFixture() (*models.ServiceRequest, primitive.ObjectID) {
	clientID := primitive.NewObjectID()
	sr := &models.ServiceRequest{
		ID:          primitive.NewObjectID(),
		ClientID:    clientID,
		RequestType: models.RequestMaintenance,
		Status:      models.RequestPending,
	}
	return sr, clientID
}

func TestServiceRequestStatusAdminOnly(t *testing.T) {
	sr, clientID := serviceRequestFixture()
	requests := &fakeServiceRequests{byID: map[string]*models.ServiceRequest{sr.ID.Hex(): sr}}
	notifier := &fakeNotifier{}

	// The owning client still may not change the status.
	claims := &models.Claims{UserID: clientID.Hex(), Role: models.RoleClient}
	h := NewServiceRequestHandler(rules.NewEngine(), requests, storeWithActors(claims), notifier, &fakeStore{}, quietLogger())
	r := authedRequest(t, http.MethodPut, "/api/service-requests/"+sr.ID.Hex()+"/status",
		models.StatusChangeRequest{Status: "approved"}, claims, map[string]string{"id": sr.ID.Hex()})
	w := httptest.NewRecorder()
	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, requests.updateCalls)
	assert.Empty(t, notifier.direct)
}

func TestServiceRequestCancellationIsUrgent(t *testing.T) {
	sr, clientID := serviceRequestFixture()
	requests := &fakeServiceRequests{byID: map[string]*models.ServiceRequest{sr.ID.Hex(): sr}}
	notifier := &fakeNotifier{}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}
	h := NewServiceRequestHandler(rules.NewEngine(), requests, storeWithActors(claims), notifier, &fakeStore{}, quietLogger())
	r := authedRequest(t, http.MethodPut, "/api/service-requests/"+sr.ID.Hex()+"/status",
		models.StatusChangeRequest{Status: "cancelled"}, claims, map[string]string{"id": sr.ID.Hex()})
	w := httptest.NewRecorder()
	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	if assert.Len(t, notifier.direct, 1) {
		assert.Equal(t, clientID, notifier.direct[0].userID)
		assert.Equal(t, "Service Request Cancelled", notifier.direct[0].title)
		assert.Equal(t, models.NotificationEmergency, notifier.direct[0].severity)
	}
}

func TestServiceRequestApprovalNotifiesClient(t *testing.T) {
	sr, clientID := serviceRequestFixture()
	requests := &fakeServiceRequests{byID: map[string]*models.ServiceRequest{sr.ID.Hex(): sr}}
	notifier := &fakeNotifier{}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}
	h := NewServiceRequestHandler(rules.NewEngine(), requests, storeWithActors(claims), notifier, &fakeStore{}, quietLogger())
	r := authedRequest(t, http.MethodPut, "/api/service-requests/"+sr.ID.Hex()+"/status",
		models.StatusChangeRequest{Status: "approved"}, claims, map[string]string{"id": sr.ID.Hex()})
	w := httptest.NewRecorder()
	h.UpdateStatus(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	if assert.Len(t, notifier.direct, 1) {
		assert.Equal(t, clientID, notifier.direct[0].userID)
		assert.Equal(t, models.NotificationInfo, notifier.direct[0].severity)
	}
}

func TestServiceRequestImageUploadAppendsReferences(t *testing.T) {
	sr, clientID := serviceRequestFixture()
	sr.Images = []string{"requests/before.jpg"}
	requests := &fakeServiceRequests{byID: map[string]*models.ServiceRequest{sr.ID.Hex(): sr}}
	claims := &models.Claims{UserID: clientID.Hex(), Role: models.RoleClient}
	store := &fakeStore{}
	h := NewServiceRequestHandler(rules.NewEngine(), requests, storeWithActors(claims), &fakeNotifier{}, store, quietLogger())

	r := multipartRequest(t, "/api/service-requests/"+sr.ID.Hex()+"/images", claims,
		map[string]string{"id": sr.ID.Hex()}, []uploadFile{
			{field: "images", name: "lobby.jpg", data: []byte("jpg-bytes")},
			{field: "images", name: "shaft.png", data: []byte("png-bytes")},
		})
	w := httptest.NewRecorder()
	h.UploadImages(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"requests/lobby.jpg", "requests/shaft.png"}, store.uploads)
	if assert.NotNil(t, requests.lastUpdate) {
		assert.Equal(t, []string{"requests/before.jpg", "requests/lobby.jpg", "requests/shaft.png"}, requests.lastUpdate.Images)
	}
}

func TestServiceRequestImageUploadForbiddenForTechnician(t *testing.T) {
	sr, _ := serviceRequestFixture()
	requests := &fakeServiceRequests{byID: map[string]*models.ServiceRequest{sr.ID.Hex(): sr}}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleTechnician}
	store := &fakeStore{}
	h := NewServiceRequestHandler(rules.NewEngine(), requests, storeWithActors(claims), &fakeNotifier{}, store, quietLogger())

	r := multipartRequest(t, "/api/service-requests/"+sr.ID.Hex()+"/images", claims,
		map[string]string{"id": sr.ID.Hex()}, []uploadFile{
			{field: "images", name: "lobby.jpg", data: []byte("jpg-bytes")},
		})
	w := httptest.NewRecorder()
	h.UploadImages(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, store.uploads)
	assert.Nil(t, requests.lastUpdate)
}

func TestServiceRequestImageUploadCapsBatchSize(t *testing.T) {
	sr, clientID := serviceRequestFixture()
	requests := &fakeServiceRequests{byID: map[string]*models.ServiceRequest{sr.ID.Hex(): sr}}
	claims := &models.Claims{UserID: clientID.Hex(), Role: models.RoleClient}
	store := &fakeStore{}
	h := NewServiceRequestHandler(rules.NewEngine(), requests, storeWithActors(claims), &fakeNotifier{}, store, quietLogger())

	files := make([]uploadFile, 0, 6)
	for i := 0; i < 6; i++ {
		files = append(files, uploadFile{field: "images", name: fmt.Sprintf("photo-%d.jpg", i), data: []byte("jpg-bytes")})
	}
	r := multipartRequest(t, "/api/service-requests/"+sr.ID.Hex()+"/images", claims,
		map[string]string{"id": sr.ID.Hex()}, files)
	w := httptest.NewRecorder()
	h.UploadImages(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.uploads)
}
