package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/middleware"
	"github.com/vertilift/lift-maintenance/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type sentNote struct {
	userID   primitive.ObjectID
	title    string
	severity models.NotificationType
}

type roleNote struct {
	role     models.Role
	title    string
	severity models.NotificationType
}

type fakeNotifier struct {
	mu        sync.Mutex
	direct    []sentNote
	broadcast []roleNote
}

func (f *fakeNotifier) Notify(userID primitive.ObjectID, title, message string, severity models.NotificationType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, sentNote{userID: userID, title: title, severity: severity})
}

func (f *fakeNotifier) NotifyRole(role models.Role, title, message string, severity models.NotificationType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, roleNote{role: role, title: title, severity: severity})
}

// storeWithActors builds a user store holding an active account for each
// set of claims, so the actor resolver can re-read roles from storage.
func storeWithActors(claims ...*models.Claims) *fakeUserStore {
	byID := make(map[string]*models.User, len(claims))
	for _, c := range claims {
		id, _ := primitive.ObjectIDFromHex(c.UserID)
		byID[c.UserID] = &models.User{ID: id, Name: c.Name, Role: c.Role, Status: models.UserStatusActive}
	}
	return &fakeUserStore{byID: byID}
}

// authedRequest builds a JSON request carrying claims and mux path vars the
// way the router would.
func authedRequest(t *testing.T, method, target string, body interface{}, claims *models.Claims, vars map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	if claims != nil {
		r = r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, claims))
	}
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	return r
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

type fakeMaintenances struct {
	db.MaintenanceCollection
	byID        map[string]*models.Maintenance
	conflict    bool
	updateCalls int
	lastFields  map[string]interface{}
}

func (f *fakeMaintenances) FindMaintenanceByID(_ context.Context, id string) (*models.Maintenance, error) {
	if m, ok := f.byID[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeMaintenances) UpdateMaintenanceStatusFields(_ context.Context, id string, expected models.MaintenanceStatus, fields map[string]interface{}) (*models.Maintenance, error) {
	f.updateCalls++
	f.lastFields = fields
	m, ok := f.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if f.conflict || m.Status != expected {
		return nil, nil
	}
	updated := *m
	if s, ok := fields["status"].(models.MaintenanceStatus); ok {
		updated.Status = s
	}
	return &updated, nil
}

type fakeReports struct {
	db.ReportCollection
	byID        map[string]*models.Report
	conflict    bool
	updateCalls int
	lastFields  map[string]interface{}
	inserted    []models.Report
}

func (f *fakeReports) InsertReport(_ context.Context, r models.Report) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	r.ID = id
	f.inserted = append(f.inserted, r)
	return id, nil
}

func (f *fakeReports) UpdateReportFields(_ context.Context, id string, fields map[string]interface{}) (*models.Report, error) {
	f.updateCalls++
	f.lastFields = fields
	r, ok := f.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	updated := *r
	if s, ok := fields["technician_signature"].(string); ok {
		updated.TechSignature = s
	}
	if s, ok := fields["client_signature"].(string); ok {
		updated.ClientSig = s
	}
	return &updated, nil
}

func (f *fakeReports) FindReportByID(_ context.Context, id string) (*models.Report, error) {
	if r, ok := f.byID[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeReports) UpdateReportStatusFields(_ context.Context, id string, expected models.ReportStatus, fields map[string]interface{}) (*models.Report, error) {
	f.updateCalls++
	f.lastFields = fields
	r, ok := f.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if f.conflict || r.Status != expected {
		return nil, nil
	}
	updated := *r
	if s, ok := fields["status"].(models.ReportStatus); ok {
		updated.Status = s
	}
	if url, ok := fields["pdf_url"].(string); ok {
		updated.PDFUrl = url
	}
	return &updated, nil
}

type fakeRenderer struct {
	renderCalls int
	err         error
}

func (f *fakeRenderer) RenderReportPDF(_ context.Context, _ *models.Report) (string, error) {
	f.renderCalls++
	if f.err != nil {
		return "", f.err
	}
	return "reports/rendered.pdf", nil
}

func (f *fakeRenderer) RenderInvoicePDF(_ context.Context, _ *models.Invoice, _ *models.User) (string, error) {
	f.renderCalls++
	if f.err != nil {
		return "", f.err
	}
	return "invoices/rendered.pdf", nil
}

type fakeStore struct {
	uploads []string
}

func (f *fakeStore) Upload(_ context.Context, prefix, filename string, _ []byte) (string, error) {
	ref := prefix + "/" + filename
	f.uploads = append(f.uploads, ref)
	return ref, nil
}

func (f *fakeStore) PresignedURL(_ context.Context, objectName string) (string, error) {
	return "https://storage.local/" + objectName, nil
}

func (f *fakeStore) Delete(_ context.Context, _ string) error { return nil }

type fakeTemplates struct {
	db.ReportTemplateCollection
	byID map[string]*models.ReportTemplate
}

func (f *fakeTemplates) FindTemplateByID(_ context.Context, id string) (*models.ReportTemplate, error) {
	if t, ok := f.byID[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, db.ErrNotFound
}

type uploadFile struct {
	field string
	name  string
	data  []byte
}

// multipartRequest builds a multipart/form-data request carrying claims and
// mux path vars the way the router would.
func multipartRequest(t *testing.T, target string, claims *models.Claims, vars map[string]string, files []uploadFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	if claims != nil {
		r = r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, claims))
	}
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	return r
}
