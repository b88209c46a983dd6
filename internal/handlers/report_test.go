package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/models"
	"github.com/vertilift/lift-maintenance/internal/rules"
)

func reportFixture() (*models.Report, primitive.ObjectID) {
	techID := primitive.NewObjectID()
	r := &models.Report{
		ID:           primitive.NewObjectID(),
		TechnicianID: techID,
		BuildingName: "Edificio Central",
		Date:         "2026-08-20",
		Status:       models.ReportDraft,
	}
	return r, techID
}

func newReportHandler(reports *fakeReports, notifier *fakeNotifier, renderer *fakeRenderer, actors ...*models.Claims) *ReportHandler {
	return NewReportHandler(rules.NewEngine(), reports, &fakeTemplates{}, storeWithActors(actors...), notifier, renderer, &fakeStore{}, quietLogger())
}

func statusRequest(t *testing.T, reportID string, status string, claims *models.Claims) *http.Request {
	return authedRequest(t, http.MethodPut, "/api/reports/"+reportID+"/status",
		models.StatusChangeRequest{Status: status}, claims, map[string]string{"id": reportID})
}

func TestReportStatusClientAlwaysForbidden(t *testing.T) {
	rep, _ := reportFixture()
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	renderer := &fakeRenderer{}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleClient}
	h := newReportHandler(reports, &fakeNotifier{}, renderer, claims)

	w := httptest.NewRecorder()
	h.UpdateStatus(w, statusRequest(t, rep.ID.Hex(), "submitted", claims))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, reports.updateCalls)
	assert.Zero(t, renderer.renderCalls)
}

func TestReportFirstSubmitRendersOnce(t *testing.T) {
	rep, techID := reportFixture()
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	renderer := &fakeRenderer{}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, &fakeNotifier{}, renderer, claims)

	w := httptest.NewRecorder()
	h.UpdateStatus(w, statusRequest(t, rep.ID.Hex(), "submitted", claims))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, renderer.renderCalls)
	assert.Equal(t, "reports/rendered.pdf", reports.lastFields["pdf_url"])
}

func TestReportApproveWithExistingPDFSkipsRender(t *testing.T) {
	rep, _ := reportFixture()
	rep.Status = models.ReportSubmitted
	rep.PDFUrl = "reports/already-there.pdf"
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}
	h := newReportHandler(reports, notifier, renderer, claims)

	w := httptest.NewRecorder()
	h.UpdateStatus(w, statusRequest(t, rep.ID.Hex(), "approved", claims))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, renderer.renderCalls, "a rendered report must not be rendered again")
	if assert.Len(t, notifier.direct, 1) {
		assert.Equal(t, rep.TechnicianID, notifier.direct[0].userID)
		assert.Equal(t, "Report Approved", notifier.direct[0].title)
	}
}

func TestReportRenderFailureLeavesReportUntouched(t *testing.T) {
	rep, techID := reportFixture()
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	renderer := &fakeRenderer{err: errors.New("store unreachable")}
	notifier := &fakeNotifier{}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, notifier, renderer, claims)

	w := httptest.NewRecorder()
	h.UpdateStatus(w, statusRequest(t, rep.ID.Hex(), "submitted", claims))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, reports.updateCalls, "a failed render must not persist the transition")
	assert.Empty(t, notifier.direct)
}

func TestReportSubmittedBackToDraftForbiddenForTechnician(t *testing.T) {
	rep, techID := reportFixture()
	rep.Status = models.ReportSubmitted
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, &fakeNotifier{}, &fakeRenderer{}, claims)

	w := httptest.NewRecorder()
	h.UpdateStatus(w, statusRequest(t, rep.ID.Hex(), "draft", claims))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, reports.updateCalls)
}

func TestReportApprovedFrozenForTechnician(t *testing.T) {
	rep, techID := reportFixture()
	rep.Status = models.ReportApproved
	rep.PDFUrl = "reports/final.pdf"
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, &fakeNotifier{}, &fakeRenderer{}, claims)

	w := httptest.NewRecorder()
	h.UpdateStatus(w, statusRequest(t, rep.ID.Hex(), "draft", claims))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportStatusLostRaceConflicts(t *testing.T) {
	rep, techID := reportFixture()
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}, conflict: true}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, &fakeNotifier{}, &fakeRenderer{}, claims)

	w := httptest.NewRecorder()
	h.UpdateStatus(w, statusRequest(t, rep.ID.Hex(), "submitted", claims))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReportCreateMissingTemplateRejected(t *testing.T) {
	reports := &fakeReports{byID: map[string]*models.Report{}}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, &fakeNotifier{}, &fakeRenderer{}, claims)

	body := models.Report{
		TemplateID:   primitive.NewObjectID(),
		BuildingName: "Torre Norte",
		Date:         "2026-08-20",
	}
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(t, http.MethodPost, "/api/reports", body, claims, nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, reports.inserted)
}

func TestReportCreateCapturesTemplateShape(t *testing.T) {
	template := &models.ReportTemplate{
		ID:          primitive.NewObjectID(),
		Type:        "type2",
		Name:        "Quarterly Safety Inspection",
		SheetNumber: 2,
	}
	reports := &fakeReports{byID: map[string]*models.Report{}}
	templates := &fakeTemplates{byID: map[string]*models.ReportTemplate{template.ID.Hex(): template}}
	claims := &models.Claims{UserID: primitive.NewObjectID().Hex(), Role: models.RoleTechnician, Name: "Ana"}
	h := NewReportHandler(rules.NewEngine(), reports, templates, storeWithActors(claims), &fakeNotifier{}, &fakeRenderer{}, &fakeStore{}, quietLogger())

	body := models.Report{
		TemplateID:   template.ID,
		BuildingName: "Torre Norte",
		Date:         "2026-08-20",
	}
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(t, http.MethodPost, "/api/reports", body, claims, nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	if assert.Len(t, reports.inserted, 1) {
		assert.Equal(t, "type2", reports.inserted[0].TemplateType)
		assert.Equal(t, 2, reports.inserted[0].SheetNumber)
	}
}

func TestReportSignatureUploadStoresReferences(t *testing.T) {
	rep, techID := reportFixture()
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, &fakeNotifier{}, &fakeRenderer{}, claims)

	r := multipartRequest(t, "/api/reports/"+rep.ID.Hex()+"/signatures", claims,
		map[string]string{"id": rep.ID.Hex()}, []uploadFile{
			{field: "technician_signature", name: "tech.png", data: []byte("png-bytes")},
			{field: "client_signature", name: "client.jpg", data: []byte("jpg-bytes")},
		})
	w := httptest.NewRecorder()
	h.UploadSignatures(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "signatures/tech.png", reports.lastFields["technician_signature"])
	assert.Equal(t, "signatures/client.jpg", reports.lastFields["client_signature"])
}

func TestReportSignatureUploadRejectsNonImage(t *testing.T) {
	rep, techID := reportFixture()
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, &fakeNotifier{}, &fakeRenderer{}, claims)

	r := multipartRequest(t, "/api/reports/"+rep.ID.Hex()+"/signatures", claims,
		map[string]string{"id": rep.ID.Hex()}, []uploadFile{
			{field: "technician_signature", name: "payload.exe", data: []byte("nope")},
		})
	w := httptest.NewRecorder()
	h.UploadSignatures(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, reports.updateCalls)
}

func TestReportSignatureUploadApprovedFrozenForTechnician(t *testing.T) {
	rep, techID := reportFixture()
	rep.Status = models.ReportApproved
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, &fakeNotifier{}, &fakeRenderer{}, claims)

	r := multipartRequest(t, "/api/reports/"+rep.ID.Hex()+"/signatures", claims,
		map[string]string{"id": rep.ID.Hex()}, []uploadFile{
			{field: "technician_signature", name: "tech.png", data: []byte("png-bytes")},
		})
	w := httptest.NewRecorder()
	h.UploadSignatures(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, reports.updateCalls)
}

func TestReportPDFLinkUsesStoredReference(t *testing.T) {
	rep, techID := reportFixture()
	rep.PDFUrl = "reports/final.pdf"
	reports := &fakeReports{byID: map[string]*models.Report{rep.ID.Hex(): rep}}
	claims := &models.Claims{UserID: techID.Hex(), Role: models.RoleTechnician}
	h := newReportHandler(reports, &fakeNotifier{}, &fakeRenderer{}, claims)

	r := authedRequest(t, http.MethodGet, "/api/reports/"+rep.ID.Hex()+"/pdf", nil, claims, map[string]string{"id": rep.ID.Hex()})
	w := httptest.NewRecorder()
	h.GetPDF(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	data, ok := env.Data.(map[string]interface{})
	if assert.True(t, ok) {
		assert.Equal(t, "https://storage.local/reports/final.pdf", data["url"])
	}
}
