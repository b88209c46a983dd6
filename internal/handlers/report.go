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
	"github.com/vertilift/lift-maintenance/internal/pdf"
	"github.com/vertilift/lift-maintenance/internal/rules"
	"github.com/vertilift/lift-maintenance/internal/storage"
)

// ReportHandler handles inspection report endpoints. Clients have no access
// to reports at all; technicians work on their own, admins on everything.
type ReportHandler struct {
	engine    *rules.Engine
	reports   db.ReportCollection
	templates db.ReportTemplateCollection
	actors    *ActorResolver
	notifier  notify.Notifier
	renderer  pdf.Renderer
	store     storage.ObjectStore
	log       *logrus.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(engine *rules.Engine, reports db.ReportCollection, templates db.ReportTemplateCollection, users db.UserCollection, notifier notify.Notifier, renderer pdf.Renderer, store storage.ObjectStore, log *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		engine:    engine,
		reports:   reports,
		templates: templates,
		actors:    NewActorResolver(users),
		notifier:  notifier,
		renderer:  renderer,
		store:     store,
		log:       log,
	}
}

// Create stores a new report as a draft owned by the submitting technician.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if claims.Role == models.RoleClient {
		respondError(w, http.StatusForbidden, "Clients cannot create reports")
		return
	}

	var report models.Report
	if !decodeBody(w, r, &report) {
		return
	}
	if report.BuildingName == "" || report.Date == "" {
		respondError(w, http.StatusBadRequest, "building_name and date are required")
		return
	}

	// The template's shape is captured on the report at creation.
	template, err := h.templates.FindTemplateByID(r.Context(), report.TemplateID.Hex())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Report template not found")
			return
		}
		h.log.WithError(err).Error("Failed to load report template")
		respondError(w, http.StatusInternalServerError, "Failed to create report")
		return
	}
	report.TemplateType = template.Type
	report.SheetNumber = template.SheetNumber

	if claims.Role == models.RoleTechnician || report.TechnicianID.IsZero() {
		techID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		report.TechnicianID = techID
		report.TechnicianName = claims.Name
	}

	now := time.Now()
	report.ID = primitive.NilObjectID
	report.Status = models.ReportDraft
	report.PDFUrl = ""
	report.CreatedAt = now
	report.UpdatedAt = now

	id, err := h.reports.InsertReport(r.Context(), report)
	if err != nil {
		h.log.WithError(err).Error("Failed to insert report")
		respondError(w, http.StatusInternalServerError, "Failed to create report")
		return
	}
	report.ID = id
	respondData(w, http.StatusCreated, report)
}

// List returns reports: all for admins, own for technicians.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if claims.Role == models.RoleClient {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	filter := bson.M{}
	if claims.Role == models.RoleTechnician {
		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		filter["technician_id"] = id
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	reports, err := h.reports.FindReports(r.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Failed to list reports")
		respondError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}
	respondList(w, reports, len(reports))
}

// Get returns a single report if the caller may see it.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, report, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, report)
}

// Update replaces the content of a report. Approved reports are frozen for
// technicians; the engine's ownership rules apply here too.
func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, existing, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	if claims.Role == models.RoleTechnician && existing.Status == models.ReportApproved {
		respondError(w, http.StatusForbidden, "Approved reports cannot be modified")
		return
	}

	var updated models.Report
	if !decodeBody(w, r, &updated) {
		return
	}

	// Ownership, lifecycle state and the rendered document are immutable
	// through this endpoint.
	updated.ID = existing.ID
	updated.TechnicianID = existing.TechnicianID
	updated.TechnicianName = existing.TechnicianName
	updated.Status = existing.Status
	updated.PDFUrl = existing.PDFUrl
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()

	if err := h.reports.UpdateReport(r.Context(), existing.ID.Hex(), updated); err != nil {
		h.log.WithError(err).Error("Failed to update report")
		respondError(w, http.StatusInternalServerError, "Failed to update report")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// UploadSignatures attaches the technician and client signature images to a
// report. Either file may be sent alone; approved reports stay frozen for
// technicians.
func (h *ReportHandler) UploadSignatures(w http.ResponseWriter, r *http.Request) {
	claims, existing, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	if claims.Role == models.RoleTechnician && existing.Status == models.ReportApproved {
		respondError(w, http.StatusForbidden, "Approved reports cannot be modified")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	fields := map[string]interface{}{}
	for _, field := range []string{"technician_signature", "client_signature"} {
		data, filename, present, err := formImage(r, field)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !present {
			continue
		}
		ref, err := h.store.Upload(r.Context(), "signatures", filename, data)
		if err != nil {
			h.log.WithError(err).Error("Failed to store signature image")
			respondError(w, http.StatusInternalServerError, "Failed to store signature image")
			return
		}
		fields[field] = ref
	}
	if len(fields) == 0 {
		respondError(w, http.StatusBadRequest, "No signature files provided")
		return
	}
	fields["updated_at"] = time.Now()

	updated, err := h.reports.UpdateReportFields(r.Context(), existing.ID.Hex(), fields)
	if err != nil {
		h.log.WithError(err).Error("Failed to update report signatures")
		respondError(w, http.StatusInternalServerError, "Failed to update report")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// UpdateStatus runs a report status transition through the rule engine. The
// first transition into submitted or approved renders the PDF before the
// transition is persisted; a failed render fails the whole request and
// leaves the report untouched.
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	report, err := h.reports.FindReportByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}

	actor, err := h.actors.Resolve(r.Context(), claims)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Acting account is not valid")
		return
	}
	decision := h.engine.ReportStatusChange(actor, report, req.Status)
	if !decision.Authorized {
		respondError(w, decision.Reason.HTTPStatus(), statusChangeMessage(decision.Reason))
		return
	}

	if hasRenderEffect(decision.SideEffects) {
		ref, err := h.renderer.RenderReportPDF(r.Context(), report)
		if err != nil {
			h.log.WithError(err).Error("Failed to render report PDF")
			respondError(w, rules.ErrDependencyFailure.HTTPStatus(), "Failed to render report document")
			return
		}
		decision.Mutations["pdf_url"] = ref
	}

	updated, err := h.reports.UpdateReportStatusFields(r.Context(), id, report.Status, decision.Mutations)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Report not found")
			return
		}
		h.log.WithError(err).Error("Failed to persist report status")
		respondError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	if updated == nil {
		respondError(w, http.StatusConflict, "Report was modified concurrently, retry")
		return
	}

	dispatchEffects(h.notifier, decision.SideEffects)
	respondData(w, http.StatusOK, updated)
}

// GetPDF returns a presigned download link for the rendered report.
func (h *ReportHandler) GetPDF(w http.ResponseWriter, r *http.Request) {
	_, report, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	if report.PDFUrl == "" {
		respondError(w, http.StatusNotFound, "Report has not been rendered yet")
		return
	}

	url, err := h.store.PresignedURL(r.Context(), report.PDFUrl)
	if err != nil {
		h.log.WithError(err).Error("Failed to presign report PDF")
		respondError(w, http.StatusInternalServerError, "Failed to generate download link")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"url": url})
}

// Delete removes a report.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.DeleteReport(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	respondMessage(w, http.StatusOK, "Report deleted")
}

// loadAccessible fetches the report in the path and enforces read access:
// admins always, the owning technician, clients never.
func (h *ReportHandler) loadAccessible(w http.ResponseWriter, r *http.Request) (*models.Claims, *models.Report, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, nil, false
	}
	if claims.Role == models.RoleClient {
		respondError(w, http.StatusForbidden, "Forbidden")
		return nil, nil, false
	}

	report, err := h.reports.FindReportByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return nil, nil, false
	}
	if claims.Role == models.RoleTechnician && report.TechnicianID.Hex() != claims.UserID {
		respondError(w, http.StatusForbidden, "Forbidden")
		return nil, nil, false
	}
	return claims, report, true
}
