package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/models"
)

// ReportTemplateHandler handles report template endpoints. Writes are
// admin-only at the routing layer; reads are open to technicians so they can
// fill sheets.
type ReportTemplateHandler struct {
	templates db.ReportTemplateCollection
	log       *logrus.Logger
}

// NewReportTemplateHandler creates a new template handler.
func NewReportTemplateHandler(templates db.ReportTemplateCollection, log *logrus.Logger) *ReportTemplateHandler {
	return &ReportTemplateHandler{templates: templates, log: log}
}

// List returns all templates, optionally filtered by ?type=.
func (h *ReportTemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if t := r.URL.Query().Get("type"); t != "" {
		filter["type"] = t
	}

	templates, err := h.templates.FindTemplates(r.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Failed to list templates")
		respondError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}
	respondList(w, templates, len(templates))
}

// Get returns a single template.
func (h *ReportTemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.templates.FindTemplateByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	respondData(w, http.StatusOK, t)
}

// Create stores a new template. Sections and items receive generated IDs
// when the payload omits them.
func (h *ReportTemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var t models.ReportTemplate
	if !decodeBody(w, r, &t) {
		return
	}
	if !models.IsValidTemplateType(t.Type) {
		respondError(w, http.StatusBadRequest, "Invalid template type")
		return
	}
	if t.Name == "" || len(t.Sections) == 0 {
		respondError(w, http.StatusBadRequest, "name and sections are required")
		return
	}
	ensureTemplateIDs(&t)
	t.ID = primitive.NilObjectID
	t.CreatedAt = time.Now()

	id, err := h.templates.InsertTemplate(r.Context(), t)
	if err != nil {
		h.log.WithError(err).Error("Failed to insert template")
		respondError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}
	t.ID = id
	respondData(w, http.StatusCreated, t)
}

// Update replaces a template. Existing reports keep the section copy they
// captured at creation, so edits never rewrite history.
func (h *ReportTemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := h.templates.FindTemplateByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Template not found")
		return
	}

	var t models.ReportTemplate
	if !decodeBody(w, r, &t) {
		return
	}
	if !models.IsValidTemplateType(t.Type) {
		respondError(w, http.StatusBadRequest, "Invalid template type")
		return
	}
	ensureTemplateIDs(&t)
	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt

	if err := h.templates.UpdateTemplate(r.Context(), id, t); err != nil {
		h.log.WithError(err).Error("Failed to update template")
		respondError(w, http.StatusInternalServerError, "Failed to update template")
		return
	}
	respondData(w, http.StatusOK, t)
}

// Delete removes a template.
func (h *ReportTemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.DeleteTemplate(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	respondMessage(w, http.StatusOK, "Template deleted")
}

func ensureTemplateIDs(t *models.ReportTemplate) {
	for i := range t.Sections {
		if t.Sections[i].ID == "" {
			t.Sections[i].ID = uuid.New().String()
		}
		for j := range t.Sections[i].Items {
			if t.Sections[i].Items[j].ID == "" {
				t.Sections[i].Items[j].ID = uuid.New().String()
			}
		}
	}
}
