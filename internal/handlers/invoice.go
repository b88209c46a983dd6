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

// InvoiceHandler handles invoice endpoints. Writes are admin-only at the
// routing layer; clients read their own invoices.
type InvoiceHandler struct {
	engine   *rules.Engine
	invoices db.InvoiceCollection
	users    db.UserCollection
	actors   *ActorResolver
	notifier notify.Notifier
	renderer pdf.Renderer
	store    storage.ObjectStore
	log      *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(engine *rules.Engine, invoices db.InvoiceCollection, users db.UserCollection, notifier notify.Notifier, renderer pdf.Renderer, store storage.ObjectStore, log *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		engine:   engine,
		invoices: invoices,
		users:    users,
		actors:   NewActorResolver(users),
		notifier: notifier,
		renderer: renderer,
		store:    store,
		log:      log,
	}
}

// Create issues an invoice to a client, renders its PDF and notifies the
// client. The invoice is still created when rendering fails; the document
// can be produced later.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID == "" || req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "client_id and a positive amount are required")
		return
	}

	client, err := h.users.FindUserByID(r.Context(), req.ClientID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Client not found")
		return
	}
	if kind := rules.ValidateClientReference(client); kind != rules.ErrNone {
		respondError(w, kind.HTTPStatus(), "Client reference is invalid")
		return
	}

	now := time.Now()
	inv := models.Invoice{
		ClientID:    client.ID,
		Amount:      req.Amount,
		Status:      models.InvoicePending,
		DueDate:     req.DueDate,
		Description: req.Description,
		Items:       req.Items,
		Date:        now,
		CreatedAt:   now,
	}

	id, err := h.invoices.InsertInvoice(r.Context(), inv)
	if err != nil {
		h.log.WithError(err).Error("Failed to insert invoice")
		respondError(w, http.StatusInternalServerError, "Failed to create invoice")
		return
	}
	inv.ID = id

	if ref, err := h.renderer.RenderInvoicePDF(r.Context(), &inv, client); err != nil {
		h.log.WithError(err).Warn("Failed to render invoice PDF")
	} else if updated, err := h.invoices.UpdateInvoiceFields(r.Context(), id.Hex(), map[string]interface{}{"pdf_url": ref}); err == nil {
		inv = *updated
	}

	h.notifier.Notify(inv.ClientID, "New Invoice",
		"A new invoice has been issued to your account", models.NotificationInfo)

	respondData(w, http.StatusCreated, inv)
}

// List returns invoices: all for admins, own for clients.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter := bson.M{}
	if claims.Role != models.RoleAdmin {
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

	invoices, err := h.invoices.FindInvoices(r.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Failed to list invoices")
		respondError(w, http.StatusInternalServerError, "Failed to list invoices")
		return
	}
	respondList(w, invoices, len(invoices))
}

// Get returns a single invoice if the caller may see it.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, inv, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, inv)
}

// UpdateStatus changes the payment status through the rule engine.
func (h *InvoiceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	inv, err := h.invoices.FindInvoiceByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Invoice not found")
		return
	}

	actor, err := h.actors.Resolve(r.Context(), claims)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Acting account is not valid")
		return
	}
	decision := h.engine.InvoiceStatusChange(actor, inv, req.Status)
	if !decision.Authorized {
		respondError(w, decision.Reason.HTTPStatus(), statusChangeMessage(decision.Reason))
		return
	}

	updated, err := h.invoices.UpdateInvoiceFields(r.Context(), id, decision.Mutations)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Invoice not found")
			return
		}
		h.log.WithError(err).Error("Failed to persist invoice status")
		respondError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	dispatchEffects(h.notifier, decision.SideEffects)
	respondData(w, http.StatusOK, updated)
}

// GetPDF returns a presigned download link for the invoice document.
func (h *InvoiceHandler) GetPDF(w http.ResponseWriter, r *http.Request) {
	_, inv, ok := h.loadAccessible(w, r)
	if !ok {
		return
	}
	if inv.PDFUrl == "" {
		respondError(w, http.StatusNotFound, "Invoice has not been rendered yet")
		return
	}

	url, err := h.store.PresignedURL(r.Context(), inv.PDFUrl)
	if err != nil {
		h.log.WithError(err).Error("Failed to presign invoice PDF")
		respondError(w, http.StatusInternalServerError, "Failed to generate download link")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"url": url})
}

// Delete removes an invoice.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.invoices.DeleteInvoice(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, http.StatusNotFound, "Invoice not found")
		return
	}
	respondMessage(w, http.StatusOK, "Invoice deleted")
}

// loadAccessible fetches the invoice in the path and enforces access:
// admins always, clients only their own, technicians never.
func (h *InvoiceHandler) loadAccessible(w http.ResponseWriter, r *http.Request) (*models.Claims, *models.Invoice, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, nil, false
	}
	if claims.Role == models.RoleTechnician {
		respondError(w, http.StatusForbidden, "Forbidden")
		return nil, nil, false
	}

	inv, err := h.invoices.FindInvoiceByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Invoice not found")
		return nil, nil, false
	}
	if claims.Role == models.RoleClient && inv.ClientID.Hex() != claims.UserID {
		respondError(w, http.StatusForbidden, "Forbidden")
		return nil, nil, false
	}
	return claims, inv, true
}
