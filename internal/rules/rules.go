// Package rules implements the lifecycle and access rule engine that governs
// status transitions on maintenances, reports, service requests and invoices.
// The engine is a pure decision function: it never touches storage or the
// network, it only returns the field mutations to apply and the side effects
// the caller should execute.
package rules

import (
	"fmt"
	"time"

	"github.com/vertilift/lift-maintenance/internal/models"
)

// EntityKind identifies which lifecycle a decision is about.
type EntityKind string

const (
	KindMaintenance    EntityKind = "maintenance"
	KindReport         EntityKind = "report"
	KindServiceRequest EntityKind = "service-request"
	KindInvoice        EntityKind = "invoice"
)

// ErrorKind classifies a rejected decision.
type ErrorKind string

const (
	ErrNone              ErrorKind = ""
	ErrInvalidStatus     ErrorKind = "invalid_status"
	ErrNotFound          ErrorKind = "not_found"
	ErrForbidden         ErrorKind = "forbidden"
	ErrInvalidReference  ErrorKind = "invalid_reference"
	ErrDependencyFailure ErrorKind = "dependency_failure"
)

// HTTPStatus maps an error kind to the status code the controllers return.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrInvalidStatus:
		return 400
	case ErrForbidden:
		return 403
	case ErrNotFound, ErrInvalidReference:
		return 404
	default:
		return 500
	}
}

// Actor is the authenticated principal performing a request.
type Actor struct {
	ID   string
	Role models.Role
}

// EffectKind distinguishes the side effects a decision can request.
type EffectKind string

const (
	EffectNotify    EffectKind = "notify"
	EffectRenderPDF EffectKind = "render_pdf"
)

// SideEffect is a description of an action to be executed by the caller
// after the transition is persisted. For EffectNotify either TargetUserID
// names a single recipient or BroadcastRole names every user holding a role.
type SideEffect struct {
	Kind          EffectKind
	TargetUserID  string
	BroadcastRole models.Role
	Title         string
	Message       string
	Severity      models.NotificationType
}

// Decision is the engine's output: the authorization verdict, the field
// mutations to persist, and the side effects to run afterwards.
type Decision struct {
	Authorized  bool
	Mutations   map[string]interface{}
	SideEffects []SideEffect
	Reason      ErrorKind
}

func reject(reason ErrorKind) Decision {
	return Decision{Authorized: false, Reason: reason}
}

// Engine evaluates status transitions. The clock is injectable so tests can
// pin timestamps.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock creates an engine with a fixed clock source.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// AuthorizeStatusChange dispatches to the per-kind rule. entity must be the
// current persisted record of the matching type; a nil or mismatched entity
// yields a NotFound rejection.
func (e *Engine) AuthorizeStatusChange(kind EntityKind, actor Actor, entity interface{}, requested string) Decision {
	switch kind {
	case KindMaintenance:
		m, ok := entity.(*models.Maintenance)
		if !ok || m == nil {
			return reject(ErrNotFound)
		}
		return e.MaintenanceStatusChange(actor, m, requested)
	case KindReport:
		r, ok := entity.(*models.Report)
		if !ok || r == nil {
			return reject(ErrNotFound)
		}
		return e.ReportStatusChange(actor, r, requested)
	case KindServiceRequest:
		sr, ok := entity.(*models.ServiceRequest)
		if !ok || sr == nil {
			return reject(ErrNotFound)
		}
		return e.ServiceRequestStatusChange(actor, sr, requested)
	case KindInvoice:
		inv, ok := entity.(*models.Invoice)
		if !ok || inv == nil {
			return reject(ErrNotFound)
		}
		return e.InvoiceStatusChange(actor, inv, requested)
	default:
		return reject(ErrInvalidStatus)
	}
}

// MaintenanceStatusChange decides a maintenance status transition. The
// assigned technician or an admin may change status; clients never may.
// Moving to in-progress records the start time; moving to completed records
// the completion date and, only when a start time exists, the duration.
func (e *Engine) MaintenanceStatusChange(actor Actor, m *models.Maintenance, requested string) Decision {
	status := models.MaintenanceStatus(requested)
	if !models.IsValidMaintenanceStatus(status) {
		return reject(ErrInvalidStatus)
	}

	switch actor.Role {
	case models.RoleAdmin:
		// always allowed
	case models.RoleTechnician:
		if m.AssignedTechID == nil || m.AssignedTechID.Hex() != actor.ID {
			return reject(ErrForbidden)
		}
	default:
		return reject(ErrForbidden)
	}

	now := e.now()
	mutations := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	var effects []SideEffect

	switch status {
	case models.MaintenanceInProgress:
		mutations["start_time"] = now
		effects = append(effects, SideEffect{
			Kind:         EffectNotify,
			TargetUserID: m.ClientID.Hex(),
			Title:        "Maintenance Started",
			Message:      "The technician has started the scheduled maintenance",
			Severity:     models.NotificationInfo,
		})
	case models.MaintenanceCompleted:
		mutations["completion_date"] = now
		if m.StartTime != nil {
			mutations["duration"] = now.Sub(*m.StartTime)
		}
		effects = append(effects,
			SideEffect{
				Kind:         EffectNotify,
				TargetUserID: m.ClientID.Hex(),
				Title:        "Maintenance Completed",
				Message:      "The scheduled maintenance has been completed",
				Severity:     models.NotificationInfo,
			},
			SideEffect{
				Kind:          EffectNotify,
				BroadcastRole: models.RoleAdmin,
				Title:         "Maintenance Completed",
				Message:       fmt.Sprintf("Technician %s has completed the maintenance for %s", m.TechnicianName, m.ClientName),
				Severity:      models.NotificationInfo,
			},
		)
	}

	return Decision{Authorized: true, Mutations: mutations, SideEffects: effects}
}

// ReportStatusChange decides a report status transition. Clients are never
// authorized. Admins always are. A technician may only touch their own
// report, may not touch an approved report, and may not move a submitted
// report back to draft. The first transition into submitted or approved
// requests a PDF render so the stored document reference gets populated.
func (e *Engine) ReportStatusChange(actor Actor, r *models.Report, requested string) Decision {
	status := models.ReportStatus(requested)
	if !models.IsValidReportStatus(status) {
		return reject(ErrInvalidStatus)
	}

	switch actor.Role {
	case models.RoleAdmin:
		// always allowed
	case models.RoleTechnician:
		if r.TechnicianID.Hex() != actor.ID {
			return reject(ErrForbidden)
		}
		if r.Status == models.ReportApproved {
			return reject(ErrForbidden)
		}
		if r.Status == models.ReportSubmitted && status == models.ReportDraft {
			return reject(ErrForbidden)
		}
	default:
		return reject(ErrForbidden)
	}

	mutations := map[string]interface{}{
		"status":     status,
		"updated_at": e.now(),
	}
	var effects []SideEffect

	if (status == models.ReportSubmitted || status == models.ReportApproved) && r.PDFUrl == "" {
		effects = append(effects, SideEffect{Kind: EffectRenderPDF})
	}

	if status == models.ReportApproved && actor.Role == models.RoleAdmin {
		effects = append(effects, SideEffect{
			Kind:         EffectNotify,
			TargetUserID: r.TechnicianID.Hex(),
			Title:        "Report Approved",
			Message:      fmt.Sprintf("Your report for %s has been approved", r.BuildingName),
			Severity:     models.NotificationInfo,
		})
	}

	return Decision{Authorized: true, Mutations: mutations, SideEffects: effects}
}

// ServiceRequestStatusChange decides a service request status transition.
// Only administrators may change the status. The client is notified with a
// template keyed by the new status; cancellation is urgent, everything else
// informational.
func (e *Engine) ServiceRequestStatusChange(actor Actor, sr *models.ServiceRequest, requested string) Decision {
	status := models.ServiceRequestStatus(requested)
	if !models.IsValidServiceRequestStatus(status) {
		return reject(ErrInvalidStatus)
	}

	if actor.Role != models.RoleAdmin {
		return reject(ErrForbidden)
	}

	mutations := map[string]interface{}{
		"status":     status,
		"updated_at": e.now(),
	}

	title, message, severity := serviceRequestNotification(status)
	effects := []SideEffect{{
		Kind:         EffectNotify,
		TargetUserID: sr.ClientID.Hex(),
		Title:        title,
		Message:      message,
		Severity:     severity,
	}}

	return Decision{Authorized: true, Mutations: mutations, SideEffects: effects}
}

func serviceRequestNotification(status models.ServiceRequestStatus) (string, string, models.NotificationType) {
	switch status {
	case models.RequestApproved:
		return "Service Request Approved", "Your service request has been approved and will be scheduled shortly", models.NotificationInfo
	case models.RequestInProgress:
		return "Service Request In Progress", "Work on your service request has started", models.NotificationInfo
	case models.RequestCompleted:
		return "Service Request Completed", "Your service request has been completed", models.NotificationInfo
	case models.RequestCancelled:
		return "Service Request Cancelled", "Your service request has been cancelled", models.NotificationEmergency
	default:
		return "Service Request Updated", fmt.Sprintf("Your service request status is now %s", status), models.NotificationInfo
	}
}

// InvoiceStatusChange decides an invoice status change. Invoices carry a
// plain payment enum with no transition rules; only administrators may set
// it. The client is notified, with overdue flagged as urgent.
func (e *Engine) InvoiceStatusChange(actor Actor, inv *models.Invoice, requested string) Decision {
	status := models.InvoiceStatus(requested)
	if !models.IsValidInvoiceStatus(status) {
		return reject(ErrInvalidStatus)
	}

	if actor.Role != models.RoleAdmin {
		return reject(ErrForbidden)
	}

	severity := models.NotificationInfo
	if status == models.InvoiceOverdue {
		severity = models.NotificationEmergency
	}

	return Decision{
		Authorized: true,
		Mutations:  map[string]interface{}{"status": status},
		SideEffects: []SideEffect{{
			Kind:         EffectNotify,
			TargetUserID: inv.ClientID.Hex(),
			Title:        "Invoice Status Updated",
			Message:      fmt.Sprintf("Your invoice has been marked as %s", status),
			Severity:     severity,
		}},
	}
}
