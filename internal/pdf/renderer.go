// Package pdf renders report and invoice documents and stores them in the
// object store, returning the stored object reference.
package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/vertilift/lift-maintenance/internal/models"
	"github.com/vertilift/lift-maintenance/internal/storage"
)

// Renderer produces PDF documents for reports and invoices.
type Renderer interface {
	RenderReportPDF(ctx context.Context, report *models.Report) (string, error)
	RenderInvoicePDF(ctx context.Context, invoice *models.Invoice, client *models.User) (string, error)
}

// DocumentRenderer implements Renderer on gofpdf plus an object store.
type DocumentRenderer struct {
	store storage.ObjectStore
}

// NewDocumentRenderer creates a renderer writing into the given store.
func NewDocumentRenderer(store storage.ObjectStore) *DocumentRenderer {
	return &DocumentRenderer{store: store}
}

// RenderReportPDF renders a maintenance report and returns the stored
// object reference.
func (r *DocumentRenderer) RenderReportPDF(ctx context.Context, report *models.Report) (string, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Arial", "B", 20)
	doc.CellFormat(0, 10, "VERTILIFT", "", 1, "C", false, 0, "")
	doc.SetFont("Arial", "B", 16)
	doc.CellFormat(0, 8, "Maintenance Report", "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Arial", "", 12)
	doc.CellFormat(0, 6, fmt.Sprintf("Building: %s", report.BuildingName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Date: %s", report.Date), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Technician: %s", orUnspecified(report.TechnicianName)), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Elevator brand: %s", report.ElevatorBrand), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Elevators: %d", report.ElevatorCount), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Floors: %d", report.FloorCount), "", 1, "L", false, 0, "")
	doc.Ln(4)

	for _, section := range report.Sections {
		doc.SetFont("Arial", "BU", 14)
		doc.CellFormat(0, 7, section.Title, "", 1, "L", false, 0, "")
		doc.SetFont("Arial", "", 10)
		for _, item := range section.Items {
			doc.CellFormat(0, 5, fmt.Sprintf("%s: %s", item.Description, itemValue(item.Value)), "", 1, "L", false, 0, "")
		}
		doc.Ln(3)
	}

	if report.Observations != "" {
		doc.SetFont("Arial", "BU", 14)
		doc.CellFormat(0, 7, "Observations", "", 1, "L", false, 0, "")
		doc.SetFont("Arial", "", 10)
		doc.MultiCell(0, 5, report.Observations, "", "L", false)
		doc.Ln(3)
	}

	doc.SetFont("Arial", "BU", 14)
	doc.CellFormat(0, 7, "Signatures", "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 10)
	doc.CellFormat(95, 6, fmt.Sprintf("Technician: %s", signedLabel(report.TechSignature)), "", 0, "L", false, 0, "")
	doc.CellFormat(95, 6, fmt.Sprintf("Client: %s", signedLabel(report.ClientSig)), "", 1, "L", false, 0, "")

	return r.output(ctx, doc, "reports", fmt.Sprintf("report-%s.pdf", report.ID.Hex()))
}

// RenderInvoicePDF renders an invoice and returns the stored object
// reference.
func (r *DocumentRenderer) RenderInvoicePDF(ctx context.Context, invoice *models.Invoice, client *models.User) (string, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Arial", "B", 20)
	doc.CellFormat(0, 10, "VERTILIFT", "", 1, "C", false, 0, "")
	doc.SetFont("Arial", "B", 16)
	doc.CellFormat(0, 8, "INVOICE", "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Arial", "", 12)
	doc.CellFormat(0, 6, fmt.Sprintf("Invoice #: %s", invoice.ID.Hex()), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Date: %s", invoice.Date.Format("2006-01-02")), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Due date: %s", invoice.DueDate.Format("2006-01-02")), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, fmt.Sprintf("Status: %s", invoice.Status), "", 1, "L", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Arial", "BU", 14)
	doc.CellFormat(0, 7, "Client", "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 10)
	doc.CellFormat(0, 5, fmt.Sprintf("Name: %s", client.Name), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 5, fmt.Sprintf("Email: %s", client.Email), "", 1, "L", false, 0, "")
	if client.Address != "" {
		doc.CellFormat(0, 5, fmt.Sprintf("Address: %s", client.Address), "", 1, "L", false, 0, "")
	}
	if client.RUC != "" {
		doc.CellFormat(0, 5, fmt.Sprintf("RUC: %s", client.RUC), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	doc.SetFont("Arial", "BU", 14)
	doc.CellFormat(0, 7, "Details", "", 1, "L", false, 0, "")

	if len(invoice.Items) > 0 {
		doc.SetFont("Arial", "B", 10)
		doc.CellFormat(15, 6, "Item", "1", 0, "L", false, 0, "")
		doc.CellFormat(95, 6, "Description", "1", 0, "L", false, 0, "")
		doc.CellFormat(20, 6, "Qty", "1", 0, "R", false, 0, "")
		doc.CellFormat(30, 6, "Price", "1", 0, "R", false, 0, "")
		doc.CellFormat(30, 6, "Total", "1", 1, "R", false, 0, "")

		doc.SetFont("Arial", "", 10)
		for i, item := range invoice.Items {
			doc.CellFormat(15, 6, fmt.Sprintf("%d", i+1), "1", 0, "L", false, 0, "")
			doc.CellFormat(95, 6, item.Description, "1", 0, "L", false, 0, "")
			doc.CellFormat(20, 6, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
			doc.CellFormat(30, 6, fmt.Sprintf("$%.2f", item.Price), "1", 0, "R", false, 0, "")
			doc.CellFormat(30, 6, fmt.Sprintf("$%.2f", float64(item.Quantity)*item.Price), "1", 1, "R", false, 0, "")
		}
	} else {
		doc.SetFont("Arial", "", 10)
		doc.MultiCell(0, 5, fmt.Sprintf("Description: %s", invoice.Description), "", "L", false)
	}
	doc.Ln(2)

	doc.SetFont("Arial", "B", 12)
	doc.CellFormat(0, 7, fmt.Sprintf("Total: $%.2f", invoice.Amount), "", 1, "R", false, 0, "")
	doc.Ln(2)

	doc.SetFont("Arial", "BU", 10)
	doc.CellFormat(0, 5, "Terms and Conditions", "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 8)
	doc.CellFormat(0, 4, "1. Payment is due before the due date.", "", 1, "L", false, 0, "")
	doc.CellFormat(0, 4, "2. Late payments may be subject to additional charges.", "", 1, "L", false, 0, "")
	doc.CellFormat(0, 4, "3. For questions about this invoice, contact our billing department.", "", 1, "L", false, 0, "")

	return r.output(ctx, doc, "invoices", fmt.Sprintf("invoice-%s.pdf", invoice.ID.Hex()))
}

func (r *DocumentRenderer) output(ctx context.Context, doc *gofpdf.Fpdf, prefix, filename string) (string, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return "", fmt.Errorf("failed to render pdf: %w", err)
	}
	ref, err := r.store.Upload(ctx, prefix, filename, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to store pdf: %w", err)
	}
	return ref, nil
}

func itemValue(v interface{}) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "OK"
		}
		return "FAIL"
	case nil:
		return "-"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func signedLabel(signature string) string {
	if signature == "" {
		return "(unsigned)"
	}
	return "(signed)"
}

func orUnspecified(s string) string {
	if s == "" {
		return "not specified"
	}
	return s
}
