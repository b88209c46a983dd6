package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InvoiceStatus represents the payment state of an invoice. There are no
// transition rules between invoice states.
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoicePending InvoiceStatus = "pending"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// IsValidInvoiceStatus checks an invoice status value.
func IsValidInvoiceStatus(status InvoiceStatus) bool {
	switch status {
	case InvoicePaid, InvoicePending, InvoiceOverdue:
		return true
	default:
		return false
	}
}

// InvoiceItem is a billed line item.
type InvoiceItem struct {
	Description string  `bson:"description" json:"description"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	Price       float64 `bson:"price" json:"price"`
}

// Invoice represents a bill issued to a client.
type Invoice struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID    primitive.ObjectID `bson:"client_id" json:"client_id"`
	Amount      float64            `bson:"amount" json:"amount"`
	Status      InvoiceStatus      `bson:"status" json:"status"`
	DueDate     time.Time          `bson:"due_date" json:"due_date"`
	Description string             `bson:"description" json:"description"`
	Items       []InvoiceItem      `bson:"items,omitempty" json:"items,omitempty"`
	PDFUrl      string             `bson:"pdf_url,omitempty" json:"pdf_url,omitempty"`
	Date        time.Time          `bson:"date" json:"date"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// CreateInvoiceRequest is the payload for creating an invoice.
type CreateInvoiceRequest struct {
	ClientID    string        `json:"client_id"`
	Amount      float64       `json:"amount"`
	DueDate     time.Time     `json:"due_date"`
	Description string        `json:"description"`
	Items       []InvoiceItem `json:"items"`
}
