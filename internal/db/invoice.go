package db

import (
	"context"
	"time"

	"github.com/vertilift/lift-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InvoiceCollection defines the interface for invoice storage.
type InvoiceCollection interface {
	InsertInvoice(ctx context.Context, inv models.Invoice) (primitive.ObjectID, error)
	FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error)
	FindInvoices(ctx context.Context, filter bson.M) ([]models.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, inv models.Invoice) error
	UpdateInvoiceFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
}

// MongoInvoiceCollection implements InvoiceCollection for MongoDB.
type MongoInvoiceCollection struct {
	Collection *mongo.Collection
}

// InsertInvoice inserts an invoice.
func (c *MongoInvoiceCollection) InsertInvoice(ctx context.Context, inv models.Invoice) (primitive.ObjectID, error) {
	inv.CreatedAt = time.Now()
	if inv.Date.IsZero() {
		inv.Date = time.Now()
	}
	if inv.Status == "" {
		inv.Status = models.InvoicePending
	}

	res, err := c.Collection.InsertOne(ctx, inv)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// FindInvoiceByID finds an invoice by its ID.
func (c *MongoInvoiceCollection) FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var inv models.Invoice
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&inv); err != nil {
		return nil, mapFindErr(err)
	}
	return &inv, nil
}

// FindInvoices queries invoices, newest first.
func (c *MongoInvoiceCollection) FindInvoices(ctx context.Context, filter bson.M) ([]models.Invoice, error) {
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Invoice
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateInvoice replaces an invoice document.
func (c *MongoInvoiceCollection) UpdateInvoice(ctx context.Context, id string, inv models.Invoice) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	inv.ID = objectID

	res, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, inv)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateInvoiceFields applies a partial update and returns the updated
// invoice.
func (c *MongoInvoiceCollection) UpdateInvoiceFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Invoice, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var inv models.Invoice
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&inv)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &inv, nil
}

// DeleteInvoice deletes an invoice by its ID.
func (c *MongoInvoiceCollection) DeleteInvoice(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
