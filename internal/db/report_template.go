package db

import (
	"context"
	"time"

	"github.com/vertilift/lift-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReportTemplateCollection defines the interface for template storage.
type ReportTemplateCollection interface {
	InsertTemplate(ctx context.Context, t models.ReportTemplate) (primitive.ObjectID, error)
	FindTemplateByID(ctx context.Context, id string) (*models.ReportTemplate, error)
	FindTemplates(ctx context.Context, filter bson.M) ([]models.ReportTemplate, error)
	UpdateTemplate(ctx context.Context, id string, t models.ReportTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
}

// MongoReportTemplateCollection implements ReportTemplateCollection for MongoDB.
type MongoReportTemplateCollection struct {
	Collection *mongo.Collection
}

// InsertTemplate inserts a report template.
func (c *MongoReportTemplateCollection) InsertTemplate(ctx context.Context, t models.ReportTemplate) (primitive.ObjectID, error) {
	t.CreatedAt = time.Now()

	res, err := c.Collection.InsertOne(ctx, t)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// FindTemplateByID finds a template by its ID.
func (c *MongoReportTemplateCollection) FindTemplateByID(ctx context.Context, id string) (*models.ReportTemplate, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var t models.ReportTemplate
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&t); err != nil {
		return nil, mapFindErr(err)
	}
	return &t, nil
}

// FindTemplates queries templates.
func (c *MongoReportTemplateCollection) FindTemplates(ctx context.Context, filter bson.M) ([]models.ReportTemplate, error) {
	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.ReportTemplate
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTemplate replaces a template document.
func (c *MongoReportTemplateCollection) UpdateTemplate(ctx context.Context, id string, t models.ReportTemplate) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	t.ID = objectID

	res, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, t)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate deletes a template by its ID.
func (c *MongoReportTemplateCollection) DeleteTemplate(ctx context.Context, id string) error {
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
