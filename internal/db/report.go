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

// ReportCollection defines the interface for report storage.
type ReportCollection interface {
	InsertReport(ctx context.Context, r models.Report) (primitive.ObjectID, error)
	FindReportByID(ctx context.Context, id string) (*models.Report, error)
	FindReports(ctx context.Context, filter bson.M) ([]models.Report, error)
	UpdateReport(ctx context.Context, id string, r models.Report) error
	UpdateReportFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Report, error)
	UpdateReportStatusFields(ctx context.Context, id string, expected models.ReportStatus, fields map[string]interface{}) (*models.Report, error)
	DeleteReport(ctx context.Context, id string) error
}

// MongoReportCollection implements ReportCollection for MongoDB.
type MongoReportCollection struct {
	Collection *mongo.Collection
}

// InsertReport inserts a report.
func (c *MongoReportCollection) InsertReport(ctx context.Context, r models.Report) (primitive.ObjectID, error) {
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	if r.Status == "" {
		r.Status = models.ReportDraft
	}

	res, err := c.Collection.InsertOne(ctx, r)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// FindReportByID finds a report by its ID.
func (c *MongoReportCollection) FindReportByID(ctx context.Context, id string) (*models.Report, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var r models.Report
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&r); err != nil {
		return nil, mapFindErr(err)
	}
	return &r, nil
}

// FindReports queries reports, newest first.
func (c *MongoReportCollection) FindReports(ctx context.Context, filter bson.M) ([]models.Report, error) {
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Report
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReport replaces a report document.
func (c *MongoReportCollection) UpdateReport(ctx context.Context, id string, r models.Report) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	r.ID = objectID
	r.UpdatedAt = time.Now()

	res, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, r)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateReportFields applies a partial update and returns the updated report.
func (c *MongoReportCollection) UpdateReportFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Report, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var r models.Report
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &r, nil
}

// UpdateReportStatusFields applies a partial update conditioned on the status
// the caller's decision was computed against. A nil result with a nil error
// means the status moved underneath the caller.
func (c *MongoReportCollection) UpdateReportStatusFields(ctx context.Context, id string, expected models.ReportStatus, fields map[string]interface{}) (*models.Report, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var r models.Report
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID, "status": expected},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err == nil {
		return &r, nil
	}
	if mapFindErr(err) != ErrNotFound {
		return nil, err
	}

	count, countErr := c.Collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if countErr != nil {
		return nil, countErr
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return nil, nil
}

// DeleteReport deletes a report by its ID.
func (c *MongoReportCollection) DeleteReport(ctx context.Context, id string) error {
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
