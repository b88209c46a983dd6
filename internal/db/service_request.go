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

// ServiceRequestCollection defines the interface for service request storage.
type ServiceRequestCollection interface {
	InsertServiceRequest(ctx context.Context, sr models.ServiceRequest) (primitive.ObjectID, error)
	FindServiceRequestByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	FindServiceRequests(ctx context.Context, filter bson.M) ([]models.ServiceRequest, error)
	UpdateServiceRequest(ctx context.Context, id string, sr models.ServiceRequest) error
	UpdateServiceRequestStatusFields(ctx context.Context, id string, expected models.ServiceRequestStatus, fields map[string]interface{}) (*models.ServiceRequest, error)
	DeleteServiceRequest(ctx context.Context, id string) error
}

// MongoServiceRequestCollection implements ServiceRequestCollection for MongoDB.
type MongoServiceRequestCollection struct {
	Collection *mongo.Collection
}

// InsertServiceRequest inserts a service request.
func (c *MongoServiceRequestCollection) InsertServiceRequest(ctx context.Context, sr models.ServiceRequest) (primitive.ObjectID, error) {
	sr.CreatedAt = time.Now()
	sr.UpdatedAt = time.Now()
	if sr.Status == "" {
		sr.Status = models.RequestPending
	}
	if sr.UrgencyLevel == "" {
		sr.UrgencyLevel = models.UrgencyNormal
	}

	res, err := c.Collection.InsertOne(ctx, sr)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// FindServiceRequestByID finds a service request by its ID.
func (c *MongoServiceRequestCollection) FindServiceRequestByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var sr models.ServiceRequest
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&sr); err != nil {
		return nil, mapFindErr(err)
	}
	return &sr, nil
}

// FindServiceRequests queries service requests, newest first.
func (c *MongoServiceRequestCollection) FindServiceRequests(ctx context.Context, filter bson.M) ([]models.ServiceRequest, error) {
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.ServiceRequest
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateServiceRequest replaces a service request document.
func (c *MongoServiceRequestCollection) UpdateServiceRequest(ctx context.Context, id string, sr models.ServiceRequest) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	sr.ID = objectID
	sr.UpdatedAt = time.Now()

	res, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, sr)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateServiceRequestStatusFields applies a partial update conditioned on
// the status the caller's decision was computed against. A nil result with a
// nil error means the status moved underneath the caller.
func (c *MongoServiceRequestCollection) UpdateServiceRequestStatusFields(ctx context.Context, id string, expected models.ServiceRequestStatus, fields map[string]interface{}) (*models.ServiceRequest, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var sr models.ServiceRequest
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID, "status": expected},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&sr)
	if err == nil {
		return &sr, nil
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

// DeleteServiceRequest deletes a service request by its ID.
func (c *MongoServiceRequestCollection) DeleteServiceRequest(ctx context.Context, id string) error {
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
