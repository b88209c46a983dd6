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

// MaintenanceCollection defines the interface for maintenance visit storage.
type MaintenanceCollection interface {
	InsertMaintenance(ctx context.Context, m models.Maintenance) (primitive.ObjectID, error)
	FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error)
	FindMaintenances(ctx context.Context, filter bson.M) ([]models.Maintenance, error)
	UpdateMaintenanceFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Maintenance, error)
	UpdateMaintenanceStatusFields(ctx context.Context, id string, expected models.MaintenanceStatus, fields map[string]interface{}) (*models.Maintenance, error)
	DeleteMaintenance(ctx context.Context, id string) error
}

// MongoMaintenanceCollection implements MaintenanceCollection for MongoDB.
type MongoMaintenanceCollection struct {
	Collection *mongo.Collection
}

// InsertMaintenance inserts a maintenance record.
func (c *MongoMaintenanceCollection) InsertMaintenance(ctx context.Context, m models.Maintenance) (primitive.ObjectID, error) {
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()

	res, err := c.Collection.InsertOne(ctx, m)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// FindMaintenanceByID finds a maintenance record by its ID.
func (c *MongoMaintenanceCollection) FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var m models.Maintenance
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&m); err != nil {
		return nil, mapFindErr(err)
	}
	return &m, nil
}

// FindMaintenances queries maintenance records, soonest first.
func (c *MongoMaintenanceCollection) FindMaintenances(ctx context.Context, filter bson.M) ([]models.Maintenance, error) {
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduled_date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Maintenance
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMaintenanceFields applies a partial update and returns the updated
// record.
func (c *MongoMaintenanceCollection) UpdateMaintenanceFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Maintenance, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var m models.Maintenance
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &m, nil
}

// UpdateMaintenanceStatusFields applies a partial update conditioned on the
// status the caller's decision was computed against. A nil result with a nil
// error means the record still exists but the status moved underneath the
// caller.
func (c *MongoMaintenanceCollection) UpdateMaintenanceStatusFields(ctx context.Context, id string, expected models.MaintenanceStatus, fields map[string]interface{}) (*models.Maintenance, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var m models.Maintenance
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID, "status": expected},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err == nil {
		return &m, nil
	}
	if mapFindErr(err) != ErrNotFound {
		return nil, err
	}

	// Disambiguate a lost race from a missing record.
	count, countErr := c.Collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if countErr != nil {
		return nil, countErr
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return nil, nil
}

// DeleteMaintenance deletes a maintenance record by its ID.
func (c *MongoMaintenanceCollection) DeleteMaintenance(ctx context.Context, id string) error {
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
