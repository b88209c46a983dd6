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

// NotificationCollection defines the interface for notification storage.
type NotificationCollection interface {
	InsertNotification(ctx context.Context, n models.Notification) (primitive.ObjectID, error)
	FindNotificationByID(ctx context.Context, id string) (*models.Notification, error)
	FindNotificationsByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id string) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) error
	DeleteNotification(ctx context.Context, id string) error
}

// MongoNotificationCollection implements NotificationCollection for MongoDB.
type MongoNotificationCollection struct {
	Collection *mongo.Collection
}

// InsertNotification inserts a notification.
func (c *MongoNotificationCollection) InsertNotification(ctx context.Context, n models.Notification) (primitive.ObjectID, error) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	res, err := c.Collection.InsertOne(ctx, n)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// FindNotificationByID finds a notification by its ID.
func (c *MongoNotificationCollection) FindNotificationByID(ctx context.Context, id string) (*models.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var n models.Notification
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&n); err != nil {
		return nil, mapFindErr(err)
	}
	return &n, nil
}

// FindNotificationsByUser lists a user's notifications, newest first.
func (c *MongoNotificationCollection) FindNotificationsByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrNotFound
	}

	cursor, err := c.Collection.Find(ctx, bson.M{"user_id": objectID}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Notification
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAsRead marks a notification read and returns it.
func (c *MongoNotificationCollection) MarkAsRead(ctx context.Context, id string) (*models.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var n models.Notification
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &n, nil
}

// MarkAllAsRead marks every unread notification of a user as read.
func (c *MongoNotificationCollection) MarkAllAsRead(ctx context.Context, userID string) error {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}

	_, err = c.Collection.UpdateMany(
		ctx,
		bson.M{"user_id": objectID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	return err
}

// DeleteNotification deletes a notification by its ID.
func (c *MongoNotificationCollection) DeleteNotification(ctx context.Context, id string) error {
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
