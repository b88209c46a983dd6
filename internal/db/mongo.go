package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ConnectMongo connects to MongoDB using the given URI and verifies the
// connection with a ping.
func ConnectMongo(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// Collections bundles the per-entity collections of a database.
type Collections struct {
	Users           UserCollection
	Maintenances    MaintenanceCollection
	Reports         ReportCollection
	ReportTemplates ReportTemplateCollection
	ServiceRequests ServiceRequestCollection
	Invoices        InvoiceCollection
	Notifications   NotificationCollection
}

// NewCollections wires the Mongo-backed collections of a database.
func NewCollections(database *mongo.Database) *Collections {
	return &Collections{
		Users:           &MongoUserCollection{Collection: database.Collection("users")},
		Maintenances:    &MongoMaintenanceCollection{Collection: database.Collection("maintenances")},
		Reports:         &MongoReportCollection{Collection: database.Collection("reports")},
		ReportTemplates: &MongoReportTemplateCollection{Collection: database.Collection("report_templates")},
		ServiceRequests: &MongoServiceRequestCollection{Collection: database.Collection("service_requests")},
		Invoices:        &MongoInvoiceCollection{Collection: database.Collection("invoices")},
		Notifications:   &MongoNotificationCollection{Collection: database.Collection("notifications")},
	}
}

func mapFindErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
