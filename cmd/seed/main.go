// Command seed provisions a starter set of accounts and the three report
// template sheets so a fresh deployment is usable immediately. It is
// idempotent: existing data is left alone.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vertilift/lift-maintenance/internal/auth"
	"github.com/vertilift/lift-maintenance/internal/config"
	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/models"
)

func main() {
	log := logrus.New()

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}
	cfg := config.Load()

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer client.Disconnect(ctx)

	collections := db.NewCollections(client.Database(cfg.MongoDB))
	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)

	seedUsers(ctx, log, collections, authService)
	seedTemplates(ctx, log, collections)
}

type seedAccount struct {
	name     string
	email    string
	password string
	role     models.Role
	phone    string
	address  string
}

func defaultAccounts() []seedAccount {
	return []seedAccount{
		{name: "Administrator", email: "admin@vertilift.io", password: "admin123", role: models.RoleAdmin},
		{name: "Marco Duran", email: "marco@vertilift.io", password: "tech1234", role: models.RoleTechnician, phone: "+34 600 111 222"},
		{name: "Ana Reyes", email: "ana@vertilift.io", password: "tech1234", role: models.RoleTechnician, phone: "+34 600 333 444"},
		{name: "Torre Norte Community", email: "torrenorte@example.com", password: "client1234", role: models.RoleClient, address: "Av. del Puerto 12"},
		{name: "Edificio Central", email: "central@example.com", password: "client1234", role: models.RoleClient, address: "Calle Mayor 3"},
	}
}

func seedUsers(ctx context.Context, log *logrus.Logger, collections *db.Collections, authService *auth.Service) {
	for _, acc := range defaultAccounts() {
		if _, err := collections.Users.FindUserByEmail(ctx, acc.email); err == nil {
			log.WithField("email", acc.email).Info("Account already exists")
			continue
		} else if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).Fatal("Failed to check for existing account")
		}

		hash, err := authService.HashPassword(acc.password)
		if err != nil {
			log.WithError(err).Fatal("Failed to hash seed password")
		}

		now := time.Now()
		user := models.User{
			Name:         acc.name,
			Email:        acc.email,
			PasswordHash: hash,
			Role:         acc.role,
			Phone:        acc.phone,
			Address:      acc.address,
			Status:       models.UserStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := collections.Users.InsertUser(ctx, user); err != nil {
			log.WithError(err).Fatal("Failed to create seed account")
		}
		log.WithFields(logrus.Fields{"email": acc.email, "role": acc.role}).Info("Account created, change the default password")
	}
}

func seedTemplates(ctx context.Context, log *logrus.Logger, collections *db.Collections) {
	existing, err := collections.ReportTemplates.FindTemplates(ctx, bson.M{})
	if err != nil {
		log.WithError(err).Fatal("Failed to list report templates")
	}
	if len(existing) > 0 {
		log.WithField("count", len(existing)).Info("Report templates already exist")
		return
	}

	for _, t := range defaultTemplates() {
		t.CreatedAt = time.Now()
		if _, err := collections.ReportTemplates.InsertTemplate(ctx, t); err != nil {
			log.WithError(err).WithField("name", t.Name).Fatal("Failed to create report template")
		}
		log.WithField("name", t.Name).Info("Report template created")
	}
}

func defaultTemplates() []models.ReportTemplate {
	return []models.ReportTemplate{
		{
			Type:        "type1",
			Name:        "Monthly Preventive Maintenance",
			SheetNumber: 1,
			Sections: []models.TemplateSection{
				{
					ID:    "machine-room",
					Title: "Machine Room",
					Items: []models.TemplateItem{
						{ID: "motor-condition", Description: "Traction motor condition", Type: models.ItemCheckbox, Required: true},
						{ID: "oil-level", Description: "Gearbox oil level", Type: models.ItemCheckbox, Required: true},
						{ID: "controller-clean", Description: "Controller cabinet clean and dry", Type: models.ItemCheckbox, Required: true},
						{ID: "room-temp", Description: "Machine room temperature (C)", Type: models.ItemNumber, Required: false},
					},
				},
				{
					ID:    "car",
					Title: "Car and Doors",
					Items: []models.TemplateItem{
						{ID: "door-operation", Description: "Door opening and closing smooth", Type: models.ItemCheckbox, Required: true},
						{ID: "leveling", Description: "Floor leveling within tolerance", Type: models.ItemCheckbox, Required: true},
						{ID: "cabin-lights", Description: "Cabin lighting and alarm working", Type: models.ItemCheckbox, Required: true},
						{ID: "door-notes", Description: "Door mechanism observations", Type: models.ItemText, Required: false},
					},
				},
			},
		},
		{
			Type:        "type2",
			Name:        "Quarterly Safety Inspection",
			SheetNumber: 2,
			Sections: []models.TemplateSection{
				{
					ID:    "safety-gear",
					Title: "Safety Gear",
					Items: []models.TemplateItem{
						{ID: "governor", Description: "Overspeed governor test", Type: models.ItemCheckbox, Required: true},
						{ID: "brakes", Description: "Brake operation and pad wear", Type: models.ItemCheckbox, Required: true},
						{ID: "buffers", Description: "Pit buffers intact", Type: models.ItemCheckbox, Required: true},
					},
				},
				{
					ID:    "cables",
					Title: "Cables and Shaft",
					Items: []models.TemplateItem{
						{ID: "rope-wear", Description: "Hoist rope wear and tension", Type: models.ItemCheckbox, Required: true},
						{ID: "rope-diameter", Description: "Rope diameter (mm)", Type: models.ItemNumber, Required: true},
						{ID: "shaft-clean", Description: "Shaft free of debris", Type: models.ItemCheckbox, Required: true},
					},
				},
			},
		},
		{
			Type:        "type3",
			Name:        "Emergency Call-Out Report",
			SheetNumber: 3,
			Sections: []models.TemplateSection{
				{
					ID:    "incident",
					Title: "Incident",
					Items: []models.TemplateItem{
						{ID: "fault-description", Description: "Reported fault", Type: models.ItemText, Required: true},
						{ID: "passengers-trapped", Description: "Passengers trapped on arrival", Type: models.ItemCheckbox, Required: true},
						{ID: "response-minutes", Description: "Response time (minutes)", Type: models.ItemNumber, Required: true},
					},
				},
				{
					ID:    "resolution",
					Title: "Resolution",
					Items: []models.TemplateItem{
						{ID: "work-done", Description: "Work performed", Type: models.ItemText, Required: true},
						{ID: "back-in-service", Description: "Lift returned to service", Type: models.ItemCheckbox, Required: true},
						{ID: "parts-needed", Description: "Follow-up parts required", Type: models.ItemText, Required: false},
					},
				},
			},
		},
	}
}
