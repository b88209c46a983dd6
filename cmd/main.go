package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/vertilift/lift-maintenance/internal/auth"
	"github.com/vertilift/lift-maintenance/internal/config"
	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/handlers"
	"github.com/vertilift/lift-maintenance/internal/middleware"
	"github.com/vertilift/lift-maintenance/internal/models"
	"github.com/vertilift/lift-maintenance/internal/notify"
	"github.com/vertilift/lift-maintenance/internal/pdf"
	"github.com/vertilift/lift-maintenance/internal/rules"
	"github.com/vertilift/lift-maintenance/internal/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}
	cfg := config.Load()

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	}()
	collections := db.NewCollections(client.Database(cfg.MongoDB))
	log.Info("Connected to MongoDB")

	store, err := storage.NewMinIOStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to object storage")
	}
	log.Info("Connected to object storage")

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	engine := rules.NewEngine()
	renderer := pdf.NewDocumentRenderer(store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := notify.NewHub(log)
	sinks := []notify.Sink{hub}
	if cfg.MQTTBrokerURL != "" {
		publisher, err := notify.NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTClientID, log)
		if err != nil {
			log.WithError(err).Warn("MQTT bridge disabled")
		} else {
			defer publisher.Close()
			sinks = append(sinks, publisher)
		}
	}
	dispatcher := notify.NewDispatcher(4, collections.Notifications, collections.Users, log, sinks...)
	dispatcher.Start(ctx)

	authHandler := handlers.NewAuthHandler(authService, collections.Users, log)
	userHandler := handlers.NewUserHandler(collections.Users, authService, log)
	maintenanceHandler := handlers.NewMaintenanceHandler(engine, collections.Maintenances, collections.Users, dispatcher, log)
	reportHandler := handlers.NewReportHandler(engine, collections.Reports, collections.ReportTemplates, collections.Users, dispatcher, renderer, store, log)
	templateHandler := handlers.NewReportTemplateHandler(collections.ReportTemplates, log)
	serviceRequestHandler := handlers.NewServiceRequestHandler(engine, collections.ServiceRequests, collections.Users, dispatcher, store, log)
	invoiceHandler := handlers.NewInvoiceHandler(engine, collections.Invoices, collections.Users, dispatcher, renderer, store, log)
	notificationHandler := handlers.NewNotificationHandler(collections.Notifications, dispatcher, log)

	authMW := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()
	adminOnly := authMW.RequireRole(models.RoleAdmin)
	staffOnly := authMW.RequireRole(models.RoleAdmin, models.RoleTechnician)

	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(rateLimiter.RateLimit(100, 60))
	router.Use(authMW.Authenticate)

	// mux only runs middleware once a route matches, so preflight requests
	// need a route of their own for the CORS middleware to answer them.
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)

	api.Handle("/users", adminOnly(http.HandlerFunc(userHandler.List))).Methods(http.MethodGet)
	api.Handle("/users", adminOnly(http.HandlerFunc(userHandler.Create))).Methods(http.MethodPost)
	api.Handle("/users/technicians", http.HandlerFunc(userHandler.ListTechnicians)).Methods(http.MethodGet)
	api.Handle("/users/clients", staffOnly(http.HandlerFunc(userHandler.ListClients))).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", userHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", userHandler.Update).Methods(http.MethodPut)
	api.Handle("/users/{id}", adminOnly(http.HandlerFunc(userHandler.Delete))).Methods(http.MethodDelete)

	api.HandleFunc("/maintenances", maintenanceHandler.List).Methods(http.MethodGet)
	api.Handle("/maintenances", adminOnly(http.HandlerFunc(maintenanceHandler.Create))).Methods(http.MethodPost)
	api.HandleFunc("/maintenances/{id}", maintenanceHandler.Get).Methods(http.MethodGet)
	api.Handle("/maintenances/{id}", adminOnly(http.HandlerFunc(maintenanceHandler.Update))).Methods(http.MethodPut)
	api.Handle("/maintenances/{id}", adminOnly(http.HandlerFunc(maintenanceHandler.Delete))).Methods(http.MethodDelete)
	api.HandleFunc("/maintenances/{id}/status", maintenanceHandler.UpdateStatus).Methods(http.MethodPut)
	api.Handle("/maintenances/{id}/assign", adminOnly(http.HandlerFunc(maintenanceHandler.AssignTechnician))).Methods(http.MethodPut)

	api.Handle("/reports", staffOnly(http.HandlerFunc(reportHandler.Create))).Methods(http.MethodPost)
	api.HandleFunc("/reports", reportHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", reportHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", reportHandler.Update).Methods(http.MethodPut)
	api.Handle("/reports/{id}", adminOnly(http.HandlerFunc(reportHandler.Delete))).Methods(http.MethodDelete)
	api.HandleFunc("/reports/{id}/status", reportHandler.UpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/reports/{id}/signatures", reportHandler.UploadSignatures).Methods(http.MethodPost)
	api.HandleFunc("/reports/{id}/pdf", reportHandler.GetPDF).Methods(http.MethodGet)

	api.HandleFunc("/report-templates", templateHandler.List).Methods(http.MethodGet)
	api.Handle("/report-templates", adminOnly(http.HandlerFunc(templateHandler.Create))).Methods(http.MethodPost)
	api.HandleFunc("/report-templates/{id}", templateHandler.Get).Methods(http.MethodGet)
	api.Handle("/report-templates/{id}", adminOnly(http.HandlerFunc(templateHandler.Update))).Methods(http.MethodPut)
	api.Handle("/report-templates/{id}", adminOnly(http.HandlerFunc(templateHandler.Delete))).Methods(http.MethodDelete)

	api.HandleFunc("/service-requests", serviceRequestHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/service-requests", serviceRequestHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/service-requests/{id}", serviceRequestHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/service-requests/{id}", serviceRequestHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/service-requests/{id}", serviceRequestHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/service-requests/{id}/status", serviceRequestHandler.UpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/service-requests/{id}/images", serviceRequestHandler.UploadImages).Methods(http.MethodPost)

	api.Handle("/invoices", adminOnly(http.HandlerFunc(invoiceHandler.Create))).Methods(http.MethodPost)
	api.HandleFunc("/invoices", invoiceHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}", invoiceHandler.Get).Methods(http.MethodGet)
	api.Handle("/invoices/{id}", adminOnly(http.HandlerFunc(invoiceHandler.Delete))).Methods(http.MethodDelete)
	api.Handle("/invoices/{id}/status", adminOnly(http.HandlerFunc(invoiceHandler.UpdateStatus))).Methods(http.MethodPut)
	api.HandleFunc("/invoices/{id}/pdf", invoiceHandler.GetPDF).Methods(http.MethodGet)

	api.HandleFunc("/notifications", notificationHandler.List).Methods(http.MethodGet)
	api.Handle("/notifications", adminOnly(http.HandlerFunc(notificationHandler.Create))).Methods(http.MethodPost)
	api.Handle("/notifications/bulk", adminOnly(http.HandlerFunc(notificationHandler.CreateBulk))).Methods(http.MethodPost)
	api.HandleFunc("/notifications/read-all", notificationHandler.MarkAllRead).Methods(http.MethodPut)
	api.HandleFunc("/notifications/stream", hub.HandleConnection).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods(http.MethodPut)
	api.HandleFunc("/notifications/{id}", notificationHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}", notificationHandler.Delete).Methods(http.MethodDelete)

	// No read/write timeouts: the notification stream holds websocket
	// connections open indefinitely.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
