package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/donenme/donenme-api/internal/config"
	"github.com/donenme/donenme-api/internal/database"
	"github.com/donenme/donenme-api/internal/handlers"
	"github.com/donenme/donenme-api/internal/jobs"
	"github.com/donenme/donenme-api/internal/repository"
	cron "github.com/donenme/donenme-api/internal/scheduler"
	"github.com/donenme/donenme-api/internal/services"
	"github.com/donenme/donenme-api/pkg/logger"
	"github.com/donenme/donenme-api/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// --- Services ---
	notificationService := services.NewNotificationService(notificationRepo)
	userService := services.NewUserService(userRepo)
	donationService := services.NewDonationService(donationRepo, requestRepo, userRepo)
	requestService := services.NewRequestService(requestRepo, donationRepo, userRepo, notificationService)

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService, cfg)
	donationHandler := handlers.NewDonationHandler(donationService)
	requestHandler := handlers.NewRequestHandler(requestService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// Public user routes
	router.HandleFunc("/users/register", userHandler.RegisterUserHandler).Methods("POST")
	router.HandleFunc("/users/login", userHandler.LoginUserHandler).Methods("POST")

	// Profile routes
	protectedUserRoutes := router.PathPrefix("/users").Subrouter()
	protectedUserRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedUserRoutes.HandleFunc("/me", userHandler.GetMyProfileHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/me", userHandler.UpdateMyProfileHandler).Methods("PUT")

	// Donation routes
	protectedDonationRoutes := router.PathPrefix("/donations").Subrouter()
	protectedDonationRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedDonationRoutes.HandleFunc("", donationHandler.CreateDonationHandler).Methods("POST")
	protectedDonationRoutes.HandleFunc("", donationHandler.GetAvailableDonationsHandler).Methods("GET")
	protectedDonationRoutes.HandleFunc("/mine", donationHandler.GetMyDonationsHandler).Methods("GET")
	protectedDonationRoutes.HandleFunc("/{id}", donationHandler.GetDonationHandler).Methods("GET")
	protectedDonationRoutes.HandleFunc("/{id}", donationHandler.UpdateDonationHandler).Methods("PUT")
	protectedDonationRoutes.HandleFunc("/{id}", donationHandler.DeleteDonationHandler).Methods("DELETE")
	protectedDonationRoutes.HandleFunc("/{id}/requests", requestHandler.GetRequestsForDonationHandler).Methods("GET")

	// Request routes
	protectedRequestRoutes := router.PathPrefix("/requests").Subrouter()
	protectedRequestRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedRequestRoutes.HandleFunc("", requestHandler.CreateRequestHandler).Methods("POST")
	protectedRequestRoutes.HandleFunc("/mine", requestHandler.GetMyRequestsHandler).Methods("GET")
	protectedRequestRoutes.HandleFunc("/{id}/approve", requestHandler.ApproveRequestHandler).Methods("POST")
	protectedRequestRoutes.HandleFunc("/{id}/reject", requestHandler.RejectRequestHandler).Methods("POST")

	// Notification routes
	protectedNotificationRoutes := router.PathPrefix("/notifications").Subrouter()
	protectedNotificationRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedNotificationRoutes.HandleFunc("", notificationHandler.GetUserNotificationsHandler).Methods("GET")
	protectedNotificationRoutes.HandleFunc("/unread-count", notificationHandler.UnreadCountHandler).Methods("GET")
	protectedNotificationRoutes.HandleFunc("/{id}/read", notificationHandler.MarkAsReadHandler).Methods("POST")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	// Start the periodic scans
	expiryNotifier := jobs.NewExpiryNotifier(donationService, notificationService)
	meetupNotifier := jobs.NewMeetupNotifier(requestService, donationService, userService, notificationService)
	cron.StartScanJobs(expiryNotifier, meetupNotifier)

	// Start the HTTP server
	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
