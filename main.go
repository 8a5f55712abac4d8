package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/VictorRop4/alx-travel-app-0x02/database"
	"github.com/VictorRop4/alx-travel-app-0x02/middleware"
	"github.com/VictorRop4/alx-travel-app-0x02/models"
	"github.com/VictorRop4/alx-travel-app-0x02/routes"
	"github.com/VictorRop4/alx-travel-app-0x02/tasks"
	"github.com/VictorRop4/alx-travel-app-0x02/utils"
)

func main() {
	// Load .env if present without overwriting already-set environment
	// variables, so DB_HOST etc are available when running locally.
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	log.SetFormatter(&log.JSONFormatter{})
	if strings.ToLower(os.Getenv("ENV")) == "development" {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	requiredEnvVars := []string{"DB_HOST", "DB_USER", "DB_PASS", "DB_NAME", "JWT_SECRET", "CHAPA_SECRET_KEY"}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Auto-migrate only in development to avoid accidental production schema changes
	if strings.ToLower(os.Getenv("ENV")) == "development" {
		log.Info("Running in development mode - performing auto-migration")
		if err := database.Migrate(db,
			&models.User{},
			&models.Listing{},
			&models.Booking{},
			&models.Review{},
			&models.Payment{},
		); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		log.Info("Auto-migration completed successfully")
	} else {
		log.Info("Running in production mode - skipping auto-migration")
	}

	// Confirmation-email worker. The HTTP layer only ever enqueues; nothing
	// waits on this queue.
	queueSize := 64
	if s := os.Getenv("EMAIL_QUEUE_SIZE"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			queueSize = v
		}
	}
	queue := tasks.NewQueue(db, utils.NewSMTPMailerFromEnv(), queueSize)
	queue.Start()
	tasks.Default = queue

	router := routes.InitRouter()

	// Wrap router with global middleware in recommended order:
	// Logging -> Security headers -> Request ID -> Max Body -> Timeout -> Recovery -> Metrics
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(
					middleware.TimeoutMiddleware(
						middleware.RecoveryMiddleware(
							middleware.MetricsMiddleware(router),
						),
					),
				),
			),
		),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Let the email worker drain whatever it already accepted.
	queue.Stop()

	log.Info("Server exited")
}
