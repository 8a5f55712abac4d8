package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VictorRop4/alx-travel-app-0x02/controllers"
	"github.com/VictorRop4/alx-travel-app-0x02/middleware"
)

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "travel-api",
	})
}

func InitRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// CORS: origins from CORS_ALLOWED_ORIGINS (comma-separated) or localhost defaults
	origins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	if env := os.Getenv("CORS_ALLOWED_ORIGINS"); env != "" {
		for _, p := range strings.Split(env, ",") {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
			handlers.AllowCredentials(),
		)(next)
	})

	api := r.PathPrefix("/v1").Subrouter()
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	// Accounts
	api.HandleFunc("/auth/register", controllers.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", controllers.Login).Methods(http.MethodPost)

	// Listings
	api.HandleFunc("/listings", controllers.ListListings).Methods(http.MethodGet)
	api.HandleFunc("/listings", controllers.CreateListing).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id:[0-9]+}", controllers.GetListing).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id:[0-9]+}", controllers.UpdateListing).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/listings/{id:[0-9]+}", controllers.DeleteListing).Methods(http.MethodDelete)

	// Reviews (nested under their listing)
	api.HandleFunc("/listings/{id:[0-9]+}/reviews", controllers.ListReviews).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id:[0-9]+}/reviews", controllers.CreateReview).Methods(http.MethodPost)

	// Bookings
	api.HandleFunc("/bookings", controllers.ListBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings", controllers.CreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id:[0-9]+}", controllers.GetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id:[0-9]+}", controllers.DeleteBooking).Methods(http.MethodDelete)

	// Payments. The callback is provider-invoked and unauthenticated, guarded
	// by a webhook rate limiter instead.
	api.Handle("/payments/initiate", middleware.AuthMiddleware(http.HandlerFunc(controllers.InitiatePayment))).Methods(http.MethodPost)
	api.Handle("/payments/verify", middleware.AuthMiddleware(http.HandlerFunc(controllers.VerifyPayment))).Methods(http.MethodGet)
	api.Handle("/payments/{id:[0-9]+}", middleware.AuthMiddleware(http.HandlerFunc(controllers.GetPayment))).Methods(http.MethodGet)

	callbackLimiter := middleware.NewWebhookLimiter(500, time.Hour, callbackWhitelist())
	callback := callbackLimiter.Middleware(http.HandlerFunc(controllers.ChapaCallback))
	api.Handle("/payments/callback", callback).Methods(http.MethodGet)
	api.Handle("/payments/callback/", callback).Methods(http.MethodGet)

	return r
}

func callbackWhitelist() []string {
	var ips []string
	for _, p := range strings.Split(os.Getenv("CHAPA_CALLBACK_WHITELIST"), ",") {
		if ip := strings.TrimSpace(p); ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}
