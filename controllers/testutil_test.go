package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/VictorRop4/alx-travel-app-0x02/database"
	"github.com/VictorRop4/alx-travel-app-0x02/models"
	"github.com/VictorRop4/alx-travel-app-0x02/routes"
	"github.com/VictorRop4/alx-travel-app-0x02/tasks"
	"github.com/VictorRop4/alx-travel-app-0x02/utils"
)

type apiEnvelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, to)
	return nil
}

// setupTestDB swaps the process DB for an in-memory sqlite instance scoped to
// the test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Booking{},
		&models.Review{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
	return db
}

// setupEmailQueue installs an unstarted queue so tests can count pending jobs.
func setupEmailQueue(t *testing.T, db *gorm.DB) *tasks.Queue {
	t.Helper()
	q := tasks.NewQueue(db, &fakeMailer{}, 8)
	prev := tasks.Default
	tasks.Default = q
	t.Cleanup(func() { tasks.Default = prev })
	return q
}

func seedUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		Username:  "abel",
		Email:     "abel@example.com",
		FirstName: "Abel",
		LastName:  "Tesfaye",
		Password:  "x",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedListing(t *testing.T, db *gorm.DB) models.Listing {
	t.Helper()
	listing := models.Listing{Title: "Lakeside Cottage", Price: 120, Location: "Bahir Dar"}
	if err := db.Create(&listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing
}

func seedBooking(t *testing.T, db *gorm.DB, listingID uint) models.Booking {
	t.Helper()
	booking := models.Booking{
		ListingID:  listingID,
		GuestName:  "Abel Tesfaye",
		GuestEmail: "abel@example.com",
		CheckIn:    mustDate(t, "2026-10-01"),
		CheckOut:   mustDate(t, "2026-10-05"),
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return booking
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func authHeader(t *testing.T, userID uint) string {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := utils.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

// stubChapa points the gateway client at a local httptest server.
func stubChapa(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("CHAPA_BASE_URL", srv.URL)
	t.Setenv("CHAPA_SECRET_KEY", "test-sk")
	return srv
}

func chapaJSON(status int, body map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func doRequest(t *testing.T, router http.Handler, method, target, auth string, payload interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var env apiEnvelope
	if rr.Body.Len() > 0 {
		_ = json.Unmarshal(rr.Body.Bytes(), &env)
	}
	return rr, env
}

func newRouter() http.Handler {
	return routes.InitRouter()
}
