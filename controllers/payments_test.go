package controllers_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"gorm.io/gorm"

	"github.com/VictorRop4/alx-travel-app-0x02/models"
)

func seedPayment(t *testing.T, db *gorm.DB, userID uint, txRef string) models.Payment {
	t.Helper()
	payment := models.Payment{
		BookingReference: "booking-1",
		UserID:           userID,
		Amount:           150.5,
		Currency:         "ETB",
		ChapaTxRef:       txRef,
		Status:           models.PaymentStatusPending,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return payment
}

func TestInitiatePayment_CreatesPendingRowBeforeGatewayCall(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	listing := seedListing(t, db)
	booking := seedBooking(t, db, listing.ID)

	var rowsAtCallTime int64
	stubChapa(t, func(w http.ResponseWriter, r *http.Request) {
		db.Model(&models.Payment{}).Where("status = ?", models.PaymentStatusPending).Count(&rowsAtCallTime)
		chapaJSON(http.StatusOK, map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"checkout_url": "https://pay/x"},
		})(w, r)
	})

	router := newRouter()
	rr, env := doRequest(t, router, http.MethodPost, "/v1/payments/initiate", authHeader(t, user.ID),
		map[string]interface{}{"booking_id": booking.ID, "amount": 150.5})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if rowsAtCallTime != 1 {
		t.Fatalf("expected pending row persisted before gateway call, saw %d", rowsAtCallTime)
	}
	if env.Data["checkout_url"] != "https://pay/x" {
		t.Fatalf("missing checkout_url in response: %+v", env.Data)
	}

	var payment models.Payment
	if err := db.First(&payment).Error; err != nil {
		t.Fatalf("payment row not found: %v", err)
	}
	if payment.Status != models.PaymentStatusPending {
		t.Fatalf("expected status pending after initiate, got %s", payment.Status)
	}
	if want := fmt.Sprintf("TRV-%d-%d-", user.ID, booking.ID); len(payment.ChapaTxRef) <= len(want) || payment.ChapaTxRef[:len(want)] != want {
		t.Fatalf("unexpected tx_ref %q", payment.ChapaTxRef)
	}
}

func TestInitiatePayment_UnknownBookingWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	stubChapa(t, chapaJSON(http.StatusOK, map[string]interface{}{"status": "success"}))

	rr, _ := doRequest(t, newRouter(), http.MethodPost, "/v1/payments/initiate", authHeader(t, user.ID),
		map[string]interface{}{"booking_id": 999, "amount": 100})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var count int64
	db.Model(&models.Payment{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no payment rows, found %d", count)
	}
}

func TestInitiatePayment_RejectsNonPositiveAmount(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)

	rr, _ := doRequest(t, newRouter(), http.MethodPost, "/v1/payments/initiate", authHeader(t, user.ID),
		map[string]interface{}{"booking_id": 1, "amount": 0})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestInitiatePayment_GatewayErrorMarksFailed(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	listing := seedListing(t, db)
	booking := seedBooking(t, db, listing.ID)
	stubChapa(t, chapaJSON(http.StatusInternalServerError, map[string]interface{}{"message": "boom"}))

	rr, _ := doRequest(t, newRouter(), http.MethodPost, "/v1/payments/initiate", authHeader(t, user.ID),
		map[string]interface{}{"booking_id": booking.ID, "amount": 100})

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	var payment models.Payment
	if err := db.First(&payment).Error; err != nil {
		t.Fatalf("attempt row should survive gateway failure: %v", err)
	}
	if payment.Status != models.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", payment.Status)
	}
	if _, ok := payment.Metadata["initiate_error"]; !ok {
		t.Fatalf("expected initiate_error recorded, got %+v", payment.Metadata)
	}
}

func TestInitiatePayment_MissingCheckoutURLMarksFailed(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	listing := seedListing(t, db)
	booking := seedBooking(t, db, listing.ID)
	stubChapa(t, chapaJSON(http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{},
	}))

	rr, _ := doRequest(t, newRouter(), http.MethodPost, "/v1/payments/initiate", authHeader(t, user.ID),
		map[string]interface{}{"booking_id": booking.ID, "amount": 100})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var payment models.Payment
	if err := db.First(&payment).Error; err != nil {
		t.Fatal(err)
	}
	if payment.Status != models.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", payment.Status)
	}
}

func TestVerifyPayment_CompletesAndEnqueuesOnce(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	queue := setupEmailQueue(t, db)
	payment := seedPayment(t, db, user.ID, "TRV-1-1-abcd1234")
	stubChapa(t, chapaJSON(http.StatusOK, map[string]interface{}{"status": "success", "id": "tx123"}))

	router := newRouter()
	target := "/v1/payments/verify?tx_ref=" + payment.ChapaTxRef
	auth := authHeader(t, user.ID)

	rr, env := doRequest(t, router, http.MethodGet, target, auth, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if env.Data["status"] != models.PaymentStatusCompleted {
		t.Fatalf("expected completed, got %v", env.Data["status"])
	}

	var got models.Payment
	if err := db.First(&got, payment.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentStatusCompleted {
		t.Fatalf("expected row completed, got %s", got.Status)
	}
	if got.ChapaTransactionID == nil || *got.ChapaTransactionID != "tx123" {
		t.Fatalf("expected provider transaction id persisted, got %v", got.ChapaTransactionID)
	}
	if queue.Pending() != 1 {
		t.Fatalf("expected one confirmation job enqueued, got %d", queue.Pending())
	}

	// Verifying an already-completed payment must not enqueue again.
	rr, _ = doRequest(t, router, http.MethodGet, target, auth, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("re-verify: expected 200, got %d", rr.Code)
	}
	if queue.Pending() != 1 {
		t.Fatalf("re-verify must not enqueue, got %d jobs", queue.Pending())
	}
}

func TestVerifyPayment_PendingLeavesStatusAndQueueUntouched(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	queue := setupEmailQueue(t, db)
	payment := seedPayment(t, db, user.ID, "TRV-1-1-pend0001")
	stubChapa(t, chapaJSON(http.StatusOK, map[string]interface{}{"status": "pending"}))

	rr, env := doRequest(t, newRouter(), http.MethodGet,
		"/v1/payments/verify?tx_ref="+payment.ChapaTxRef, authHeader(t, user.ID), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if env.Data["status"] != models.PaymentStatusPending {
		t.Fatalf("expected pending, got %v", env.Data["status"])
	}
	if queue.Pending() != 0 {
		t.Fatalf("pending verification must not enqueue email")
	}
}

func TestVerifyPayment_UnknownTxRef(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	stubChapa(t, chapaJSON(http.StatusOK, map[string]interface{}{"status": "success"}))

	rr, _ := doRequest(t, newRouter(), http.MethodGet,
		"/v1/payments/verify?tx_ref=TRV-nope", authHeader(t, user.ID), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var count int64
	db.Model(&models.Payment{}).Count(&count)
	if count != 0 {
		t.Fatalf("unknown tx_ref must not write rows, found %d", count)
	}
}

func TestVerifyPayment_TransportFailureKeepsStatus(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	queue := setupEmailQueue(t, db)
	payment := seedPayment(t, db, user.ID, "TRV-1-1-down0001")

	srv := stubChapa(t, chapaJSON(http.StatusOK, nil))
	srv.Close() // connection refused from here on

	rr, _ := doRequest(t, newRouter(), http.MethodGet,
		"/v1/payments/verify?tx_ref="+payment.ChapaTxRef, authHeader(t, user.ID), nil)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	var got models.Payment
	if err := db.First(&got, payment.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentStatusPending {
		t.Fatalf("transport failure must not change status, got %s", got.Status)
	}
	if _, ok := got.Metadata["verify_error"]; !ok {
		t.Fatalf("expected verify_error recorded, got %+v", got.Metadata)
	}
	if queue.Pending() != 0 {
		t.Fatalf("transport failure must not enqueue email")
	}
}

func TestChapaCallback_RedirectsWithOutcome(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	setupEmailQueue(t, db)
	payment := seedPayment(t, db, user.ID, "TRV-1-1-cbck0001")
	stubChapa(t, chapaJSON(http.StatusOK, map[string]interface{}{"status": "success", "id": "tx777"}))
	t.Setenv("CHAPA_RETURN_URL", "https://travel.example/payment-done")

	rr, _ := doRequest(t, newRouter(), http.MethodGet,
		"/v1/payments/callback/?tx_ref="+payment.ChapaTxRef, "", nil)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location header: %v", err)
	}
	if loc.Host != "travel.example" {
		t.Fatalf("unexpected redirect host %q", loc.Host)
	}
	q := loc.Query()
	if q.Get("tx_ref") != payment.ChapaTxRef || q.Get("status") != models.PaymentStatusCompleted {
		t.Fatalf("unexpected redirect query %q", loc.RawQuery)
	}
}

func TestChapaCallback_AcceptsReferenceParam(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	setupEmailQueue(t, db)
	payment := seedPayment(t, db, user.ID, "TRV-1-1-cbck0002")
	stubChapa(t, chapaJSON(http.StatusOK, map[string]interface{}{"status": "success"}))
	t.Setenv("CHAPA_RETURN_URL", "")

	rr, env := doRequest(t, newRouter(), http.MethodGet,
		"/v1/payments/callback?reference="+payment.ChapaTxRef, "", nil)

	// Without a return URL the callback answers JSON instead of redirecting.
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if env.Data["status"] != models.PaymentStatusCompleted {
		t.Fatalf("expected completed, got %v", env.Data["status"])
	}
}

func TestChapaCallback_MissingReference(t *testing.T) {
	setupTestDB(t)
	rr, _ := doRequest(t, newRouter(), http.MethodGet, "/v1/payments/callback/", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetPayment_OwnerScoped(t *testing.T) {
	db := setupTestDB(t)
	owner := seedUser(t, db)
	other := models.User{Username: "sara", Email: "sara@example.com", Password: "x"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatal(err)
	}
	payment := seedPayment(t, db, owner.ID, "TRV-1-1-own00001")

	router := newRouter()
	target := fmt.Sprintf("/v1/payments/%d", payment.ID)

	rr, _ := doRequest(t, router, http.MethodGet, target, authHeader(t, other.ID), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign payment should 404, got %d", rr.Code)
	}

	rr, env := doRequest(t, router, http.MethodGet, target, authHeader(t, owner.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner lookup failed: %d", rr.Code)
	}
	if env.Data["chapa_tx_ref"] != payment.ChapaTxRef {
		t.Fatalf("unexpected payload: %+v", env.Data)
	}
}
