package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/VictorRop4/alx-travel-app-0x02/database"
	"github.com/VictorRop4/alx-travel-app-0x02/models"
	"github.com/VictorRop4/alx-travel-app-0x02/tasks"
	"github.com/VictorRop4/alx-travel-app-0x02/utils"
)

// ErrGateway classifies failures talking to the payment provider. Callers map
// it to 502; everything else on the verify path is an internal error.
var ErrGateway = errors.New("payment gateway unavailable")

var paymentEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_events_total",
		Help: "Payment flow events by stage and outcome",
	},
	[]string{"stage", "outcome"},
)

type InitiatePaymentRequest struct {
	BookingID uint    `json:"booking_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

type paymentDTO struct {
	ID                 uint                   `json:"id"`
	BookingReference   string                 `json:"booking_reference"`
	UserID             uint                   `json:"user_id"`
	Amount             float64                `json:"amount"`
	Currency           string                 `json:"currency"`
	ChapaTxRef         string                 `json:"chapa_tx_ref"`
	ChapaTransactionID *string                `json:"chapa_transaction_id,omitempty"`
	Status             string                 `json:"status"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt          string                 `json:"created_at"`
	UpdatedAt          string                 `json:"updated_at"`
}

func toPaymentDTO(p models.Payment) paymentDTO {
	return paymentDTO{
		ID:                 p.ID,
		BookingReference:   p.BookingReference,
		UserID:             p.UserID,
		Amount:             p.Amount,
		Currency:           p.Currency,
		ChapaTxRef:         p.ChapaTxRef,
		ChapaTransactionID: p.ChapaTransactionID,
		Status:             p.Status,
		Metadata:           p.Metadata,
		CreatedAt:          p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:          p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// POST /v1/payments/initiate
//
// The pending Payment row is written before any call leaves the process, so a
// gateway outage can never lose track of an attempt.
func InitiatePayment(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.BookingID == 0 {
		utils.WriteError(w, http.StatusBadRequest, "booking_id is required")
		return
	}
	if req.Amount <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "amount is required and must be positive")
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "ETB"
	}

	db := database.DB
	var booking models.Booking
	if err := db.First(&booking, req.BookingID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Booking not found")
		return
	}
	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	txRef := utils.GenerateTxRef(uid, booking.ID)
	payment := models.Payment{
		BookingReference: fmt.Sprintf("booking-%d", booking.ID),
		UserID:           uid,
		Amount:           req.Amount,
		Currency:         currency,
		ChapaTxRef:       txRef,
		Status:           models.PaymentStatusPending,
	}
	if err := db.Create(&payment).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	body, err := utils.ChapaInitialize(r.Context(), utils.ChapaInitializeRequest{
		Amount:    req.Amount,
		Currency:  currency,
		TxRef:     txRef,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	})
	if err != nil {
		_ = db.Model(&payment).Updates(map[string]interface{}{
			"status":   models.PaymentStatusFailed,
			"metadata": datatypes.JSONMap{"initiate_error": err.Error()},
		}).Error
		paymentEvents.WithLabelValues("initiate", "gateway_error").Inc()
		utils.WriteError(w, http.StatusBadGateway, "Payment gateway unavailable")
		return
	}

	checkoutURL, found := utils.ExtractCheckoutURL(body)
	if !found {
		// The gateway said ok but broke its contract; distinct from a
		// transport failure.
		_ = db.Model(&payment).Updates(map[string]interface{}{
			"status":   models.PaymentStatusFailed,
			"metadata": datatypes.JSONMap(body),
		}).Error
		paymentEvents.WithLabelValues("initiate", "contract_error").Inc()
		utils.WriteError(w, http.StatusInternalServerError, "Payment gateway returned no checkout URL")
		return
	}

	if err := db.Model(&payment).Update("metadata", datatypes.JSONMap(body)).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	paymentEvents.WithLabelValues("initiate", "ok").Inc()
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Payment initiated", Data: map[string]interface{}{
		"checkout_url": checkoutURL,
		"payment_id":   payment.ID,
		"chapa_tx_ref": txRef,
	}})
}

// verifyAndUpdate calls the gateway for the payment's tx_ref and applies the
// normalized outcome. On a transport failure the status is left untouched and
// only the error is recorded in the audit metadata. The confirmation email is
// enqueued once, on the first transition into completed.
func verifyAndUpdate(ctx context.Context, db *gorm.DB, payment *models.Payment) (string, error) {
	body, err := utils.ChapaVerify(ctx, payment.ChapaTxRef)
	if err != nil {
		meta := datatypes.JSONMap{}
		for k, v := range payment.Metadata {
			meta[k] = v
		}
		meta["verify_error"] = err.Error()
		_ = db.Model(payment).Update("metadata", meta).Error
		payment.Metadata = meta
		paymentEvents.WithLabelValues("verify", "gateway_error").Inc()
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}

	v := utils.ExtractVerification(body)
	newStatus := utils.NormalizeStatus(v.Status, payment.Status)
	wasCompleted := payment.Status == models.PaymentStatusCompleted

	updates := map[string]interface{}{
		"status":   newStatus,
		"metadata": datatypes.JSONMap(body),
	}
	if v.TransactionID != "" {
		updates["chapa_transaction_id"] = v.TransactionID
	}
	if err := db.Model(payment).Updates(updates).Error; err != nil {
		return "", fmt.Errorf("persist verification: %w", err)
	}
	payment.Status = newStatus
	payment.Metadata = datatypes.JSONMap(body)
	if v.TransactionID != "" {
		payment.ChapaTransactionID = &v.TransactionID
	}

	paymentEvents.WithLabelValues("verify", newStatus).Inc()
	if newStatus == models.PaymentStatusCompleted && !wasCompleted {
		tasks.EnqueueConfirmationEmail(payment.ID)
	}
	return newStatus, nil
}

// GET /v1/payments/verify?tx_ref=...
func VerifyPayment(w http.ResponseWriter, r *http.Request) {
	txRef := strings.TrimSpace(r.URL.Query().Get("tx_ref"))
	if txRef == "" {
		utils.WriteError(w, http.StatusBadRequest, "tx_ref is required")
		return
	}
	db := database.DB
	var payment models.Payment
	if err := db.Where("chapa_tx_ref = ?", txRef).First(&payment).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Payment not found")
		return
	}

	status, err := verifyAndUpdate(r.Context(), db, &payment)
	if err != nil {
		if errors.Is(err, ErrGateway) {
			utils.WriteError(w, http.StatusBadGateway, "Payment gateway unavailable")
		} else {
			utils.WriteError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "OK", Data: map[string]interface{}{
		"status":   status,
		"metadata": payment.Metadata,
	}})
}

// GET /v1/payments/callback/?tx_ref=... (also accepts ?reference=...)
//
// Provider-invoked and unauthenticated. Runs the same verification as the
// polling endpoint, then bounces the browser to the configured return URL with
// the tx_ref and resulting status appended.
func ChapaCallback(w http.ResponseWriter, r *http.Request) {
	txRef := strings.TrimSpace(r.URL.Query().Get("tx_ref"))
	if txRef == "" {
		txRef = strings.TrimSpace(r.URL.Query().Get("reference"))
	}
	if txRef == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing transaction reference")
		return
	}

	db := database.DB
	var payment models.Payment
	if err := db.Where("chapa_tx_ref = ?", txRef).First(&payment).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Payment not found")
		return
	}

	status, err := verifyAndUpdate(r.Context(), db, &payment)
	if err != nil {
		// Verification semantics hold: on a gateway failure the status is
		// unchanged, and the user is still sent back to the site.
		status = payment.Status
	}

	cfg, cfgErr := utils.GetChapaConfig()
	if cfgErr != nil || cfg.ReturnURL == "" {
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "OK", Data: map[string]interface{}{
			"tx_ref": txRef,
			"status": status,
		}})
		return
	}
	u, parseErr := url.Parse(cfg.ReturnURL)
	if parseErr != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Invalid return URL configuration")
		return
	}
	q := u.Query()
	q.Set("tx_ref", txRef)
	q.Set("status", status)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// GET /v1/payments/{id}
func GetPayment(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, idOK := pathID(r)
	if !idOK {
		utils.WriteError(w, http.StatusBadRequest, "Invalid payment id")
		return
	}
	var payment models.Payment
	if err := database.DB.Where("id = ? AND user_id = ?", id, uid).First(&payment).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Payment not found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "OK", Data: toPaymentDTO(payment)})
}
