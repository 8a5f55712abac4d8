package tasks

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/VictorRop4/alx-travel-app-0x02/models"
	"github.com/VictorRop4/alx-travel-app-0x02/utils"
)

// EmailResult describes the outcome of one confirmation-email job. Jobs fail
// closed: a vanished payment yields a result, never a panic, and nothing here
// retries.
type EmailResult struct {
	PaymentID uint   `json:"payment_id"`
	SentTo    string `json:"sent_to,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Queue runs confirmation-email jobs outside the request cycle. Enqueue is
// fire-and-forget; the HTTP layer never waits on a job and never observes its
// failure.
type Queue struct {
	db     *gorm.DB
	mailer utils.Mailer
	jobs   chan uint
	done   chan struct{}
}

func NewQueue(db *gorm.DB, mailer utils.Mailer, size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		db:     db,
		mailer: mailer,
		jobs:   make(chan uint, size),
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (q *Queue) Start() {
	go func() {
		defer close(q.done)
		for id := range q.jobs {
			res := q.SendPaymentConfirmationEmail(id)
			if res.Error != "" {
				log.WithFields(log.Fields{"payment_id": id, "error": res.Error}).Warn("confirmation email not sent")
			} else {
				log.WithFields(log.Fields{"payment_id": id, "sent_to": res.SentTo}).Info("confirmation email sent")
			}
		}
	}()
}

// Stop closes the queue and waits for the worker to drain it.
func (q *Queue) Stop() {
	close(q.jobs)
	<-q.done
}

// Enqueue hands a payment id to the worker without blocking. At-most-once: a
// full queue drops the job.
func (q *Queue) Enqueue(paymentID uint) bool {
	select {
	case q.jobs <- paymentID:
		return true
	default:
		log.WithField("payment_id", paymentID).Warn("email queue full, confirmation job dropped")
		return false
	}
}

// Pending reports jobs waiting in the queue.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// SendPaymentConfirmationEmail composes and delivers the confirmation for a
// completed payment.
func (q *Queue) SendPaymentConfirmationEmail(paymentID uint) EmailResult {
	var payment models.Payment
	if err := q.db.First(&payment, paymentID).Error; err != nil {
		return EmailResult{PaymentID: paymentID, Error: "payment not found"}
	}
	var user models.User
	if err := q.db.First(&user, payment.UserID).Error; err != nil {
		return EmailResult{PaymentID: paymentID, Error: "user not found"}
	}

	subject := fmt.Sprintf("Payment Confirmation for booking %s", payment.BookingReference)
	body := fmt.Sprintf(
		"Dear %s,\n\nThank you, your payment for booking %s was successful.\nAmount: %.2f %s\nTransaction Ref: %s\n",
		user.FullName(), payment.BookingReference, payment.Amount, payment.Currency, payment.ChapaTxRef,
	)
	if tid := utils.GetStringValue(payment.ChapaTransactionID); tid != "" {
		body += fmt.Sprintf("Provider Transaction: %s\n", tid)
	}
	body += "\nRegards,\nALX Travel\n"
	if err := q.mailer.Send(user.Email, subject, body); err != nil {
		return EmailResult{PaymentID: paymentID, Error: err.Error()}
	}
	return EmailResult{PaymentID: paymentID, SentTo: user.Email}
}

// Default is the process-wide queue wired up in main.
var Default *Queue

// EnqueueConfirmationEmail enqueues on the default queue. Reports false when
// no queue is configured.
func EnqueueConfirmationEmail(paymentID uint) bool {
	if Default == nil {
		return false
	}
	return Default.Enqueue(paymentID)
}
