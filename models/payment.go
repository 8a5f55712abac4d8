package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payment statuses. Provider vocabulary is normalized into this set and the
// verify path never writes anything outside of it.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

type Payment struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	BookingReference   string            `gorm:"size:128;index;not null" json:"booking_reference"`
	UserID             uint              `gorm:"not null;index" json:"user_id"`
	Amount             float64           `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency           string            `gorm:"size:8;not null;default:'ETB'" json:"currency"`
	ChapaTxRef         string            `gorm:"size:255;not null;uniqueIndex" json:"chapa_tx_ref"`
	ChapaTransactionID *string           `gorm:"size:255" json:"chapa_transaction_id,omitempty"`
	Status             string            `gorm:"size:20;not null;default:'pending'" json:"status"`
	Metadata           datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
