package models

import "time"

type Listing struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Price       float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Location    string    `gorm:"size:255;not null" json:"location"`
	Bookings    []Booking `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reviews     []Review  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}
