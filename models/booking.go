package models

import "time"

type Booking struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ListingID  uint      `gorm:"not null;index" json:"listing_id"`
	GuestName  string    `gorm:"size:100;not null" json:"guest_name"`
	GuestEmail string    `gorm:"size:255;not null" json:"guest_email"`
	CheckIn    time.Time `gorm:"type:date;not null" json:"check_in"`
	CheckOut   time.Time `gorm:"type:date;not null" json:"check_out"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Booking) TableName() string {
	return "bookings"
}
