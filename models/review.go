package models

import "time"

type Review struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ListingID    uint      `gorm:"not null;index" json:"listing_id"`
	ReviewerName string    `gorm:"size:100;not null" json:"reviewer_name"`
	Comment      string    `gorm:"type:text" json:"comment"`
	Rating       int       `gorm:"not null" json:"rating"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
