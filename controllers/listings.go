package controllers

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/VictorRop4/alx-travel-app-0x02/database"
	"github.com/VictorRop4/alx-travel-app-0x02/models"
	"github.com/VictorRop4/alx-travel-app-0x02/utils"
)

type ListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Location    string  `json:"location"`
}

func (req *ListingRequest) validate() string {
	if strings.TrimSpace(req.Title) == "" {
		return "title is required"
	}
	if strings.TrimSpace(req.Location) == "" {
		return "location is required"
	}
	if req.Price < 0 {
		return "price must not be negative"
	}
	return ""
}

// GET /v1/listings
func ListListings(w http.ResponseWriter, r *http.Request) {
	db := database.DB
	page, limit, offset := pagination(r)

	var totalRows int64
	if err := db.Model(&models.Listing{}).Count(&totalRows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	var listings []models.Listing
	query := db.Order("id DESC").Limit(limit).Offset(offset)
	if loc := strings.TrimSpace(r.URL.Query().Get("location")); loc != "" {
		query = query.Where("location LIKE ?", "%"+loc+"%")
	}
	if err := query.Find(&listings).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "OK", Data: map[string]interface{}{
		"data": listings,
		"pagination": map[string]interface{}{
			"page":        page,
			"limit":       limit,
			"total_rows":  totalRows,
			"total_pages": int(math.Ceil(float64(totalRows) / float64(limit))),
		},
	}})
}

// GET /v1/listings/{id}
func GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid listing id")
		return
	}
	var listing models.Listing
	if err := database.DB.First(&listing, id).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Listing not found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "OK", Data: listing})
}

// POST /v1/listings
func CreateListing(w http.ResponseWriter, r *http.Request) {
	var req ListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	listing := models.Listing{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Location:    req.Location,
	}
	if err := database.DB.Create(&listing).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Listing created", Data: listing})
}

// PUT /v1/listings/{id}
func UpdateListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid listing id")
		return
	}
	var listing models.Listing
	if err := database.DB.First(&listing, id).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Listing not found")
		return
	}
	var req ListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	listing.Title = req.Title
	listing.Description = req.Description
	listing.Price = req.Price
	listing.Location = req.Location
	if err := database.DB.Save(&listing).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Listing updated", Data: listing})
}

// DELETE /v1/listings/{id}
// Deleting a listing takes its bookings and reviews with it.
func DeleteListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid listing id")
		return
	}
	var listing models.Listing
	if err := database.DB.First(&listing, id).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Listing not found")
		return
	}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listing.ID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("listing_id = ?", listing.ID).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		return tx.Delete(&listing).Error
	})
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Listing deleted"})
}
