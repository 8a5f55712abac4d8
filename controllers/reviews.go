package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/VictorRop4/alx-travel-app-0x02/database"
	"github.com/VictorRop4/alx-travel-app-0x02/models"
	"github.com/VictorRop4/alx-travel-app-0x02/utils"
)

type ReviewRequest struct {
	ReviewerName string `json:"reviewer_name"`
	Comment      string `json:"comment"`
	Rating       int    `json:"rating"`
}

// GET /v1/listings/{id}/reviews
func ListReviews(w http.ResponseWriter, r *http.Request) {
	listingID, ok := pathID(r)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid listing id")
		return
	}
	var listing models.Listing
	if err := database.DB.First(&listing, listingID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Listing not found")
		return
	}
	var reviews []models.Review
	if err := database.DB.Where("listing_id = ?", listingID).Order("id DESC").Find(&reviews).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "OK", Data: reviews})
}

// POST /v1/listings/{id}/reviews
func CreateReview(w http.ResponseWriter, r *http.Request) {
	listingID, ok := pathID(r)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid listing id")
		return
	}
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ReviewerName) == "" {
		utils.WriteError(w, http.StatusBadRequest, "reviewer_name is required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		utils.WriteError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	var listing models.Listing
	if err := database.DB.First(&listing, listingID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Listing not found")
		return
	}

	review := models.Review{
		ListingID:    listing.ID,
		ReviewerName: req.ReviewerName,
		Comment:      req.Comment,
		Rating:       req.Rating,
	}
	if err := database.DB.Create(&review).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Review created", Data: review})
}
