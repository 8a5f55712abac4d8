package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VictorRop4/alx-travel-app-0x02/database"
	"github.com/VictorRop4/alx-travel-app-0x02/models"
	"github.com/VictorRop4/alx-travel-app-0x02/utils"
)

const dateLayout = "2006-01-02"

type BookingRequest struct {
	ListingID  uint   `json:"listing_id"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
}

type bookingDTO struct {
	ID         uint   `json:"id"`
	ListingID  uint   `json:"listing_id"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	CreatedAt  string `json:"created_at"`
}

func toBookingDTO(b models.Booking) bookingDTO {
	return bookingDTO{
		ID:         b.ID,
		ListingID:  b.ListingID,
		GuestName:  b.GuestName,
		GuestEmail: b.GuestEmail,
		CheckIn:    b.CheckIn.Format(dateLayout),
		CheckOut:   b.CheckOut.Format(dateLayout),
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}

// GET /v1/bookings
func ListBookings(w http.ResponseWriter, r *http.Request) {
	db := database.DB
	_, limit, offset := pagination(r)

	query := db.Order("id DESC").Limit(limit).Offset(offset)
	if lid := r.URL.Query().Get("listing_id"); lid != "" {
		if id, err := strconv.ParseUint(lid, 10, 32); err == nil {
			query = query.Where("listing_id = ?", uint(id))
		}
	}
	var bookings []models.Booking
	if err := query.Find(&bookings).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	items := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingDTO(b))
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "OK", Data: items})
}

// GET /v1/bookings/{id}
func GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid booking id")
		return
	}
	var booking models.Booking
	if err := database.DB.First(&booking, id).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Booking not found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "OK", Data: toBookingDTO(booking)})
}

// POST /v1/bookings
func CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.ListingID == 0 {
		utils.WriteError(w, http.StatusBadRequest, "listing_id is required")
		return
	}
	if strings.TrimSpace(req.GuestName) == "" || strings.TrimSpace(req.GuestEmail) == "" {
		utils.WriteError(w, http.StatusBadRequest, "guest_name and guest_email are required")
		return
	}
	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "check_in must be a YYYY-MM-DD date")
		return
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "check_out must be a YYYY-MM-DD date")
		return
	}
	if !checkOut.After(checkIn) {
		utils.WriteError(w, http.StatusBadRequest, "check_out must be after check_in")
		return
	}

	var listing models.Listing
	if err := database.DB.First(&listing, req.ListingID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Listing not found")
		return
	}

	booking := models.Booking{
		ListingID:  listing.ID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	}
	if err := database.DB.Create(&booking).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Booking created", Data: toBookingDTO(booking)})
}

// DELETE /v1/bookings/{id}
func DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid booking id")
		return
	}
	var booking models.Booking
	if err := database.DB.First(&booking, id).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Booking not found")
		return
	}
	if err := database.DB.Delete(&booking).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Booking deleted"})
}
