package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"conference-booking-server/middleware"
	"conference-booking-server/models"
	"conference-booking-server/services"
)

// BookingHandler serves the user-facing booking endpoints.
type BookingHandler struct {
	bookings     *services.BookingService
	availability *services.AvailabilityService
}

func NewBookingHandler(bookings *services.BookingService, availability *services.AvailabilityService) *BookingHandler {
	return &BookingHandler{bookings: bookings, availability: availability}
}

// RegisterBookingRoutes registers all booking-related routes
func RegisterBookingRoutes(router *gin.RouterGroup, h *BookingHandler) {
	router.GET("/availability", h.checkAvailability)
	router.POST("", h.createBooking)
	router.GET("", h.listBookings)
	router.GET("/:id", h.getBooking)
}

// checkAvailability evaluates a proposed window for the acting user.
// Query params: date, start, end, department_id, exclude_id (optional).
func (h *BookingHandler) checkAvailability(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	departmentID := uintQuery(c, "department_id")
	if departmentID == 0 && actor.DepartmentID != nil {
		departmentID = *actor.DepartmentID
	}

	result, err := h.availability.CheckAvailability(
		c.Query("date"),
		c.Query("start"),
		c.Query("end"),
		actor.ID,
		departmentID,
		uintQuery(c, "exclude_id"),
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"available":   result.Available,
		"conflicts":   result.Conflicts,
		"suggestions": result.Suggestions,
	})
}

func (h *BookingHandler) createBooking(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var req services.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "title, date, start_time and end_time are required",
		})
		return
	}

	booking, availability, err := h.bookings.CreateBooking(req, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if booking == nil {
		c.JSON(http.StatusConflict, gin.H{
			"success":     false,
			"message":     "the requested window is not available",
			"conflicts":   availability.Conflicts,
			"suggestions": availability.Suggestions,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "booking request created and awaiting approval",
		"booking": booking,
	})
}

func (h *BookingHandler) listBookings(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	userID := actor.ID
	if actor.Role == models.RoleAdmin {
		userID = uintQuery(c, "user_id")
	}

	bookings, err := h.bookings.ListBookings(userID, models.BookingStatus(c.Query("status")))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *BookingHandler) getBooking(c *gin.Context) {
	id := uintParam(c, "id")
	if id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid booking id"})
		return
	}

	booking, err := h.bookings.GetBooking(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	actor, _ := middleware.CurrentUser(c)
	if actor.Role != models.RoleAdmin && booking.UserID != actor.ID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "not your booking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func uintParam(c *gin.Context, name string) uint {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(value)
}

func uintQuery(c *gin.Context, name string) uint {
	value, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(value)
}
