package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// CreateBooking - POST /api/booking/create
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Bookings.Create(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetBooking - GET /api/booking/:reference
func (h *Handlers) GetBooking(c *gin.Context) {
	reference := c.Param("reference")

	response, err := h.services.Bookings.Get(c.Request.Context(), reference)
	if err != nil {
		h.respondError(c, err, "Failed to get booking")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CancelBooking - POST /api/booking/:reference/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	reference := c.Param("reference")

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Bookings.Cancel(c.Request.Context(), reference, &req)
	if err != nil {
		h.respondError(c, err, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, response)
}
