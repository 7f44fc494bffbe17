package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// ValidateTicket - POST /api/booking/ticket/validate
// A rejected ticket is still a successful validation call; the outcome
// lives in the response status field.
func (h *Handlers) ValidateTicket(c *gin.Context) {
	var req models.ValidateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Tickets.Validate(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to validate ticket")
		return
	}

	c.JSON(http.StatusOK, response)
}
