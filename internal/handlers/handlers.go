package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/logger"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// respondError maps service-layer errors onto HTTP statuses. Internal
// detail stays in the logs; clients get a stable error shape.
func (h *Handlers) respondError(c *gin.Context, err error, fallback string) {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, apperrors.ErrInsufficientInventory):
		c.JSON(http.StatusBadRequest, gin.H{"error": "not enough tickets available"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "booking was modified concurrently, retry"})
	default:
		if ge, ok := apperrors.AsGateway(err); ok {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":  "payment was not accepted",
				"reason": ge.Reason,
			})
			return
		}
		logger.WithContext(c.Request.Context()).Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
