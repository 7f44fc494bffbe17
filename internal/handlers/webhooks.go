package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/logger"
)

const signatureHeader = "X-Signature"

// GatewayWebhook - POST /api/gateway/webhook
// Returns 200 for every verified event, including duplicates, so the
// gateway stops redelivering. Only a bad signature earns a 401 and only
// an internal failure earns a 500 (which triggers redelivery).
func (h *Handlers) GatewayWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	signature := c.GetHeader(signatureHeader)
	if signature == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
		return
	}

	err = h.services.Webhooks.Handle(c.Request.Context(), payload, signature)
	var we *apperrors.WebhookError
	switch {
	case err == nil, errors.Is(err, apperrors.ErrAlreadyProcessed):
		c.Status(http.StatusOK)
	case errors.Is(err, apperrors.ErrBadSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
	case errors.As(err, &we):
		// Signed but unusable payload; ack so the provider stops retrying.
		logger.WithContext(c.Request.Context()).Error("Unusable gateway webhook", "error", err)
		c.Status(http.StatusOK)
	default:
		logger.WithContext(c.Request.Context()).Error("Failed to handle gateway webhook", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to handle webhook"})
	}
}
