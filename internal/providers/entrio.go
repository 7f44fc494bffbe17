package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// EntrioClient syncs bookings to the Entrio partner API.
type EntrioClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type entrioSyncRequest struct {
	BookingReference string `json:"booking_reference"`
	Quantity         int    `json:"quantity"`
	Action           string `json:"action"`
	CustomerEmail    string `json:"customer_email"`
}

func NewEntrioClient(cfg Config) *EntrioClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &EntrioClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *EntrioClient) Name() string { return "entrio" }

func (c *EntrioClient) Sync(ctx context.Context, booking *models.Booking, action string) error {
	body, err := json.Marshal(entrioSyncRequest{
		BookingReference: booking.BookingReference,
		Quantity:         booking.Quantity,
		Action:           action,
		CustomerEmail:    booking.CustomerEmail,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sync request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/partners/v1/bookings/sync", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to sync booking with entrio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
