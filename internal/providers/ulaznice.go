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

// UlazniceClient syncs bookings to the Ulaznice.hr partner API. The API
// only understands reserve/release, so actions are mapped.
type UlazniceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ulazniceOrderRequest struct {
	Reference string `json:"reference"`
	Tickets   int    `json:"tickets"`
	Operation string `json:"operation"`
}

func NewUlazniceClient(cfg Config) *UlazniceClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &UlazniceClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *UlazniceClient) Name() string { return "ulaznice" }

func (c *UlazniceClient) Sync(ctx context.Context, booking *models.Booking, action string) error {
	operation := "reserve"
	if action == ActionCancel {
		operation = "release"
	}

	body, err := json.Marshal(ulazniceOrderRequest{
		Reference: booking.BookingReference,
		Tickets:   booking.Quantity,
		Operation: operation,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/partner/orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to sync booking with ulaznice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
