package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
)

type CardConfig struct {
	BaseURL       string
	MerchantSlug  string
	APISecret     string
	WebhookSecret string
	Timeout       time.Duration
}

// CardGateway talks to the external card processor. Requests carry a
// SHA-256 token over the sorted request parameters plus the API secret;
// webhooks are authenticated with an HMAC-SHA256 signature.
type CardGateway struct {
	baseURL       string
	merchantSlug  string
	apiSecret     string
	webhookSecret string
	httpClient    *http.Client
}

func NewCardGateway(cfg CardConfig) *CardGateway {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &CardGateway{
		baseURL:       cfg.BaseURL,
		merchantSlug:  cfg.MerchantSlug,
		apiSecret:     cfg.APISecret,
		webhookSecret: cfg.WebhookSecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (g *CardGateway) requestToken(params map[string]string) string {
	params["MerchantSlug"] = g.merchantSlug
	params["Secret"] = g.apiSecret

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}

type intentWireRequest struct {
	MerchantSlug     string            `json:"merchantSlug"`
	Token            string            `json:"token"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	BookingReference string            `json:"bookingReference"`
	CustomerEmail    string            `json:"customerEmail,omitempty"`
	Description      string            `json:"description,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type intentWireResponse struct {
	Success      bool   `json:"success"`
	ExternalID   string `json:"external_id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Error        string `json:"error"`
	DeclineCode  string `json:"decline_code"`
}

func (g *CardGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	token := g.requestToken(map[string]string{
		"Amount":           strconv.FormatInt(req.AmountMinorUnits, 10),
		"Currency":         req.Currency,
		"BookingReference": req.BookingReference,
	})

	wireReq := intentWireRequest{
		MerchantSlug:     g.merchantSlug,
		Token:            token,
		Amount:           req.AmountMinorUnits,
		Currency:         req.Currency,
		BookingReference: req.BookingReference,
		CustomerEmail:    req.CustomerEmail,
		Description:      req.Description,
		Metadata:         req.Metadata,
	}

	var wireResp intentWireResponse
	if err := g.post(ctx, "/api/v1/intents", wireReq, &wireResp); err != nil {
		return nil, err
	}

	if !wireResp.Success {
		reason := apperrors.GatewayCardDeclined
		if wireResp.DeclineCode == "" {
			reason = apperrors.GatewayInvalidRequest
		}
		detail := wireResp.DeclineCode
		if detail == "" {
			detail = wireResp.Error
		}
		return nil, apperrors.NewGateway(reason, detail, nil)
	}

	return &Intent{
		ExternalID:   wireResp.ExternalID,
		ClientSecret: wireResp.ClientSecret,
		Status:       wireResp.Status,
	}, nil
}

type refundWireRequest struct {
	MerchantSlug      string `json:"merchantSlug"`
	Token             string `json:"token"`
	ExternalPaymentID string `json:"externalPaymentId"`
	Amount            *int64 `json:"amount,omitempty"`
	Reason            string `json:"reason"`
}

type refundWireResponse struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Error    string `json:"error"`
}

func (g *CardGateway) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	params := map[string]string{
		"ExternalPaymentId": req.ExternalPaymentID,
	}
	if req.AmountMinorUnits != nil {
		params["Amount"] = strconv.FormatInt(*req.AmountMinorUnits, 10)
	}
	token := g.requestToken(params)

	wireReq := refundWireRequest{
		MerchantSlug:      g.merchantSlug,
		Token:             token,
		ExternalPaymentID: req.ExternalPaymentID,
		Amount:            req.AmountMinorUnits,
		Reason:            req.Reason,
	}

	var wireResp refundWireResponse
	if err := g.post(ctx, "/api/v1/refunds", wireReq, &wireResp); err != nil {
		return nil, err
	}

	if !wireResp.Success {
		return nil, apperrors.NewGateway(apperrors.GatewayInvalidRequest, wireResp.Error, nil)
	}

	return &Refund{
		RefundID: wireResp.RefundID,
		Amount:   wireResp.Amount,
		Currency: wireResp.Currency,
		Status:   wireResp.Status,
	}, nil
}

func (g *CardGateway) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.NewGateway(apperrors.GatewayNetworkError, "gateway unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewGateway(apperrors.GatewayAuthError, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 500:
		return apperrors.NewGateway(apperrors.GatewayNetworkError, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewGateway(apperrors.GatewayNetworkError, "malformed gateway response", err)
	}
	return nil
}

type webhookWirePayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		BookingReference  string            `json:"booking_reference"`
		ExternalPaymentID string            `json:"payment_id"`
		Reason            string            `json:"reason"`
		Metadata          map[string]string `json:"metadata"`
	} `json:"data"`
}

// VerifyAndParseWebhook checks the X-Signature HMAC before trusting any
// field of the payload.
func (g *CardGateway) VerifyAndParseWebhook(payload []byte, signature string) (*Event, error) {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(provided, expected) {
		return nil, apperrors.ErrBadSignature
	}

	var wire webhookWirePayload
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, &apperrors.WebhookError{Reason: "malformed payload", Err: err}
	}

	return &Event{
		ID:                wire.ID,
		Type:              wire.Type,
		BookingReference:  wire.Data.BookingReference,
		ExternalPaymentID: wire.Data.ExternalPaymentID,
		Reason:            wire.Data.Reason,
		Metadata:          wire.Data.Metadata,
	}, nil
}
