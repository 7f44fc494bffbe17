// Package gateway wraps the external payment processor behind a small
// contract the orchestrator can stay agnostic to. A card gateway talks to
// the real provider over HTTP; an offline processor covers cash-like
// methods settled outside the platform.
package gateway

import "context"

// Intent statuses reported by the gateway.
const (
	IntentSucceeded = "succeeded"
	IntentPending   = "pending"
	IntentFailed    = "failed"
)

// Webhook event types this engine knows how to apply.
const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
	EventDisputeCreated   = "dispute_created"
)

// IntentRequest describes a charge to initiate. Amounts are minor units
// (cents) to keep the wire format integer-only.
type IntentRequest struct {
	AmountMinorUnits int64             `json:"amount_minor_units"`
	Currency         string            `json:"currency"`
	BookingReference string            `json:"booking_reference"`
	CustomerEmail    string            `json:"customer_email"`
	Description      string            `json:"description"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Intent is the synchronous result of initiating a charge.
type Intent struct {
	ExternalID   string `json:"external_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
}

// RefundRequest describes a refund against a settled payment. A nil amount
// refunds the full payment.
type RefundRequest struct {
	ExternalPaymentID string `json:"external_payment_id"`
	AmountMinorUnits  *int64 `json:"amount_minor_units,omitempty"`
	Reason            string `json:"reason"`
}

// Refund is the gateway's refund confirmation.
type Refund struct {
	RefundID string `json:"refund_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// Event is a verified, parsed webhook notification.
type Event struct {
	ID                string            `json:"id"`
	Type              string            `json:"type"`
	BookingReference  string            `json:"booking_reference"`
	ExternalPaymentID string            `json:"external_payment_id"`
	Reason            string            `json:"reason,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// PaymentGateway is the adapter contract for one payment method family.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error)
	VerifyAndParseWebhook(payload []byte, signature string) (*Event, error)
}

// Router picks the gateway implementation for a payment method. The
// orchestrator never branches on method itself.
type Router struct {
	card    PaymentGateway
	offline PaymentGateway
}

func NewRouter(card, offline PaymentGateway) *Router {
	return &Router{card: card, offline: offline}
}

// ForMethod returns the gateway handling the given payment method.
func (r *Router) ForMethod(method string) PaymentGateway {
	switch method {
	case "card", "credit_card", "debit_card":
		return r.card
	default:
		return r.offline
	}
}

// Webhooks returns the gateway that verifies inbound notifications. Only
// the card provider sends webhooks.
func (r *Router) Webhooks() PaymentGateway {
	return r.card
}
