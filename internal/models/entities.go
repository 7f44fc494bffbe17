package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketType represents a purchasable tier for one event
type TicketType struct {
	ID                int64           `json:"id" db:"id"`
	EventID           int64           `json:"event_id" db:"event_id"`
	Name              string          `json:"name" db:"name"`
	Description       *string         `json:"description,omitempty" db:"description"`
	Price             decimal.Decimal `json:"price" db:"price"`
	Currency          string          `json:"currency" db:"currency"`
	TotalQuantity     int             `json:"total_quantity" db:"total_quantity"`
	AvailableQuantity int             `json:"available_quantity" db:"available_quantity"`
	MinPurchase       int             `json:"min_purchase" db:"min_purchase"`
	MaxPurchase       int             `json:"max_purchase" db:"max_purchase"`
	SaleStart         *time.Time      `json:"sale_start" db:"sale_start"`
	SaleEnd           *time.Time      `json:"sale_end" db:"sale_end"`
	ExternalProvider  *string         `json:"external_provider,omitempty" db:"external_provider"`
	ExternalEventID   *string         `json:"external_event_id,omitempty" db:"external_event_id"`
	IsActive          bool            `json:"is_active" db:"is_active"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// SaleOpenAt reports whether the sale window is open at the given instant.
// A nil boundary leaves that side of the window unconstrained.
func (tt *TicketType) SaleOpenAt(now time.Time) bool {
	if tt.SaleStart != nil && now.Before(*tt.SaleStart) {
		return false
	}
	if tt.SaleEnd != nil && now.After(*tt.SaleEnd) {
		return false
	}
	return true
}

// EventInfo is the read-only projection of an event owned by the catalog
// subsystem. The reservation engine never writes events.
type EventInfo struct {
	ID                     int64           `json:"id" db:"id"`
	Title                  string          `json:"title" db:"title"`
	Date                   time.Time       `json:"date" db:"date"`
	OrganizerGenerated     bool            `json:"organizer_generated" db:"organizer_generated"`
	PlatformCommissionRate decimal.Decimal `json:"platform_commission_rate" db:"platform_commission_rate"`
}

// Booking represents one purchase attempt
type Booking struct {
	ID                       int64           `json:"id" db:"id"`
	BookingReference         string          `json:"booking_reference" db:"booking_reference"`
	UserID                   int64           `json:"user_id" db:"user_id"`
	EventID                  int64           `json:"event_id" db:"event_id"`
	TicketTypeID             int64           `json:"ticket_type_id" db:"ticket_type_id"`
	Quantity                 int             `json:"quantity" db:"quantity"`
	UnitPrice                decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice               decimal.Decimal `json:"total_price" db:"total_price"`
	Currency                 string          `json:"currency" db:"currency"`
	PlatformCommissionRate   decimal.Decimal `json:"platform_commission_rate" db:"platform_commission_rate"`
	PlatformCommissionAmount decimal.Decimal `json:"platform_commission_amount" db:"platform_commission_amount"`
	OrganizerRevenue         decimal.Decimal `json:"organizer_revenue" db:"organizer_revenue"`
	Status                   BookingStatus   `json:"status" db:"status"`
	PaymentMethod            string          `json:"payment_method" db:"payment_method"`
	CustomerName             string          `json:"customer_name" db:"customer_name"`
	CustomerEmail            string          `json:"customer_email" db:"customer_email"`
	CustomerPhone            *string         `json:"customer_phone,omitempty" db:"customer_phone"`
	ExpiryDate               time.Time       `json:"expiry_date" db:"expiry_date"`
	ConfirmationDate         *time.Time      `json:"confirmation_date,omitempty" db:"confirmation_date"`
	InventoryReleased        bool            `json:"-" db:"inventory_released"`
	CreatedAt                time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at" db:"updated_at"`
}

// HoldExpired reports whether a PENDING reservation hold has lapsed.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingPending && now.After(b.ExpiryDate)
}

// Payment represents one gateway transaction attempt tied to a booking
type Payment struct {
	ID                int64            `json:"id" db:"id"`
	BookingID         int64            `json:"booking_id" db:"booking_id"`
	PaymentReference  string           `json:"payment_reference" db:"payment_reference"`
	Amount            decimal.Decimal  `json:"amount" db:"amount"`
	Currency          string           `json:"currency" db:"currency"`
	Method            string           `json:"method" db:"method"`
	Status            PaymentStatus    `json:"status" db:"status"`
	ExternalPaymentID *string          `json:"external_payment_id,omitempty" db:"external_payment_id"`
	LastEventID       *string          `json:"-" db:"last_event_id"`
	GatewayResponse   *string          `json:"-" db:"gateway_response"`
	FailureReason     *string          `json:"failure_reason,omitempty" db:"failure_reason"`
	RefundID          *string          `json:"refund_id,omitempty" db:"refund_id"`
	RefundAmount      *decimal.Decimal `json:"refund_amount,omitempty" db:"refund_amount"`
	RefundReason      *string          `json:"refund_reason,omitempty" db:"refund_reason"`
	RefundedAt        *time.Time       `json:"refunded_at,omitempty" db:"refunded_at"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// Ticket represents one physical admission unit
type Ticket struct {
	ID              int64        `json:"id" db:"id"`
	BookingID       int64        `json:"booking_id" db:"booking_id"`
	TicketNumber    string       `json:"ticket_number" db:"ticket_number"`
	Status          TicketStatus `json:"status" db:"status"`
	HolderName      string       `json:"holder_name" db:"holder_name"`
	HolderEmail     string       `json:"holder_email" db:"holder_email"`
	ValidFrom       time.Time    `json:"valid_from" db:"valid_from"`
	ValidUntil      time.Time    `json:"valid_until" db:"valid_until"`
	CheckInTime     *time.Time   `json:"check_in_time,omitempty" db:"check_in_time"`
	CheckInLocation *string      `json:"check_in_location,omitempty" db:"check_in_location"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// ValidationPayload is the contract encoded into a scannable code by the
// rendering layer. The engine defines the fields, not the image format.
type ValidationPayload struct {
	TicketNumber     string    `json:"ticket_number"`
	BookingReference string    `json:"booking_reference"`
	EventID          int64     `json:"event_id"`
	HolderName       string    `json:"holder_name"`
	ValidUntil       time.Time `json:"valid_until"`
}

// BookingHistory is an append-only audit entry for one status transition
type BookingHistory struct {
	ID             int64     `json:"id" db:"id"`
	BookingID      int64     `json:"booking_id" db:"booking_id"`
	PreviousStatus *string   `json:"previous_status,omitempty" db:"previous_status"`
	NewStatus      string    `json:"new_status" db:"new_status"`
	ChangeReason   string    `json:"change_reason" db:"change_reason"`
	ChangedBy      string    `json:"changed_by" db:"changed_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ExternalProviderConfig holds credentials and flags for a third-party
// ticket source. Read-only from this engine's point of view.
type ExternalProviderConfig struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	APIBaseURL string    `json:"api_base_url" db:"api_base_url"`
	APIKey     string    `json:"-" db:"api_key"`
	IsEnabled  bool      `json:"is_enabled" db:"is_enabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
