package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
)

// OfflineGateway settles payment methods that never touch the card
// processor (bank transfer collected up front, invoiced organizers). The
// charge succeeds synchronously and refunds are bookkeeping only.
type OfflineGateway struct{}

func NewOfflineGateway() *OfflineGateway {
	return &OfflineGateway{}
}

func (g *OfflineGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.AmountMinorUnits <= 0 {
		return nil, apperrors.NewGateway(apperrors.GatewayInvalidRequest, "non-positive amount", nil)
	}

	return &Intent{
		ExternalID: "offline_" + uuid.New().String(),
		Status:     IntentSucceeded,
	}, nil
}

func (g *OfflineGateway) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	var amount int64
	if req.AmountMinorUnits != nil {
		amount = *req.AmountMinorUnits
	}

	return &Refund{
		RefundID: "offline_refund_" + uuid.New().String(),
		Amount:   amount,
		Status:   "succeeded",
	}, nil
}

func (g *OfflineGateway) VerifyAndParseWebhook(payload []byte, signature string) (*Event, error) {
	return nil, fmt.Errorf("offline gateway does not deliver webhooks")
}
