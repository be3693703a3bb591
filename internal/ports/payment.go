package ports

import (
	"context"

	"github.com/bnema/beright/internal/domain"
)

type IntentRequest struct {
	DeviceID domain.DeviceID
	Quantity int64
	Amount   int64
	Currency string
}

type PaymentProcessor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (domain.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id domain.TransactionID) (domain.PaymentIntent, error)
}

// SucceededNotification is a verified "payment succeeded" event from the processor.
type SucceededNotification struct {
	EventID       string
	TransactionID domain.TransactionID
	DeviceID      domain.DeviceID
}

type PaymentNotifications interface {
	// ParseSucceeded verifies the payload signature. ok is false for
	// verified events of other types.
	ParseSucceeded(payload []byte, signature string) (SucceededNotification, bool, error)
}
