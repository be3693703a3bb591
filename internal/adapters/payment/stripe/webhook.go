package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const eventPaymentIntentSucceeded = "payment_intent.succeeded"

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Notifications verifies webhook payloads signed with the endpoint secret.
type Notifications struct {
	secret string
}

var _ ports.PaymentNotifications = (*Notifications)(nil)

func NewNotifications(secret string) (*Notifications, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("stripe webhook secret is required")
	}

	return &Notifications{secret: secret}, nil
}

func (n *Notifications) ParseSucceeded(payload []byte, signature string) (ports.SucceededNotification, bool, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, n.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return ports.SucceededNotification{}, false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if event.Type != eventPaymentIntentSucceeded {
		return ports.SucceededNotification{}, false, nil
	}

	var intent stripego.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return ports.SucceededNotification{}, false, fmt.Errorf("decode payment intent from event %s: %w", event.ID, err)
	}
	if intent.ID == "" {
		return ports.SucceededNotification{}, false, fmt.Errorf("event %s has no payment intent id", event.ID)
	}

	return ports.SucceededNotification{
		EventID:       event.ID,
		TransactionID: domain.TransactionID(intent.ID),
		DeviceID:      domain.DeviceID(intent.Metadata[metadataDeviceID]),
	}, true, nil
}
