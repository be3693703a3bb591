package domain

import (
	"fmt"
	"strings"
	"time"
)

type TransactionID string

// ReconciliationSource records which trigger applied a payment.
type ReconciliationSource string

const (
	SourceClientConfirm ReconciliationSource = "client_confirm"
	SourceWebhook       ReconciliationSource = "webhook"
	SourceManual        ReconciliationSource = "manual"
)

func (s ReconciliationSource) Valid() bool {
	switch s {
	case SourceClientConfirm, SourceWebhook, SourceManual:
		return true
	default:
		return false
	}
}

type PaymentRecord struct {
	TransactionID  TransactionID
	DeviceID       DeviceID
	Quantity       int64
	AmountReceived int64
	Currency       string
	Source         ReconciliationSource
	CreatedAt      time.Time
}

type Purchase struct {
	DeviceID       DeviceID
	Quantity       int64
	TransactionID  TransactionID
	AmountReceived int64
	Currency       string
	Source         ReconciliationSource
}

func (p Purchase) Validate() error {
	if err := p.DeviceID.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(p.TransactionID)) == "" {
		return fmt.Errorf("transaction id is required")
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, p.Quantity)
	}
	if !p.Source.Valid() {
		return fmt.Errorf("unsupported reconciliation source %q", p.Source)
	}

	return nil
}

func (p Purchase) Record(now time.Time) PaymentRecord {
	return PaymentRecord{
		TransactionID:  p.TransactionID,
		DeviceID:       p.DeviceID,
		Quantity:       p.Quantity,
		AmountReceived: p.AmountReceived,
		Currency:       strings.ToLower(p.Currency),
		Source:         p.Source,
		CreatedAt:      now.UTC(),
	}
}

type IntentStatus string

const (
	IntentSucceeded  IntentStatus = "succeeded"
	IntentProcessing IntentStatus = "processing"
	IntentPending    IntentStatus = "requires_payment_method"
	IntentCanceled   IntentStatus = "canceled"
)

// PaymentIntent is the processor-side view of a payment.
type PaymentIntent struct {
	ID             TransactionID
	Status         IntentStatus
	ClientSecret   string
	Amount         int64
	AmountReceived int64
	Currency       string
	DeviceID       DeviceID
	Quantity       int64
}
