package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"go.uber.org/zap"
)

const DefaultMaxPurchaseQuantity int64 = 50

// Reconciler verifies processor payments before handing them to the ledger.
type Reconciler struct {
	ledger      *Ledger
	processor   ports.PaymentProcessor
	maxQuantity int64
	logger      *zap.Logger
}

func NewReconciler(ledger *Ledger, processor ports.PaymentProcessor, maxQuantity int64, logger *zap.Logger) *Reconciler {
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxPurchaseQuantity
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{ledger: ledger, processor: processor, maxQuantity: maxQuantity, logger: logger}
}

func (r *Reconciler) CreateIntent(ctx context.Context, deviceID domain.DeviceID, quantity int64) (domain.PaymentIntent, error) {
	if err := deviceID.Validate(); err != nil {
		return domain.PaymentIntent{}, err
	}
	if quantity < 1 || quantity > r.maxQuantity {
		return domain.PaymentIntent{}, fmt.Errorf("%w: quantity must be between 1 and %d", domain.ErrInvalidQuantity, r.maxQuantity)
	}

	pricing := r.ledger.Pricing()
	intent, err := r.processor.CreateIntent(ctx, ports.IntentRequest{
		DeviceID: deviceID,
		Quantity: quantity,
		Amount:   pricing.AmountFor(quantity),
		Currency: pricing.Currency,
	})
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("create payment intent: %w", err)
	}

	r.logger.Info("payment intent created",
		zap.String("device_id", string(deviceID)),
		zap.String("transaction_id", string(intent.ID)),
		zap.Int64("quantity", quantity),
		zap.Int64("amount", intent.Amount),
	)

	return intent, nil
}

// Reconcile credits the device for a succeeded payment. Calling it again for
// the same payment, from any source, leaves the balance unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, deviceID domain.DeviceID, paymentRef domain.TransactionID, source domain.ReconciliationSource) (PurchaseResult, error) {
	if err := deviceID.Validate(); err != nil {
		return PurchaseResult{}, err
	}
	if paymentRef == "" {
		return PurchaseResult{}, fmt.Errorf("%w: payment reference is required", domain.ErrInvalidRequest)
	}

	intent, err := r.processor.RetrieveIntent(ctx, paymentRef)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("retrieve payment intent: %w", err)
	}

	purchase, err := r.verify(intent, deviceID)
	if err != nil {
		var integrity *domain.IntegrityError
		if errors.As(err, &integrity) {
			r.logger.Warn("payment rejected",
				zap.String("device_id", string(deviceID)),
				zap.String("transaction_id", string(paymentRef)),
				zap.String("source", string(source)),
				zap.String("reason", integrity.Reason),
			)
		}
		return PurchaseResult{}, err
	}
	purchase.Source = source

	result, err := r.ledger.CreditPurchase(ctx, purchase)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("credit purchase: %w", err)
	}

	return result, nil
}

func (r *Reconciler) verify(intent domain.PaymentIntent, deviceID domain.DeviceID) (domain.Purchase, error) {
	if intent.Status != domain.IntentSucceeded {
		return domain.Purchase{}, fmt.Errorf("payment %s is %s: %w", intent.ID, intent.Status, domain.ErrPaymentNotSucceeded)
	}
	if intent.DeviceID != deviceID {
		return domain.Purchase{}, &domain.IntegrityError{TransactionID: intent.ID, Reason: "device mismatch"}
	}
	if intent.Quantity <= 0 {
		return domain.Purchase{}, &domain.IntegrityError{TransactionID: intent.ID, Reason: "missing quantity"}
	}

	pricing := r.ledger.Pricing()
	if !pricing.SameCurrency(intent.Currency) {
		return domain.Purchase{}, &domain.IntegrityError{
			TransactionID: intent.ID,
			Reason:        fmt.Sprintf("currency %q does not match %q", intent.Currency, pricing.Currency),
		}
	}
	if expected := pricing.AmountFor(intent.Quantity); intent.AmountReceived != expected {
		return domain.Purchase{}, &domain.IntegrityError{
			TransactionID: intent.ID,
			Reason:        fmt.Sprintf("amount received %d, expected %d", intent.AmountReceived, expected),
		}
	}

	return domain.Purchase{
		DeviceID:       deviceID,
		Quantity:       intent.Quantity,
		TransactionID:  intent.ID,
		AmountReceived: intent.AmountReceived,
		Currency:       intent.Currency,
	}, nil
}
