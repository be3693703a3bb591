package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const DefaultLedgerMaxAttempts = 8

type LedgerConfig struct {
	PoolLimit   int64
	Pricing     domain.Pricing
	Policy      domain.QuotaPolicy
	MaxAttempts int
}

func (c LedgerConfig) withDefaults() LedgerConfig {
	if c.PoolLimit <= 0 {
		c.PoolLimit = domain.DefaultPoolLimit
	}
	if c.Policy == "" {
		c.Policy = domain.PolicyFreeFirst
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultLedgerMaxAttempts
	}

	return c
}

// Ledger is the only writer of device balances, the free pool and payment records.
type Ledger struct {
	store  ports.LedgerStore
	cfg    LedgerConfig
	clock  ports.Clock
	logger *zap.Logger

	newBackOff func() backoff.BackOff
}

type ConsumeResult struct {
	Mode     domain.Mode
	Snapshot domain.CreditSnapshot
}

type PurchaseResult struct {
	Snapshot domain.CreditSnapshot
	// Applied is false when the transaction id was already recorded.
	Applied bool
}

func NewLedger(store ports.LedgerStore, cfg LedgerConfig, clock ports.Clock, logger *zap.Logger) *Ledger {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ledger{
		store:      store,
		cfg:        cfg.withDefaults(),
		clock:      clock,
		logger:     logger,
		newBackOff: defaultLedgerBackOff,
	}
}

func (l *Ledger) Pricing() domain.Pricing {
	return l.cfg.Pricing
}

func (l *Ledger) Snapshot(ctx context.Context, id domain.DeviceID) (domain.CreditSnapshot, error) {
	if err := id.Validate(); err != nil {
		return domain.CreditSnapshot{}, err
	}

	now := l.clock.Now()
	var snapshot domain.CreditSnapshot
	err := l.store.View(ctx, func(tx ports.LedgerTx) error {
		device, pool, err := l.load(ctx, tx, id, now)
		if err != nil {
			return err
		}
		snapshot = domain.NewCreditSnapshot(device, pool, l.cfg.Pricing, now)
		return nil
	})
	if err != nil {
		return domain.CreditSnapshot{}, fmt.Errorf("read credit snapshot: %w", err)
	}

	return snapshot, nil
}

// ConsumeOne spends exactly one unit of entitlement for the device.
func (l *Ledger) ConsumeOne(ctx context.Context, id domain.DeviceID) (ConsumeResult, error) {
	if err := id.Validate(); err != nil {
		return ConsumeResult{}, err
	}

	var result ConsumeResult
	err := l.transact(ctx, "consume credit", func(tx ports.LedgerTx) error {
		now := l.clock.Now()
		device, pool, err := l.load(ctx, tx, id, now)
		if err != nil {
			return err
		}

		mode, err := domain.Consume(l.cfg.Policy, &device, &pool, now)
		if err != nil {
			return err
		}

		if err := tx.PutDevice(ctx, device); err != nil {
			return fmt.Errorf("put device: %w", err)
		}
		if mode == domain.ModeFree {
			if err := tx.PutPool(ctx, pool); err != nil {
				return fmt.Errorf("put pool: %w", err)
			}
		}

		result = ConsumeResult{Mode: mode, Snapshot: domain.NewCreditSnapshot(device, pool, l.cfg.Pricing, now)}
		return nil
	})
	if err != nil {
		return ConsumeResult{}, err
	}

	l.logger.Info("credit consumed",
		zap.String("device_id", string(id)),
		zap.String("mode", string(result.Mode)),
		zap.Int64("paid_credits", result.Snapshot.PaidCredits),
		zap.Int64("free_pool_remaining", result.Snapshot.FreePoolRemaining),
	)

	return result, nil
}

// CreditPurchase applies a purchase at most once per transaction id.
func (l *Ledger) CreditPurchase(ctx context.Context, purchase domain.Purchase) (PurchaseResult, error) {
	if err := purchase.Validate(); err != nil {
		return PurchaseResult{}, err
	}

	var result PurchaseResult
	err := l.transact(ctx, "credit purchase", func(tx ports.LedgerTx) error {
		now := l.clock.Now()
		_, recorded, err := tx.Payment(ctx, purchase.TransactionID)
		if err != nil {
			return fmt.Errorf("get payment: %w", err)
		}

		device, pool, err := l.load(ctx, tx, purchase.DeviceID, now)
		if err != nil {
			return err
		}
		if recorded {
			result = PurchaseResult{Snapshot: domain.NewCreditSnapshot(device, pool, l.cfg.Pricing, now)}
			return nil
		}

		if err := domain.Credit(&device, purchase.Quantity, now); err != nil {
			return err
		}
		if err := tx.PutDevice(ctx, device); err != nil {
			return fmt.Errorf("put device: %w", err)
		}
		if err := tx.InsertPayment(ctx, purchase.Record(now)); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		result = PurchaseResult{Snapshot: domain.NewCreditSnapshot(device, pool, l.cfg.Pricing, now), Applied: true}
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	l.logger.Info("purchase reconciled",
		zap.String("device_id", string(purchase.DeviceID)),
		zap.String("transaction_id", string(purchase.TransactionID)),
		zap.String("source", string(purchase.Source)),
		zap.Int64("quantity", purchase.Quantity),
		zap.Bool("applied", result.Applied),
	)

	return result, nil
}

func (l *Ledger) Payments(ctx context.Context, id domain.DeviceID) ([]domain.PaymentRecord, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var records []domain.PaymentRecord
	err := l.store.View(ctx, func(tx ports.LedgerTx) error {
		var err error
		records, err = tx.PaymentsForDevice(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	return records, nil
}

func (l *Ledger) load(ctx context.Context, tx ports.LedgerTx, id domain.DeviceID, now time.Time) (domain.DeviceAccount, domain.FreePool, error) {
	device, found, err := tx.Device(ctx, id)
	if err != nil {
		return domain.DeviceAccount{}, domain.FreePool{}, fmt.Errorf("get device: %w", err)
	}
	if !found {
		device = domain.NewDeviceAccount(id, now)
	}

	pool, found, err := tx.Pool(ctx)
	if err != nil {
		return domain.DeviceAccount{}, domain.FreePool{}, fmt.Errorf("get pool: %w", err)
	}
	if !found {
		pool = domain.NewFreePool(l.cfg.PoolLimit)
	}

	// The configured limit wins, but never below what was already granted.
	pool.Limit = max(l.cfg.PoolLimit, pool.UsedFreeCount)

	return device, pool, nil
}

// transact runs fn in a store transaction, retrying on domain.ErrTxConflict.
func (l *Ledger) transact(ctx context.Context, op string, fn func(tx ports.LedgerTx) error) error {
	attempts := 0
	operation := func() error {
		attempts++
		err := l.store.Transact(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrTxConflict) {
			l.logger.Debug("ledger transaction conflict",
				zap.String("op", op),
				zap.Int("attempt", attempts),
				zap.Error(err),
			)
			return err
		}

		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(l.newBackOff(), uint64(l.cfg.MaxAttempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, domain.ErrTxConflict) {
			return fmt.Errorf("%s: gave up after %d attempts: %w", op, attempts, err)
		}
		return err
	}

	return nil
}

func defaultLedgerBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0

	return b
}
