package ports

import (
	"context"

	"github.com/bnema/beright/internal/domain"
)

// LedgerStore runs ledger reads and writes as all-or-nothing units.
//
// Transact returns domain.ErrTxConflict when a concurrent writer committed
// between the reads and the commit of fn; callers may retry.
// Writes made by fn are discarded when fn returns an error.
type LedgerStore interface {
	View(ctx context.Context, fn func(tx LedgerTx) error) error
	Transact(ctx context.Context, fn func(tx LedgerTx) error) error
}

type LedgerTx interface {
	Device(ctx context.Context, id domain.DeviceID) (domain.DeviceAccount, bool, error)
	PutDevice(ctx context.Context, device domain.DeviceAccount) error
	Pool(ctx context.Context) (domain.FreePool, bool, error)
	PutPool(ctx context.Context, pool domain.FreePool) error
	Payment(ctx context.Context, id domain.TransactionID) (domain.PaymentRecord, bool, error)
	InsertPayment(ctx context.Context, record domain.PaymentRecord) error
	PaymentsForDevice(ctx context.Context, id domain.DeviceID) ([]domain.PaymentRecord, error)
}
