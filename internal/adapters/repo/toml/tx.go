package toml

import (
	"context"
	"fmt"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
)

type ledgerTx struct {
	file     fileSchema
	readOnly bool
	dirty    bool
}

var _ ports.LedgerTx = (*ledgerTx)(nil)

func newLedgerTx(file fileSchema, readOnly bool) *ledgerTx {
	copied := file
	copied.Devices = append([]deviceSchema(nil), file.Devices...)
	copied.Payments = append([]paymentSchema(nil), file.Payments...)
	if file.Pool != nil {
		pool := *file.Pool
		copied.Pool = &pool
	}

	return &ledgerTx{file: copied, readOnly: readOnly}
}

func (tx *ledgerTx) Device(ctx context.Context, id domain.DeviceID) (domain.DeviceAccount, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.DeviceAccount{}, false, err
	}

	for _, entry := range tx.file.Devices {
		if entry.ID == string(id) {
			return fromDeviceSchema(entry), true, nil
		}
	}

	return domain.DeviceAccount{}, false, nil
}

func (tx *ledgerTx) PutDevice(ctx context.Context, device domain.DeviceAccount) error {
	if err := tx.writable(ctx); err != nil {
		return err
	}

	for i := range tx.file.Devices {
		if tx.file.Devices[i].ID != string(device.ID) {
			continue
		}
		if tx.file.Devices[i].Version != device.Version {
			return fmt.Errorf("device %s version %d is stale: %w", device.ID, device.Version, domain.ErrTxConflict)
		}
		device.Version++
		tx.file.Devices[i] = toDeviceSchema(device)
		tx.dirty = true
		return nil
	}

	if device.Version != 0 {
		return fmt.Errorf("device %s vanished: %w", device.ID, domain.ErrTxConflict)
	}
	device.Version = 1
	tx.file.Devices = append(tx.file.Devices, toDeviceSchema(device))
	tx.dirty = true

	return nil
}

func (tx *ledgerTx) Pool(ctx context.Context) (domain.FreePool, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.FreePool{}, false, err
	}
	if tx.file.Pool == nil {
		return domain.FreePool{}, false, nil
	}

	return fromPoolSchema(*tx.file.Pool), true, nil
}

func (tx *ledgerTx) PutPool(ctx context.Context, pool domain.FreePool) error {
	if err := tx.writable(ctx); err != nil {
		return err
	}
	if err := pool.Validate(); err != nil {
		return fmt.Errorf("put pool: %w", err)
	}

	var storedVersion int64
	if tx.file.Pool != nil {
		storedVersion = tx.file.Pool.Version
	}
	if storedVersion != pool.Version {
		return fmt.Errorf("pool version %d is stale: %w", pool.Version, domain.ErrTxConflict)
	}

	pool.Version++
	encoded := toPoolSchema(pool)
	tx.file.Pool = &encoded
	tx.dirty = true

	return nil
}

func (tx *ledgerTx) Payment(ctx context.Context, id domain.TransactionID) (domain.PaymentRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentRecord{}, false, err
	}

	for _, entry := range tx.file.Payments {
		if entry.TransactionID == string(id) {
			return fromPaymentSchema(entry), true, nil
		}
	}

	return domain.PaymentRecord{}, false, nil
}

func (tx *ledgerTx) InsertPayment(ctx context.Context, record domain.PaymentRecord) error {
	if err := tx.writable(ctx); err != nil {
		return err
	}

	for _, entry := range tx.file.Payments {
		if entry.TransactionID == string(record.TransactionID) {
			return fmt.Errorf("payment %s already recorded: %w", record.TransactionID, domain.ErrTxConflict)
		}
	}

	tx.file.Payments = append(tx.file.Payments, toPaymentSchema(record))
	tx.dirty = true

	return nil
}

func (tx *ledgerTx) PaymentsForDevice(ctx context.Context, id domain.DeviceID) ([]domain.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]domain.PaymentRecord, 0)
	for _, entry := range tx.file.Payments {
		if entry.DeviceID == string(id) {
			records = append(records, fromPaymentSchema(entry))
		}
	}

	return records, nil
}

func (tx *ledgerTx) writable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx.readOnly {
		return errReadOnly
	}

	return nil
}

func toDeviceSchema(device domain.DeviceAccount) deviceSchema {
	return deviceSchema{
		ID:                   string(device.ID),
		PaidCredits:          device.PaidCredits,
		PaidCreditsPurchased: device.PaidCreditsPurchased,
		PaidCreditsUsed:      device.PaidCreditsUsed,
		FreeCreditsUsed:      device.FreeCreditsUsed,
		LastFreeDate:         device.LastFreeDate,
		Version:              device.Version,
		CreatedAt:            formatTime(device.CreatedAt),
		UpdatedAt:            formatTime(device.UpdatedAt),
	}
}

func fromDeviceSchema(entry deviceSchema) domain.DeviceAccount {
	return domain.DeviceAccount{
		ID:                   domain.DeviceID(entry.ID),
		PaidCredits:          entry.PaidCredits,
		PaidCreditsPurchased: entry.PaidCreditsPurchased,
		PaidCreditsUsed:      entry.PaidCreditsUsed,
		FreeCreditsUsed:      entry.FreeCreditsUsed,
		LastFreeDate:         entry.LastFreeDate,
		Version:              entry.Version,
		CreatedAt:            parseTime(entry.CreatedAt),
		UpdatedAt:            parseTime(entry.UpdatedAt),
	}
}

func toPoolSchema(pool domain.FreePool) poolSchema {
	return poolSchema{
		UsedFreeCount: pool.UsedFreeCount,
		Limit:         pool.Limit,
		Version:       pool.Version,
		UpdatedAt:     formatTime(pool.UpdatedAt),
	}
}

func fromPoolSchema(entry poolSchema) domain.FreePool {
	return domain.FreePool{
		UsedFreeCount: entry.UsedFreeCount,
		Limit:         entry.Limit,
		Version:       entry.Version,
		UpdatedAt:     parseTime(entry.UpdatedAt),
	}
}

func toPaymentSchema(record domain.PaymentRecord) paymentSchema {
	return paymentSchema{
		TransactionID:  string(record.TransactionID),
		DeviceID:       string(record.DeviceID),
		Quantity:       record.Quantity,
		AmountReceived: record.AmountReceived,
		Currency:       record.Currency,
		Source:         string(record.Source),
		CreatedAt:      formatTime(record.CreatedAt),
	}
}

func fromPaymentSchema(entry paymentSchema) domain.PaymentRecord {
	return domain.PaymentRecord{
		TransactionID:  domain.TransactionID(entry.TransactionID),
		DeviceID:       domain.DeviceID(entry.DeviceID),
		Quantity:       entry.Quantity,
		AmountReceived: entry.AmountReceived,
		Currency:       entry.Currency,
		Source:         domain.ReconciliationSource(entry.Source),
		CreatedAt:      parseTime(entry.CreatedAt),
	}
}
