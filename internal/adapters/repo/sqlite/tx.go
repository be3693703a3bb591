package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
)

var errReadOnly = errors.New("write in read-only ledger transaction")

type ledgerTx struct {
	tx       *sql.Tx
	readOnly bool
}

var _ ports.LedgerTx = (*ledgerTx)(nil)

func (t *ledgerTx) Device(ctx context.Context, id domain.DeviceID) (domain.DeviceAccount, bool, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, paid_credits, paid_credits_purchased, paid_credits_used, free_credits_used,
			last_free_date, version, created_at, updated_at
		FROM devices WHERE id = ?`, string(id))

	var (
		device               domain.DeviceAccount
		rawID                string
		createdAt, updatedAt string
	)
	err := row.Scan(&rawID, &device.PaidCredits, &device.PaidCreditsPurchased, &device.PaidCreditsUsed,
		&device.FreeCreditsUsed, &device.LastFreeDate, &device.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DeviceAccount{}, false, nil
	}
	if err != nil {
		return domain.DeviceAccount{}, false, classify("select device", err)
	}

	device.ID = domain.DeviceID(rawID)
	device.CreatedAt = parseTime(createdAt)
	device.UpdatedAt = parseTime(updatedAt)

	return device, true, nil
}

func (t *ledgerTx) PutDevice(ctx context.Context, device domain.DeviceAccount) error {
	if t.readOnly {
		return errReadOnly
	}

	var (
		result sql.Result
		err    error
	)
	if device.Version == 0 {
		result, err = t.tx.ExecContext(ctx, `
			INSERT INTO devices (id, paid_credits, paid_credits_purchased, paid_credits_used, free_credits_used,
				last_free_date, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			string(device.ID), device.PaidCredits, device.PaidCreditsPurchased, device.PaidCreditsUsed,
			device.FreeCreditsUsed, device.LastFreeDate, formatTime(device.CreatedAt), formatTime(device.UpdatedAt))
	} else {
		result, err = t.tx.ExecContext(ctx, `
			UPDATE devices SET paid_credits = ?, paid_credits_purchased = ?, paid_credits_used = ?,
				free_credits_used = ?, last_free_date = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?`,
			device.PaidCredits, device.PaidCreditsPurchased, device.PaidCreditsUsed, device.FreeCreditsUsed,
			device.LastFreeDate, formatTime(device.UpdatedAt), string(device.ID), device.Version)
	}
	if err != nil {
		return classify("write device", err)
	}

	return expectOneRow(result, fmt.Sprintf("device %s version %d", device.ID, device.Version))
}

func (t *ledgerTx) Pool(ctx context.Context) (domain.FreePool, bool, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT used_free_count, pool_limit, version, updated_at FROM free_pool WHERE id = 1`)

	var (
		pool      domain.FreePool
		updatedAt string
	)
	err := row.Scan(&pool.UsedFreeCount, &pool.Limit, &pool.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FreePool{}, false, nil
	}
	if err != nil {
		return domain.FreePool{}, false, classify("select pool", err)
	}
	pool.UpdatedAt = parseTime(updatedAt)

	return pool, true, nil
}

func (t *ledgerTx) PutPool(ctx context.Context, pool domain.FreePool) error {
	if t.readOnly {
		return errReadOnly
	}
	if err := pool.Validate(); err != nil {
		return fmt.Errorf("put pool: %w", err)
	}

	var (
		result sql.Result
		err    error
	)
	if pool.Version == 0 {
		result, err = t.tx.ExecContext(ctx, `
			INSERT INTO free_pool (id, used_free_count, pool_limit, version, updated_at)
			VALUES (1, ?, ?, 1, ?)
			ON CONFLICT(id) DO NOTHING`,
			pool.UsedFreeCount, pool.Limit, formatTime(pool.UpdatedAt))
	} else {
		result, err = t.tx.ExecContext(ctx, `
			UPDATE free_pool SET used_free_count = ?, pool_limit = ?, updated_at = ?, version = version + 1
			WHERE id = 1 AND version = ?`,
			pool.UsedFreeCount, pool.Limit, formatTime(pool.UpdatedAt), pool.Version)
	}
	if err != nil {
		return classify("write pool", err)
	}

	return expectOneRow(result, fmt.Sprintf("pool version %d", pool.Version))
}

func (t *ledgerTx) Payment(ctx context.Context, id domain.TransactionID) (domain.PaymentRecord, bool, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT transaction_id, device_id, quantity, amount_received, currency, source, created_at
		FROM payments WHERE transaction_id = ?`, string(id))

	record, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PaymentRecord{}, false, nil
	}
	if err != nil {
		return domain.PaymentRecord{}, false, classify("select payment", err)
	}

	return record, true, nil
}

func (t *ledgerTx) InsertPayment(ctx context.Context, record domain.PaymentRecord) error {
	if t.readOnly {
		return errReadOnly
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO payments (transaction_id, device_id, quantity, amount_received, currency, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO NOTHING`,
		string(record.TransactionID), string(record.DeviceID), record.Quantity, record.AmountReceived,
		record.Currency, string(record.Source), formatTime(record.CreatedAt))
	if err != nil {
		return classify("insert payment", err)
	}

	return expectOneRow(result, fmt.Sprintf("payment %s", record.TransactionID))
}

func (t *ledgerTx) PaymentsForDevice(ctx context.Context, id domain.DeviceID) ([]domain.PaymentRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT transaction_id, device_id, quantity, amount_received, currency, source, created_at
		FROM payments WHERE device_id = ? ORDER BY created_at, transaction_id`, string(id))
	if err != nil {
		return nil, classify("list payments", err)
	}
	defer rows.Close()

	records := make([]domain.PaymentRecord, 0)
	for rows.Next() {
		record, err := scanPayment(rows)
		if err != nil {
			return nil, classify("scan payment", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list payments", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (domain.PaymentRecord, error) {
	var (
		record                          domain.PaymentRecord
		transactionID, deviceID, source string
		createdAt                       string
	)
	if err := row.Scan(&transactionID, &deviceID, &record.Quantity, &record.AmountReceived,
		&record.Currency, &source, &createdAt); err != nil {
		return domain.PaymentRecord{}, err
	}

	record.TransactionID = domain.TransactionID(transactionID)
	record.DeviceID = domain.DeviceID(deviceID)
	record.Source = domain.ReconciliationSource(source)
	record.CreatedAt = parseTime(createdAt)

	return record, nil
}

func expectOneRow(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", what, err)
	}
	if affected != 1 {
		return fmt.Errorf("%s is stale: %w", what, domain.ErrTxConflict)
	}

	return nil
}
