package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const memoryPath = ":memory:"

// LedgerStore persists the ledger in SQLite. Write transactions start with
// BEGIN IMMEDIATE so concurrent writers queue on the database lock, and rows
// carry a version that every update compares.
type LedgerStore struct {
	db   *sql.DB
	path string
}

var _ ports.LedgerStore = (*LedgerStore)(nil)

func NewLedgerStore(path string) (*LedgerStore, error) {
	if path == "" {
		return nil, errors.New("sqlite ledger path is empty")
	}

	dsn := "file::memory:?_txlock=immediate"
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
		dsn = "file:" + path + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	if path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize ledger schema: %w", err)
	}

	return &LedgerStore{db: db, path: path}, nil
}

func (s *LedgerStore) Close() error {
	return s.db.Close()
}

func (s *LedgerStore) Path() string {
	return s.path
}

func (s *LedgerStore) View(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return classify("begin ledger view", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(&ledgerTx{tx: tx, readOnly: true})
}

func (s *LedgerStore) Transact(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin ledger transaction", err)
	}

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback ledger transaction: %w", rollbackErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("commit ledger transaction", err)
	}

	return nil
}

// classify maps lock contention to domain.ErrTxConflict so the ledger retries it.
func classify(op string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrTxConflict, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}
