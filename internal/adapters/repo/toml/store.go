package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"github.com/gofrs/flock"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	ledgerPathKey    = "ledger.path"
	ledgerFileMode   = 0o600
	ledgerDirMode    = 0o700
	ledgerConfigDir  = ".beright"
	ledgerConfigFile = "ledger.toml"
	tempFilePattern  = ".ledger-*.toml.tmp"
	lockFileSuffix   = ".lock"
	lockRetryDelay   = 5 * time.Millisecond
)

var errReadOnly = errors.New("write in read-only ledger transaction")

// LedgerStore keeps the whole ledger in one TOML file. Transactions work on
// an in-memory copy and commit with a compare-and-swap on the file revision.
// The commit holds an exclusive lock on <path>.lock, so processes sharing
// the file (serve and the CLI) never overwrite each other's revision.
type LedgerStore struct {
	path     string
	mu       *sync.RWMutex
	fileLock *flock.Flock
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.LedgerStore = (*LedgerStore)(nil)

func NewLedgerStore(cfg *viper.Viper) (*LedgerStore, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(ledgerPathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, ledgerConfigDir, ledgerConfigFile)
	}

	path, err := normalizeLedgerPath(path)
	if err != nil {
		return nil, err
	}

	return newLedgerStore(path, lockForPath(path)), nil
}

func newLedgerStore(path string, mu *sync.RWMutex) *LedgerStore {
	return &LedgerStore{path: path, mu: mu, fileLock: flock.New(path + lockFileSuffix)}
}

func (s *LedgerStore) Path() string {
	return s.path
}

func (s *LedgerStore) View(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	file, err := s.readSchema()
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	return fn(newLedgerTx(file, true))
}

func (s *LedgerStore) Transact(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	file, err := s.readSchema()
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	tx := newLedgerTx(file, false)
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.readSchema()
	if err != nil {
		return err
	}
	if current.Revision != file.Revision {
		return fmt.Errorf("ledger revision moved from %d to %d: %w", file.Revision, current.Revision, domain.ErrTxConflict)
	}

	next := tx.file
	next.Revision = current.Revision + 1

	return s.writeSchema(next)
}

func (s *LedgerStore) lockFile(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), ledgerDirMode); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock ledger file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock ledger file: %w", ctx.Err())
	}

	return func() { _ = s.fileLock.Unlock() }, nil
}

func (s *LedgerStore) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := fileSchema{}
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read ledger file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode ledger file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (s *LedgerStore) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.path), ledgerDirMode); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode ledger file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp ledger file: %w", err)
	}

	if err := tempFile.Chmod(ledgerFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp ledger file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp ledger file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp ledger file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}

	cleanup = false

	return nil
}

func normalizeLedgerPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve ledger path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
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

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
