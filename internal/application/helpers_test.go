package application

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlitestore "github.com/bnema/beright/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/beright/internal/adapters/repo/toml"
	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testPricing = domain.Pricing{UnitPrice: 20, Currency: "eur"}

func newTOMLStore(t *testing.T) ports.LedgerStore {
	t.Helper()

	config := viper.New()
	config.Set("ledger.path", filepath.Join(t.TempDir(), "ledger.toml"))
	store, err := tomlrepo.NewLedgerStore(config)
	require.NoError(t, err)

	return store
}

func newSQLiteStore(t *testing.T) ports.LedgerStore {
	t.Helper()

	store, err := sqlitestore.NewLedgerStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

var ledgerBackends = []struct {
	name string
	open func(t *testing.T) ports.LedgerStore
}{
	{name: "toml", open: newTOMLStore},
	{name: "sqlite", open: newSQLiteStore},
}

func mockAnyContext() interface{} {
	return mock.Anything
}
