package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, LedgerDriverTOML, cfg.Ledger.Driver)
	assert.Equal(t, domain.DefaultPoolLimit, cfg.Ledger.PoolLimit)
	assert.Equal(t, domain.PolicyFreeFirst, cfg.Ledger.Policy)
	assert.Equal(t, domain.Pricing{UnitPrice: 20, Currency: "eur"}, cfg.Pricing())
	assert.Equal(t, 10*time.Minute, cfg.Sessions.TTL)
	assert.False(t, cfg.Sessions.Revocable)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.CompletionTimeout)
	assert.Equal(t, 12*time.Second, cfg.Pipeline.EvidenceTimeout)
	assert.Equal(t, int64(50), cfg.Payments.MaxQuantity)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Gemini.Model)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.PaidModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.AudioModel)
	assert.Equal(t, 2, cfg.Pipeline.SearchBurst)
	assert.Equal(t, domain.DefaultMaxAudioBytes, cfg.Pipeline.MaxAudioBytes)
	assert.Equal(t, int64(12<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 10000, cfg.Server.MaxTrackedDevices)
	assert.Equal(t, CredentialsBackendChain, cfg.Credentials.Backend)
}

func TestLoadReadsFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
[ledger]
driver = "sqlite"
path = "/tmp/ledger.db"
pool_limit = 5
policy = "paid_first"
currency = "USD"

[sessions]
ttl = "2m"
revocable = true
`), 0o600))

	t.Setenv("BERIGHT_GEMINI_API_KEY", "key-from-env")
	t.Setenv("BERIGHT_LEDGER_UNIT_PRICE", "150")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, LedgerDriverSQLite, cfg.Ledger.Driver)
	assert.Equal(t, "/tmp/ledger.db", cfg.Ledger.Path)
	assert.Equal(t, int64(5), cfg.Ledger.PoolLimit)
	assert.Equal(t, domain.PolicyPaidFirst, cfg.Ledger.Policy)
	assert.Equal(t, "usd", cfg.Ledger.Currency)
	assert.Equal(t, int64(150), cfg.Ledger.UnitPrice)
	assert.Equal(t, 2*time.Minute, cfg.Sessions.TTL)
	assert.True(t, cfg.Sessions.Revocable)
	assert.Equal(t, "key-from-env", cfg.Gemini.APIKey)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BERIGHT_LEDGER_POLICY", "lottery")

	_, err := Load(viper.New(), "")
	require.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Ledger:      LedgerConfig{Driver: "postgres", PoolLimit: -1},
		Sessions:    SessionsConfig{TTL: time.Minute},
		Payments:    PaymentsConfig{MaxQuantity: 0},
		Credentials: CredentialsConfig{Backend: "vault"},
		Log:         LogConfig{Format: "xml"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"ledger.driver",
		"ledger.pool_limit",
		"ledger.unit_price",
		"ledger.currency",
		"payments.max_quantity",
		"credentials.backend",
		"log.format",
	} {
		assert.Contains(t, err.Error(), want)
	}
}
