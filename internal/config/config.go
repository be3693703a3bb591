package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "BERIGHT"
	configDir  = ".beright"
	configFile = "config.toml"

	LedgerDriverTOML   = "toml"
	LedgerDriverSQLite = "sqlite"

	CredentialsBackendChain = "chain"
	CredentialsBackendFile  = "file"
)

type Config struct {
	Server      ServerConfig
	Ledger      LedgerConfig
	Sessions    SessionsConfig
	Pipeline    PipelineConfig
	Payments    PaymentsConfig
	Gemini      GeminiConfig
	Stripe      StripeConfig
	Credentials CredentialsConfig
	Log         LogConfig
}

type ServerConfig struct {
	Addr         string
	MaxBodyBytes int64
	DeviceRate   float64
	DeviceBurst  int
	// MaxTrackedDevices caps the per-device rate limit buckets held in memory.
	MaxTrackedDevices int
}

type LedgerConfig struct {
	Driver      string
	Path        string
	PoolLimit   int64
	UnitPrice   int64
	Currency    string
	Policy      domain.QuotaPolicy
	MaxAttempts int
}

type SessionsConfig struct {
	TTL           time.Duration
	Revocable     bool
	PruneInterval time.Duration
}

type PipelineConfig struct {
	CompletionTimeout time.Duration
	EvidenceTimeout   time.Duration
	SearchResults     int
	PagesPerQuery     int
	SearchQPS         float64
	SearchBurst       int
	SearchEndpoint    string
	MaxPageChars      int
	MaxAudioBytes     int
}

type PaymentsConfig struct {
	MaxQuantity int64
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	PaidModel  string
	AudioModel string
	BaseURL    string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
}

// CredentialsConfig locates provider keys that are not set in the config
// file or environment.
type CredentialsConfig struct {
	Backend    string
	PassPrefix string
	Dir        string
}

type LogConfig struct {
	Level  string
	Format string
}

// SetDefaults registers every known key so environment overrides apply
// even when no config file exists.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.max_body_bytes", int64(12<<20))
	v.SetDefault("server.device_rate", 2.0)
	v.SetDefault("server.device_burst", 20)
	v.SetDefault("server.max_tracked_devices", 10000)

	v.SetDefault("ledger.driver", LedgerDriverTOML)
	v.SetDefault("ledger.path", "")
	v.SetDefault("ledger.pool_limit", domain.DefaultPoolLimit)
	v.SetDefault("ledger.unit_price", int64(20))
	v.SetDefault("ledger.currency", "eur")
	v.SetDefault("ledger.policy", string(domain.PolicyFreeFirst))
	v.SetDefault("ledger.max_attempts", 8)

	v.SetDefault("sessions.ttl", domain.DefaultSessionTTL)
	v.SetDefault("sessions.revocable", false)
	v.SetDefault("sessions.prune_interval", time.Minute)

	v.SetDefault("pipeline.completion_timeout", 45*time.Second)
	v.SetDefault("pipeline.evidence_timeout", 12*time.Second)
	v.SetDefault("pipeline.search_results", 3)
	v.SetDefault("pipeline.pages_per_query", 2)
	v.SetDefault("pipeline.search_qps", 1.0)
	v.SetDefault("pipeline.search_burst", 2)
	v.SetDefault("pipeline.search_endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("pipeline.max_page_chars", 2000)
	v.SetDefault("pipeline.max_audio_bytes", domain.DefaultMaxAudioBytes)

	v.SetDefault("payments.max_quantity", int64(50))

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash-lite")
	v.SetDefault("gemini.paid_model", "gemini-2.5-flash")
	v.SetDefault("gemini.audio_model", "gemini-2.5-flash")
	v.SetDefault("gemini.base_url", "")

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.base_url", "")

	v.SetDefault("credentials.backend", CredentialsBackendChain)
	v.SetDefault("credentials.pass_prefix", "beright")
	v.SetDefault("credentials.dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the config file into v and decodes it. An explicit file must
// exist; the default $HOME/.beright/config.toml is optional.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("toml")

	explicit := file != ""
	if !explicit {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		file = filepath.Join(homeDir, configDir, configFile)
	}
	v.SetConfigFile(file)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	policy, err := domain.ParseQuotaPolicy(v.GetString("ledger.policy"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			MaxBodyBytes: v.GetInt64("server.max_body_bytes"),
			DeviceRate:   v.GetFloat64("server.device_rate"),
			DeviceBurst:  v.GetInt("server.device_burst"),

			MaxTrackedDevices: v.GetInt("server.max_tracked_devices"),
		},
		Ledger: LedgerConfig{
			Driver:      strings.ToLower(strings.TrimSpace(v.GetString("ledger.driver"))),
			Path:        v.GetString("ledger.path"),
			PoolLimit:   v.GetInt64("ledger.pool_limit"),
			UnitPrice:   v.GetInt64("ledger.unit_price"),
			Currency:    strings.ToLower(strings.TrimSpace(v.GetString("ledger.currency"))),
			Policy:      policy,
			MaxAttempts: v.GetInt("ledger.max_attempts"),
		},
		Sessions: SessionsConfig{
			TTL:           v.GetDuration("sessions.ttl"),
			Revocable:     v.GetBool("sessions.revocable"),
			PruneInterval: v.GetDuration("sessions.prune_interval"),
		},
		Pipeline: PipelineConfig{
			CompletionTimeout: v.GetDuration("pipeline.completion_timeout"),
			EvidenceTimeout:   v.GetDuration("pipeline.evidence_timeout"),
			SearchResults:     v.GetInt("pipeline.search_results"),
			PagesPerQuery:     v.GetInt("pipeline.pages_per_query"),
			SearchQPS:         v.GetFloat64("pipeline.search_qps"),
			SearchBurst:       v.GetInt("pipeline.search_burst"),
			SearchEndpoint:    v.GetString("pipeline.search_endpoint"),
			MaxPageChars:      v.GetInt("pipeline.max_page_chars"),
			MaxAudioBytes:     v.GetInt("pipeline.max_audio_bytes"),
		},
		Payments: PaymentsConfig{
			MaxQuantity: v.GetInt64("payments.max_quantity"),
		},
		Gemini: GeminiConfig{
			APIKey:     v.GetString("gemini.api_key"),
			Model:      v.GetString("gemini.model"),
			PaidModel:  v.GetString("gemini.paid_model"),
			AudioModel: v.GetString("gemini.audio_model"),
			BaseURL:    v.GetString("gemini.base_url"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("stripe.secret_key"),
			WebhookSecret: v.GetString("stripe.webhook_secret"),
			BaseURL:       v.GetString("stripe.base_url"),
		},
		Credentials: CredentialsConfig{
			Backend:    strings.ToLower(strings.TrimSpace(v.GetString("credentials.backend"))),
			PassPrefix: v.GetString("credentials.pass_prefix"),
			Dir:        v.GetString("credentials.dir"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Ledger.Driver {
	case LedgerDriverTOML, LedgerDriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("ledger.driver %q is not one of toml, sqlite", c.Ledger.Driver))
	}
	if c.Ledger.PoolLimit < 0 {
		errs = append(errs, errors.New("ledger.pool_limit must not be negative"))
	}
	if c.Ledger.UnitPrice <= 0 {
		errs = append(errs, errors.New("ledger.unit_price must be positive"))
	}
	if c.Ledger.Currency == "" {
		errs = append(errs, errors.New("ledger.currency is required"))
	}
	if c.Payments.MaxQuantity <= 0 {
		errs = append(errs, errors.New("payments.max_quantity must be positive"))
	}
	if c.Sessions.TTL <= 0 {
		errs = append(errs, errors.New("sessions.ttl must be positive"))
	}
	if c.Server.DeviceRate < 0 || c.Server.DeviceBurst < 0 {
		errs = append(errs, errors.New("server.device_rate and server.device_burst must not be negative"))
	}
	if c.Server.MaxTrackedDevices < 0 {
		errs = append(errs, errors.New("server.max_tracked_devices must not be negative"))
	}
	if c.Pipeline.SearchBurst < 0 {
		errs = append(errs, errors.New("pipeline.search_burst must not be negative"))
	}
	switch c.Credentials.Backend {
	case CredentialsBackendChain, CredentialsBackendFile:
	default:
		errs = append(errs, fmt.Errorf("credentials.backend %q is not one of chain, file", c.Credentials.Backend))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of console, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

func (c Config) Pricing() domain.Pricing {
	return domain.Pricing{UnitPrice: c.Ledger.UnitPrice, Currency: c.Ledger.Currency}
}
