package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/beright/internal/adapters/completion/gemini"
	"github.com/bnema/beright/internal/adapters/evidence/duckduckgo"
	"github.com/bnema/beright/internal/adapters/gateway"
	"github.com/bnema/beright/internal/adapters/payment/stripe"
	creditsrender "github.com/bnema/beright/internal/adapters/render/credits"
	sqliterepo "github.com/bnema/beright/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/beright/internal/adapters/repo/toml"
	secretschain "github.com/bnema/beright/internal/adapters/secrets/chain"
	secretsfile "github.com/bnema/beright/internal/adapters/secrets/file"
	"github.com/bnema/beright/internal/adapters/sessions/memory"
	"github.com/bnema/beright/internal/application"
	"github.com/bnema/beright/internal/config"
	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/logging"
	"github.com/bnema/beright/internal/ports"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	errGeminiNotConfigured = errors.New("gemini.api_key is not configured (set BERIGHT_GEMINI_API_KEY or run: beright secrets set gemini/api_key)")
	errStripeNotConfigured = errors.New("stripe.secret_key is not configured (set BERIGHT_STRIPE_SECRET_KEY or run: beright secrets set stripe/secret_key)")
)

// app holds the components shared by every subcommand. Ledger and sessions
// are always wired; processor and completion clients only when a command
// needs them, since they require credentials.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	ledgerStore  ports.LedgerStore
	ledgerPath   string
	ledger       *application.Ledger
	sessionStore ports.SessionStore
	sessions     *application.SessionManager
	credentials  ports.CredentialStore

	creditsRenderer  func([]domain.CreditSnapshot, creditsrender.RenderOptions) (string, error)
	analysisRenderer func(domain.AnalysisResult) (string, error)

	closers []func() error
}

func (a *app) load(configFile string) error {
	v := viper.New()
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.creditsRenderer = creditsrender.RenderCredits
	a.analysisRenderer = creditsrender.RenderAnalysis

	switch cfg.Ledger.Driver {
	case config.LedgerDriverSQLite:
		path := cfg.Ledger.Path
		if path == "" {
			path, err = defaultSQLitePath()
			if err != nil {
				return err
			}
		}
		store, err := sqliterepo.NewLedgerStore(path)
		if err != nil {
			return fmt.Errorf("wire sqlite ledger: %w", err)
		}
		a.ledgerStore = store
		a.ledgerPath = store.Path()
		a.sessionStore = store.Sessions()
		a.closers = append(a.closers, store.Close)
	default:
		store, err := tomlrepo.NewLedgerStore(v)
		if err != nil {
			return fmt.Errorf("wire toml ledger: %w", err)
		}
		a.ledgerStore = store
		a.ledgerPath = store.Path()
		a.sessionStore = memory.NewStore()
	}

	credentials, err := newCredentialStore(cfg.Credentials)
	if err != nil {
		return err
	}
	a.credentials = credentials

	a.ledger = application.NewLedger(a.ledgerStore, application.LedgerConfig{
		PoolLimit:   cfg.Ledger.PoolLimit,
		Pricing:     cfg.Pricing(),
		Policy:      cfg.Ledger.Policy,
		MaxAttempts: cfg.Ledger.MaxAttempts,
	}, ports.SystemClock{}, logger.Named("ledger"))

	a.sessions = application.NewSessionManager(a.ledger, a.sessionStore, application.SessionConfig{
		TTL:       cfg.Sessions.TTL,
		Revocable: cfg.Sessions.Revocable,
	}, ports.SystemClock{}, logger.Named("sessions"))

	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}

	return errors.Join(errs...)
}

// credential prefers the configured value and falls back to the credential
// store. A credential missing from both resolves to "".
func (a *app) credential(ctx context.Context, configured, name string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	value, err := a.credentials.Get(ctx, name)
	if errors.Is(err, ports.ErrCredentialNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}

	return value, nil
}

func (a *app) reconciler(ctx context.Context) (*application.Reconciler, error) {
	secretKey, err := a.credential(ctx, a.cfg.Stripe.SecretKey, ports.CredentialStripeSecretKey)
	if err != nil {
		return nil, err
	}
	if secretKey == "" {
		return nil, errStripeNotConfigured
	}

	processor, err := stripe.NewProcessor(stripe.Config{
		SecretKey: secretKey,
		BaseURL:   a.cfg.Stripe.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("wire payment processor: %w", err)
	}

	return application.NewReconciler(a.ledger, processor, a.cfg.Payments.MaxQuantity, a.logger.Named("payments")), nil
}

// notifications is nil when no webhook secret is configured; the gateway
// then answers the webhook route with 404.
func (a *app) notifications(ctx context.Context) (ports.PaymentNotifications, error) {
	secret, err := a.credential(ctx, a.cfg.Stripe.WebhookSecret, ports.CredentialStripeWebhookToken)
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, nil
	}

	notifications, err := stripe.NewNotifications(secret)
	if err != nil {
		return nil, fmt.Errorf("wire payment notifications: %w", err)
	}

	return notifications, nil
}

func (a *app) orchestrator(ctx context.Context) (*application.Orchestrator, error) {
	apiKey, err := a.credential(ctx, a.cfg.Gemini.APIKey, ports.CredentialGeminiAPIKey)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, errGeminiNotConfigured
	}

	completer, err := gemini.New(ctx, gemini.Config{
		APIKey:     apiKey,
		Model:      a.cfg.Gemini.Model,
		PaidModel:  a.cfg.Gemini.PaidModel,
		AudioModel: a.cfg.Gemini.AudioModel,
		BaseURL:    a.cfg.Gemini.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("wire completion client: %w", err)
	}

	searchLimit := rate.Inf
	if a.cfg.Pipeline.SearchQPS > 0 {
		searchLimit = rate.Limit(a.cfg.Pipeline.SearchQPS)
	}
	evidence := duckduckgo.New(
		duckduckgo.WithEndpoint(a.cfg.Pipeline.SearchEndpoint),
		duckduckgo.WithMaxChars(a.cfg.Pipeline.MaxPageChars),
		duckduckgo.WithRateLimit(searchLimit, a.cfg.Pipeline.SearchBurst),
	)

	stages := application.NewStages(completer, evidence, evidence, application.PipelineConfig{
		CompletionTimeout: a.cfg.Pipeline.CompletionTimeout,
		EvidenceTimeout:   a.cfg.Pipeline.EvidenceTimeout,
		SearchResults:     a.cfg.Pipeline.SearchResults,
		PagesPerQuery:     a.cfg.Pipeline.PagesPerQuery,
		MaxAudioBytes:     a.cfg.Pipeline.MaxAudioBytes,
	}, a.logger.Named("pipeline"))

	return application.NewOrchestrator(stages, a.logger.Named("orchestrator")), nil
}

func (a *app) gateway(ctx context.Context) (*gateway.Server, error) {
	orchestrator, err := a.orchestrator(ctx)
	if err != nil {
		return nil, err
	}
	reconciler, err := a.reconciler(ctx)
	if err != nil {
		return nil, err
	}
	notifications, err := a.notifications(ctx)
	if err != nil {
		return nil, err
	}

	return gateway.NewServer(gateway.Deps{
		Ledger:        a.ledger,
		Reconciler:    reconciler,
		Sessions:      a.sessions,
		Orchestrator:  orchestrator,
		Notifications: notifications,
	}, gateway.Config{
		Addr:         a.cfg.Server.Addr,
		MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
		DeviceRate:   a.cfg.Server.DeviceRate,
		DeviceBurst:  a.cfg.Server.DeviceBurst,

		MaxTrackedDevices: a.cfg.Server.MaxTrackedDevices,
	}, a.logger.Named("gateway")), nil
}

func newCredentialStore(cfg config.CredentialsConfig) (ports.CredentialStore, error) {
	dir := cfg.Dir
	if dir == "" {
		var err error
		dir, err = stateDir("credentials")
		if err != nil {
			return nil, err
		}
	}

	if cfg.Backend == config.CredentialsBackendFile {
		return secretsfile.NewStore(dir), nil
	}

	store, err := secretschain.NewPassFirstWithFileFallback(cfg.PassPrefix, dir)
	if err != nil {
		return nil, fmt.Errorf("wire credential store: %w", err)
	}

	return store, nil
}

func defaultSQLitePath() (string, error) {
	return stateDir("ledger.db")
}

func stateDir(name string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, ".beright", name), nil
}
