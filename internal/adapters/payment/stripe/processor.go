package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

const (
	metadataDeviceID = "device_id"
	metadataQuantity = "quantity"
	provider         = "stripe"
)

type Config struct {
	SecretKey string
	// BaseURL and HTTPClient override the API backend, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// Processor creates and reads payment intents. The device id and credit
// quantity travel in the intent metadata.
type Processor struct {
	intents *paymentintent.Client
}

var _ ports.PaymentProcessor = (*Processor)(nil)

func NewProcessor(cfg Config) (*Processor, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key is required")
	}

	backend := stripego.GetBackend(stripego.APIBackend)
	if cfg.BaseURL != "" || cfg.HTTPClient != nil {
		backendCfg := &stripego.BackendConfig{
			HTTPClient:        cfg.HTTPClient,
			MaxNetworkRetries: stripego.Int64(0),
			LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelError},
		}
		if cfg.BaseURL != "" {
			backendCfg.URL = stripego.String(cfg.BaseURL)
		}
		backend = stripego.GetBackendWithConfig(stripego.APIBackend, backendCfg)
	}

	return &Processor{intents: &paymentintent.Client{B: backend, Key: cfg.SecretKey}}, nil
}

func (p *Processor) CreateIntent(ctx context.Context, req ports.IntentRequest) (domain.PaymentIntent, error) {
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.Amount),
		Currency: stripego.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataDeviceID, string(req.DeviceID))
	params.AddMetadata(metadataQuantity, strconv.FormatInt(req.Quantity, 10))

	intent, err := p.intents.New(params)
	if err != nil {
		return domain.PaymentIntent{}, classify(err)
	}

	return toDomain(intent), nil
}

func (p *Processor) RetrieveIntent(ctx context.Context, id domain.TransactionID) (domain.PaymentIntent, error) {
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx

	intent, err := p.intents.Get(string(id), params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return domain.PaymentIntent{}, fmt.Errorf("payment intent %s: %w", id, domain.ErrPaymentNotFound)
		}
		return domain.PaymentIntent{}, classify(err)
	}

	return toDomain(intent), nil
}

func toDomain(intent *stripego.PaymentIntent) domain.PaymentIntent {
	quantity, err := strconv.ParseInt(intent.Metadata[metadataQuantity], 10, 64)
	if err != nil {
		quantity = 0
	}

	return domain.PaymentIntent{
		ID:             domain.TransactionID(intent.ID),
		Status:         domain.IntentStatus(intent.Status),
		ClientSecret:   intent.ClientSecret,
		Amount:         intent.Amount,
		AmountReceived: intent.AmountReceived,
		Currency:       string(intent.Currency),
		DeviceID:       domain.DeviceID(intent.Metadata[metadataDeviceID]),
		Quantity:       quantity,
	}
}

func classify(err error) error {
	kind := domain.UpstreamTransient
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusTooManyRequests {
		kind = domain.UpstreamRateLimited
	}

	return &domain.UpstreamError{Provider: provider, Kind: kind, Err: err}
}
