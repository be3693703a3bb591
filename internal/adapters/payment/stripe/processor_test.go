package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const intentJSON = `{
  "id": "pi_123",
  "object": "payment_intent",
  "amount": 100,
  "amount_received": 100,
  "currency": "eur",
  "status": "succeeded",
  "client_secret": "pi_123_secret_abc",
  "metadata": {"device_id": "dev-1", "quantity": "5"}
}`

func newTestProcessor(t *testing.T, handler http.HandlerFunc) *Processor {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	processor, err := NewProcessor(Config{SecretKey: "sk_test_123", BaseURL: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	return processor
}

func TestCreateIntentSendsAmountAndMetadata(t *testing.T) {
	t.Parallel()

	processor := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "100", r.PostForm.Get("amount"))
		assert.Equal(t, "eur", r.PostForm.Get("currency"))
		assert.Equal(t, "dev-1", r.PostForm.Get("metadata[device_id]"))
		assert.Equal(t, "5", r.PostForm.Get("metadata[quantity]"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","amount":100,"currency":"eur","status":"requires_payment_method","client_secret":"pi_123_secret_abc","metadata":{"device_id":"dev-1","quantity":"5"}}`))
	})

	intent, err := processor.CreateIntent(context.Background(), ports.IntentRequest{DeviceID: "dev-1", Quantity: 5, Amount: 100, Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentIntent{
		ID:           "pi_123",
		Status:       domain.IntentPending,
		ClientSecret: "pi_123_secret_abc",
		Amount:       100,
		Currency:     "eur",
		DeviceID:     "dev-1",
		Quantity:     5,
	}, intent)
}

func TestRetrieveIntentMapsProcessorRecord(t *testing.T) {
	t.Parallel()

	processor := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(intentJSON))
	})

	intent, err := processor.RetrieveIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, intent.Status)
	assert.Equal(t, int64(100), intent.AmountReceived)
	assert.Equal(t, domain.DeviceID("dev-1"), intent.DeviceID)
	assert.Equal(t, int64(5), intent.Quantity)
}

func TestRetrieveIntentNotFound(t *testing.T) {
	t.Parallel()

	processor := newTestProcessor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent: 'pi_x'"}}`))
	})

	_, err := processor.RetrieveIntent(context.Background(), "pi_x")
	require.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestProcessorFailuresAreUpstream(t *testing.T) {
	t.Parallel()

	processor := newTestProcessor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","code":"rate_limit","message":"Too many requests"}}`))
	})

	_, err := processor.RetrieveIntent(context.Background(), "pi_1")
	require.ErrorIs(t, err, domain.ErrUpstream)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, domain.UpstreamRateLimited, upstream.Kind)
}

func TestMissingQuantityMetadataMapsToZero(t *testing.T) {
	t.Parallel()

	processor := newTestProcessor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_9","object":"payment_intent","amount":20,"amount_received":20,"currency":"eur","status":"succeeded","metadata":{"device_id":"dev-1"}}`))
	})

	intent, err := processor.RetrieveIntent(context.Background(), "pi_9")
	require.NoError(t, err)
	assert.Zero(t, intent.Quantity)
}

func TestNewProcessorRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewProcessor(Config{})
	require.Error(t, err)
}
