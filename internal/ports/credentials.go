package ports

import (
	"context"
	"errors"
)

var ErrCredentialNotFound = errors.New("credential not found")

// Credential names understood by the CLI.
const (
	CredentialGeminiAPIKey       = "gemini/api_key"
	CredentialStripeSecretKey    = "stripe/secret_key"
	CredentialStripeWebhookToken = "stripe/webhook_secret"
)

// CredentialStore keeps provider credentials out of the config file. Get
// returns an error matching ErrCredentialNotFound when name is unset.
type CredentialStore interface {
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name string, value string) error
	Delete(ctx context.Context, name string) error
}
