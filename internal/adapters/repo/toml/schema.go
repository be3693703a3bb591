package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Revision int64           `toml:"revision"`
	Pool     *poolSchema     `toml:"pool,omitempty"`
	Devices  []deviceSchema  `toml:"devices"`
	Payments []paymentSchema `toml:"payments"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported ledger schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type poolSchema struct {
	UsedFreeCount int64  `toml:"used_free_count"`
	Limit         int64  `toml:"limit"`
	Version       int64  `toml:"version"`
	UpdatedAt     string `toml:"updated_at"`
}

type deviceSchema struct {
	ID                   string `toml:"id"`
	PaidCredits          int64  `toml:"paid_credits"`
	PaidCreditsPurchased int64  `toml:"paid_credits_purchased"`
	PaidCreditsUsed      int64  `toml:"paid_credits_used"`
	FreeCreditsUsed      int64  `toml:"free_credits_used"`
	LastFreeDate         string `toml:"last_free_date,omitempty"`
	Version              int64  `toml:"version"`
	CreatedAt            string `toml:"created_at"`
	UpdatedAt            string `toml:"updated_at"`
}

type paymentSchema struct {
	TransactionID  string `toml:"transaction_id"`
	DeviceID       string `toml:"device_id"`
	Quantity       int64  `toml:"quantity"`
	AmountReceived int64  `toml:"amount_received"`
	Currency       string `toml:"currency"`
	Source         string `toml:"source"`
	CreatedAt      string `toml:"created_at"`
}
