package domain

import (
	"fmt"
	"strings"
	"time"
)

type Mode string

const (
	ModeFree Mode = "free"
	ModePaid Mode = "paid"
)

// QuotaPolicy decides whether the daily free grant or a paid credit is spent first.
type QuotaPolicy string

const (
	PolicyFreeFirst QuotaPolicy = "free_first"
	PolicyPaidFirst QuotaPolicy = "paid_first"
)

func ParseQuotaPolicy(raw string) (QuotaPolicy, error) {
	switch QuotaPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyFreeFirst:
		return PolicyFreeFirst, nil
	case PolicyPaidFirst:
		return PolicyPaidFirst, nil
	default:
		return "", fmt.Errorf("unsupported quota policy %q", raw)
	}
}

// Pricing is the price of one credit in minor currency units.
type Pricing struct {
	UnitPrice int64
	Currency  string
}

func (p Pricing) Validate() error {
	if p.UnitPrice <= 0 {
		return fmt.Errorf("unit price must be positive")
	}
	if len(strings.TrimSpace(p.Currency)) != 3 {
		return fmt.Errorf("currency must be a three-letter code")
	}

	return nil
}

func (p Pricing) AmountFor(quantity int64) int64 {
	return quantity * p.UnitPrice
}

func (p Pricing) SameCurrency(currency string) bool {
	return strings.EqualFold(strings.TrimSpace(currency), strings.TrimSpace(p.Currency))
}

type CreditSnapshot struct {
	DeviceID             DeviceID
	PaidCredits          int64
	PaidCreditsPurchased int64
	PaidCreditsUsed      int64
	FreeCreditsUsed      int64
	FreeAvailableToday   bool
	FreePoolRemaining    int64
	UnitPrice            int64
	Currency             string
}

func NewCreditSnapshot(device DeviceAccount, pool FreePool, pricing Pricing, now time.Time) CreditSnapshot {
	remaining := pool.Remaining()

	return CreditSnapshot{
		DeviceID:             device.ID,
		PaidCredits:          device.PaidCredits,
		PaidCreditsPurchased: device.PaidCreditsPurchased,
		PaidCreditsUsed:      device.PaidCreditsUsed,
		FreeCreditsUsed:      device.FreeCreditsUsed,
		FreeAvailableToday:   !device.UsedFreeOn(now) && remaining > 0,
		FreePoolRemaining:    remaining,
		UnitPrice:            pricing.UnitPrice,
		Currency:             pricing.Currency,
	}
}

// Consume spends one unit of entitlement from device and pool according to policy.
// Nothing is mutated when ErrNoCredits is returned.
func Consume(policy QuotaPolicy, device *DeviceAccount, pool *FreePool, now time.Time) (Mode, error) {
	freeAvailable := !device.UsedFreeOn(now) && pool.Remaining() > 0
	paidAvailable := device.PaidCredits > 0

	order := []Mode{ModeFree, ModePaid}
	if policy == PolicyPaidFirst {
		order = []Mode{ModePaid, ModeFree}
	}

	for _, mode := range order {
		switch {
		case mode == ModeFree && freeAvailable:
			device.grantFree(now)
			pool.take(now)
			return ModeFree, nil
		case mode == ModePaid && paidAvailable:
			device.spendPaid(now)
			return ModePaid, nil
		}
	}

	return "", ErrNoCredits
}

// Credit applies a validated purchase to the device balance.
func Credit(device *DeviceAccount, quantity int64, now time.Time) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	device.addPaid(quantity, now)

	return nil
}
