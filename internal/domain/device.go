package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format stored in LastFreeDate.
const DateLayout = "2006-01-02"

type DeviceID string

func (id DeviceID) Validate() error {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return ErrMissingDeviceID
	}
	if len(trimmed) > 256 {
		return fmt.Errorf("device id longer than 256 bytes")
	}

	return nil
}

type DeviceAccount struct {
	ID                   DeviceID
	PaidCredits          int64
	PaidCreditsPurchased int64
	PaidCreditsUsed      int64
	FreeCreditsUsed      int64
	LastFreeDate         string
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func NewDeviceAccount(id DeviceID, now time.Time) DeviceAccount {
	return DeviceAccount{ID: id, CreatedAt: now.UTC(), UpdatedAt: now.UTC()}
}

// UsedFreeOn reports whether the free grant was already taken on the UTC day of now.
func (d DeviceAccount) UsedFreeOn(now time.Time) bool {
	return d.LastFreeDate != "" && d.LastFreeDate == Today(now)
}

func (d *DeviceAccount) grantFree(now time.Time) {
	d.FreeCreditsUsed++
	d.LastFreeDate = Today(now)
	d.UpdatedAt = now.UTC()
}

func (d *DeviceAccount) spendPaid(now time.Time) {
	d.PaidCredits--
	d.PaidCreditsUsed++
	d.UpdatedAt = now.UTC()
}

func (d *DeviceAccount) addPaid(quantity int64, now time.Time) {
	d.PaidCredits += quantity
	d.PaidCreditsPurchased += quantity
	d.UpdatedAt = now.UTC()
}

func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}
