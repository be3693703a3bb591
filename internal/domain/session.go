package domain

import "time"

const DefaultSessionTTL = 10 * time.Minute

type SessionToken string

type ConversationSession struct {
	Token     SessionToken
	DeviceID  DeviceID
	Mode      Mode
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s ConversationSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ValidFor reports whether the session can be presented by device at now.
func (s ConversationSession) ValidFor(device DeviceID, now time.Time) bool {
	return s.Token != "" && s.DeviceID == device && !s.Expired(now)
}
