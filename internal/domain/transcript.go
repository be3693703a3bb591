package domain

import (
	"fmt"
	"strings"
)

// DefaultMaxAudioBytes bounds one recorded conversation.
const DefaultMaxAudioBytes = 8 << 20

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence normalizes a model-reported confidence; anything unknown
// counts as low.
func ParseConfidence(raw string) Confidence {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(raw))); c {
	case ConfidenceHigh, ConfidenceMedium:
		return c
	default:
		return ConfidenceLow
	}
}

// AudioClip is a recorded conversation as sent by the client.
type AudioClip struct {
	Data     []byte
	MIMEType string
}

func (a AudioClip) Validate(maxBytes int) error {
	if len(a.Data) == 0 {
		return fmt.Errorf("%w: audio data is required", ErrInvalidRequest)
	}
	if maxBytes > 0 && len(a.Data) > maxBytes {
		return fmt.Errorf("%w: audio is %d bytes, limit is %d", ErrInvalidRequest, len(a.Data), maxBytes)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.MIMEType)), "audio/") {
		return fmt.Errorf("%w: unsupported audio mime type %q", ErrInvalidRequest, a.MIMEType)
	}

	return nil
}

// Extraction is the debate recovered from a recorded conversation.
type Extraction struct {
	Topic      string     `json:"topic"`
	ViewpointA string     `json:"viewpointA"`
	ViewpointB string     `json:"viewpointB"`
	Transcript string     `json:"transcript"`
	Confidence Confidence `json:"confidence"`
}

// Debate turns the extraction into pipeline input.
func (e Extraction) Debate() Debate {
	return Debate{
		Topic:    strings.TrimSpace(e.Topic),
		OpinionA: strings.TrimSpace(e.ViewpointA),
		OpinionB: strings.TrimSpace(e.ViewpointB),
	}
}
