package application

import (
	"context"
	"errors"
	"strings"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
)

type extractionReply domain.Extraction

func (r extractionReply) validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return errors.New("extraction lacks a topic")
	}
	if strings.TrimSpace(r.ViewpointA) == "" || strings.TrimSpace(r.ViewpointB) == "" {
		return errors.New("extraction lacks a viewpoint")
	}

	return nil
}

func (s *Stages) MaxAudioBytes() int {
	return s.cfg.MaxAudioBytes
}

// TranscribeAndExtract sends a recorded conversation to the completer and
// returns the topic and the two positions it contains.
func (s *Stages) TranscribeAndExtract(ctx context.Context, clip domain.AudioClip, mode domain.Mode) (domain.Extraction, error) {
	if err := clip.Validate(s.cfg.MaxAudioBytes); err != nil {
		return domain.Extraction{}, err
	}

	prompt, err := renderPrompt(domain.StageTranscribe, nil)
	if err != nil {
		return domain.Extraction{}, err
	}

	var reply extractionReply
	req := ports.CompletionRequest{Action: domain.StageTranscribe, Prompt: prompt, Mode: mode, Audio: &clip}
	if err := s.complete(ctx, req, &reply); err != nil {
		return domain.Extraction{}, err
	}

	out := domain.Extraction(reply)
	out.Confidence = domain.ParseConfidence(string(reply.Confidence))

	return out, nil
}
