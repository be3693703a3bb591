package ports

import (
	"context"

	"github.com/bnema/beright/internal/domain"
)

type CompletionRequest struct {
	Action domain.Stage
	Prompt string
	// Mode selects the model tier. Empty means free.
	Mode domain.Mode
	// Audio, when set, is sent inline alongside the prompt.
	Audio *domain.AudioClip
}

// Completer returns the raw model text for a prompt. The text is expected to
// contain one JSON object, possibly wrapped in formatting noise.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
