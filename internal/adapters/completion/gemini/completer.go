package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"google.golang.org/genai"
)

const (
	DefaultModel      = "gemini-2.5-flash-lite"
	DefaultAudioModel = "gemini-2.5-flash"
	provider          = "gemini"

	audioTemperature = 0.3
)

type Config struct {
	APIKey string
	// Model serves free-tier requests. PaidModel serves paid ones and falls
	// back to Model when empty.
	Model      string
	PaidModel  string
	AudioModel string
	// BaseURL and HTTPClient override the Gemini endpoint, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// Completer sends one prompt per call to the Gemini API and returns the
// raw model text.
type Completer struct {
	client     *genai.Client
	model      string
	paidModel  string
	audioModel string
}

func New(ctx context.Context, cfg Config) (*Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	paidModel := strings.TrimSpace(cfg.PaidModel)
	if paidModel == "" {
		paidModel = model
	}
	audioModel := strings.TrimSpace(cfg.AudioModel)
	if audioModel == "" {
		audioModel = DefaultAudioModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Completer{client: client, model: model, paidModel: paidModel, audioModel: audioModel}, nil
}

func (c *Completer) Model() string {
	return c.model
}

// ModelFor reports which model serves req.
func (c *Completer) ModelFor(req ports.CompletionRequest) string {
	switch {
	case req.Audio != nil:
		return c.audioModel
	case req.Mode == domain.ModePaid:
		return c.paidModel
	default:
		return c.model
	}
}

func (c *Completer) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	contents := genai.Text(req.Prompt)
	genCfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if req.Audio != nil {
		contents = []*genai.Content{genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Audio.Data, req.Audio.MIMEType),
			genai.NewPartFromText(req.Prompt),
		}, genai.RoleUser)}
		temperature := float32(audioTemperature)
		genCfg.Temperature = &temperature
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.ModelFor(req), contents, genCfg)
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := "empty response"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return "", &domain.UpstreamError{Provider: provider, Kind: domain.UpstreamMalformed, Err: errors.New(reason)}
	}

	return text, nil
}

func classify(err error) error {
	kind := domain.UpstreamTransient
	if code, ok := statusCode(err); ok && code == http.StatusTooManyRequests {
		kind = domain.UpstreamRateLimited
	}

	return &domain.UpstreamError{Provider: provider, Kind: kind, Err: err}
}

func statusCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}

	return 0, false
}
