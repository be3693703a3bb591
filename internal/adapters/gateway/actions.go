package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/beright/internal/application"
	"github.com/bnema/beright/internal/domain"
	"github.com/gin-gonic/gin"
)

var errDeviceRateLimited = errors.New("device sent too many requests")

type envelope struct {
	Action       string          `json:"action"`
	Payload      json.RawMessage `json:"payload"`
	DeviceID     string          `json:"deviceId"`
	SessionToken string          `json:"sessionToken"`
}

type actionRequest struct {
	deviceID domain.DeviceID
	token    domain.SessionToken
	payload  json.RawMessage
}

type actionHandler struct {
	anonymous bool
	run       func(ctx context.Context, c *gin.Context, req actionRequest) (any, error)
}

func (s *Server) actionTable() map[string]actionHandler {
	return map[string]actionHandler{
		"ping":                 {anonymous: true, run: s.actionPing},
		"credits":              {run: s.actionCredits},
		"createPaymentIntent":  {run: s.actionCreatePaymentIntent},
		"confirmPaymentIntent": {run: s.actionConfirmPaymentIntent},
		"startConversation":    {run: s.actionStartConversation},
		"endConversation":      {run: s.actionEndConversation},
		"initial":              {run: s.actionInitial},
		"queries":              {run: s.actionQueries},
		"conflict":             {run: s.actionConflict},
		"supportQuery":         {run: s.actionSupportQuery},
		"support":              {run: s.actionSupport},
		"final":                {run: s.actionFinal},
		"transcribeAndExtract": {run: s.actionTranscribeAndExtract},
	}
}

func (s *Server) handleAction(c *gin.Context) {
	var env envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: malformed envelope: %v", domain.ErrInvalidRequest, err))
		return
	}

	handler, ok := s.actions[env.Action]
	if !ok {
		s.abortWithError(c, fmt.Errorf("%w: %q", domain.ErrUnknownAction, env.Action))
		return
	}

	req := actionRequest{
		deviceID: resolveDeviceID(c, env.DeviceID),
		token:    resolveSessionToken(c, env.SessionToken),
		payload:  env.Payload,
	}
	if !handler.anonymous {
		if err := req.deviceID.Validate(); err != nil {
			s.abortWithError(c, err)
			return
		}
		if !s.limiter.Allow(req.deviceID) {
			s.abortWithError(c, errDeviceRateLimited)
			return
		}
	}

	result, err := handler.run(c.Request.Context(), c, req)
	if err != nil {
		s.abortWithError(c, fmt.Errorf("action %s: %w", env.Action, err))
		return
	}

	c.JSON(http.StatusOK, result)
}

func resolveDeviceID(c *gin.Context, fromBody string) domain.DeviceID {
	if header := strings.TrimSpace(c.GetHeader(headerDeviceID)); header != "" {
		return domain.DeviceID(header)
	}

	return domain.DeviceID(strings.TrimSpace(fromBody))
}

func resolveSessionToken(c *gin.Context, fromBody string) domain.SessionToken {
	if header := strings.TrimSpace(c.GetHeader(headerSessionToken)); header != "" {
		return domain.SessionToken(header)
	}

	return domain.SessionToken(strings.TrimSpace(fromBody))
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", domain.ErrInvalidRequest, err)
	}

	return nil
}

type creditsView struct {
	DeviceID             string `json:"deviceId"`
	PaidCredits          int64  `json:"paidCredits"`
	PaidCreditsPurchased int64  `json:"paidCreditsPurchased"`
	PaidCreditsUsed      int64  `json:"paidCreditsUsed"`
	FreeCreditsUsed      int64  `json:"freeCreditsUsed"`
	FreeAvailableToday   bool   `json:"freeAvailableToday"`
	FreePoolRemaining    int64  `json:"freePoolRemaining"`
	UnitPrice            int64  `json:"unitPrice"`
	Currency             string `json:"currency"`
}

func newCreditsView(snapshot domain.CreditSnapshot) creditsView {
	return creditsView{
		DeviceID:             string(snapshot.DeviceID),
		PaidCredits:          snapshot.PaidCredits,
		PaidCreditsPurchased: snapshot.PaidCreditsPurchased,
		PaidCreditsUsed:      snapshot.PaidCreditsUsed,
		FreeCreditsUsed:      snapshot.FreeCreditsUsed,
		FreeAvailableToday:   snapshot.FreeAvailableToday,
		FreePoolRemaining:    snapshot.FreePoolRemaining,
		UnitPrice:            snapshot.UnitPrice,
		Currency:             snapshot.Currency,
	}
}

type sessionView struct {
	Token     string    `json:"token"`
	Mode      string    `json:"mode"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newSessionView(session domain.ConversationSession) sessionView {
	return sessionView{Token: string(session.Token), Mode: string(session.Mode), ExpiresAt: session.ExpiresAt}
}

type stageResponse struct {
	Result  any         `json:"result"`
	Session sessionView `json:"session"`
	Charged bool        `json:"charged"`
}

func (s *Server) actionPing(context.Context, *gin.Context, actionRequest) (any, error) {
	return gin.H{"status": "ok", "time": time.Now().UTC()}, nil
}

func (s *Server) actionCredits(ctx context.Context, _ *gin.Context, req actionRequest) (any, error) {
	snapshot, err := s.deps.Ledger.Snapshot(ctx, req.deviceID)
	if err != nil {
		return nil, err
	}

	return newCreditsView(snapshot), nil
}

func (s *Server) actionCreatePaymentIntent(ctx context.Context, _ *gin.Context, req actionRequest) (any, error) {
	var payload struct {
		Quantity int64 `json:"quantity"`
	}
	if err := decodePayload(req.payload, &payload); err != nil {
		return nil, err
	}

	intent, err := s.deps.Reconciler.CreateIntent(ctx, req.deviceID, payload.Quantity)
	if err != nil {
		return nil, err
	}

	return gin.H{
		"paymentIntentId": intent.ID,
		"clientSecret":    intent.ClientSecret,
		"amount":          intent.Amount,
		"currency":        intent.Currency,
		"quantity":        payload.Quantity,
	}, nil
}

func (s *Server) actionConfirmPaymentIntent(ctx context.Context, _ *gin.Context, req actionRequest) (any, error) {
	var payload struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := decodePayload(req.payload, &payload); err != nil {
		return nil, err
	}

	result, err := s.deps.Reconciler.Reconcile(ctx, req.deviceID, domain.TransactionID(strings.TrimSpace(payload.PaymentIntentID)), domain.SourceClientConfirm)
	if err != nil {
		return nil, err
	}

	return gin.H{"applied": result.Applied, "credits": newCreditsView(result.Snapshot)}, nil
}

func (s *Server) actionStartConversation(ctx context.Context, c *gin.Context, req actionRequest) (any, error) {
	started, err := s.deps.Sessions.Start(ctx, req.deviceID)
	if err != nil {
		return nil, err
	}
	c.Header(headerSessionToken, string(started.Session.Token))

	return gin.H{"session": newSessionView(started.Session), "credits": newCreditsView(started.Snapshot)}, nil
}

func (s *Server) actionEndConversation(ctx context.Context, _ *gin.Context, req actionRequest) (any, error) {
	if err := s.deps.Sessions.End(ctx, req.deviceID, req.token); err != nil {
		return nil, err
	}

	return gin.H{"ended": true}, nil
}

// runStage validates input before authorizing so a rejected request is
// never charged. run receives the mode the conversation was paid with.
func (s *Server) runStage(ctx context.Context, c *gin.Context, req actionRequest, validate func() error, run func(context.Context, domain.Mode) (any, error)) (any, error) {
	if err := validate(); err != nil {
		return nil, err
	}

	auth, err := s.deps.Sessions.Authorize(ctx, req.deviceID, req.token)
	if err != nil {
		return nil, err
	}
	c.Header(headerSessionToken, string(auth.Session.Token))

	result, err := run(ctx, auth.Mode)
	if err != nil {
		return nil, err
	}

	return stageResponse{Result: result, Session: newSessionView(auth.Session), Charged: auth.Charged}, nil
}

func (s *Server) actionInitial(ctx context.Context, c *gin.Context, req actionRequest) (any, error) {
	var debate domain.Debate
	if err := decodePayload(req.payload, &debate); err != nil {
		return nil, err
	}

	return s.runStage(ctx, c, req, debate.Validate, func(ctx context.Context, mode domain.Mode) (any, error) {
		debate.Mode = mode
		return s.stages().Initial(ctx, debate)
	})
}

func (s *Server) actionQueries(ctx context.Context, c *gin.Context, req actionRequest) (any, error) {
	var debate domain.Debate
	if err := decodePayload(req.payload, &debate); err != nil {
		return nil, err
	}

	return s.runStage(ctx, c, req, debate.Validate, func(ctx context.Context, mode domain.Mode) (any, error) {
		debate.Mode = mode
		return s.stages().Queries(ctx, debate)
	})
}

func (s *Server) actionConflict(ctx context.Context, c *gin.Context, req actionRequest) (any, error) {
	var payload struct {
		domain.Debate
		application.Queries
	}
	if err := decodePayload(req.payload, &payload); err != nil {
		return nil, err
	}

	validate := func() error {
		if err := payload.Debate.Validate(); err != nil {
			return err
		}
		return payload.Queries.Validate()
	}

	return s.runStage(ctx, c, req, validate, func(ctx context.Context, mode domain.Mode) (any, error) {
		payload.Debate.Mode = mode
		return s.stages().Conflict(ctx, payload.Debate, payload.Queries)
	})
}

func (s *Server) actionSupportQuery(ctx context.Context, c *gin.Context, req actionRequest) (any, error) {
	var debate domain.Debate
	if err := decodePayload(req.payload, &debate); err != nil {
		return nil, err
	}

	return s.runStage(ctx, c, req, debate.Validate, func(ctx context.Context, mode domain.Mode) (any, error) {
		debate.Mode = mode
		return s.stages().SupportQuery(ctx, debate)
	})
}

func (s *Server) actionSupport(ctx context.Context, c *gin.Context, req actionRequest) (any, error) {
	var payload struct {
		domain.Debate
		application.SupportQuery
	}
	if err := decodePayload(req.payload, &payload); err != nil {
		return nil, err
	}

	validate := func() error {
		if err := payload.Debate.Validate(); err != nil {
			return err
		}
		return payload.SupportQuery.Validate()
	}

	return s.runStage(ctx, c, req, validate, func(ctx context.Context, mode domain.Mode) (any, error) {
		payload.Debate.Mode = mode
		return s.stages().Support(ctx, payload.Debate, payload.SupportQuery)
	})
}

func (s *Server) actionFinal(ctx context.Context, c *gin.Context, req actionRequest) (any, error) {
	var payload struct {
		domain.Debate
		InitialNarration  string `json:"initialNarration"`
		ConflictNarration string `json:"conflictNarration"`
		SupportNarration  string `json:"supportNarration"`
	}
	if err := decodePayload(req.payload, &payload); err != nil {
		return nil, err
	}

	input := application.FinalInput{
		Debate:            payload.Debate,
		InitialNarration:  payload.InitialNarration,
		ConflictNarration: payload.ConflictNarration,
		SupportNarration:  payload.SupportNarration,
	}

	return s.runStage(ctx, c, req, input.Validate, func(ctx context.Context, mode domain.Mode) (any, error) {
		input.Debate.Mode = mode
		return s.stages().Final(ctx, input)
	})
}

func (s *Server) actionTranscribeAndExtract(ctx context.Context, c *gin.Context, req actionRequest) (any, error) {
	var payload struct {
		AudioData string `json:"audioData"`
		MIMEType  string `json:"mimeType"`
	}
	if err := decodePayload(req.payload, &payload); err != nil {
		return nil, err
	}

	var clip domain.AudioClip
	validate := func() error {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload.AudioData))
		if err != nil {
			return fmt.Errorf("%w: audioData is not base64: %v", domain.ErrInvalidRequest, err)
		}
		clip = domain.AudioClip{Data: data, MIMEType: strings.TrimSpace(payload.MIMEType)}
		return clip.Validate(s.stages().MaxAudioBytes())
	}

	return s.runStage(ctx, c, req, validate, func(ctx context.Context, mode domain.Mode) (any, error) {
		return s.stages().TranscribeAndExtract(ctx, clip, mode)
	})
}

func (s *Server) stages() *application.Stages {
	return s.deps.Orchestrator.Stages()
}
