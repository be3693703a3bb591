package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCompletionTimeout = 45 * time.Second
	DefaultEvidenceTimeout   = 12 * time.Second
	DefaultSearchResults     = 3
	DefaultPagesPerQuery     = 2
	completionProvider       = "completion"
)

type PipelineConfig struct {
	CompletionTimeout time.Duration
	EvidenceTimeout   time.Duration
	SearchResults     int
	PagesPerQuery     int
	MaxAudioBytes     int
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = DefaultCompletionTimeout
	}
	if c.EvidenceTimeout <= 0 {
		c.EvidenceTimeout = DefaultEvidenceTimeout
	}
	if c.SearchResults <= 0 {
		c.SearchResults = DefaultSearchResults
	}
	if c.PagesPerQuery <= 0 {
		c.PagesPerQuery = DefaultPagesPerQuery
	}
	if c.MaxAudioBytes <= 0 {
		c.MaxAudioBytes = domain.DefaultMaxAudioBytes
	}

	return c
}

type InitialReply struct {
	SummaryBullets      []string `json:"summaryBullets"`
	PerspectiveABullets []string `json:"perspectiveABullets"`
	PerspectiveBBullets []string `json:"perspectiveBBullets"`
	Narration           string   `json:"narration"`
	OneLineSummary      string   `json:"oneLineSummary"`
}

func (r InitialReply) validate() error {
	if len(r.SummaryBullets) == 0 || strings.TrimSpace(r.Narration) == "" {
		return errors.New("initial reply lacks summary or narration")
	}

	return nil
}

type Queries struct {
	QueryA string `json:"queryA"`
	QueryB string `json:"queryB"`
}

func (q Queries) validate() error {
	if strings.TrimSpace(q.QueryA) == "" || strings.TrimSpace(q.QueryB) == "" {
		return errors.New("queries reply lacks a query")
	}

	return nil
}

// Validate checks Queries supplied by a caller as conflict stage input.
func (q Queries) Validate() error {
	if err := q.validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	return nil
}

type SupportQuery struct {
	Query string `json:"query"`
}

func (q SupportQuery) validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return errors.New("support query reply is empty")
	}

	return nil
}

func (q SupportQuery) Validate() error {
	if err := q.validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	return nil
}

// NarrativeReply is the model output shared by the conflict and support stages.
type NarrativeReply struct {
	SummaryBullets []string `json:"summaryBullets"`
	Narration      string   `json:"narration"`
	OneLineSummary string   `json:"oneLineSummary"`
}

func (r NarrativeReply) validate() error {
	if len(r.SummaryBullets) == 0 || strings.TrimSpace(r.Narration) == "" {
		return errors.New("reply lacks summary or narration")
	}

	return nil
}

type ConflictOutcome struct {
	NarrativeReply
	LinksA []domain.Link `json:"perspectiveALinks"`
	LinksB []domain.Link `json:"perspectiveBLinks"`
}

type SupportOutcome struct {
	NarrativeReply
	Links []domain.Link `json:"summaryLinks"`
}

type FinalInput struct {
	Debate            domain.Debate `json:"debate"`
	InitialNarration  string        `json:"initialNarration"`
	ConflictNarration string        `json:"conflictNarration"`
	SupportNarration  string        `json:"supportNarration"`
}

func (in FinalInput) Validate() error {
	if err := in.Debate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.InitialNarration) == "" ||
		strings.TrimSpace(in.ConflictNarration) == "" ||
		strings.TrimSpace(in.SupportNarration) == "" {
		return fmt.Errorf("%w: final stage needs all prior narrations", domain.ErrInvalidRequest)
	}

	return nil
}

type FinalReply struct {
	SummaryBullets      []string `json:"summaryBullets"`
	PerspectiveABullets []string `json:"perspectiveABullets"`
	PerspectiveBBullets []string `json:"perspectiveBBullets"`
	Narration           string   `json:"narration"`
}

func (r FinalReply) validate() error {
	if len(r.SummaryBullets) == 0 || strings.TrimSpace(r.Narration) == "" {
		return errors.New("final reply lacks summary or narration")
	}

	return nil
}

type validatable interface {
	validate() error
}

// Stages executes one pipeline action at a time. Each action is a pure
// function of its inputs plus the external completion and evidence calls.
type Stages struct {
	completer ports.Completer
	searcher  ports.EvidenceSearcher
	fetcher   ports.PageFetcher
	cfg       PipelineConfig
	logger    *zap.Logger
}

func NewStages(completer ports.Completer, searcher ports.EvidenceSearcher, fetcher ports.PageFetcher, cfg PipelineConfig, logger *zap.Logger) *Stages {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Stages{
		completer: completer,
		searcher:  searcher,
		fetcher:   fetcher,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

func (s *Stages) Initial(ctx context.Context, debate domain.Debate) (InitialReply, error) {
	if err := debate.Validate(); err != nil {
		return InitialReply{}, err
	}

	var reply InitialReply
	if err := s.run(ctx, domain.StageInitial, debate.Mode, debate, &reply); err != nil {
		return InitialReply{}, err
	}

	return reply, nil
}

func (s *Stages) Queries(ctx context.Context, debate domain.Debate) (Queries, error) {
	if err := debate.Validate(); err != nil {
		return Queries{}, err
	}

	var reply Queries
	if err := s.run(ctx, domain.StageQueryGen, debate.Mode, debate, &reply); err != nil {
		return Queries{}, err
	}

	return reply, nil
}

// Conflict gathers evidence for both queries and synthesizes the tension
// between the perspectives. Missing evidence never fails the stage.
func (s *Stages) Conflict(ctx context.Context, debate domain.Debate, queries Queries) (ConflictOutcome, error) {
	if err := debate.Validate(); err != nil {
		return ConflictOutcome{}, err
	}
	if err := queries.Validate(); err != nil {
		return ConflictOutcome{}, err
	}

	found := s.gather(ctx, queries.QueryA, queries.QueryB)

	var reply NarrativeReply
	err := s.run(ctx, domain.StageConflictEvidence, debate.Mode, conflictPromptData{
		Debate:    debate,
		QueryA:    queries.QueryA,
		QueryB:    queries.QueryB,
		EvidenceA: found[0].text,
		EvidenceB: found[1].text,
	}, &reply)
	if err != nil {
		return ConflictOutcome{}, err
	}

	return ConflictOutcome{
		NarrativeReply: reply,
		LinksA:         topLinks(found[0].results, s.cfg.PagesPerQuery),
		LinksB:         topLinks(found[1].results, s.cfg.PagesPerQuery),
	}, nil
}

func (s *Stages) SupportQuery(ctx context.Context, debate domain.Debate) (SupportQuery, error) {
	if err := debate.Validate(); err != nil {
		return SupportQuery{}, err
	}

	var reply SupportQuery
	if err := s.run(ctx, domain.StageSupportQuery, debate.Mode, debate, &reply); err != nil {
		return SupportQuery{}, err
	}

	return reply, nil
}

func (s *Stages) Support(ctx context.Context, debate domain.Debate, query SupportQuery) (SupportOutcome, error) {
	if err := debate.Validate(); err != nil {
		return SupportOutcome{}, err
	}
	if err := query.Validate(); err != nil {
		return SupportOutcome{}, err
	}

	found := s.gather(ctx, query.Query)

	var reply NarrativeReply
	err := s.run(ctx, domain.StageSupportEvidence, debate.Mode, supportPromptData{
		Debate:   debate,
		Query:    query.Query,
		Evidence: found[0].text,
	}, &reply)
	if err != nil {
		return SupportOutcome{}, err
	}

	return SupportOutcome{NarrativeReply: reply, Links: topLinks(found[0].results, s.cfg.PagesPerQuery)}, nil
}

func (s *Stages) Final(ctx context.Context, input FinalInput) (FinalReply, error) {
	if err := input.Validate(); err != nil {
		return FinalReply{}, err
	}

	var reply FinalReply
	if err := s.run(ctx, domain.StageFinal, input.Debate.Mode, input, &reply); err != nil {
		return FinalReply{}, err
	}

	return reply, nil
}

func (s *Stages) run(ctx context.Context, stage domain.Stage, mode domain.Mode, data any, out validatable) error {
	prompt, err := renderPrompt(stage, data)
	if err != nil {
		return err
	}

	return s.complete(ctx, ports.CompletionRequest{Action: stage, Prompt: prompt, Mode: mode}, out)
}

// complete runs one completion under the completion timeout and decodes its
// JSON payload into out. Results arriving after ctx is canceled are dropped.
func (s *Stages) complete(ctx context.Context, req ports.CompletionRequest, out validatable) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CompletionTimeout)
	defer cancel()

	stage := req.Action
	started := time.Now()
	raw, err := s.completer.Complete(callCtx, req)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		var upstream *domain.UpstreamError
		if !errors.As(err, &upstream) {
			err = &domain.UpstreamError{Provider: completionProvider, Kind: domain.UpstreamTransient, Err: err}
		}
		s.logger.Warn("completion failed", zap.String("stage", string(stage)), zap.Error(err))
		return fmt.Errorf("%s stage: %w", stage, err)
	}

	if err := decodeModelJSON(raw, out); err != nil {
		return fmt.Errorf("%s stage: %w", stage, &domain.UpstreamError{Provider: completionProvider, Kind: domain.UpstreamMalformed, Err: err})
	}
	if err := out.validate(); err != nil {
		return fmt.Errorf("%s stage: %w", stage, &domain.UpstreamError{Provider: completionProvider, Kind: domain.UpstreamMalformed, Err: err})
	}

	s.logger.Debug("completion finished", zap.String("stage", string(stage)), zap.Duration("elapsed", time.Since(started)))

	return nil
}

type evidence struct {
	results []domain.SearchResult
	text    string
}

// gather searches every query in parallel, then fetches the top pages of
// each result set in parallel. Failures and timeouts leave the slot empty.
func (s *Stages) gather(ctx context.Context, queries ...string) []evidence {
	evidenceCtx, cancel := context.WithTimeout(ctx, s.cfg.EvidenceTimeout)
	defer cancel()

	found := make([]evidence, len(queries))

	var searches errgroup.Group
	for i, query := range queries {
		if strings.TrimSpace(query) == "" {
			continue
		}
		searches.Go(func() error {
			results, err := s.searcher.Search(evidenceCtx, query, s.cfg.SearchResults)
			if err != nil {
				s.logger.Warn("evidence search failed", zap.String("query", query), zap.Error(err))
				return nil
			}
			found[i].results = results
			return nil
		})
	}
	_ = searches.Wait()

	pages := make([][]string, len(queries))
	var fetches errgroup.Group
	for i := range found {
		top := topResults(found[i].results, s.cfg.PagesPerQuery)
		pages[i] = make([]string, len(top))
		for j, result := range top {
			fetches.Go(func() error {
				text, err := s.fetcher.FetchText(evidenceCtx, result.URL)
				if err != nil {
					s.logger.Debug("evidence fetch failed", zap.String("url", result.URL), zap.Error(err))
					return nil
				}
				pages[i][j] = strings.TrimSpace(text)
				return nil
			})
		}
	}
	_ = fetches.Wait()

	for i := range found {
		parts := make([]string, 0, len(pages[i]))
		for _, page := range pages[i] {
			if page != "" {
				parts = append(parts, page)
			}
		}
		found[i].text = strings.Join(parts, " ")
	}

	return found
}

func topResults(results []domain.SearchResult, n int) []domain.SearchResult {
	if len(results) > n {
		return results[:n]
	}

	return results
}

func topLinks(results []domain.SearchResult, n int) []domain.Link {
	top := topResults(results, n)
	links := make([]domain.Link, 0, len(top))
	for _, result := range top {
		links = append(links, result.Link())
	}

	return links
}
