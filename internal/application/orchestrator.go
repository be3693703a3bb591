package application

import (
	"context"
	"time"

	"github.com/bnema/beright/internal/domain"
	"go.uber.org/zap"
)

type Progress struct {
	Stage    domain.Stage        `json:"stage"`
	Label    string              `json:"label"`
	Fraction float64             `json:"fraction"`
	Result   *domain.StageResult `json:"result,omitempty"`
}

type ProgressFunc func(Progress)

// Orchestrator drives a debate through every stage in order. It never
// charges credits; callers authorize the conversation before Run.
type Orchestrator struct {
	stages *Stages
	labels func() (string, string)
	logger *zap.Logger
}

func NewOrchestrator(stages *Stages, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{stages: stages, labels: domain.RandomFruitPair, logger: logger}
}

func (o *Orchestrator) Stages() *Stages {
	return o.stages
}

type runState struct {
	debate   domain.Debate
	initial  InitialReply
	queries  Queries
	conflict ConflictOutcome
	support  SupportQuery
	common   SupportOutcome
	final    FinalReply
}

type pipelineStep struct {
	stage    domain.Stage
	label    string
	fraction float64
	run      func(ctx context.Context, st *runState) (*domain.StageResult, error)
}

func (o *Orchestrator) steps() []pipelineStep {
	return []pipelineStep{
		{
			stage: domain.StageInitial, label: "Initial Analysis", fraction: 0.2,
			run: func(ctx context.Context, st *runState) (*domain.StageResult, error) {
				reply, err := o.stages.Initial(ctx, st.debate)
				if err != nil {
					return nil, err
				}
				st.initial = reply
				return &domain.StageResult{
					Stage:          domain.StageInitial,
					Title:          "Initial Understanding",
					SummaryBullets: reply.SummaryBullets,
					Narration:      reply.Narration,
					OneLineSummary: reply.OneLineSummary,
				}, nil
			},
		},
		{
			stage: domain.StageQueryGen, label: "Generating conflicting search queries", fraction: 0.35,
			run: func(ctx context.Context, st *runState) (*domain.StageResult, error) {
				queries, err := o.stages.Queries(ctx, st.debate)
				st.queries = queries
				return nil, err
			},
		},
		{
			stage: domain.StageConflictEvidence, label: "Conflicting Evidence", fraction: 0.5,
			run: func(ctx context.Context, st *runState) (*domain.StageResult, error) {
				outcome, err := o.stages.Conflict(ctx, st.debate, st.queries)
				if err != nil {
					return nil, err
				}
				st.conflict = outcome
				return narrativeResult(domain.StageConflictEvidence, "Conflicting Perspectives", outcome.NarrativeReply), nil
			},
		},
		{
			stage: domain.StageSupportQuery, label: "Searching for common ground", fraction: 0.6,
			run: func(ctx context.Context, st *runState) (*domain.StageResult, error) {
				query, err := o.stages.SupportQuery(ctx, st.debate)
				st.support = query
				return nil, err
			},
		},
		{
			stage: domain.StageSupportEvidence, label: "Supporting Evidence", fraction: 0.75,
			run: func(ctx context.Context, st *runState) (*domain.StageResult, error) {
				outcome, err := o.stages.Support(ctx, st.debate, st.support)
				if err != nil {
					return nil, err
				}
				st.common = outcome
				return narrativeResult(domain.StageSupportEvidence, "Finding Common Ground", outcome.NarrativeReply), nil
			},
		},
		{
			stage: domain.StageFinal, label: "Final synthesis", fraction: 0.9,
			run: func(ctx context.Context, st *runState) (*domain.StageResult, error) {
				reply, err := o.stages.Final(ctx, FinalInput{
					Debate:            st.debate,
					InitialNarration:  st.initial.Narration,
					ConflictNarration: st.conflict.Narration,
					SupportNarration:  st.common.Narration,
				})
				if err != nil {
					return nil, err
				}
				st.final = reply
				return &domain.StageResult{
					Stage:          domain.StageFinal,
					Title:          "Informed Perspectives",
					SummaryBullets: reply.SummaryBullets,
					Narration:      reply.Narration,
				}, nil
			},
		},
	}
}

// Run executes the pipeline and reports progress after every stage with
// increasing fractions. Any completion failure aborts the run; no partial
// result is returned. A debate without labels gets a random fruit pair.
func (o *Orchestrator) Run(ctx context.Context, debate domain.Debate, onProgress ProgressFunc) (domain.AnalysisResult, error) {
	if err := debate.Validate(); err != nil {
		return domain.AnalysisResult{}, err
	}
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	debate = debate.WithLabels(o.labels)
	st := &runState{debate: debate}
	started := time.Now()

	for _, step := range o.steps() {
		if err := ctx.Err(); err != nil {
			return domain.AnalysisResult{}, err
		}

		result, err := step.run(ctx, st)
		if err != nil {
			o.logger.Warn("pipeline aborted",
				zap.String("stage", string(step.stage)),
				zap.Duration("elapsed", time.Since(started)),
				zap.Error(err),
			)
			return domain.AnalysisResult{}, err
		}
		if err := ctx.Err(); err != nil {
			return domain.AnalysisResult{}, err
		}

		onProgress(Progress{Stage: step.stage, Label: step.label, Fraction: step.fraction, Result: result})
	}

	labelA, labelB := debate.Labels()
	analysis := domain.AnalysisResult{
		Topic:               debate.Topic,
		PerspectiveALabel:   labelA,
		PerspectiveBLabel:   labelB,
		PerspectiveABullets: st.final.PerspectiveABullets,
		PerspectiveBBullets: st.final.PerspectiveBBullets,
		SummaryBullets:      st.final.SummaryBullets,
		Narration:           st.final.Narration,
		SummaryLinks:        st.common.Links,
		PerspectiveALinks:   st.conflict.LinksA,
		PerspectiveBLinks:   st.conflict.LinksB,
	}

	onProgress(Progress{Stage: domain.StageDone, Label: "Done", Fraction: 1.0})
	o.logger.Info("pipeline finished", zap.String("topic", debate.Topic), zap.Duration("elapsed", time.Since(started)))

	return analysis, nil
}

func narrativeResult(stage domain.Stage, title string, reply NarrativeReply) *domain.StageResult {
	return &domain.StageResult{
		Stage:          stage,
		Title:          title,
		SummaryBullets: reply.SummaryBullets,
		Narration:      reply.Narration,
		OneLineSummary: reply.OneLineSummary,
	}
}
